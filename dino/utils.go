package dino

import (
	"image"
	"math"

	ort "github.com/getcharzp/onnxruntime_purego"
	"github.com/up-zero/gotool/imageutil"
)

// preprocess 预处理
//
// 短边缩放到 minEdge、长边不超过 maxEdge（保持纵横比），
// 再做 ImageNet 均值方差归一化，输出 (1, 3, H, W) Tensor。
// 输出框是归一化坐标，因此 params 只需记录原图尺寸。
func preprocess(img image.Image, minEdge, maxEdge int) (*ort.Value, imageParams, error) {
	bounds := img.Bounds()
	params := imageParams{
		origW: bounds.Dx(),
		origH: bounds.Dy(),
	}

	scale := float32(minEdge) / float32(min(params.origW, params.origH))
	if longest := scale * float32(max(params.origW, params.origH)); longest > float32(maxEdge) {
		scale = float32(maxEdge) / float32(max(params.origW, params.origH))
	}

	newW := int(float32(params.origW) * scale)
	newH := int(float32(params.origH) * scale)

	resized := imageutil.Resize(img, newW, newH)

	// 准备 Tensor 数据 (CHW + ImageNet Normalize)
	data := make([]float32, 3*newW*newH)
	for y := 0; y < newH; y++ {
		for x := 0; x < newW; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()

			idx := y*newW + x
			data[idx] = (float32(r)/65535.0 - MeanR) / StdR
			data[newW*newH+idx] = (float32(g)/65535.0 - MeanG) / StdG
			data[2*newW*newH+idx] = (float32(b)/65535.0 - MeanB) / StdB
		}
	}

	tensor, err := ort.NewTensor([]int64{1, 3, int64(newH), int64(newW)}, data)
	return tensor, params, err
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}

// isSpecialToken [CLS]/[SEP] 以及短语分隔的句点不参与匹配
func isSpecialToken(token string) bool {
	return token == tokenCLS || token == tokenSEP || token == "."
}

// joinPieces 拼接 WordPiece token 为可读短语
func joinPieces(pieces []string) string {
	out := ""
	for _, p := range pieces {
		if cut, ok := cutContinuation(p); ok {
			out += cut
			continue
		}
		if out != "" {
			out += " "
		}
		out += p
	}
	return out
}

func cutContinuation(piece string) (string, bool) {
	if len(piece) > 2 && piece[:2] == "##" {
		return piece[2:], true
	}
	return piece, false
}
