package sam2

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoxPrompt(t *testing.T) {
	points := boxPrompt(image.Rect(10, 20, 110, 220))
	require.Len(t, points, 2)

	require.Equal(t, LabelBoxTopLeft, points[0].Label)
	require.Equal(t, float32(10), points[0].X)
	require.Equal(t, float32(20), points[0].Y)

	require.Equal(t, LabelBoxBotRight, points[1].Label)
	require.Equal(t, float32(110), points[1].X)
	require.Equal(t, float32(220), points[1].Y)
}

func TestUpscaleMaskLogits(t *testing.T) {
	// 4x4 logits，左上 2x2 为正
	logitsDim := 4
	logits := make([]float32, logitsDim*logitsDim)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			logits[y*logitsDim+x] = 1.0
		}
	}
	for i := range logits {
		if logits[i] == 0 {
			logits[i] = -1.0
		}
	}

	out := upscaleMaskLogits(logits, logitsDim, 4, 4, 8, 8)
	require.Len(t, out, 8*8)

	// 输出严格二值，且左上象限为前景
	for _, v := range out {
		require.Contains(t, []uint8{0, 255}, v)
	}
	require.Equal(t, uint8(255), out[0])
	require.Equal(t, uint8(255), out[3*8+3])
	require.Equal(t, uint8(0), out[4*8+4])
	require.Equal(t, uint8(0), out[7*8+7])
}

func TestUpscaleMaskLogitsNonSquare(t *testing.T) {
	// 有效区域小于 logits 尺寸时不越界采样
	logitsDim := 4
	logits := make([]float32, logitsDim*logitsDim)
	for i := range logits {
		logits[i] = 1.0
	}

	out := upscaleMaskLogits(logits, logitsDim, 2, 3, 10, 6)
	require.Len(t, out, 10*6)
	for _, v := range out {
		require.Equal(t, uint8(255), v)
	}
}

func TestNormalizeAndPad(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	data := normalizeAndPad(img, 4, 4)
	require.Len(t, data, 3*4*4)

	// 白色像素按 ImageNet 均值方差归一化
	require.InDelta(t, (1.0-MeanR)/StdR, float64(data[0]), 1e-4)
	require.InDelta(t, (1.0-MeanG)/StdG, float64(data[16]), 1e-4)
	require.InDelta(t, (1.0-MeanB)/StdB, float64(data[32]), 1e-4)

	// 填充区域保持零
	require.Equal(t, float32(0), data[3])
	require.Equal(t, float32(0), data[15])
}
