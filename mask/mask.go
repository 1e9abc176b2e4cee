package mask

import (
	"fmt"
	"image"
	"image/color"
)

// Stack 按序收集的 (N, H, W) 二值 Mask 堆
//
// 每层是一个长度为 W*H 的行优先 uint8 数组，取值 0 或 255。
// 所有层的尺寸必须一致，N=0 的空堆是合法状态。
type Stack struct {
	W, H   int
	layers [][]uint8
}

// NewStack 创建指定尺寸的空 Mask 堆
func NewStack(w, h int) *Stack {
	return &Stack{W: w, H: h}
}

// Len 当前层数 N
func (s *Stack) Len() int {
	return len(s.layers)
}

// Append 追加一层 Mask
func (s *Stack) Append(data []uint8) error {
	if len(data) != s.W*s.H {
		return fmt.Errorf("mask 尺寸不匹配: 期望 %d, 实际 %d", s.W*s.H, len(data))
	}
	s.layers = append(s.layers, data)
	return nil
}

// Layer 返回第 i 层的原始数据
func (s *Stack) Layer(i int) []uint8 {
	return s.layers[i]
}

// Union 沿 N 轴做逐像素逻辑或，返回 (H, W) 的 0/255 灰度图
//
// N=0 时返回同尺寸的全零 Mask，不视为错误。
func (s *Stack) Union() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, s.W, s.H))
	for _, layer := range s.layers {
		for i, v := range layer {
			if v != 0 {
				out.Pix[i] = 255
			}
		}
	}
	return out
}

// Overlay 将合并后的 Mask 以指定颜色叠加到原图副本上，用于人工检查
//
// 输出统一为原点坐标系，SubImage 等非原点 bounds 的输入同样成立。
func (s *Stack) Overlay(img image.Image, c color.RGBA, alpha float64) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	combined := s.Union()
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			px := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}

			if x < s.W && y < s.H && combined.Pix[y*s.W+x] != 0 {
				px.R = uint8(float64(px.R)*(1-alpha) + float64(c.R)*alpha)
				px.G = uint8(float64(px.G)*(1-alpha) + float64(c.G)*alpha)
				px.B = uint8(float64(px.B)*(1-alpha) + float64(c.B)*alpha)
			}
			dst.SetRGBA(x, y, px)
		}
	}
	return dst
}
