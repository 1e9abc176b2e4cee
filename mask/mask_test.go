package mask

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStackUnion(t *testing.T) {
	s := NewStack(4, 2)
	require.NoError(t, s.Append([]uint8{
		255, 0, 0, 0,
		255, 0, 0, 0,
	}))
	require.NoError(t, s.Append([]uint8{
		0, 255, 0, 0,
		0, 0, 0, 255,
	}))
	require.Equal(t, 2, s.Len())
	require.Equal(t, uint8(255), s.Layer(0)[0])
	require.Equal(t, uint8(255), s.Layer(1)[1])

	out := s.Union()
	require.Equal(t, 4, out.Bounds().Dx())
	require.Equal(t, 2, out.Bounds().Dy())

	expected := []uint8{
		255, 255, 0, 0,
		255, 0, 0, 255,
	}
	require.Equal(t, expected, out.Pix)
}

func TestStackUnionBinary(t *testing.T) {
	s := NewStack(2, 2)
	// 非 0/255 的中间值也只产生二值输出
	require.NoError(t, s.Append([]uint8{1, 0, 128, 0}))

	out := s.Union()
	for _, v := range out.Pix {
		require.Contains(t, []uint8{0, 255}, v)
	}
}

func TestStackUnionEmpty(t *testing.T) {
	// N=0：无检测框时并集是全零 Mask，而不是崩溃
	out := NewStack(3, 2).Union()
	require.Equal(t, 3, out.Bounds().Dx())
	require.Equal(t, 2, out.Bounds().Dy())
	for _, v := range out.Pix {
		require.Equal(t, uint8(0), v)
	}
}

func TestStackAppendSizeMismatch(t *testing.T) {
	s := NewStack(4, 4)
	require.Error(t, s.Append(make([]uint8, 15)))
	require.Equal(t, 0, s.Len())
}

func TestStackOverlay(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 100, G: 100, B: 100, A: 255})

	s := NewStack(2, 1)
	require.NoError(t, s.Append([]uint8{255, 0}))

	out := s.Overlay(img, color.RGBA{G: 255, A: 255}, 0.5)

	// 命中像素向叠加色偏移，未命中像素原样
	hit := out.RGBAAt(0, 0)
	require.Greater(t, hit.G, uint8(150))
	require.Less(t, hit.R, uint8(100))
	require.Equal(t, uint8(100), out.RGBAAt(1, 0).R)
}

func TestStackOverlaySubImage(t *testing.T) {
	// 非原点 bounds 的输入（如 SubImage）也要正常叠加
	base := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			base.SetRGBA(x, y, color.RGBA{R: 100, G: 100, B: 100, A: 255})
		}
	}
	sub := base.SubImage(image.Rect(2, 2, 4, 3)).(*image.RGBA)

	s := NewStack(2, 1)
	require.NoError(t, s.Append([]uint8{255, 0}))

	out := s.Overlay(sub, color.RGBA{G: 255, A: 255}, 0.5)
	require.Equal(t, image.Rect(0, 0, 2, 1), out.Bounds())

	hit := out.RGBAAt(0, 0)
	require.Greater(t, hit.G, uint8(150))
	require.Equal(t, uint8(100), out.RGBAAt(1, 0).R)
}
