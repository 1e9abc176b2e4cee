package groundedsam

import (
	"image"
	"image/color"
	"os"
	"testing"
)

func TestAnnotatorAnnotate(t *testing.T) {
	fontPath := "./fonts/NotoSansSC-Regular.ttf"
	if _, err := os.Stat(fontPath); err != nil {
		t.Skipf("字体文件不存在: %v", err)
	}

	a, err := NewAnnotator(fontPath)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	src := image.NewRGBA(image.Rect(0, 0, 200, 150))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	boxes := []image.Rectangle{
		image.Rect(20, 30, 120, 100),
		image.Rect(60, 60, 180, 140),
	}
	out := a.Annotate(src, boxes, []string{"cat 0.91", "dog 0.77"})

	if out.Bounds() != src.Bounds() {
		t.Fatalf("标注图尺寸变化: %v != %v", out.Bounds(), src.Bounds())
	}

	// 框线位置的颜色应偏离原图的纯白
	r, g, b, _ := out.At(20, 50).RGBA()
	if r>>8 == 255 && g>>8 == 255 && b>>8 == 255 {
		t.Fatal("框线未绘制")
	}

	// 原图不被修改
	if src.RGBAAt(20, 50) != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Fatal("原图被修改")
	}
}
