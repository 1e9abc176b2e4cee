package groundedsam

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/up-zero/gotool/imageutil"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// palette 检测框的循环配色
var palette = []color.RGBA{
	{R: 255, G: 64, B: 64, A: 255},
	{G: 200, B: 64, A: 255},
	{R: 64, G: 128, B: 255, A: 255},
	{R: 255, G: 160, A: 255},
	{R: 200, G: 64, B: 200, A: 255},
	{G: 200, B: 200, A: 255},
}

// Annotator 将检测框和标签绘制到图片副本上
type Annotator struct {
	font      *opentype.Font
	face      font.Face
	fontSize  float64
	Thickness int // 框线宽度，默认 3
}

// NewAnnotator 创建标注工具
//
// # Params:
//
//	fontPath: 标签字体路径
func NewAnnotator(fontPath string) (*Annotator, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("打开字体文件失败：%w", err)
	}

	ttFont, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("解析字体文件失败：%w", err)
	}

	a := &Annotator{font: ttFont, Thickness: 3}
	if err := a.SetFontSize(16); err != nil {
		return nil, err
	}
	return a, nil
}

// SetFontSize 动态调整标签字体大小
func (a *Annotator) SetFontSize(fontSize float64) error {
	if a.face != nil && a.fontSize == fontSize {
		return nil
	}

	// 释放旧 Face 内存
	if a.face != nil {
		a.face.Close()
	}

	nf, err := opentype.NewFace(a.font, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return err
	}

	a.face = nf
	a.fontSize = fontSize
	return nil
}

// Annotate 在原图副本上绘制检测框与标签
//
// # Params:
//
//	img: 原图
//	boxes: 检测框
//	labels: 与 boxes 一一对应的标签，长度不足时剩余框不带标签
func (a *Annotator) Annotate(img image.Image, boxes []image.Rectangle, labels []string) image.Image {
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, img.Bounds(), img, img.Bounds().Min, draw.Src)

	for i, box := range boxes {
		c := palette[i%len(palette)]
		a.drawBox(dst, box, c)

		if i < len(labels) && labels[i] != "" {
			// 标签画在框的左上角上方，贴近顶边时画到框内
			y := box.Min.Y - 6
			if y < int(a.fontSize) {
				y = box.Min.Y + int(a.fontSize) + 4
			}
			a.drawText(dst, labels[i], box.Min.X, y, c)
		}
	}
	return dst
}

// drawBox 绘制矩形框的四条边
func (a *Annotator) drawBox(dst draw.Image, box image.Rectangle, c color.RGBA) {
	tl := image.Point{X: box.Min.X, Y: box.Min.Y}
	tr := image.Point{X: box.Max.X, Y: box.Min.Y}
	br := image.Point{X: box.Max.X, Y: box.Max.Y}
	bl := image.Point{X: box.Min.X, Y: box.Max.Y}

	imageutil.DrawThickLine(dst, tl, tr, a.Thickness, c)
	imageutil.DrawThickLine(dst, tr, br, a.Thickness, c)
	imageutil.DrawThickLine(dst, br, bl, a.Thickness, c)
	imageutil.DrawThickLine(dst, bl, tl, a.Thickness, c)
}

// drawText 绘制文本
func (a *Annotator) drawText(dst draw.Image, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: a.face,
		Dot: fixed.Point26_6{
			X: fixed.I(x),
			Y: fixed.I(y),
		},
	}
	d.DrawString(text)
}

// Close 释放资源
func (a *Annotator) Close() {
	if a.face != nil {
		a.face.Close()
	}
}
