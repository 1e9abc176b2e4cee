package pipeline

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"log"
	"path/filepath"

	"github.com/getcharzp/grounded-sam/mask"
	"github.com/up-zero/gotool/imageutil"
)

// Detection 单个检测结果
type Detection struct {
	Label string
	Score float32
	Box   image.Rectangle
}

// Detector 文本提示目标检测器
type Detector interface {
	Detect(img image.Image, query string) ([]Detection, error)
}

// Segmenter 框提示分割器
//
// 实现方必须对每张图片先建立自己的图像上下文再解码，
// 返回的 Mask 堆始终是 (N, H, W)，N 与 boxes 数量一致。
type Segmenter interface {
	Segment(img image.Image, boxes []image.Rectangle) (*mask.Stack, error)
}

// Annotator 标注图绘制器，可选依赖
type Annotator interface {
	Annotate(img image.Image, boxes []image.Rectangle, labels []string) image.Image
}

// RunStats 一次批处理的统计
type RunStats struct {
	Processed int // 成功写出 Mask 的图片数
	Failed    int // 处理失败被跳过的图片数
}

// Pipeline 批量 Mask 生成流水线
//
// 串行处理：一张图片完整走完 检测→分割→合并→落盘 后才开始下一张。
// 两个引擎在构造后只读，图像上下文的生命周期不跨图片。
type Pipeline struct {
	cfg       Config
	detector  Detector
	segmenter Segmenter
	annotator Annotator
}

// New 创建流水线
func New(cfg Config, detector Detector, segmenter Segmenter) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		detector:  detector,
		segmenter: segmenter,
	}
}

// WithAnnotator 启用标注图输出，需配合 Config.AnnotatedDir
func (p *Pipeline) WithAnnotator(a Annotator) *Pipeline {
	p.annotator = a
	return p
}

// Run 执行批处理
//
// 单张图片的失败只记录日志并跳过，批任务继续；
// 图片目录本身不可读会直接返回错误终止整批。
func (p *Pipeline) Run() (*RunStats, error) {
	query := NormalizeKeywords(p.cfg.Keywords)

	files, err := ListImages(p.cfg.ImagesDir)
	if err != nil {
		return nil, err
	}

	stats := new(RunStats)
	for _, name := range files {
		if err := p.processOne(name, query); err != nil {
			log.Printf("处理 %s 失败: %v", name, err)
			stats.Failed++
			continue
		}
		stats.Processed++
	}
	return stats, nil
}

// processOne 处理单张图片，输出文件名保留原名和原扩展名
func (p *Pipeline) processOne(name, query string) error {
	img, err := imageutil.Open(filepath.Join(p.cfg.ImagesDir, name))
	if err != nil {
		return fmt.Errorf("打开图片失败: %w", err)
	}

	detections, err := p.detector.Detect(img, query)
	if err != nil {
		return fmt.Errorf("检测失败: %w", err)
	}

	boxes := make([]image.Rectangle, 0, len(detections))
	labels := make([]string, 0, len(detections))
	for _, det := range detections {
		boxes = append(boxes, det.Box)
		labels = append(labels, fmt.Sprintf("%s %.2f", det.Label, det.Score))
	}

	// 零检测时返回 N=0 的空堆，合并结果为全零 Mask，照常落盘
	stack, err := p.segmenter.Segment(img, boxes)
	if err != nil {
		return fmt.Errorf("分割失败: %w", err)
	}
	if stack.Len() != len(boxes) {
		return fmt.Errorf("mask 数量(%d)与检测框数量(%d)不一致", stack.Len(), len(boxes))
	}

	combined := stack.Union()
	if err := imageutil.Save(filepath.Join(p.cfg.MasksDir, name), combined, 100); err != nil {
		return fmt.Errorf("保存 Mask 失败: %w", err)
	}

	// Mask 已落盘，标注图只是附加产物，写失败不算该图片失败
	if p.annotator != nil && p.cfg.AnnotatedDir != "" {
		overlay := stack.Overlay(img, color.RGBA{G: 255, A: 255}, 0.4)
		annotated := p.annotator.Annotate(overlay, boxes, labels)
		if err := imageutil.Save(filepath.Join(p.cfg.AnnotatedDir, name), annotated, 100); err != nil {
			log.Printf("保存 %s 标注图失败: %v", name, err)
		}
	}
	return nil
}
