package dino

import (
	"image"

	groundedsam "github.com/getcharzp/grounded-sam"
)

// 均值和方差常量
const (
	MeanR = 0.485
	MeanG = 0.456
	MeanB = 0.406

	StdR = 0.229
	StdG = 0.224
	StdB = 0.225
)

// Config 引擎的初始化参数
type Config struct {
	ModelPath          string // ONNX 模型路径
	VocabPath          string // WordPiece 词表路径 (vocab.txt)
	OnnxRuntimeLibPath string // ONNX Runtime 动态库路径

	// 推理参数
	BoxThreshold  float32 // 检测框置信度阈值 (默认 0.40)
	TextThreshold float32 // 文本匹配阈值 (默认 0.30)

	// 模型参数
	MaxTextLen  int // 文本最大 token 数 (默认 256)
	MinEdgeSize int // 短边缩放目标 (默认 800)
	MaxEdgeSize int // 长边上限 (默认 1333)

	// 可选参数
	UseCuda           bool // (可选) 是否启用 CUDA
	NumThreads        int  // (可选) ONNX 线程数, 默认由CPU核心数决定
	EnableCpuMemArena bool // (可选) 是否开启 ONNX 内存池
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		OnnxRuntimeLibPath: groundedsam.DefaultLibraryPath(),
		ModelPath:          "./dino_weights/grounding_dino_tiny.onnx",
		VocabPath:          "./dino_weights/vocab.txt",
		BoxThreshold:       0.40,
		TextThreshold:      0.30,
		MaxTextLen:         256,
		MinEdgeSize:        800,
		MaxEdgeSize:        1333,
	}
}

// DetResult 零样本检测结果
type DetResult struct {
	// 命中的查询短语，由超过 TextThreshold 的 token 拼接而成，
	// 例如查询 "cat. dog." 时可能为 "cat"
	Label string
	Score float32
	Box   image.Rectangle // 原图坐标系的检测框
}

// imageParams 图片尺寸信息
type imageParams struct {
	origW, origH int
}
