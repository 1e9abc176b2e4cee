package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	groundedsam "github.com/getcharzp/grounded-sam"
	"github.com/getcharzp/grounded-sam/dino"
	"github.com/getcharzp/grounded-sam/mask"
	"github.com/getcharzp/grounded-sam/pipeline"
	"github.com/getcharzp/grounded-sam/sam2"
)

// keywordList 可重复指定的关键词参数，支持逗号分隔
type keywordList []string

func (k *keywordList) String() string {
	return strings.Join(*k, ",")
}

func (k *keywordList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*k = append(*k, part)
		}
	}
	return nil
}

// dinoDetector pipeline.Detector 适配
type dinoDetector struct {
	engine *dino.Engine
}

func (d *dinoDetector) Detect(img image.Image, query string) ([]pipeline.Detection, error) {
	results, err := d.engine.Predict(img, query)
	if err != nil {
		return nil, err
	}

	detections := make([]pipeline.Detection, 0, len(results))
	for _, res := range results {
		detections = append(detections, pipeline.Detection{
			Label: res.Label,
			Score: res.Score,
			Box:   res.Box,
		})
	}
	return detections, nil
}

// sam2Segmenter pipeline.Segmenter 适配，每张图片独立建立图像上下文
type sam2Segmenter struct {
	engine *sam2.Engine
}

func (s *sam2Segmenter) Segment(img image.Image, boxes []image.Rectangle) (*mask.Stack, error) {
	ctx, err := s.engine.EncodeImage(img)
	if err != nil {
		return nil, err
	}
	defer ctx.Destroy()

	return ctx.DecodeBoxes(boxes)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func main() {
	// 机器本地路径放 .env，没有也不报错
	_ = godotenv.Load()

	imagesDir := flag.String("images_dir", "", "输入图片目录 (.jpg/.jpeg)")
	masksDir := flag.String("masks_dir", "", "Mask 输出目录，须已存在")
	annotatedDir := flag.String("annotated_dir", "", "(可选) 标注图输出目录")
	configPath := flag.String("config", "", "(可选) YAML 配置文件，命令行参数优先")

	var keywords keywordList
	flag.Var(&keywords, "keywords", "检测关键词，可多次指定或用逗号分隔")

	onnxLib := flag.String("onnx_lib", getEnv("ONNXRUNTIME_LIB", groundedsam.DefaultLibraryPath()), "ONNX Runtime 动态库路径")
	dinoModel := flag.String("dino_model", getEnv("DINO_MODEL_PATH", ""), "Grounding DINO 模型路径")
	dinoVocab := flag.String("dino_vocab", getEnv("DINO_VOCAB_PATH", ""), "Grounding DINO 词表路径")
	sam2Encoder := flag.String("sam2_encoder", getEnv("SAM2_ENCODER_PATH", ""), "SAM2 Encoder 模型路径")
	sam2Decoder := flag.String("sam2_decoder", getEnv("SAM2_DECODER_PATH", ""), "SAM2 Decoder 模型路径")
	fontPath := flag.String("font", "./fonts/NotoSansSC-Regular.ttf", "标注图标签字体路径")
	useCuda := flag.Bool("use_cuda", false, "是否启用 CUDA")
	numThreads := flag.Int("threads", 0, "ONNX 线程数，0 由CPU核心数决定")
	flag.Parse()

	cfg := pipeline.Config{}
	if *configPath != "" {
		loaded, err := pipeline.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("[-] %v", err)
		}
		cfg = *loaded
	}
	if *imagesDir != "" {
		cfg.ImagesDir = *imagesDir
	}
	if *masksDir != "" {
		cfg.MasksDir = *masksDir
	}
	if *annotatedDir != "" {
		cfg.AnnotatedDir = *annotatedDir
	}
	if len(keywords) > 0 {
		cfg.Keywords = keywords
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] 参数错误: %v", err)
	}

	// 检测引擎
	dinoCfg := dino.DefaultConfig()
	dinoCfg.OnnxRuntimeLibPath = *onnxLib
	dinoCfg.UseCuda = *useCuda
	dinoCfg.NumThreads = *numThreads
	if *dinoModel != "" {
		dinoCfg.ModelPath = *dinoModel
	}
	if *dinoVocab != "" {
		dinoCfg.VocabPath = *dinoVocab
	}
	detEngine, err := dino.NewEngine(dinoCfg)
	if err != nil {
		log.Fatalf("[-] 初始化检测引擎失败: %v", err)
	}
	defer detEngine.Destroy()

	// 分割引擎
	samCfg := sam2.DefaultConfig()
	samCfg.OnnxRuntimeLibPath = *onnxLib
	samCfg.UseCuda = *useCuda
	samCfg.NumThreads = *numThreads
	if *sam2Encoder != "" {
		samCfg.EncodeModelPath = *sam2Encoder
	}
	if *sam2Decoder != "" {
		samCfg.DecodeModelPath = *sam2Decoder
	}
	segEngine, err := sam2.NewEngine(samCfg)
	if err != nil {
		log.Fatalf("[-] 初始化分割引擎失败: %v", err)
	}
	defer segEngine.Destroy()

	p := pipeline.New(cfg, &dinoDetector{engine: detEngine}, &sam2Segmenter{engine: segEngine})

	if cfg.AnnotatedDir != "" {
		annotator, err := groundedsam.NewAnnotator(*fontPath)
		if err != nil {
			log.Fatalf("[-] 初始化标注工具失败: %v", err)
		}
		defer annotator.Close()
		p.WithAnnotator(annotator)
	}

	stats, err := p.Run()
	if err != nil {
		log.Fatalf("[-] %v", err)
	}
	fmt.Printf("处理完成: 成功 %d, 失败 %d\n", stats.Processed, stats.Failed)
}
