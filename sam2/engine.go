package sam2

import (
	"fmt"
	"image"
	"runtime"

	groundedsam "github.com/getcharzp/grounded-sam"
	"github.com/getcharzp/grounded-sam/mask"
	ort "github.com/getcharzp/onnxruntime_purego"
	"github.com/up-zero/gotool/convertutil"
	"github.com/up-zero/gotool/imageutil"
)

// encoder 输出的特征名，decoder 按同名接收
var embeddingNames = []string{"image_embeddings.0", "image_embeddings.1", "image_embeddings.2"}

// Engine 持有 Encoder/Decoder 的 ONNX Session，负责创建 ImageContext
type Engine struct {
	encoderSession *ort.Session
	decoderSession *ort.Session
	config         Config
}

// NewEngine 初始化 sam2 引擎
func NewEngine(cfg Config) (*Engine, error) {
	oc := new(groundedsam.OnnxConfig)
	if err := convertutil.CopyProperties(cfg, oc); err != nil {
		return nil, fmt.Errorf("复制参数失败: %w", err)
	}
	// 初始化 ONNX
	if err := oc.New(); err != nil {
		return nil, err
	}

	// encoder session
	encSession, err := oc.OnnxEngine.NewSession(cfg.EncodeModelPath, oc.SessionOptions)
	if err != nil {
		return nil, fmt.Errorf("创建 Encoder ONNX 会话失败: %w", err)
	}

	// decoder session
	decSession, err := oc.OnnxEngine.NewSession(cfg.DecodeModelPath, oc.SessionOptions)
	if err != nil {
		encSession.Destroy()
		return nil, fmt.Errorf("创建 Decoder ONNX 会话失败: %w", err)
	}

	return &Engine{
		encoderSession: encSession,
		decoderSession: decSession,
		config:         cfg,
	}, nil
}

// Destroy 释放相关资源
func (e *Engine) Destroy() {
	if e.encoderSession != nil {
		e.encoderSession.Destroy()
	}
	if e.decoderSession != nil {
		e.decoderSession.Destroy()
	}
}

// ImageContext 包含特定图像的特征缓存和参数
//
// 每张图片处理前必须重新 EncodeImage，Context 不可跨图片复用。
type ImageContext struct {
	engine          *Engine
	imageEmbeddings map[string]*ort.Value

	origW, origH int
	scale        float32
	newW, newH   int
	isDestroyed  bool
}

// EncodeImage 图像特征提取，对应下游所有 Decode 调用的 "set image"
func (e *Engine) EncodeImage(img image.Image) (*ImageContext, error) {
	// 预处理
	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()

	scale := float32(inputSize) / float32(max(origW, origH))
	newW := int(float32(origW) * scale)
	newH := int(float32(origH) * scale)

	resizedImg := imageutil.Resize(img, newW, newH)
	tensorData := normalizeAndPad(resizedImg, inputSize, inputSize)

	// 创建 Input Tensor
	inputTensor, err := ort.NewTensor([]int64{1, 3, int64(inputSize), int64(inputSize)}, tensorData)
	if err != nil {
		return nil, fmt.Errorf("创建图片 Input Tensor 失败: %w", err)
	}
	defer inputTensor.Destroy()

	// Encoder 推理
	outputs, err := e.encoderSession.Run(map[string]*ort.Value{
		"pixel_values": inputTensor,
	})
	if err != nil {
		return nil, fmt.Errorf("encoder 推理失败: %w", err)
	}

	embeddings := make(map[string]*ort.Value, len(embeddingNames))
	for _, name := range embeddingNames {
		v, ok := outputs[name]
		if !ok {
			for _, o := range outputs {
				o.Destroy()
			}
			return nil, fmt.Errorf("encoder 缺少输出: %s", name)
		}
		embeddings[name] = v
	}

	ctx := &ImageContext{
		engine:          e,
		imageEmbeddings: embeddings,
		origW:           origW,
		origH:           origH,
		scale:           scale,
		newW:            newW,
		newH:            newH,
	}

	// 设置 Finalizer 以防用户忘记 Destroy
	runtime.SetFinalizer(ctx, func(c *ImageContext) { c.Destroy() })

	return ctx, nil
}

// Destroy 释放图像特征缓存
func (ctx *ImageContext) Destroy() {
	if ctx.isDestroyed {
		return
	}
	for _, v := range ctx.imageEmbeddings {
		if v != nil {
			v.Destroy()
		}
	}
	ctx.imageEmbeddings = nil
	ctx.isDestroyed = true
}

// Result Mask 预测结果
type Result struct {
	Mask   []uint8 // 0 or 255
	Score  float32
	Width  int
	Height int
}

// DecodeRaw Mask解码并返回原始结果
func (ctx *ImageContext) DecodeRaw(points []Point) (*Result, error) {
	if ctx.isDestroyed {
		return nil, fmt.Errorf("图片特征已销毁")
	}

	// 坐标转换
	coords := make([]float32, 0, len(points)*2)
	labels := make([]int64, 0, len(points))

	for _, pt := range points {
		coords = append(coords, pt.X*ctx.scale, pt.Y*ctx.scale)
		labels = append(labels, int64(pt.Label))
	}

	numPoints := int64(len(points))

	// 准备 Decoder Tensors
	tPoints, err := ort.NewTensor([]int64{1, 1, numPoints, 2}, coords)
	if err != nil {
		return nil, fmt.Errorf("创建 Decoder Points Tensor 失败: %w", err)
	}
	defer tPoints.Destroy()

	tLabels, err := ort.NewTensor([]int64{1, 1, numPoints}, labels)
	if err != nil {
		return nil, fmt.Errorf("创建 Decoder Labels Tensor 失败: %w", err)
	}
	defer tLabels.Destroy()

	// box 通过 point 控制
	var emptyFloat []float32
	tBoxes, err := ort.NewTensor([]int64{1, 0, 4}, emptyFloat)
	if err != nil {
		return nil, fmt.Errorf("创建 Decoder Boxes Tensor 失败: %w", err)
	}
	defer tBoxes.Destroy()

	inputs := map[string]*ort.Value{
		"input_points": tPoints,
		"input_labels": tLabels,
		"input_boxes":  tBoxes,
	}
	for _, name := range embeddingNames {
		inputs[name] = ctx.imageEmbeddings[name]
	}

	// Decoder 推理
	outputs, err := ctx.engine.decoderSession.Run(inputs)
	if err != nil {
		return nil, fmt.Errorf("decoder 推理失败: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			o.Destroy()
		}
	}()

	// 获取最佳 Mask
	rawScores, err := ort.GetTensorData[float32](outputs["iou_scores"])
	if err != nil {
		return nil, fmt.Errorf("获取 iou_scores 失败: %w", err)
	}
	rawMasks, err := ort.GetTensorData[float32](outputs["pred_masks"])
	if err != nil {
		return nil, fmt.Errorf("获取 pred_masks 失败: %w", err)
	}

	bestIdx := 0
	bestScore := float32(-100.0)

	for i := 0; i < len(rawScores); i++ {
		if rawScores[i] > bestScore {
			bestScore = rawScores[i]
			bestIdx = i
		}
	}

	// 提取对应的 Mask Logits (256x256)
	pixelsPerMask := 256 * 256
	start := bestIdx * pixelsPerMask
	end := start + pixelsPerMask
	bestMaskLogits := rawMasks[start:end]

	validMaskW := int(float32(ctx.newW) / 4.0)
	validMaskH := int(float32(ctx.newH) / 4.0)

	finalMask := upscaleMaskLogits(bestMaskLogits, 256, validMaskW, validMaskH, ctx.origW, ctx.origH)

	return &Result{
		Mask:   finalMask,
		Score:  bestScore,
		Width:  ctx.origW,
		Height: ctx.origH,
	}, nil
}

// DecodeBox 以检测框为提示解码单个 Mask
func (ctx *ImageContext) DecodeBox(box image.Rectangle) (*Result, error) {
	return ctx.DecodeRaw(boxPrompt(box))
}

// DecodeBoxes 以一组检测框为提示批量解码
//
// 返回的 Mask 堆始终是 (N, H, W) 形状，N=0（无检测框）和 N=1 同样成立，
// 调用方无需再处理缺失的批维度。
func (ctx *ImageContext) DecodeBoxes(boxes []image.Rectangle) (*mask.Stack, error) {
	if ctx.isDestroyed {
		return nil, fmt.Errorf("图片特征已销毁")
	}

	stack := mask.NewStack(ctx.origW, ctx.origH)
	for i, box := range boxes {
		res, err := ctx.DecodeBox(box)
		if err != nil {
			return nil, fmt.Errorf("第 %d 个框解码失败: %w", i, err)
		}
		if err := stack.Append(res.Mask); err != nil {
			return nil, err
		}
	}
	return stack, nil
}

// Decode Mask解码并返回图片
func (ctx *ImageContext) Decode(points []Point) (image.Image, float32, error) {
	result, err := ctx.DecodeRaw(points)
	if err != nil {
		return nil, 0, err
	}

	img := image.NewGray(image.Rect(0, 0, result.Width, result.Height))
	copy(img.Pix, result.Mask)
	return img, result.Score, nil
}
