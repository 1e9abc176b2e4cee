package dino

import (
	"fmt"
	"image"

	groundedsam "github.com/getcharzp/grounded-sam"
	ort "github.com/getcharzp/onnxruntime_purego"
	"github.com/up-zero/gotool/convertutil"
)

// Engine Grounding DINO 零样本检测引擎
//
// 模型为 HF grounding-dino 的 ONNX 导出：
//
//	输入: pixel_values (1,3,H,W), input_ids / attention_mask / token_type_ids (1,L)
//	输出: logits (1,Q,MaxTextLen), pred_boxes (1,Q,4) 归一化 cx,cy,w,h
type Engine struct {
	session   *ort.Session
	tokenizer *Tokenizer
	config    Config
}

// NewEngine 初始化检测引擎
func NewEngine(cfg Config) (*Engine, error) {
	oc := new(groundedsam.OnnxConfig)
	if err := convertutil.CopyProperties(cfg, oc); err != nil {
		return nil, fmt.Errorf("复制参数失败: %w", err)
	}
	// 初始化 ONNX
	if err := oc.New(); err != nil {
		return nil, err
	}

	tokenizer, err := NewTokenizer(cfg.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("加载词表失败: %w", err)
	}

	// 创建 Session
	session, err := oc.OnnxEngine.NewSession(cfg.ModelPath, oc.SessionOptions)
	if err != nil {
		return nil, fmt.Errorf("创建 ONNX 会话失败: %w", err)
	}

	return &Engine{
		session:   session,
		tokenizer: tokenizer,
		config:    cfg,
	}, nil
}

// Destroy 释放相关资源
func (e *Engine) Destroy() {
	if e.session != nil {
		e.session.Destroy()
	}
}

// Predict 对图片执行文本提示检测
//
// query 为句点结尾、空格分隔的短语串，原样送入模型。
// 没有任何候选超过 BoxThreshold 时返回空切片而非错误。
func (e *Engine) Predict(img image.Image, query string) ([]DetResult, error) {
	ids, tokens, err := e.tokenizer.Encode(query, e.config.MaxTextLen)
	if err != nil {
		return nil, fmt.Errorf("编码查询文本失败: %w", err)
	}

	// 文本 Tensors
	seqLen := int64(len(ids))
	attentionMask := make([]int64, seqLen)
	tokenTypeIDs := make([]int64, seqLen)
	for i := range attentionMask {
		attentionMask[i] = 1
	}

	tIDs, err := ort.NewTensor([]int64{1, seqLen}, ids)
	if err != nil {
		return nil, fmt.Errorf("创建 input_ids Tensor 失败: %w", err)
	}
	defer tIDs.Destroy()

	tMask, err := ort.NewTensor([]int64{1, seqLen}, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("创建 attention_mask Tensor 失败: %w", err)
	}
	defer tMask.Destroy()

	tTypes, err := ort.NewTensor([]int64{1, seqLen}, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("创建 token_type_ids Tensor 失败: %w", err)
	}
	defer tTypes.Destroy()

	// 图片预处理
	inputTensor, params, err := preprocess(img, e.config.MinEdgeSize, e.config.MaxEdgeSize)
	if err != nil {
		return nil, fmt.Errorf("预处理失败: %w", err)
	}
	defer inputTensor.Destroy()

	// 推理
	outputValues, err := e.session.Run(map[string]*ort.Value{
		"pixel_values":   inputTensor,
		"input_ids":      tIDs,
		"attention_mask": tMask,
		"token_type_ids": tTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("推理失败: %w", err)
	}
	defer func() {
		for _, v := range outputValues {
			v.Destroy()
		}
	}()

	logits, err := ort.GetTensorData[float32](outputValues["logits"])
	if err != nil {
		return nil, fmt.Errorf("获取输出数据失败: %w", err)
	}
	logitsShape, err := outputValues["logits"].GetShape()
	if err != nil {
		return nil, fmt.Errorf("获取输出形状失败: %w", err)
	}
	boxes, err := ort.GetTensorData[float32](outputValues["pred_boxes"])
	if err != nil {
		return nil, fmt.Errorf("获取输出数据失败: %w", err)
	}

	// 后处理
	return e.parseDetections(logits, logitsShape, boxes, tokens, params), nil
}

// parseDetections 后处理
//
// 每个 query 在文本 token 维度上取 sigmoid 最大值作为置信度，
// 超过 BoxThreshold 的保留；短语由超过 TextThreshold 的 token 拼出。
func (e *Engine) parseDetections(logits []float32, shape []int64, boxes []float32, tokens []string, params imageParams) []DetResult {
	numQueries := int(shape[1])
	textDim := int(shape[2])

	results := make([]DetResult, 0)
	for q := 0; q < numQueries; q++ {
		offset := q * textDim

		best := float32(0.0)
		var matched []string
		for i, token := range tokens {
			if i >= textDim || isSpecialToken(token) {
				continue
			}
			prob := sigmoid(logits[offset+i])
			if prob > best {
				best = prob
			}
			if prob > e.config.TextThreshold {
				matched = append(matched, token)
			}
		}
		if best < e.config.BoxThreshold {
			continue
		}

		// 归一化 cx,cy,w,h 转原图矩形坐标
		cx := boxes[q*4+0] * float32(params.origW)
		cy := boxes[q*4+1] * float32(params.origH)
		w := boxes[q*4+2] * float32(params.origW)
		h := boxes[q*4+3] * float32(params.origH)

		x1 := max(0, int(cx-w/2))
		y1 := max(0, int(cy-h/2))
		x2 := min(params.origW, int(cx+w/2))
		y2 := min(params.origH, int(cy+h/2))

		results = append(results, DetResult{
			Label: joinPieces(matched),
			Score: best,
			Box:   image.Rect(x1, y1, x2, y2),
		})
	}
	return results
}
