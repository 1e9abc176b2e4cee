package dino

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func testEngine() *Engine {
	return &Engine{config: Config{
		BoxThreshold:  0.40,
		TextThreshold: 0.30,
	}}
}

func TestParseDetections(t *testing.T) {
	e := testEngine()
	tokens := []string{"[CLS]", "cat", ".", "[SEP]"}
	params := imageParams{origW: 100, origH: 100}

	// 2 个 query，文本维度 4；第 1 个命中 "cat"，第 2 个全部低于阈值
	logits := []float32{
		-10, 2.0, -10, -10,
		-10, -10, -10, -10,
	}
	boxes := []float32{
		0.5, 0.5, 0.5, 0.5,
		0.1, 0.1, 0.05, 0.05,
	}

	results := e.parseDetections(logits, []int64{1, 2, 4}, boxes, tokens, params)
	require.Len(t, results, 1)
	require.Equal(t, "cat", results[0].Label)
	require.InDelta(t, 0.8808, results[0].Score, 0.001)
	require.Equal(t, image.Rect(25, 25, 75, 75), results[0].Box)
}

func TestParseDetectionsIgnoresSpecialTokens(t *testing.T) {
	e := testEngine()
	tokens := []string{"[CLS]", "cat", ".", "[SEP]"}
	params := imageParams{origW: 100, origH: 100}

	// 只有 [CLS] 和句点位置得分高，不构成有效检测
	logits := []float32{5.0, -10, 5.0, 5.0}
	boxes := []float32{0.5, 0.5, 0.2, 0.2}

	results := e.parseDetections(logits, []int64{1, 1, 4}, boxes, tokens, params)
	require.Empty(t, results)
}

func TestParseDetectionsClampsBoxes(t *testing.T) {
	e := testEngine()
	tokens := []string{"[CLS]", "cat", ".", "[SEP]"}
	params := imageParams{origW: 200, origH: 100}

	// 两个越界框：一个超出左上，一个超出右下
	logits := []float32{
		-10, 3.0, -10, -10,
		-10, 3.0, -10, -10,
	}
	boxes := []float32{
		0.0, 0.0, 0.4, 0.4,
		1.0, 1.0, 0.4, 0.4,
	}

	results := e.parseDetections(logits, []int64{1, 2, 4}, boxes, tokens, params)
	require.Len(t, results, 2)
	require.Equal(t, 0, results[0].Box.Min.X)
	require.Equal(t, 0, results[0].Box.Min.Y)
	require.Equal(t, 200, results[1].Box.Max.X)
	require.Equal(t, 100, results[1].Box.Max.Y)
}

func TestParseDetectionsMultiplePhrases(t *testing.T) {
	e := testEngine()
	tokens := []string{"[CLS]", "red", "car", ".", "[SEP]"}
	params := imageParams{origW: 100, origH: 100}

	// 两个 token 都超过 TextThreshold，标签拼成完整短语
	logits := []float32{-10, 1.0, 1.5, -10, -10}
	boxes := []float32{0.5, 0.5, 0.5, 0.5}

	results := e.parseDetections(logits, []int64{1, 1, 5}, boxes, tokens, params)
	require.Len(t, results, 1)
	require.Equal(t, "red car", results[0].Label)
}
