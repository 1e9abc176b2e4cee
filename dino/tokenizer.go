package dino

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

const (
	tokenCLS = "[CLS]"
	tokenSEP = "[SEP]"
	tokenUNK = "[UNK]"
)

// Tokenizer BERT uncased WordPiece 分词器
//
// 词表为每行一个 token 的 vocab.txt，行号即 token id。
// 只实现推理所需的编码方向。
type Tokenizer struct {
	vocab map[string]int64

	clsID int64
	sepID int64
	unkID int64
}

// NewTokenizer 从 vocab.txt 加载词表
func NewTokenizer(vocabPath string) (*Tokenizer, error) {
	file, err := os.Open(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("打开词表文件失败: %w", err)
	}
	defer file.Close()

	vocab := make(map[string]int64, 32768)
	scanner := bufio.NewScanner(file)
	var id int64
	for scanner.Scan() {
		vocab[strings.TrimRight(scanner.Text(), "\r\n")] = id
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取词表文件失败: %w", err)
	}

	t := &Tokenizer{vocab: vocab}
	var ok bool
	if t.clsID, ok = vocab[tokenCLS]; !ok {
		return nil, fmt.Errorf("词表缺少 %s", tokenCLS)
	}
	if t.sepID, ok = vocab[tokenSEP]; !ok {
		return nil, fmt.Errorf("词表缺少 %s", tokenSEP)
	}
	if t.unkID, ok = vocab[tokenUNK]; !ok {
		return nil, fmt.Errorf("词表缺少 %s", tokenUNK)
	}
	return t, nil
}

// Encode 编码查询文本
//
// 返回带 [CLS]/[SEP] 的 token id 序列和对应的 token 文本，
// 超过 maxLen 时截断正文并保留结尾的 [SEP]。
func (t *Tokenizer) Encode(text string, maxLen int) ([]int64, []string, error) {
	if maxLen < 2 {
		return nil, nil, fmt.Errorf("maxLen 过小: %d", maxLen)
	}

	words := basicTokenize(text)

	ids := make([]int64, 0, len(words)+2)
	tokens := make([]string, 0, len(words)+2)
	ids = append(ids, t.clsID)
	tokens = append(tokens, tokenCLS)

	for _, word := range words {
		pieceIDs, pieces := t.wordPiece(word)
		ids = append(ids, pieceIDs...)
		tokens = append(tokens, pieces...)
	}

	// 截断正文，[SEP] 固定收尾
	if len(ids) > maxLen-1 {
		ids = ids[:maxLen-1]
		tokens = tokens[:maxLen-1]
	}
	ids = append(ids, t.sepID)
	tokens = append(tokens, tokenSEP)

	return ids, tokens, nil
}

// wordPiece 贪心最长匹配切分单词
func (t *Tokenizer) wordPiece(word string) ([]int64, []string) {
	runes := []rune(word)

	var ids []int64
	var pieces []string

	start := 0
	for start < len(runes) {
		end := len(runes)
		var matched string
		matchedID := int64(-1)

		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := t.vocab[sub]; ok {
				matched = sub
				matchedID = id
				break
			}
			end--
		}

		// 任一位置匹配失败，整词按 [UNK] 处理
		if matchedID < 0 {
			return []int64{t.unkID}, []string{tokenUNK}
		}

		ids = append(ids, matchedID)
		pieces = append(pieces, matched)
		start = end
	}
	return ids, pieces
}

// basicTokenize 小写化并按空白/标点切分
func basicTokenize(text string) []string {
	var words []string
	var sb strings.Builder

	flush := func() {
		if sb.Len() > 0 {
			words = append(words, sb.String())
			sb.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// 标点单独成词
			flush()
			words = append(words, string(r))
		default:
			sb.WriteRune(r)
		}
	}
	flush()
	return words
}
