package pipeline

import "strings"

// NormalizeKeywords 将关键词列表拼成检测器查询串
//
// 每个短语补齐结尾句点后用单个空格连接，已带句点的短语保持原样，
// 因此重复归一化是幂等的。空列表返回空串。
func NormalizeKeywords(keywords []string) string {
	clauses := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if !strings.HasSuffix(kw, ".") {
			kw += "."
		}
		clauses = append(clauses, kw)
	}
	return strings.Join(clauses, " ")
}
