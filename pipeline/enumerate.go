package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ListImages 列出目录下的 JPEG 文件名
//
// 扩展名大小写不敏感地匹配 .jpg/.jpeg，子目录和其他文件静默跳过。
// 目录不可读时返回错误，由调用方决定是否终止整批任务。
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取图片目录失败: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg":
			files = append(files, entry.Name())
		}
	}
	return files, nil
}
