package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 批处理任务参数
type Config struct {
	ImagesDir    string   `yaml:"images_dir"`    // 输入图片目录
	MasksDir     string   `yaml:"masks_dir"`     // Mask 输出目录，须已存在
	AnnotatedDir string   `yaml:"annotated_dir"` // (可选) 标注图输出目录
	Keywords     []string `yaml:"keywords"`      // 检测关键词
}

// LoadConfig 从 YAML 文件加载任务参数
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := new(Config)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return cfg, nil
}

// Validate 校验必填参数
func (c *Config) Validate() error {
	if c.ImagesDir == "" {
		return fmt.Errorf("images_dir 不能为空")
	}
	if c.MasksDir == "" {
		return fmt.Errorf("masks_dir 不能为空")
	}
	if len(c.Keywords) == 0 {
		return fmt.Errorf("keywords 不能为空")
	}

	// 输出目录不自动创建，缺失时提前失败而不是跑完检测后写不进去
	info, err := os.Stat(c.MasksDir)
	if err != nil {
		return fmt.Errorf("masks_dir 不可用: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("masks_dir 不是目录: %s", c.MasksDir)
	}
	return nil
}
