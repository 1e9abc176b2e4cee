package groundedsam

import (
	"os"
	"testing"
)

func TestOnnxConfigNewRequiresLibPath(t *testing.T) {
	cfg := new(OnnxConfig)
	if err := cfg.New(); err == nil {
		t.Fatal("空 OnnxRuntimeLibPath 应当报错")
	}
}

func TestOnnxConfigNewWithOptions(t *testing.T) {
	libPath := DefaultLibraryPath()
	if _, err := os.Stat(libPath); err != nil {
		t.Skipf("动态库不存在: %v", err)
	}

	cfg := &OnnxConfig{
		OnnxRuntimeLibPath: libPath,
		NumThreads:         2,
		EnableCpuMemArena:  true,
	}
	if err := cfg.New(); err != nil {
		t.Fatalf("初始化 ONNX 环境失败: %v", err)
	}
	if cfg.OnnxEngine == nil {
		t.Fatal("OnnxEngine 未初始化")
	}
	if cfg.SessionOptions == nil {
		t.Fatal("SessionOptions 未初始化")
	}
}
