package groundedsam

import (
	"fmt"
	"runtime"
	"sync"

	ort "github.com/getcharzp/onnxruntime_purego"
)

// OnnxConfig ONNX Runtime 的公共初始化参数，供各引擎共用
type OnnxConfig struct {
	OnnxEngine     *ort.Engine
	SessionOptions *ort.SessionOptions

	// 必填参数
	OnnxRuntimeLibPath string // onnxruntime.dll (或 .so, .dylib) 的路径
	// 可选参数
	UseCuda           bool // (可选) 是否启用 CUDA
	NumThreads        int  // (可选) ONNX 线程数, 默认由CPU核心数决定
	EnableCpuMemArena bool // (可选) 是否开启 ONNX 内存池
}

var (
	sharedEngine *ort.Engine
	initErr      error
	once         sync.Once
)

// New 初始化 ONNX 环境
func (cfg *OnnxConfig) New() error {
	// 动态库全进程只加载一次
	if cfg.OnnxRuntimeLibPath == "" {
		return fmt.Errorf("OnnxRuntimeLibPath 不能为空")
	}
	once.Do(func() {
		sharedEngine, initErr = ort.NewEngine(cfg.OnnxRuntimeLibPath)
	})
	if initErr != nil {
		return fmt.Errorf("初始化 ONNX Runtime 环境失败: %w", initErr)
	}
	cfg.OnnxEngine = sharedEngine

	// 创建会话选项 (设置线程)
	options, err := sharedEngine.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("创建 SessionOptions 失败: %w", err)
	}
	if cfg.NumThreads > 0 {
		if err := options.SetIntraOpNumThreads(int32(cfg.NumThreads)); err != nil {
			return err
		}
	}
	if cfg.EnableCpuMemArena {
		if err := options.SetCpuMemArena(true); err != nil {
			return err
		}
	}

	// 启用CUDA，只作用于当前会话，不修改进程级全局状态
	if cfg.UseCuda {
		if err := options.EnableCUDA(); err != nil {
			return fmt.Errorf("启用 CUDA 失败: %w", err)
		}
	}
	cfg.SessionOptions = options

	return nil
}

// DefaultLibraryPath 根据运行时环境判断加载哪个库文件
func DefaultLibraryPath() string {
	baseDir := "./lib/"
	libName := "onnxruntime"

	// windows onnxruntime.dll
	if runtime.GOOS == "windows" {
		return baseDir + libName + ".dll"
	}

	// linux darwin ext
	var ext string
	switch runtime.GOOS {
	case "darwin":
		ext = "dylib"
	case "linux":
		ext = "so"
	default:
		return baseDir + libName + "_amd64.so" // 默认返回 linux amd64
	}

	// 拼接完整路径: ./lib/onnxruntime + _ + amd64/arm64 + . + so/dylib
	return fmt.Sprintf("%s%s_%s.%s", baseDir, libName, runtime.GOARCH, ext)
}
