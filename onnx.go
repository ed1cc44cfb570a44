package speech

import (
	"fmt"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	envOnce sync.Once
	envErr  error
)

// OnnxConfig ONNX Runtime 的公共配置, 各引擎的 Config 通过 convertutil.CopyProperties 映射到这里
type OnnxConfig struct {
	OnnxRuntimeLibPath string // onnxruntime.dll (或 .so, .dylib) 的路径
	UseCuda            bool   // (可选) 是否启用 CUDA
	NumThreads         int    // (可选) ONNX 线程数, 默认由CPU核心数决定
	EnableCpuMemArena  bool   // (可选) 是否启用内存池

	SessionOptions *ort.SessionOptions
}

// New 初始化 ONNX 运行环境并构建会话参数
//
// 运行环境在进程内只初始化一次, 后续调用复用同一个动态库
func (oc *OnnxConfig) New() error {
	if oc.OnnxRuntimeLibPath == "" {
		oc.OnnxRuntimeLibPath = DefaultLibraryPath()
	}

	envOnce.Do(func() {
		ort.SetSharedLibraryPath(oc.OnnxRuntimeLibPath)
		envErr = ort.InitializeEnvironment()
	})
	if envErr != nil {
		return fmt.Errorf("初始化 ONNX 运行环境失败: %w", envErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("创建会话参数失败: %w", err)
	}
	if oc.NumThreads > 0 {
		if err := options.SetIntraOpNumThreads(oc.NumThreads); err != nil {
			options.Destroy()
			return fmt.Errorf("设置线程数失败: %w", err)
		}
	}
	if err := options.SetCpuMemArena(oc.EnableCpuMemArena); err != nil {
		options.Destroy()
		return fmt.Errorf("设置内存池失败: %w", err)
	}
	if oc.UseCuda {
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err != nil {
			options.Destroy()
			return fmt.Errorf("创建 CUDA 参数失败: %w", err)
		}
		defer cudaOptions.Destroy()
		if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
			options.Destroy()
			return fmt.Errorf("启用 CUDA 失败: %w", err)
		}
	}

	oc.SessionOptions = options
	return nil
}

// Destroy 释放会话参数 (运行环境由进程持有, 不在这里销毁)
func (oc *OnnxConfig) Destroy() {
	if oc.SessionOptions != nil {
		oc.SessionOptions.Destroy()
		oc.SessionOptions = nil
	}
}

// DefaultLibraryPath 返回当前平台下 onnxruntime 动态库的默认路径
func DefaultLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./lib/onnxruntime.dll"
	case "darwin":
		return "./lib/libonnxruntime.dylib"
	default:
		return "./lib/libonnxruntime.so"
	}
}
