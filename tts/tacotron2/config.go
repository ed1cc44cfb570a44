package tacotron2

import speech "github.com/getcharzp/go-arabic-speech"

const (
	// SampleRate 采样率，固定为 22050
	SampleRate = 22050
	// channels 声道数
	channels = 1
	// bitsPerSample 采样位数
	bitsPerSample = 16
	// nMels 梅尔通道数
	nMels = 80
	// hopLength 声码器每帧输出的采样点数
	hopLength = 256
	// melPadValue 梅尔谱填充值, 即 log(1e-5)
	melPadValue = -11.512925
	// pauseSeconds 句间停顿
	pauseSeconds = 0.1
)

// 模型输入输出名
var (
	acousticInputNames  = []string{"text_ids", "input_lengths", "speaker_ids"}
	acousticOutputNames = []string{"mel", "mel_lengths"}
	vocoderInputNames   = []string{"mel"}
	vocoderOutputNames  = []string{"audio"}
)

// Config 定义 Tacotron2 + HiFiGAN 引擎的配置参数
type Config struct {
	// 必填参数
	OnnxRuntimeLibPath string // onnxruntime.dll (或 .so, .dylib) 的路径
	AcousticModelPath  string // Tacotron2 ONNX 模型路径
	VocoderModelPath   string // HiFiGAN ONNX 模型路径

	// 可选参数
	SymbolsPath       string // (可选) 符号表 "token id", 为空时使用内置符号表
	UseCuda           bool   // (可选) 是否启用 CUDA
	NumThreads        int    // (可选) ONNX 线程数, 默认由CPU核心数决定
	EnableCpuMemArena bool   // (可选) 是否启用内存池
}

// DefaultConfig 返回一套默认的配置 (基于常见的目录结构)
func DefaultConfig() Config {
	return Config{
		OnnxRuntimeLibPath: speech.DefaultLibraryPath(),
		AcousticModelPath:  "./tacotron2_weights/tacotron2.onnx",
		VocoderModelPath:   "./tacotron2_weights/hifigan.onnx",
	}
}

// Vowelizer 为不带元音符号的 Buckwalter 文本补全元音
type Vowelizer interface {
	Vowelize(bw string) (string, error)
}

// SynthesizeOption 合成参数
type SynthesizeOption struct {
	Speed     float32   // 语速, 数值越大越快, 1.0 为正常语速
	Denoise   float32   // HiFiGAN 去噪强度
	SpeakerID int64     // 说话人 ID
	BatchSize int       // 每次送入声学模型的句子数
	Vowelizer Vowelizer // (可选) 元音补全模型
}

// DefaultSynthesizeOption 默认合成参数
func DefaultSynthesizeOption() SynthesizeOption {
	return SynthesizeOption{
		Speed:     1,
		Denoise:   0.0001,
		SpeakerID: 0,
		BatchSize: 8,
	}
}

// resolveOption 取第一个参数, 非法字段回落到默认值
func resolveOption(opts []SynthesizeOption) SynthesizeOption {
	def := DefaultSynthesizeOption()
	if len(opts) == 0 {
		return def
	}
	opt := opts[0]
	if opt.Speed <= 0 {
		opt.Speed = def.Speed
	}
	if opt.Denoise < 0 {
		opt.Denoise = 0
	}
	if opt.BatchSize <= 0 {
		opt.BatchSize = def.BatchSize
	}
	return opt
}
