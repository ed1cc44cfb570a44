package tacotron2

import (
	"fmt"
	"sync"

	speech "github.com/getcharzp/go-arabic-speech"
	"github.com/getcharzp/go-arabic-speech/audio"
	"github.com/getcharzp/go-arabic-speech/text"
	"github.com/up-zero/gotool/convertutil"
	"github.com/up-zero/gotool/mediautil"
	ort "github.com/yalue/onnxruntime_go"
	"gonum.org/v1/gonum/mat"
)

// Engine 封装了 Tacotron2 声学模型与 HiFiGAN 声码器的 ONNX 会话
type Engine struct {
	acoustic   *ort.DynamicAdvancedSession
	vocoder    *ort.DynamicAdvancedSession
	onnxConfig *speech.OnnxConfig
	symbols    *text.SymbolTable
	config     Config

	denoiserOnce sync.Once
	denoiser     *denoiser
	denoiserErr  error
}

// NewEngine 初始化 Tacotron2 引擎
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.AcousticModelPath == "" || cfg.VocoderModelPath == "" {
		return nil, fmt.Errorf("声学模型和声码器路径不能为空")
	}

	onnxConfig := new(speech.OnnxConfig)
	if err := convertutil.CopyProperties(cfg, onnxConfig); err != nil {
		return nil, fmt.Errorf("复制参数失败: %w", err)
	}
	// 初始化 ONNX
	if err := onnxConfig.New(); err != nil {
		return nil, err
	}

	symbols := text.DefaultSymbols
	if cfg.SymbolsPath != "" {
		st, err := text.LoadSymbolTable(cfg.SymbolsPath)
		if err != nil {
			onnxConfig.Destroy()
			return nil, fmt.Errorf("加载符号表失败: %w", err)
		}
		symbols = st
	}

	acoustic, err := ort.NewDynamicAdvancedSession(cfg.AcousticModelPath, acousticInputNames, acousticOutputNames, onnxConfig.SessionOptions)
	if err != nil {
		onnxConfig.Destroy()
		return nil, fmt.Errorf("创建声学模型会话失败: %w", err)
	}
	vocoder, err := ort.NewDynamicAdvancedSession(cfg.VocoderModelPath, vocoderInputNames, vocoderOutputNames, onnxConfig.SessionOptions)
	if err != nil {
		acoustic.Destroy()
		onnxConfig.Destroy()
		return nil, fmt.Errorf("创建声码器会话失败: %w", err)
	}

	return &Engine{
		acoustic:   acoustic,
		vocoder:    vocoder,
		onnxConfig: onnxConfig,
		symbols:    symbols,
		config:     cfg,
	}, nil
}

// Synthesize 将 Buckwalter 文本转换为语音数据 (float32 PCM, 22050Hz)
//
// # Params:
//
//	bw: Buckwalter 转写文本, 按标点切句后分批合成
//	opt: 合成参数, 省略时使用 DefaultSynthesizeOption
func (e *Engine) Synthesize(bw string, opt ...SynthesizeOption) ([]float32, error) {
	o := resolveOption(opt)
	utts, err := prepareUtterances(bw, o.Vowelizer)
	if err != nil {
		return nil, err
	}

	var den *denoiser
	if o.Denoise > 0 {
		d, err := e.getDenoiser()
		if err != nil {
			return nil, err
		}
		den = d
	}

	pause := make([]float32, int(pauseSeconds*SampleRate))
	var out []float32
	for _, batch := range chunk(utts, o.BatchSize) {
		mels, err := e.acousticMels(batch, o)
		if err != nil {
			return nil, err
		}
		waves, err := e.runVocoder(mels)
		if err != nil {
			return nil, err
		}
		for _, w := range waves {
			if den != nil {
				w = den.Denoise(w, o.Denoise)
			}
			if len(out) > 0 {
				out = append(out, pause...)
			}
			out = append(out, w...)
		}
	}
	clip(out)
	return out, nil
}

// SynthesizeMel 只运行声学模型, 返回每句按语速缩放后的梅尔谱 [nMels × frames], 不经过声码器
func (e *Engine) SynthesizeMel(bw string, opt ...SynthesizeOption) ([]*mat.Dense, error) {
	o := resolveOption(opt)
	utts, err := prepareUtterances(bw, o.Vowelizer)
	if err != nil {
		return nil, err
	}
	out := make([]*mat.Dense, 0, len(utts))
	for _, batch := range chunk(utts, o.BatchSize) {
		mels, err := e.acousticMels(batch, o)
		if err != nil {
			return nil, err
		}
		out = append(out, mels...)
	}
	return out, nil
}

// SynthesizeToWav 将文本转换为 WAV 格式的字节流
func (e *Engine) SynthesizeToWav(bw string, opt ...SynthesizeOption) ([]byte, error) {
	pcmData, err := e.Synthesize(bw, opt...)
	if err != nil {
		return nil, err
	}
	return mediautil.Float32ToWavBytes(pcmData, SampleRate, channels, bitsPerSample)
}

// SynthesizeToFile 合成并写入 WAV 文件
func (e *Engine) SynthesizeToFile(path, bw string, opt ...SynthesizeOption) error {
	pcmData, err := e.Synthesize(bw, opt...)
	if err != nil {
		return err
	}
	return audio.SaveWav(path, pcmData, SampleRate)
}

// Destroy 释放相关资源
func (e *Engine) Destroy() error {
	var firstErr error
	if e.acoustic != nil {
		if err := e.acoustic.Destroy(); err != nil {
			firstErr = err
		}
		e.acoustic = nil
	}
	if e.vocoder != nil {
		if err := e.vocoder.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.vocoder = nil
	}
	if e.onnxConfig != nil {
		e.onnxConfig.Destroy()
		e.onnxConfig = nil
	}
	return firstErr
}

// getDenoiser 首次使用时用全零梅尔谱估计声码器偏置
func (e *Engine) getDenoiser() (*denoiser, error) {
	e.denoiserOnce.Do(func() {
		zero := mat.NewDense(nMels, biasMelFrames, nil)
		waves, err := e.runVocoder([]*mat.Dense{zero})
		if err != nil {
			e.denoiserErr = fmt.Errorf("估计声码器偏置失败: %w", err)
			return
		}
		e.denoiser = newDenoiser(waves[0])
	})
	return e.denoiser, e.denoiserErr
}

func (e *Engine) acousticMels(utts []string, o SynthesizeOption) ([]*mat.Dense, error) {
	mels, err := e.runAcoustic(utts, o.SpeakerID)
	if err != nil {
		return nil, err
	}
	for i := range mels {
		mels[i] = resizeMel(mels[i], o.Speed)
	}
	return mels, nil
}

// runAcoustic 声学模型推理, 返回与输入顺序一致的梅尔谱 [nMels × frames]
func (e *Engine) runAcoustic(utts []string, speakerID int64) ([]*mat.Dense, error) {
	ids, lengths, order, err := e.encodeBatch(utts)
	if err != nil {
		return nil, err
	}
	batch := int64(len(utts))
	maxLen := int64(len(ids)) / batch

	tIDs, err := ort.NewTensor(ort.NewShape(batch, maxLen), ids)
	if err != nil {
		return nil, fmt.Errorf("创建 text_ids tensor 失败: %w", err)
	}
	defer tIDs.Destroy()
	tLen, err := ort.NewTensor(ort.NewShape(batch), lengths)
	if err != nil {
		return nil, fmt.Errorf("创建 input_lengths tensor 失败: %w", err)
	}
	defer tLen.Destroy()
	speakers := make([]int64, batch)
	for i := range speakers {
		speakers[i] = speakerID
	}
	tSpk, err := ort.NewTensor(ort.NewShape(batch), speakers)
	if err != nil {
		return nil, fmt.Errorf("创建 speaker_ids tensor 失败: %w", err)
	}
	defer tSpk.Destroy()

	outputs := make([]ort.Value, 2)
	if err := e.acoustic.Run([]ort.Value{tIDs, tLen, tSpk}, outputs); err != nil {
		return nil, fmt.Errorf("声学模型推理失败: %w", err)
	}
	defer outputs[0].Destroy()
	defer outputs[1].Destroy()

	melTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("mel 输出类型断言失败，期望 *Tensor[float32]")
	}
	lenTensor, ok := outputs[1].(*ort.Tensor[int64])
	if !ok {
		return nil, fmt.Errorf("mel_lengths 输出类型断言失败，期望 *Tensor[int64]")
	}
	shape := melTensor.GetShape()
	if len(shape) != 3 || shape[0] != batch || shape[1] != nMels {
		return nil, fmt.Errorf("mel 输出形状错误: %v", shape)
	}
	maxFrames := int(shape[2])
	data := melTensor.GetData()
	melLens := lenTensor.GetData()

	mels := make([]*mat.Dense, len(utts))
	for row, src := range order {
		frames := min(int(melLens[row]), maxFrames)
		if frames <= 0 {
			return nil, fmt.Errorf("句子 %q 生成的梅尔谱为空", utts[src])
		}
		m := mat.NewDense(nMels, frames, nil)
		for c := 0; c < nMels; c++ {
			base := (row*nMels + c) * maxFrames
			for t := 0; t < frames; t++ {
				m.Set(c, t, float64(data[base+t]))
			}
		}
		mels[src] = m
	}
	return mels, nil
}

// runVocoder 批量声码, 梅尔谱填充到相同帧数, 输出按各自帧数截断
func (e *Engine) runVocoder(mels []*mat.Dense) ([][]float32, error) {
	maxFrames := 0
	for _, m := range mels {
		_, c := m.Dims()
		maxFrames = max(maxFrames, c)
	}
	batch := len(mels)
	flat := make([]float32, batch*nMels*maxFrames)
	for i := range flat {
		flat[i] = melPadValue
	}
	for b, m := range mels {
		_, frames := m.Dims()
		for c := 0; c < nMels; c++ {
			base := (b*nMels + c) * maxFrames
			for t := 0; t < frames; t++ {
				flat[base+t] = float32(m.At(c, t))
			}
		}
	}

	tMel, err := ort.NewTensor(ort.NewShape(int64(batch), nMels, int64(maxFrames)), flat)
	if err != nil {
		return nil, fmt.Errorf("创建 mel tensor 失败: %w", err)
	}
	defer tMel.Destroy()

	outputs := make([]ort.Value, 1)
	if err := e.vocoder.Run([]ort.Value{tMel}, outputs); err != nil {
		return nil, fmt.Errorf("声码器推理失败: %w", err)
	}
	defer outputs[0].Destroy()

	audioTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("audio 输出类型断言失败，期望 *Tensor[float32]")
	}
	data := audioTensor.GetData()
	stride := len(data) / batch

	waves := make([][]float32, batch)
	for b, m := range mels {
		_, frames := m.Dims()
		n := min(frames*hopLength, stride)
		w := make([]float32, n)
		copy(w, data[b*stride:b*stride+n])
		waves[b] = w
	}
	return waves, nil
}
