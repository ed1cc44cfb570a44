// Package dataset 将 (音频, 转写) 对加载为训练样本: 标注解析, 梅尔谱提取,
// 静音裁剪, 基频归一化, 按长度分桶的动态批次以及批次填充.
package dataset

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/getcharzp/go-arabic-speech/audio"
)

const (
	// DefaultSampleRate 目标采样率
	DefaultSampleRate = 22050
	// DefaultSilenceThreshold 每帧平均对数梅尔能量低于该值视为静音
	DefaultSilenceThreshold = -10.0
)

var (
	// ErrMissingColumn CSV 缺少必需列
	ErrMissingColumn = errors.New("missing required column")
	// ErrMelShape 梅尔谱不是有效的二维矩阵
	ErrMelShape = errors.New("invalid mel spectrogram dimension")
	// ErrPitchLength 基频曲线与梅尔帧数不一致
	ErrPitchLength = errors.New("pitch length does not match mel frames")
	// ErrIndexOutOfRange 索引越界
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Option 数据集可选参数
type Option func(*options)

type options struct {
	logger           zerolog.Logger
	sampleRate       int
	melConfig        *audio.MelConfig
	silenceThreshold float64
}

func defaultOptions() options {
	return options{
		logger:           log.Logger,
		sampleRate:       DefaultSampleRate,
		silenceThreshold: DefaultSilenceThreshold,
	}
}

// WithLogger 指定日志输出, 默认使用 zerolog 全局 logger
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSampleRate 指定目标采样率, 音频采样率不一致时自动重采样
func WithSampleRate(sr int) Option {
	return func(o *options) { o.sampleRate = sr }
}

// WithMelConfig 指定梅尔谱参数 (其采样率会被目标采样率覆盖)
func WithMelConfig(cfg audio.MelConfig) Option {
	return func(o *options) { o.melConfig = &cfg }
}

// WithSilenceThreshold 指定静音阈值
func WithSilenceThreshold(thresh float64) Option {
	return func(o *options) { o.silenceThreshold = thresh }
}

// featurizer 读音频 -> 对数梅尔谱 -> 裁剪静音, 构造后只读
type featurizer struct {
	mel        *audio.MelSpectrogram
	sampleRate int
	thresh     float64
	logger     zerolog.Logger
}

func newFeaturizer(o options) (*featurizer, error) {
	cfg := audio.DefaultMelConfig()
	if o.melConfig != nil {
		cfg = *o.melConfig
	}
	cfg.SampleRate = o.sampleRate
	mel, err := audio.NewMelSpectrogram(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "mel spectrogram")
	}
	return &featurizer{
		mel:        mel,
		sampleRate: o.sampleRate,
		thresh:     o.silenceThreshold,
		logger:     o.logger,
	}, nil
}

// load 返回裁剪后的对数梅尔谱以及保留帧掩码
func (f *featurizer) load(fpath string) (*mat.Dense, []bool, error) {
	wave, err := audio.LoadWav(fpath, f.sampleRate)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "load %s", fpath)
	}
	melLog, err := f.mel.LogMel(wave)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "mel %s", fpath)
	}

	keep := RemoveSilence(FrameMeanEnergy(melLog), f.thresh)
	melLog = SelectFrames(melLog, keep)

	rows, cols := melLog.Dims()
	f.logger.Debug().Str("path", fpath).Int("n_mels", rows).Int("frames", cols).Msg("mel spectrogram")
	if rows == 0 || cols == 0 {
		return nil, nil, errors.Wrapf(ErrMelShape, "%s", fpath)
	}
	return melLog, keep, nil
}
