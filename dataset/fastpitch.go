package dataset

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/getcharzp/go-arabic-speech/text"
)

// FastPitchConfig 行文件数据集配置
type FastPitchConfig struct {
	TxtPath       string  // 标注文件, 每行一条
	WavPath       string  // 音频根目录
	LabelPattern  string  // 带命名分组的标注行正则
	PitchDictPath string  // 基频字典路径, 由调用方通过 LoadPitchTable 读取
	F0Mean        float64 // 基频均值
	F0Std         float64 // 基频标准差
	SampleRate    int     // 目标采样率
}

// DefaultFastPitchConfig 默认配置
func DefaultFastPitchConfig() FastPitchConfig {
	return FastPitchConfig{
		TxtPath:       "./data/train_phon.txt",
		WavPath:       "./data/arabic-speech-corpus/wav_new",
		LabelPattern:  DefaultLabelPattern,
		PitchDictPath: DefaultPitchDictPath,
		F0Mean:        130.05478,
		F0Std:         22.86267,
		SampleRate:    DefaultSampleRate,
	}
}

// FastPitchItem 一条 FastPitch 训练样本
type FastPitchItem struct {
	TokenIDs  []int64
	Mel       *mat.Dense // [n_mels × frames]
	NumTokens int
	Pitch     []float64 // 归一化后的基频, 长度为 frames
	Energy    []float64 // 每帧 L2 能量
	Speaker   *int      // 单说话人数据集恒为 nil
	AttnPrior *mat.Dense // [frames × NumTokens]
	Path      string
}

// FastPitchDataset 行文件数据集, 附带基频, 能量以及对齐先验
type FastPitchDataset struct {
	cfg    FastPitchConfig
	data   []Sample
	feat   *featurizer
	prior  *PriorInterpolator
	logger zerolog.Logger
}

// NewFastPitchDataset 解析标注文件, 无法使用的行记录日志后丢弃
func NewFastPitchDataset(cfg FastPitchConfig, pitch PitchTable, opts ...Option) (*FastPitchDataset, error) {
	o := defaultOptions()
	if cfg.SampleRate > 0 {
		o.sampleRate = cfg.SampleRate
	}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.LabelPattern == "" {
		cfg.LabelPattern = DefaultLabelPattern
	}
	lp, err := NewLabelPattern(cfg.LabelPattern)
	if err != nil {
		return nil, err
	}
	feat, err := newFeaturizer(o)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(cfg.TxtPath)
	if err != nil {
		return nil, errors.Wrap(err, "open label file")
	}
	defer f.Close()

	d := &FastPitchDataset{
		cfg:    cfg,
		feat:   feat,
		prior:  NewPriorInterpolator(),
		logger: o.logger,
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for lineIdx := 0; sc.Scan(); lineIdx++ {
		line := sc.Text()
		if s, ok := d.processLine(lp, pitch, lineIdx, line); ok {
			d.data = append(d.data, s)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read label file")
	}
	return d, nil
}

func (d *FastPitchDataset) processLine(lp *LabelPattern, pitch PitchTable, lineIdx int, line string) (Sample, bool) {
	lbl, err := lp.Parse(line)
	if err != nil {
		d.logger.Warn().Int("line", lineIdx).Str("text", line).Msg("invalid line")
		return Sample{}, false
	}

	fpath := filepath.Join(d.cfg.WavPath, lbl.File)
	if _, err := os.Stat(fpath); err != nil {
		d.logger.Warn().Str("path", fpath).Msg("audio file does not exist")
		return Sample{}, false
	}

	phonemes, err := lbl.Phonemes()
	if err != nil {
		d.logger.Warn().Err(err).Int("line", lineIdx).Str("text", line).Msg("invalid phonemes")
		return Sample{}, false
	}
	tokens := text.PhonemesToTokens(phonemes)
	ids, err := text.TokensToIDs(tokens)
	if err != nil {
		d.logger.Warn().Err(err).Int("line", lineIdx).Str("text", line).Msg("invalid phonemes")
		return Sample{}, false
	}

	name := filepath.Base(fpath)
	f0, ok := pitch.Lookup(name)
	if !ok {
		d.logger.Warn().Str("file", name).Msg("missing pitch")
		return Sample{}, false
	}
	return Sample{TokenIDs: ids, Path: fpath, Pitch: f0}, true
}

// Config 数据集配置
func (d *FastPitchDataset) Config() FastPitchConfig { return d.cfg }

// Len 样本数
func (d *FastPitchDataset) Len() int { return len(d.data) }

// Samples 返回样本元数据, 调用方不得修改
func (d *FastPitchDataset) Samples() []Sample { return d.data }

// Get 读取音频并构造完整训练样本
func (d *FastPitchDataset) Get(idx int) (FastPitchItem, error) {
	if idx < 0 || idx >= len(d.data) {
		return FastPitchItem{}, errors.Wrapf(ErrIndexOutOfRange, "%d", idx)
	}
	s := d.data[idx]

	mel, keep, err := d.feat.load(s.Path)
	if err != nil {
		return FastPitchItem{}, err
	}
	if len(s.Pitch) != len(keep) {
		return FastPitchItem{}, errors.Wrapf(ErrPitchLength, "%s: %d pitch frames, %d mel frames",
			s.Path, len(s.Pitch), len(keep))
	}
	pitch := NormalizePitch(selectValues(s.Pitch, keep), d.cfg.F0Mean, d.cfg.F0Std)

	frames := mel.RawMatrix().Cols
	return FastPitchItem{
		TokenIDs:  s.TokenIDs,
		Mel:       mel,
		NumTokens: len(s.TokenIDs),
		Pitch:     pitch,
		Energy:    FrameL2Energy(mel),
		AttnPrior: d.prior.Prior(frames, len(s.TokenIDs)),
		Path:      s.Path,
	}, nil
}
