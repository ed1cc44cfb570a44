package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/getcharzp/go-arabic-speech/text"
)

// RequiredColumns CSV 必需列
var RequiredColumns = []string{"index", "text", "Diacterized", "Buckwalter", "Cleaned_Text"}

// Sample 一条已确认音频存在的样本, 构造后不再修改
type Sample struct {
	TokenIDs []int64
	Path     string
	Pitch    []float64 // 逐帧基频, 只有 FastPitchDataset 填充
}

// TextMel (token ids, 对数梅尔谱) 对
type TextMel struct {
	TokenIDs []int64
	Mel      *mat.Dense
}

// ArabDataset 基于 CSV 的 Tacotron2 数据集, 每次访问时实时提取梅尔谱
type ArabDataset struct {
	data   []Sample
	feat   *featurizer
	logger zerolog.Logger
}

// NewArabDataset 读取 CSV 并按 wavPath/clip_{index:05d}.wav 解析音频路径
//
// 缺少必需列时直接返回错误; 单行出错或音频不存在只记录日志并跳过
func NewArabDataset(csvPath, wavPath string, opts ...Option) (*ArabDataset, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	feat, err := newFeaturizer(o)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, errors.Wrap(err, "open csv")
	}
	defer f.Close()

	data, err := readCSVSamples(f, wavPath, o.logger)
	if err != nil {
		return nil, err
	}
	return &ArabDataset{data: data, feat: feat, logger: o.logger}, nil
}

func readCSVSamples(r io.Reader, wavPath string, logger zerolog.Logger) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range RequiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, errors.Wrap(ErrMissingColumn, c)
		}
	}

	var data []Sample
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn().Err(err).Int("line", line).Msg("error processing row")
			continue
		}
		s, err := csvRowSample(record, cols, wavPath)
		if err != nil {
			logger.Warn().Err(err).Int("line", line).Strs("row", record).Msg("error processing row")
			continue
		}
		if _, err := os.Stat(s.Path); err != nil {
			logger.Warn().Str("path", s.Path).Msg("audio file does not exist")
			continue
		}
		data = append(data, s)
	}
	return data, nil
}

func csvRowSample(record []string, cols map[string]int, wavPath string) (Sample, error) {
	field := func(name string) (string, error) {
		i := cols[name]
		if i >= len(record) {
			return "", errors.Errorf("row has no %s field", name)
		}
		return record[i], nil
	}

	idxField, err := field("index")
	if err != nil {
		return Sample{}, err
	}
	idx, err := strconv.Atoi(strings.TrimSpace(idxField))
	if err != nil {
		return Sample{}, errors.Wrap(err, "index")
	}
	bw, err := field("Buckwalter")
	if err != nil {
		return Sample{}, err
	}

	tokens, err := text.BuckwalterToTokens(bw)
	if err != nil {
		return Sample{}, err
	}
	ids, err := text.TokensToIDs(tokens)
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		TokenIDs: ids,
		Path:     filepath.Join(wavPath, fmt.Sprintf("clip_%05d.wav", idx)),
	}, nil
}

// Len 样本数
func (d *ArabDataset) Len() int {
	return len(d.data)
}

// Sample 返回第 idx 条样本的元数据
func (d *ArabDataset) Sample(idx int) (Sample, error) {
	if idx < 0 || idx >= len(d.data) {
		return Sample{}, errors.Wrapf(ErrIndexOutOfRange, "%d", idx)
	}
	return d.data[idx], nil
}

// Get 解码音频并返回 (token ids, 裁剪静音后的对数梅尔谱)
func (d *ArabDataset) Get(idx int) (TextMel, error) {
	s, err := d.Sample(idx)
	if err != nil {
		return TextMel{}, err
	}
	mel, keep, err := d.feat.load(s.Path)
	if err != nil {
		d.logger.Error().Err(err).Str("path", s.Path).Msg("load sample")
		return TextMel{}, err
	}
	d.logger.Debug().Str("path", s.Path).Int("frames", len(keep)).Int("kept", mel.RawMatrix().Cols).Msg("trimmed silence")
	return TextMel{TokenIDs: s.TokenIDs, Mel: mel}, nil
}
