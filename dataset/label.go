package dataset

import (
	"regexp"

	"github.com/pkg/errors"

	"github.com/getcharzp/go-arabic-speech/text"
)

// DefaultLabelPattern 默认标注行格式: "文件名" "音素"
const DefaultLabelPattern = `"(?P<filename>.*)" "(?P<phonemes>.*)"`

var (
	// ErrNoMatch 标注行与模式不匹配
	ErrNoMatch = errors.New("no match for line")
	// ErrMissingGroup 模式匹配但必需的分组没有参与匹配
	ErrMissingGroup = errors.New("required group absent")
)

// TextKind 转写文本的类型
type TextKind int

const (
	// TextArabic 阿拉伯文字, 分组名 arabic
	TextArabic TextKind = iota
	// TextPhonemes 空格分隔的音素串, 分组名 phonemes
	TextPhonemes
	// TextBuckwalter Buckwalter 转写, 分组名 buckwalter
	TextBuckwalter
)

func (k TextKind) String() string {
	switch k {
	case TextArabic:
		return "arabic"
	case TextPhonemes:
		return "phonemes"
	case TextBuckwalter:
		return "buckwalter"
	}
	return "unknown"
}

// FileKind 音频文件字段的类型
type FileKind int

const (
	// FileName 完整文件名, 分组名 filename
	FileName FileKind = iota
	// FileStem 不带扩展名, 分组名 filestem, 解析时补 .wav
	FileStem
)

func (k FileKind) String() string {
	if k == FileStem {
		return "filestem"
	}
	return "filename"
}

// LabelPattern 预编译的标注行模式, 文本与文件字段的类型在构造时确定
type LabelPattern struct {
	re        *regexp.Regexp
	textKind  TextKind
	fileKind  FileKind
	textGroup int
	fileGroup int
}

// NewLabelPattern 编译带命名分组的正则
//
// 文本分组按 arabic, phonemes, buckwalter 的优先级选取, 文件分组按 filename, filestem 选取
func NewLabelPattern(expr string) (*LabelPattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.Wrap(err, "compile label pattern")
	}
	lp := &LabelPattern{re: re, textGroup: -1, fileGroup: -1}

	for _, k := range []TextKind{TextArabic, TextPhonemes, TextBuckwalter} {
		if idx := re.SubexpIndex(k.String()); idx >= 0 {
			lp.textKind, lp.textGroup = k, idx
			break
		}
	}
	for _, k := range []FileKind{FileName, FileStem} {
		if idx := re.SubexpIndex(k.String()); idx >= 0 {
			lp.fileKind, lp.fileGroup = k, idx
			break
		}
	}
	if lp.textGroup < 0 {
		return nil, errors.Errorf("label pattern %q has no arabic, phonemes or buckwalter group", expr)
	}
	if lp.fileGroup < 0 {
		return nil, errors.Errorf("label pattern %q has no filename or filestem group", expr)
	}
	return lp, nil
}

// MustLabelPattern 同 NewLabelPattern, 出错时 panic
func MustLabelPattern(expr string) *LabelPattern {
	lp, err := NewLabelPattern(expr)
	if err != nil {
		panic(err)
	}
	return lp
}

// TextKind 模式的文本类型
func (lp *LabelPattern) TextKind() TextKind { return lp.textKind }

// FileKind 模式的文件类型
func (lp *LabelPattern) FileKind() FileKind { return lp.fileKind }

// Label 一行标注的解析结果
type Label struct {
	Kind TextKind
	Text string // 原始转写
	File string // 音频文件名, filestem 已补全扩展名
}

// Parse 在行内搜索模式 (非整行锚定)
func (lp *LabelPattern) Parse(line string) (Label, error) {
	m := lp.re.FindStringSubmatchIndex(line)
	if m == nil {
		return Label{}, errors.Wrapf(ErrNoMatch, "%q", line)
	}
	if m[2*lp.textGroup] < 0 {
		return Label{}, errors.Wrapf(ErrMissingGroup, "%s in %q", lp.textKind, line)
	}
	if m[2*lp.fileGroup] < 0 {
		return Label{}, errors.Wrapf(ErrMissingGroup, "%s in %q", lp.fileKind, line)
	}

	file := line[m[2*lp.fileGroup]:m[2*lp.fileGroup+1]]
	if lp.fileKind == FileStem {
		file += ".wav"
	}
	return Label{
		Kind: lp.textKind,
		Text: line[m[2*lp.textGroup]:m[2*lp.textGroup+1]],
		File: file,
	}, nil
}

// Phonemes 转为音素串, 音素类型原样返回
func (l Label) Phonemes() (string, error) {
	switch l.Kind {
	case TextArabic:
		return text.ArabicToPhonemes(l.Text)
	case TextBuckwalter:
		return text.BuckwalterToPhonemes(l.Text)
	default:
		return l.Text, nil
	}
}
