package text

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// ErrUnsupportedChar 输入中含有无法转写的字符
var ErrUnsupportedChar = errors.New("unsupported character")

// 太阳字母: 定冠词 l 在其前同化
const sunLetters = "tvd*rzs$SDTZln"

var consonantSet = func() map[rune]bool {
	m := make(map[rune]bool, len(consonants))
	for _, c := range consonants {
		m[[]rune(c)[0]] = true
	}
	return m
}()

// ArabicToPhonemes 阿拉伯文字转音素串
func ArabicToPhonemes(ar string) (string, error) {
	return BuckwalterToPhonemes(ArabicToBuckwalter(ar))
}

// BuckwalterToPhonemes 基于规则将 (带音符的) Buckwalter 文本转为空格分隔的音素串
//
// 词与词之间插入 SpaceToken, 标点转为对应的特殊 token
func BuckwalterToPhonemes(bw string) (string, error) {
	var out []string
	prevWord := false
	for idx, seg := range segment(bw) {
		if p, ok := punctuation[seg]; ok {
			out = append(out, p)
			prevWord = false
			continue
		}
		ph, err := phonetizeWord([]rune(seg), idx == 0)
		if err != nil {
			return "", errors.Wrapf(err, "word %q", seg)
		}
		if len(ph) == 0 {
			continue
		}
		if prevWord {
			out = append(out, SpaceToken)
		}
		out = append(out, ph...)
		prevWord = true
	}
	if len(out) == 0 {
		return "", errors.New("empty phoneme sequence")
	}
	return strings.Join(out, " "), nil
}

// segment 按空白切词, 标点单独成段
func segment(s string) []string {
	var segs []string
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			segs = append(segs, buf.String())
			buf.Reset()
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			flush()
		case punctuation[string(r)] != "":
			flush()
			segs = append(segs, string(r))
		default:
			buf.WriteRune(r)
		}
	}
	flush()
	return segs
}

func isVowelMark(r rune) bool {
	return strings.ContainsRune("auiFNK~", r)
}

func phonetizeWord(w []rune, utteranceStart bool) ([]string, error) {
	var ph []string
	last := func() string {
		if len(ph) == 0 {
			return ""
		}
		return ph[len(ph)-1]
	}
	lengthen := func() {
		if last() == "a" {
			ph[len(ph)-1] = "aa"
		} else {
			ph = append(ph, "aa")
		}
	}

	for i, c := range w {
		var next rune
		if i+1 < len(w) {
			next = w[i+1]
		}
		switch c {
		case '_', 'o':
		case 'a', 'u', 'i':
			ph = append(ph, string(c))
		case 'F':
			ph = append(ph, "a", "n")
		case 'N':
			ph = append(ph, "u", "n")
		case 'K':
			ph = append(ph, "i", "n")
		case '~':
			if l := last(); l != "" && consonantSet[[]rune(l)[0]] && len(l) == 1 {
				ph = append(ph, l)
			}
		case 'A', '{':
			if i == 0 {
				if utteranceStart {
					ph = append(ph, "'", "a")
				}
				continue
			}
			// 词尾 tanween 的支撑 alif 不发音
			if next == 'F' || (i > 0 && w[i-1] == 'F') {
				continue
			}
			lengthen()
		case 'Y', '`':
			if next == 'F' {
				continue
			}
			lengthen()
		case '|':
			ph = append(ph, "'", "aa")
		case '\'', '>', '<', '&', '}':
			ph = append(ph, "'")
		case 'p':
			if isVowelMark(next) {
				ph = append(ph, "t")
			}
		case 'w':
			if last() == "u" && !isVowelMark(next) {
				ph[len(ph)-1] = "uu"
			} else {
				ph = append(ph, "w")
			}
		case 'y':
			if last() == "i" && !isVowelMark(next) {
				ph[len(ph)-1] = "ii"
			} else {
				ph = append(ph, "y")
			}
		case 'l':
			if i == 1 && (w[0] == 'A' || w[0] == '{') && next != 0 && strings.ContainsRune(sunLetters, next) {
				continue
			}
			ph = append(ph, "l")
		default:
			if !consonantSet[c] {
				return nil, errors.Wrapf(ErrUnsupportedChar, "%q", c)
			}
			ph = append(ph, string(c))
		}
	}
	return ph, nil
}
