package text

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// bw2ar Buckwalter 转写字符到阿拉伯字母的映射
var bw2ar = map[rune]rune{
	'\'': 'ء', '|': 'آ', '>': 'أ', '&': 'ؤ', '<': 'إ', '}': 'ئ',
	'A': 'ا', 'b': 'ب', 'p': 'ة', 't': 'ت', 'v': 'ث', 'j': 'ج',
	'H': 'ح', 'x': 'خ', 'd': 'د', '*': 'ذ', 'r': 'ر', 'z': 'ز',
	's': 'س', '$': 'ش', 'S': 'ص', 'D': 'ض', 'T': 'ط', 'Z': 'ظ',
	'E': 'ع', 'g': 'غ', '_': 'ـ', 'f': 'ف', 'q': 'ق', 'k': 'ك',
	'l': 'ل', 'm': 'م', 'n': 'ن', 'h': 'ه', 'w': 'و', 'Y': 'ى',
	'y': 'ي', 'F': 'ً', 'N': 'ٌ', 'K': 'ٍ', 'a': 'َ', 'u': 'ُ',
	'i': 'ِ', '~': 'ّ', 'o': 'ْ', '`': 'ٰ', '{': 'ٱ',
}

var ar2bw = func() map[rune]rune {
	m := make(map[rune]rune, len(bw2ar))
	for b, a := range bw2ar {
		m[a] = b
	}
	return m
}()

// BuckwalterToArabic 将 Buckwalter 转写还原为阿拉伯文字, 未知字符原样保留
func BuckwalterToArabic(bw string) string {
	var sb strings.Builder
	sb.Grow(len(bw) * 2)
	for _, r := range bw {
		if a, ok := bw2ar[r]; ok {
			sb.WriteRune(a)
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// ArabicToBuckwalter 将阿拉伯文字转写为 Buckwalter, 输入先做 NFC 规范化
func ArabicToBuckwalter(ar string) string {
	ar = NormalizeArabic(ar)
	var sb strings.Builder
	sb.Grow(len(ar))
	for _, r := range ar {
		if b, ok := ar2bw[r]; ok {
			sb.WriteRune(b)
		} else {
			sb.WriteRune(r)
		}
	}
	return shaddaFirst.Replace(sb.String())
}

// NFC 会把短元音排到 shadda 之前, 这里恢复为 "辅音 + shadda + 元音" 的书写顺序
var shaddaFirst = strings.NewReplacer("a~", "~a", "u~", "~u", "i~", "~i", "F~", "~F", "N~", "~N", "K~", "~K")

// NormalizeArabic NFC 规范化并去掉延长符 (tatweel)
func NormalizeArabic(ar string) string {
	ar = norm.NFC.String(ar)
	return strings.ReplaceAll(ar, "ـ", "")
}
