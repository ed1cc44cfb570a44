package text

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// PadToken 填充符, ID 固定为 0
	PadToken = "_pad_"
	// EOSToken 序列结束符
	EOSToken = "_eos_"
	// SpaceToken 词间隔
	SpaceToken = "_"
)

// ErrUnknownToken 音素不在符号表中
var ErrUnknownToken = errors.New("unknown token")

// punctuation 标点到特殊 token 的映射
var punctuation = map[string]string{
	"-": "_dash_",
	".": "_period_",
	",": "_comma_",
	"،": "_comma_",
	";": "_semicolon_",
	"؛": "_semicolon_",
	":": "_colon_",
	"?": "_question_",
	"؟": "_question_",
	"!": "_exclamation_",
}

var specialSymbols = []string{
	PadToken, EOSToken, SpaceToken,
	"_dash_", "_period_", "_comma_", "_semicolon_", "_colon_", "_question_", "_exclamation_",
}

var consonants = []string{
	"'", "b", "t", "v", "j", "H", "x", "d", "*", "r", "z", "s", "$",
	"S", "D", "T", "Z", "E", "g", "f", "q", "k", "l", "m", "n", "h", "w", "y",
}

var vowels = []string{"a", "u", "i", "aa", "uu", "ii"}

// SymbolTable token 与 ID 的双向映射
type SymbolTable struct {
	ids    map[string]int64
	tokens []string
}

// DefaultSymbols 内置符号表: 特殊符号, 辅音, 元音
var DefaultSymbols = NewSymbolTable(append(append(append([]string{}, specialSymbols...), consonants...), vowels...))

// NewSymbolTable 按顺序分配 ID
func NewSymbolTable(tokens []string) *SymbolTable {
	st := &SymbolTable{ids: make(map[string]int64, len(tokens))}
	for _, tok := range tokens {
		if _, ok := st.ids[tok]; ok {
			continue
		}
		st.ids[tok] = int64(len(st.tokens))
		st.tokens = append(st.tokens, tok)
	}
	return st
}

// LoadSymbolTable 加载 token ID 映射表
//
// 数据格式: token id
func LoadSymbolTable(path string) (*SymbolTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	st := &SymbolTable{ids: make(map[string]int64)}
	maxID := int64(-1)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid id for token %q", parts[0])
		}
		st.ids[parts[0]] = id
		if id > maxID {
			maxID = id
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	st.tokens = make([]string, maxID+1)
	for tok, id := range st.ids {
		st.tokens[id] = tok
	}
	return st, nil
}

// Len 符号数量
func (st *SymbolTable) Len() int { return len(st.tokens) }

// ID 查询单个 token
func (st *SymbolTable) ID(token string) (int64, bool) {
	id, ok := st.ids[token]
	return id, ok
}

// TokensToIDs 将 token 序列转为 ID, 遇到未知 token 返回错误
func (st *SymbolTable) TokensToIDs(tokens []string) ([]int64, error) {
	ids := make([]int64, 0, len(tokens))
	for _, tok := range tokens {
		id, ok := st.ids[tok]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownToken, "%q", tok)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IDsToTokens ID 序列还原为 token, 越界 ID 跳过
func (st *SymbolTable) IDsToTokens(ids []int64) []string {
	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		if id >= 0 && int(id) < len(st.tokens) {
			tokens = append(tokens, st.tokens[id])
		}
	}
	return tokens
}

// TokensToIDs 使用内置符号表
func TokensToIDs(tokens []string) ([]int64, error) {
	return DefaultSymbols.TokensToIDs(tokens)
}

// PhonemesToTokens 将空格分隔的音素串转为 token 序列, 末尾追加 EOS
//
// 标点会映射到对应的特殊 token, 多余空白忽略
func PhonemesToTokens(phonemes string) []string {
	fields := strings.Fields(phonemes)
	tokens := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		if p, ok := punctuation[f]; ok {
			f = p
		}
		tokens = append(tokens, f)
	}
	return append(tokens, EOSToken)
}

// BuckwalterToTokens Buckwalter 文本直接转 token
func BuckwalterToTokens(bw string) ([]string, error) {
	phonemes, err := BuckwalterToPhonemes(bw)
	if err != nil {
		return nil, err
	}
	return PhonemesToTokens(phonemes), nil
}
