package tacotron2

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/getcharzp/go-arabic-speech/text"
)

// sentencePunct 句子切分标点
const sentencePunct = ".,;:?!،؛؟"

// prepareUtterances 补全元音后切句
func prepareUtterances(bw string, v Vowelizer) ([]string, error) {
	if v != nil {
		vowelized, err := v.Vowelize(bw)
		if err != nil {
			return nil, fmt.Errorf("元音补全失败: %w", err)
		}
		bw = vowelized
	}
	utts := splitUtterances(bw)
	if len(utts) == 0 {
		return nil, fmt.Errorf("输入文本为空")
	}
	return utts, nil
}

// splitUtterances 按标点切分句子, 标点保留在句尾
func splitUtterances(bw string) []string {
	var (
		utts []string
		cur  strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" && strings.Trim(s, sentencePunct+" ") != "" {
			utts = append(utts, s)
		}
		cur.Reset()
	}
	for _, r := range bw {
		cur.WriteRune(r)
		if strings.ContainsRune(sentencePunct, r) {
			flush()
		}
	}
	flush()
	return utts
}

// chunk 按 size 切分
func chunk(utts []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(utts); start += size {
		out = append(out, utts[start:min(start+size, len(utts))])
	}
	return out
}

// encodeBatch 句子转 Token ID 并按长度降序排列, 返回填充后的 ID, 长度以及原始位置
func (e *Engine) encodeBatch(utts []string) ([]int64, []int64, []int, error) {
	seqs := make([][]int64, len(utts))
	for i, u := range utts {
		tokens, err := text.BuckwalterToTokens(u)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("音素转换失败 (%s): %w", u, err)
		}
		ids, err := e.symbols.TokensToIDs(tokens)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("Token 转换失败 (%s): %w", u, err)
		}
		seqs[i] = ids
	}

	order := make([]int, len(seqs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return len(seqs[order[a]]) > len(seqs[order[b]]) })

	maxLen := len(seqs[order[0]])
	ids := make([]int64, len(seqs)*maxLen)
	lengths := make([]int64, len(seqs))
	for row, src := range order {
		copy(ids[row*maxLen:], seqs[src])
		lengths[row] = int64(len(seqs[src]))
	}
	return ids, lengths, order, nil
}

// resizeMel 沿时间轴线性插值, 帧数变为 round(frames / speed)
func resizeMel(mel *mat.Dense, speed float32) *mat.Dense {
	if speed == 1 {
		return mel
	}
	rows, cols := mel.Dims()
	n := int(math.Round(float64(cols) / float64(speed)))
	if n < 1 {
		n = 1
	}
	out := mat.NewDense(rows, n, nil)
	for j := 0; j < n; j++ {
		x := 0.0
		if n > 1 {
			x = float64(j) * float64(cols-1) / float64(n-1)
		}
		x0 := int(math.Floor(x))
		x1 := min(x0+1, cols-1)
		w := x - float64(x0)
		for i := 0; i < rows; i++ {
			out.Set(i, j, (1-w)*mel.At(i, x0)+w*mel.At(i, x1))
		}
	}
	return out
}

// clip 限幅到 [-1, 1]
func clip(pcm []float32) {
	for i, v := range pcm {
		if v > 1 {
			pcm[i] = 1
		} else if v < -1 {
			pcm[i] = -1
		}
	}
}
