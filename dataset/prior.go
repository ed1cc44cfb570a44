package dataset

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"
)

// BetaBinomialPrior 文本-梅尔对齐先验, 形状 [melCount × phonemeCount]
//
// 第 i 行 (从 1 开始) 为 BetaBinomial(n=phonemeCount, a=s·i, b=s·(melCount+1-i))
// 在 k = 0..phonemeCount-1 上的概率
func BetaBinomialPrior(phonemeCount, melCount int, scaling float64) *mat.Dense {
	out := mat.NewDense(melCount, phonemeCount, nil)
	n := float64(phonemeCount)
	lgN, _ := math.Lgamma(n + 1)
	for i := 1; i <= melCount; i++ {
		a := scaling * float64(i)
		b := scaling * float64(melCount+1-i)
		lbetaAB := mathext.Lbeta(a, b)
		for k := 0; k < phonemeCount; k++ {
			fk := float64(k)
			lgK, _ := math.Lgamma(fk + 1)
			lgNK, _ := math.Lgamma(n - fk + 1)
			logPmf := lgN - lgK - lgNK + mathext.Lbeta(fk+a, n-fk+b) - lbetaAB
			out.Set(i-1, k, math.Exp(logPmf))
		}
	}
	return out
}

// PriorInterpolator 在粗网格上缓存先验并线性缩放到目标尺寸, 可并发使用
type PriorInterpolator struct {
	roundMelTo  int
	roundTextTo int

	mu   sync.Mutex
	bank map[[2]int]*mat.Dense
}

// NewPriorInterpolator 梅尔长度按 100, 文本长度按 20 取整
func NewPriorInterpolator() *PriorInterpolator {
	return &PriorInterpolator{
		roundMelTo:  100,
		roundTextTo: 20,
		bank:        make(map[[2]int]*mat.Dense),
	}
}

func roundTo(val, to int) int {
	r := int(math.RoundToEven(float64(val+1) / float64(to)))
	if r < 1 {
		r = 1
	}
	return r * to
}

// Prior 返回 [melLen × textLen] 的对齐先验
func (p *PriorInterpolator) Prior(melLen, textLen int) *mat.Dense {
	bw := roundTo(melLen, p.roundMelTo)
	bh := roundTo(textLen, p.roundTextTo)
	return zoomBilinear(p.cached(bw, bh), melLen, textLen)
}

// cached 返回 [bw × bh], 即 BetaBinomialPrior(bw, bh) 的转置
func (p *PriorInterpolator) cached(bw, bh int) *mat.Dense {
	key := [2]int{bw, bh}
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.bank[key]; ok {
		return m
	}
	var m mat.Dense
	m.CloneFrom(BetaBinomialPrior(bw, bh, 1.0).T())
	p.bank[key] = &m
	return &m
}

// zoomBilinear 线性插值缩放, 端点对齐 (输出首尾元素对应输入首尾元素)
func zoomBilinear(src *mat.Dense, rows, cols int) *mat.Dense {
	sr, sc := src.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		y := alignCoord(i, rows, sr)
		y0 := int(math.Floor(y))
		y1 := min(y0+1, sr-1)
		wy := y - float64(y0)
		for j := 0; j < cols; j++ {
			x := alignCoord(j, cols, sc)
			x0 := int(math.Floor(x))
			x1 := min(x0+1, sc-1)
			wx := x - float64(x0)
			v := (1-wy)*((1-wx)*src.At(y0, x0)+wx*src.At(y0, x1)) +
				wy*((1-wx)*src.At(y1, x0)+wx*src.At(y1, x1))
			out.Set(i, j, v)
		}
	}
	return out
}

func alignCoord(i, outLen, inLen int) float64 {
	if outLen <= 1 {
		return 0
	}
	return float64(i) * float64(inLen-1) / float64(outLen-1)
}
