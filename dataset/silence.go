package dataset

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RemoveSilence 返回保留帧掩码: 能量高于阈值的帧保留,
// 末尾连续的静音帧也强制保留 (结束帧必须出现在训练目标里)
func RemoveSilence(energyPerFrame []float64, thresh float64) []bool {
	keep := make([]bool, len(energyPerFrame))
	for i, e := range energyPerFrame {
		keep[i] = e > thresh
	}
	i := len(keep) - 1
	for i > 0 && !keep[i] {
		keep[i] = true
		i--
	}
	// 单帧静音输入时上面的循环不会执行
	if len(keep) > 0 && i == len(keep)-1 {
		keep[i] = true
	}
	return keep
}

// NormalizePitch 用固定均值方差标准化基频, 原本为 0 (清音) 的帧保持 0
func NormalizePitch(pitch []float64, mean, std float64) []float64 {
	out := make([]float64, len(pitch))
	for i, p := range pitch {
		if p == 0 {
			continue
		}
		out[i] = (p - mean) / std
	}
	return out
}

// FrameMeanEnergy 每帧 (列) 在梅尔维上的均值
func FrameMeanEnergy(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		out[j] = floats.Sum(col) / float64(rows)
	}
	return out
}

// FrameL2Energy 每帧的 L2 范数
func FrameL2Energy(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		out[j] = floats.Norm(col, 2)
	}
	return out
}

// SelectFrames 按掩码挑选列, 返回新矩阵
func SelectFrames(m *mat.Dense, keep []bool) *mat.Dense {
	rows, cols := m.Dims()
	n := 0
	for j := 0; j < cols && j < len(keep); j++ {
		if keep[j] {
			n++
		}
	}
	if n == cols {
		return m
	}
	if n == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(rows, n, nil)
	col := make([]float64, rows)
	dst := 0
	for j := 0; j < cols && j < len(keep); j++ {
		if !keep[j] {
			continue
		}
		mat.Col(col, j, m)
		out.SetCol(dst, col)
		dst++
	}
	return out
}

// selectValues 按掩码挑选元素
func selectValues(v []float64, keep []bool) []float64 {
	out := make([]float64, 0, len(v))
	for i, x := range v {
		if i < len(keep) && keep[i] {
			out = append(out, x)
		}
	}
	return out
}
