package tacotron2

import (
	"math"
	"math/cmplx"

	"github.com/up-zero/gotool/mediautil"
	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	stftFilterLength = 1024
	stftHopLength    = 256
	// biasMelFrames 估计声码器偏置时使用的全零梅尔谱帧数
	biasMelFrames = 88
)

// denoiser 从声码器输出的幅度谱中减去声码器自身的偏置谱
//
// 偏置谱取声码器对全零梅尔谱输出的第一帧
type denoiser struct {
	fft    *fourier.FFT
	window []float64
	bias   []float64
}

func newDenoiser(biasAudio []float32) *denoiser {
	d := &denoiser{fft: fourier.NewFFT(stftFilterLength)}
	for _, w := range mediautil.HannWindow(stftFilterLength) {
		d.window = append(d.window, float64(w))
	}
	spec := d.stft(biasAudio)
	d.bias = make([]float64, stftFilterLength/2+1)
	if len(spec) > 0 {
		for k, c := range spec[0] {
			d.bias[k] = cmplx.Abs(c)
		}
	}
	return d
}

// Denoise 幅度谱减去 strength 倍偏置 (下限 0), 保留相位后重建
func (d *denoiser) Denoise(pcm []float32, strength float32) []float32 {
	if len(pcm) <= stftFilterLength/2 {
		return pcm
	}
	spec := d.stft(pcm)
	s := float64(strength)
	for _, frame := range spec {
		for k, c := range frame {
			mag := math.Max(cmplx.Abs(c)-d.bias[k]*s, 0)
			frame[k] = cmplx.Rect(mag, cmplx.Phase(c))
		}
	}
	return d.istft(spec, len(pcm))
}

// stft 居中镜像填充后的短时傅里叶变换
func (d *denoiser) stft(pcm []float32) [][]complex128 {
	pad := stftFilterLength / 2
	if len(pcm) <= pad {
		return nil
	}
	padded := reflectPad(pcm, pad)
	numFrames := 1 + len(pcm)/stftHopLength
	spec := make([][]complex128, numFrames)
	seq := make([]float64, stftFilterLength)
	for t := range spec {
		start := t * stftHopLength
		for j := range seq {
			seq[j] = padded[start+j] * d.window[j]
		}
		spec[t] = d.fft.Coefficients(nil, seq)
	}
	return spec
}

// istft 加窗重叠相加, 按窗平方和归一化, 去掉两端填充
func (d *denoiser) istft(spec [][]complex128, length int) []float32 {
	pad := stftFilterLength / 2
	total := stftFilterLength + stftHopLength*(len(spec)-1)
	acc := make([]float64, total)
	norm := make([]float64, total)
	seq := make([]float64, stftFilterLength)
	scale := 1 / float64(stftFilterLength)
	for t, frame := range spec {
		d.fft.Sequence(seq, frame)
		start := t * stftHopLength
		for j, v := range seq {
			w := d.window[j]
			acc[start+j] += v * scale * w
			norm[start+j] += w * w
		}
	}
	out := make([]float32, length)
	for i := range out {
		p := i + pad
		if p >= total {
			break
		}
		if norm[p] > 1e-11 {
			out[i] = float32(acc[p] / norm[p])
		} else {
			out[i] = float32(acc[p])
		}
	}
	return out
}

func reflectPad(s []float32, p int) []float64 {
	n := len(s)
	out := make([]float64, n+2*p)
	for i := 0; i < p; i++ {
		out[i] = float64(s[p-i])
		out[n+p+i] = float64(s[n-2-i])
	}
	for i, v := range s {
		out[p+i] = float64(v)
	}
	return out
}
