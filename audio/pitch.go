package audio

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// PitchConfig 基频估计参数, 帧移需与梅尔谱一致, 这样基频曲线与梅尔帧一一对应
type PitchConfig struct {
	SampleRate int
	FrameSize  int     // 分析窗长
	HopLength  int     // 帧移
	FMin       float64 // 搜索下限 Hz
	FMax       float64 // 搜索上限 Hz
	Threshold  float64 // 归一化自相关峰值低于该值视为清音
	MinRMS     float64 // 帧能量低于该值视为静音
}

// DefaultPitchConfig 与 DefaultMelConfig 对齐
func DefaultPitchConfig() PitchConfig {
	return PitchConfig{
		SampleRate: 22050,
		FrameSize:  1024,
		HopLength:  256,
		FMin:       65,
		FMax:       600,
		Threshold:  0.45,
		MinRMS:     0.01,
	}
}

// EstimatePitch 基于 FFT 自相关的逐帧基频估计
//
// 帧数为 1 + len(samples)/HopLength, 与居中分帧的梅尔谱相同; 清音与静音帧返回 0
func EstimatePitch(samples []float32, cfg PitchConfig) []float64 {
	numFrames := 1 + len(samples)/cfg.HopLength
	f0 := make([]float64, numFrames)

	// 补零到 2 倍长度避免循环相关
	n := 1
	for n < 2*cfg.FrameSize {
		n <<= 1
	}
	fft := fourier.NewCmplxFFT(n)
	buf := make([]complex128, n)
	frame := make([]float64, cfg.FrameSize)

	minLag := int(math.Floor(float64(cfg.SampleRate) / cfg.FMax))
	maxLag := int(math.Ceil(float64(cfg.SampleRate) / cfg.FMin))
	if maxLag >= cfg.FrameSize {
		maxLag = cfg.FrameSize - 1
	}
	if minLag < 1 {
		minLag = 1
	}

	half := cfg.FrameSize / 2
	for t := 0; t < numFrames; t++ {
		center := t * cfg.HopLength
		energy := 0.0
		for i := range frame {
			idx := center - half + i
			if idx >= 0 && idx < len(samples) {
				frame[i] = float64(samples[idx])
			} else {
				frame[i] = 0
			}
			energy += frame[i] * frame[i]
		}
		if math.Sqrt(energy/float64(cfg.FrameSize)) < cfg.MinRMS {
			continue
		}

		for i := range buf {
			if i < len(frame) {
				buf[i] = complex(frame[i], 0)
			} else {
				buf[i] = 0
			}
		}
		coeffs := fft.Coefficients(nil, buf)
		for i, c := range coeffs {
			a := cmplx.Abs(c)
			coeffs[i] = complex(a*a, 0)
		}
		acf := fft.Sequence(nil, coeffs)

		r0 := real(acf[0])
		if r0 <= 0 {
			continue
		}
		bestLag, best := 0, 0.0
		for lag := minLag; lag <= maxLag; lag++ {
			v := real(acf[lag]) / r0
			if v > best {
				best, bestLag = v, lag
			}
		}
		if bestLag == 0 || best < cfg.Threshold {
			continue
		}
		f0[t] = float64(cfg.SampleRate) / refineLag(acf, bestLag, maxLag)
	}
	return f0
}

// refineLag 抛物线插值得到亚采样精度的周期
func refineLag(acf []complex128, lag, maxLag int) float64 {
	if lag <= 1 || lag >= maxLag {
		return float64(lag)
	}
	y0, y1, y2 := real(acf[lag-1]), real(acf[lag]), real(acf[lag+1])
	den := y0 - 2*y1 + y2
	if den == 0 {
		return float64(lag)
	}
	return float64(lag) + 0.5*(y0-y2)/den
}
