package audio

import (
	"math"

	"github.com/pkg/errors"
	"github.com/up-zero/gotool/mediautil"
	"gonum.org/v1/gonum/mat"
)

// MelConfig 梅尔频谱参数, 默认值与 Tacotron2 / FastPitch 训练时一致
type MelConfig struct {
	SampleRate int
	NFFT       int
	WinLength  int
	HopLength  int
	NMels      int
	FMin       float64
	FMax       float64
}

// DefaultMelConfig 22050Hz, 1024 点 FFT, 256 帧移, 80 个梅尔通道, 0~8000Hz
func DefaultMelConfig() MelConfig {
	return MelConfig{
		SampleRate: 22050,
		NFFT:       1024,
		WinLength:  1024,
		HopLength:  256,
		NMels:      80,
		FMin:       0,
		FMax:       8000,
	}
}

// sparseFilter 只保存三角滤波器的非零区间
type sparseFilter struct {
	start  int
	coeffs []float64
}

// MelSpectrogram 幅度谱 + Slaney 梅尔滤波器组, 构造后只读, 可并发使用
type MelSpectrogram struct {
	cfg     MelConfig
	window  []float64 // 长度 NFFT, WinLength 之外补零
	filters []sparseFilter
}

// NewMelSpectrogram 校验参数并预计算窗函数与滤波器
func NewMelSpectrogram(cfg MelConfig) (*MelSpectrogram, error) {
	if cfg.NFFT <= 0 || cfg.NFFT&(cfg.NFFT-1) != 0 {
		return nil, errors.Errorf("n_fft must be a power of two, got %d", cfg.NFFT)
	}
	if cfg.WinLength <= 0 || cfg.WinLength > cfg.NFFT {
		return nil, errors.Errorf("win_length %d out of range (0, %d]", cfg.WinLength, cfg.NFFT)
	}
	if cfg.HopLength <= 0 || cfg.NMels <= 0 || cfg.SampleRate <= 0 {
		return nil, errors.New("hop_length, n_mels and sample_rate must be positive")
	}
	if cfg.FMax <= 0 || cfg.FMax > float64(cfg.SampleRate)/2 {
		cfg.FMax = float64(cfg.SampleRate) / 2
	}

	// 窗函数居中放入 NFFT 长度的缓冲
	window := make([]float64, cfg.NFFT)
	offset := (cfg.NFFT - cfg.WinLength) / 2
	for i, w := range mediautil.HannWindow(cfg.WinLength) {
		window[offset+i] = float64(w)
	}

	return &MelSpectrogram{
		cfg:     cfg,
		window:  window,
		filters: slaneyFilters(cfg),
	}, nil
}

// Config 返回参数副本
func (m *MelSpectrogram) Config() MelConfig {
	return m.cfg
}

// NumFrames 居中分帧后的帧数
func (m *MelSpectrogram) NumFrames(numSamples int) int {
	return 1 + numSamples/m.cfg.HopLength
}

// Compute 计算线性幅度梅尔谱, 形状 [n_mels × frames]
//
// 分帧方式为 center=True: 两端各做 n_fft/2 的镜像填充
func (m *MelSpectrogram) Compute(samples []float32) (*mat.Dense, error) {
	pad := m.cfg.NFFT / 2
	if len(samples) <= pad {
		return nil, errors.Errorf("audio too short for reflect padding: %d samples, need > %d", len(samples), pad)
	}
	ref := padReflect(samples, pad)
	numFrames := m.NumFrames(len(samples))
	nBins := m.cfg.NFFT/2 + 1

	out := mat.NewDense(m.cfg.NMels, numFrames, nil)
	fftBuffer := make([]complex128, m.cfg.NFFT)
	magnitude := make([]float64, nBins)

	for t := 0; t < numFrames; t++ {
		start := t * m.cfg.HopLength
		for j := range fftBuffer {
			fftBuffer[j] = complex(float64(ref[start+j])*m.window[j], 0)
		}
		spectrum := mediautil.FFT(fftBuffer)
		for j := 0; j < nBins; j++ {
			r, im := real(spectrum[j]), imag(spectrum[j])
			magnitude[j] = math.Sqrt(r*r + im*im)
		}
		for k, sf := range m.filters {
			sum := 0.0
			for j, c := range sf.coeffs {
				sum += magnitude[sf.start+j] * c
			}
			out.Set(k, t, sum)
		}
	}
	return out, nil
}

// LogMel 对数梅尔谱: log(max(mel, 1e-5))
func (m *MelSpectrogram) LogMel(samples []float32) (*mat.Dense, error) {
	mel, err := m.Compute(samples)
	if err != nil {
		return nil, err
	}
	mel.Apply(func(_, _ int, v float64) float64 {
		return math.Log(math.Max(v, 1e-5))
	}, mel)
	return mel, nil
}

// padReflect 镜像填充 (不重复端点)
func padReflect(s []float32, p int) []float32 {
	n := len(s)
	res := make([]float32, n+2*p)
	for i := 0; i < p; i++ {
		res[i] = s[p-i]
		res[n+p+i] = s[n-2-i]
	}
	copy(res[p:], s)
	return res
}

// slaneyFilters 构建 Slaney 刻度, Slaney 归一化的三角滤波器组
func slaneyFilters(cfg MelConfig) []sparseFilter {
	nBins := cfg.NFFT/2 + 1
	fftFreqs := make([]float64, nBins)
	for i := range fftFreqs {
		fftFreqs[i] = float64(i) * float64(cfg.SampleRate) / float64(cfg.NFFT)
	}

	lowMel, highMel := hzToMel(cfg.FMin), hzToMel(cfg.FMax)
	melF := make([]float64, cfg.NMels+2)
	for i := range melF {
		melF[i] = melToHz(lowMel + (highMel-lowMel)*float64(i)/float64(cfg.NMels+1))
	}

	filters := make([]sparseFilter, cfg.NMels)
	for i := 0; i < cfg.NMels; i++ {
		lower, center, upper := melF[i], melF[i+1], melF[i+2]
		enorm := 2.0 / (upper - lower)
		start, end := -1, -1
		weights := make([]float64, nBins)
		for j, f := range fftFreqs {
			w := math.Max(0, math.Min((f-lower)/(center-lower), (upper-f)/(upper-center)))
			if w > 0 {
				weights[j] = w * enorm
				if start < 0 {
					start = j
				}
				end = j + 1
			}
		}
		if start < 0 {
			continue
		}
		filters[i] = sparseFilter{start: start, coeffs: weights[start:end]}
	}
	return filters
}

const (
	melFSp     = 200.0 / 3
	minLogHz   = 1000.0
	minLogMel  = minLogHz / melFSp
	melLogStep = 0.06875177742094912 // ln(6.4) / 27
)

func hzToMel(hz float64) float64 {
	if hz < minLogHz {
		return hz / melFSp
	}
	return minLogMel + math.Log(hz/minLogHz)/melLogStep
}

func melToHz(mel float64) float64 {
	if mel < minLogMel {
		return mel * melFSp
	}
	return minLogHz * math.Exp(melLogStep*(mel-minLogMel))
}
