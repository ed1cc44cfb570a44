package audio

import (
	"bytes"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"github.com/up-zero/gotool/fileutil"
	"github.com/up-zero/gotool/mediautil"
)

const (
	// channels 声道数
	channels = 1
	// bitsPerSample 采样位数
	bitsPerSample = 16
	// wavHeaderSize 标准 PCM WAV 头长度
	wavHeaderSize = 44
)

// ErrInvalidWav 不是有效的 WAV 文件
var ErrInvalidWav = errors.New("invalid wav file")

// LoadWav 读取 WAV 文件, 返回单声道 [-1, 1] 范围的样本
//
// 采样率或声道数与目标不一致时先重采样为 targetRate 单声道 16bit
func LoadWav(path string, targetRate int) ([]float32, error) {
	wavBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read wav")
	}
	return DecodeWav(wavBytes, targetRate)
}

// DecodeWav 解码 WAV 字节流, 规则同 LoadWav
func DecodeWav(wavBytes []byte, targetRate int) ([]float32, error) {
	d := wav.NewDecoder(bytes.NewReader(wavBytes))
	if !d.IsValidFile() {
		return nil, ErrInvalidWav
	}
	if int(d.SampleRate) != targetRate || d.NumChans != channels {
		return resample(wavBytes, targetRate)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "decode pcm")
	}
	return intBufferToFloat32(buf), nil
}

// resample 借助 mediautil 统一格式后解析 PCM
func resample(wavBytes []byte, targetRate int) ([]float32, error) {
	targetBytes, err := mediautil.ReformatWavBytes(wavBytes, targetRate, channels, bitsPerSample)
	if err != nil {
		return nil, errors.Wrap(err, "reformat wav")
	}
	if len(targetBytes) < wavHeaderSize {
		return nil, ErrInvalidWav
	}
	return mediautil.PcmBytesToFloat32(targetBytes[wavHeaderSize:], bitsPerSample)
}

// intBufferToFloat32 按位深归一化到 [-1, 1]
//
// 8bit PCM 为无符号整数, 静音位于 128
func intBufferToFloat32(buf *goaudio.IntBuffer) []float32 {
	out := make([]float32, len(buf.Data))
	if buf.SourceBitDepth == 8 {
		for i, v := range buf.Data {
			out[i] = float32(v-128) / 128
		}
		return out
	}

	var scale float32
	switch buf.SourceBitDepth {
	case 32:
		scale = float32(0x7FFFFFFF)
	case 24:
		scale = float32(0x7FFFFF)
	default:
		scale = float32(0x7FFF)
	}
	for i, v := range buf.Data {
		out[i] = float32(v) / scale
	}
	return out
}

// WavBytes 将 float32 PCM 编码为单声道 16bit WAV
func WavBytes(pcm []float32, sampleRate int) ([]byte, error) {
	return mediautil.Float32ToWavBytes(pcm, sampleRate, channels, bitsPerSample)
}

// SaveWav 将 float32 PCM 保存为 WAV 文件
func SaveWav(path string, pcm []float32, sampleRate int) error {
	wavBytes, err := WavBytes(pcm, sampleRate)
	if err != nil {
		return errors.Wrap(err, "encode wav")
	}
	return fileutil.FileSave(path, wavBytes)
}
