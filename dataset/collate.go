package dataset

import (
	"sort"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// TextMelBatch 填充后的 Tacotron2 训练批次, 行按输入长度降序排列
type TextMelBatch struct {
	BatchSize    int
	MaxInputLen  int
	NumMels      int
	MaxTargetLen int

	TextIDs       []int64   // [BatchSize × MaxInputLen]
	InputLengths  []int64   // [BatchSize]
	Mel           []float32 // [BatchSize × NumMels × MaxTargetLen]
	Gate          []float32 // [BatchSize × MaxTargetLen]
	OutputLengths []int64   // [BatchSize]
}

// CollateTextMel 按 token 长度降序稳定排序后填充
//
// 每行 gate 从 mel_length-1 开始置 1
func CollateTextMel(batch []TextMel, padValue float32) (*TextMelBatch, error) {
	if len(batch) == 0 {
		return nil, errors.New("empty batch")
	}
	numMels := 0
	for i, item := range batch {
		if item.Mel == nil || item.Mel.IsEmpty() {
			return nil, errors.Wrapf(ErrMelShape, "batch index %d: empty", i)
		}
		r, _ := item.Mel.Dims()
		if i == 0 {
			numMels = r
		} else if r != numMels {
			return nil, errors.Wrapf(ErrMelShape, "batch index %d: %d mel bins, want %d", i, r, numMels)
		}
	}

	order := make([]int, len(batch))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(batch[order[a]].TokenIDs) > len(batch[order[b]].TokenIDs)
	})

	maxTarget := 0
	for _, item := range batch {
		_, c := item.Mel.Dims()
		maxTarget = max(maxTarget, c)
	}

	b := &TextMelBatch{
		BatchSize:     len(batch),
		MaxInputLen:   len(batch[order[0]].TokenIDs),
		NumMels:       numMels,
		MaxTargetLen:  maxTarget,
		InputLengths:  make([]int64, len(batch)),
		OutputLengths: make([]int64, len(batch)),
	}
	b.TextIDs = make([]int64, b.BatchSize*b.MaxInputLen)
	b.Mel = make([]float32, b.BatchSize*numMels*maxTarget)
	b.Gate = make([]float32, b.BatchSize*maxTarget)
	for i := range b.Mel {
		b.Mel[i] = padValue
	}

	for i, src := range order {
		item := batch[src]
		copy(b.TextIDs[i*b.MaxInputLen:], item.TokenIDs)
		b.InputLengths[i] = int64(len(item.TokenIDs))

		_, frames := item.Mel.Dims()
		for m := 0; m < numMels; m++ {
			row := b.Mel[(i*numMels+m)*maxTarget:]
			for t := 0; t < frames; t++ {
				row[t] = float32(item.Mel.At(m, t))
			}
		}
		gate := b.Gate[i*maxTarget : (i+1)*maxTarget]
		for t := frames - 1; t < maxTarget; t++ {
			gate[t] = 1
		}
		b.OutputLengths[i] = int64(frames)
	}
	return b, nil
}

// TextIDsAt 第 i 行的 token ids (含填充)
func (b *TextMelBatch) TextIDsAt(i int) []int64 {
	return b.TextIDs[i*b.MaxInputLen : (i+1)*b.MaxInputLen]
}

// MelAt 第 i 行第 m 个梅尔通道 (含填充)
func (b *TextMelBatch) MelAt(i, m int) []float32 {
	off := (i*b.NumMels + m) * b.MaxTargetLen
	return b.Mel[off : off+b.MaxTargetLen]
}

// GateAt 第 i 行的 gate
func (b *TextMelBatch) GateAt(i int) []float32 {
	return b.Gate[i*b.MaxTargetLen : (i+1)*b.MaxTargetLen]
}

// Tensors 按 (text_ids, input_lengths, mel, gate, output_lengths) 顺序创建 ONNX Runtime 张量,
// 调用方负责 Destroy
func (b *TextMelBatch) Tensors() ([]ort.Value, error) {
	bs := int64(b.BatchSize)
	var values []ort.Value
	fail := func(err error, name string) ([]ort.Value, error) {
		for _, v := range values {
			v.Destroy()
		}
		return nil, errors.Wrapf(err, "create %s tensor", name)
	}

	tText, err := ort.NewTensor(ort.NewShape(bs, int64(b.MaxInputLen)), b.TextIDs)
	if err != nil {
		return fail(err, "text_ids")
	}
	values = append(values, tText)

	tIn, err := ort.NewTensor(ort.NewShape(bs), b.InputLengths)
	if err != nil {
		return fail(err, "input_lengths")
	}
	values = append(values, tIn)

	tMel, err := ort.NewTensor(ort.NewShape(bs, int64(b.NumMels), int64(b.MaxTargetLen)), b.Mel)
	if err != nil {
		return fail(err, "mel")
	}
	values = append(values, tMel)

	tGate, err := ort.NewTensor(ort.NewShape(bs, int64(b.MaxTargetLen)), b.Gate)
	if err != nil {
		return fail(err, "gate")
	}
	values = append(values, tGate)

	tOut, err := ort.NewTensor(ort.NewShape(bs), b.OutputLengths)
	if err != nil {
		return fail(err, "output_lengths")
	}
	values = append(values, tOut)
	return values, nil
}
