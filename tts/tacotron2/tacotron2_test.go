package tacotron2

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/getcharzp/go-arabic-speech/text"
)

func TestSplitUtterances(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{">anA Aln~ahAridapu", []string{">anA Aln~ahAridapu"}},
		{"kabiyr, jid~AF. salAm", []string{"kabiyr,", "jid~AF.", "salAm"}},
		{"salAm؟ ... kitAb!", []string{"salAm؟", "kitAb!"}},
		{"  ", nil},
	}
	for _, tt := range tests {
		got := splitUtterances(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitUtterances(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type vowelizerFunc func(string) (string, error)

func (f vowelizerFunc) Vowelize(bw string) (string, error) { return f(bw) }

func TestPrepareUtterances(t *testing.T) {
	v := vowelizerFunc(func(bw string) (string, error) {
		if bw == "ktb slm" {
			return "kataba, salAm", nil
		}
		return "", errors.New("unknown")
	})

	got, err := prepareUtterances("ktb slm", v)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"kataba,", "salAm"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
	if _, err := prepareUtterances("xyz", v); err == nil {
		t.Error("vowelizer error not returned")
	}
	if _, err := prepareUtterances(" . ", nil); err == nil {
		t.Error("empty input accepted")
	}
}

func TestChunk(t *testing.T) {
	utts := []string{"a", "b", "c", "d", "e"}
	got := chunk(utts, 2)
	want := [][]string{{"a", "b"}, {"c", "d"}, {"e"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("chunk = %v, want %v", got, want)
	}
}

func TestEncodeBatch(t *testing.T) {
	e := &Engine{symbols: text.DefaultSymbols}
	ids, lengths, order, err := e.encodeBatch([]string{"bi", "salAm"})
	if err != nil {
		t.Fatal(err)
	}
	// salAm -> s a l aa m eos
	if !reflect.DeepEqual(lengths, []int64{6, 3}) {
		t.Errorf("lengths = %v", lengths)
	}
	if !reflect.DeepEqual(order, []int{1, 0}) {
		t.Errorf("order = %v", order)
	}
	if len(ids) != 12 || ids[9] != 0 || ids[11] != 0 {
		t.Errorf("ids = %v", ids)
	}
	if _, _, _, err := e.encodeBatch([]string{"sa7"}); err == nil {
		t.Error("expected error for unsupported character")
	}
}

func TestResolveOption(t *testing.T) {
	if got := resolveOption(nil); got != DefaultSynthesizeOption() {
		t.Errorf("resolveOption(nil) = %+v", got)
	}
	got := resolveOption([]SynthesizeOption{{Speed: -1, Denoise: -2, BatchSize: 0, SpeakerID: 3}})
	if got.Speed != 1 || got.Denoise != 0 || got.BatchSize != 8 || got.SpeakerID != 3 {
		t.Errorf("resolveOption = %+v", got)
	}
}

func TestResizeMel(t *testing.T) {
	m := mat.NewDense(2, 5, []float64{
		0, 1, 2, 3, 4,
		4, 3, 2, 1, 0,
	})
	if resizeMel(m, 1) != m {
		t.Error("speed 1 should return the input")
	}
	slow := resizeMel(m, 0.5)
	if _, c := slow.Dims(); c != 10 {
		t.Fatalf("frames = %d, want 10", c)
	}
	if slow.At(0, 0) != 0 || slow.At(0, 9) != 4 || slow.At(1, 9) != 0 {
		t.Errorf("endpoints = %v", mat.Formatted(slow))
	}
	fast := resizeMel(m, 2)
	if _, c := fast.Dims(); c != 3 {
		t.Fatalf("frames = %d, want 3", c)
	}
	if fast.At(0, 1) != 2 {
		t.Errorf("middle = %v", fast.At(0, 1))
	}
}

func TestClip(t *testing.T) {
	pcm := []float32{-2, -0.5, 0.5, 3}
	clip(pcm)
	if !reflect.DeepEqual(pcm, []float32{-1, -0.5, 0.5, 1}) {
		t.Errorf("clip = %v", pcm)
	}
}

func testSignal(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		x := float64(i) / SampleRate
		out[i] = float32(0.3*math.Sin(2*math.Pi*220*x) + 0.1*math.Sin(2*math.Pi*1330*x))
	}
	return out
}

func TestDenoiseZeroStrengthReconstructs(t *testing.T) {
	d := newDenoiser(testSignal(biasMelFrames * hopLength))
	in := testSignal(8000)
	out := d.Denoise(in, 0)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(float64(out[i]-in[i])) > 1e-4 {
			t.Fatalf("sample %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestDenoiseRemovesBias(t *testing.T) {
	bias := testSignal(biasMelFrames * hopLength)
	d := newDenoiser(bias)
	in := testSignal(8000)
	out := d.Denoise(in, 10)

	energy := func(s []float32) float64 {
		sum := 0.0
		for _, v := range s[1024 : len(s)-1024] {
			sum += float64(v) * float64(v)
		}
		return sum
	}
	if energy(out) >= energy(in)*0.1 {
		t.Errorf("energy after denoise = %v, before = %v", energy(out), energy(in))
	}
}
