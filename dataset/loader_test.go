package dataset

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"

	"github.com/getcharzp/go-arabic-speech/audio"
)

const fixtureSamples = 11025

// writeNoiseWav 写入确定性的均匀噪声, 所有帧能量都高于静音阈值
func writeNoiseWav(t *testing.T, path string, n int, seed uint64) {
	t.Helper()
	writeSilentHeadWav(t, path, 0, n, seed)
}

// writeSilentHeadWav 前 head 个采样为 0, 其余为均匀噪声
func writeSilentHeadWav(t *testing.T, path string, head, n int, seed uint64) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	r := rand.New(rand.NewPCG(seed, seed))
	data := make([]int, n)
	for i := head; i < n; i++ {
		data[i] = int((r.Float64() - 0.5) * 32767)
	}
	e := wav.NewEncoder(f, DefaultSampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{SampleRate: DefaultSampleRate, NumChannels: 1},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := e.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func fixtureFrames(t *testing.T) int {
	t.Helper()
	m, err := audio.NewMelSpectrogram(audio.DefaultMelConfig())
	if err != nil {
		t.Fatal(err)
	}
	return m.NumFrames(fixtureSamples)
}

func TestArabDatasetSkipsMissingWav(t *testing.T) {
	dir := t.TempDir()
	wavDir := filepath.Join(dir, "wav")
	if err := os.Mkdir(wavDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeNoiseWav(t, filepath.Join(wavDir, "clip_00001.wav"), fixtureSamples, 1)
	writeNoiseWav(t, filepath.Join(wavDir, "clip_00003.wav"), fixtureSamples, 3)

	csvPath := filepath.Join(dir, "train.csv")
	writeFile(t, csvPath, strings.Join([]string{
		"index,text,Diacterized,Buckwalter,Cleaned_Text",
		"1,a,a,salAm,a",
		"2,b,b,kitAbN,b",
		"3,c,c,\"kabiyr, jid~AF.\",c",
	}, "\n")+"\n")

	var logs bytes.Buffer
	ds, err := NewArabDataset(csvPath, wavDir, WithLogger(zerolog.New(&logs)))
	if err != nil {
		t.Fatalf("NewArabDataset: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ds.Len())
	}
	if !strings.Contains(logs.String(), "does not exist") || !strings.Contains(logs.String(), "clip_00002.wav") {
		t.Errorf("missing file not logged: %s", logs.String())
	}

	item, err := ds.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	rows, cols := item.Mel.Dims()
	if rows != 80 || cols != fixtureFrames(t) {
		t.Errorf("mel dims = %d×%d", rows, cols)
	}
	if !strings.Contains(logs.String(), "trimmed silence") {
		t.Errorf("Get not logged: %s", logs.String())
	}
	s, _ := ds.Sample(1)
	if filepath.Base(s.Path) != "clip_00003.wav" || len(item.TokenIDs) != len(s.TokenIDs) {
		t.Errorf("sample = %+v", s)
	}
	if _, err := ds.Get(2); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("err = %v, want ErrIndexOutOfRange", err)
	}
}

func TestArabDatasetMissingColumn(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "train.csv")
	writeFile(t, csvPath, "index,text,Diacterized,Cleaned_Text\n1,a,a,a\n")
	_, err := NewArabDataset(csvPath, dir, WithLogger(zerolog.Nop()))
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
	if !strings.Contains(err.Error(), "Buckwalter") {
		t.Errorf("err = %v, want column name", err)
	}
}

func TestArabDatasetBadRow(t *testing.T) {
	dir := t.TempDir()
	writeNoiseWav(t, filepath.Join(dir, "clip_00001.wav"), fixtureSamples, 1)
	csvPath := filepath.Join(dir, "train.csv")
	writeFile(t, csvPath, "index,text,Diacterized,Buckwalter,Cleaned_Text\nx,a,a,salAm,a\n1,a,a,sa7,a\n1,a,a,salAm,a\n")

	var logs bytes.Buffer
	ds, err := NewArabDataset(csvPath, dir, WithLogger(zerolog.New(&logs)))
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 1 {
		t.Errorf("Len = %d, want 1", ds.Len())
	}
	if strings.Count(logs.String(), "error processing row") != 2 {
		t.Errorf("logs = %s", logs.String())
	}
}

func TestArabDatasetHeaderBOM(t *testing.T) {
	dir := t.TempDir()
	writeNoiseWav(t, filepath.Join(dir, "clip_00001.wav"), fixtureSamples, 1)
	csvPath := filepath.Join(dir, "train.csv")
	writeFile(t, csvPath, "\ufeffindex,text,Diacterized,Buckwalter,Cleaned_Text\n1,a,a,salAm,a\n")

	ds, err := NewArabDataset(csvPath, dir, WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("NewArabDataset: %v", err)
	}
	if ds.Len() != 1 {
		t.Errorf("Len = %d, want 1", ds.Len())
	}
}

func newFastPitchFixture(t *testing.T, logs *bytes.Buffer, pitchLen int) (*FastPitchDataset, string) {
	t.Helper()
	dir := t.TempDir()
	writeNoiseWav(t, filepath.Join(dir, "a.wav"), fixtureSamples, 1)
	writeNoiseWav(t, filepath.Join(dir, "b.wav"), fixtureSamples, 2)

	txt := filepath.Join(dir, "train_phon.txt")
	writeFile(t, txt, strings.Join([]string{
		`"a.wav" "s a l aa m"`,
		`"b.wav" "k i t aa b"`,
		`"c.wav" "b a"`,
		`"a.wav" "s @ m"`,
		`garbage`,
	}, "\n"))

	f0 := make([]float64, pitchLen)
	for i := range f0 {
		if i%3 != 0 {
			f0[i] = 150
		}
	}
	pitch := NewPitchTable(map[string][]float64{"a.wav": f0})

	cfg := DefaultFastPitchConfig()
	cfg.TxtPath = txt
	cfg.WavPath = dir
	ds, err := NewFastPitchDataset(cfg, pitch, WithLogger(zerolog.New(logs)))
	if err != nil {
		t.Fatalf("NewFastPitchDataset: %v", err)
	}
	return ds, dir
}

func TestFastPitchDataset(t *testing.T) {
	frames := fixtureFrames(t)
	var logs bytes.Buffer
	ds, dir := newFastPitchFixture(t, &logs, frames)

	if ds.Len() != 1 {
		t.Fatalf("Len = %d, want 1", ds.Len())
	}
	for _, msg := range []string{"missing pitch", "does not exist", "invalid phonemes", "invalid line"} {
		if !strings.Contains(logs.String(), msg) {
			t.Errorf("log %q not found in %s", msg, logs.String())
		}
	}

	item, err := ds.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Path != filepath.Join(dir, "a.wav") {
		t.Errorf("Path = %q", item.Path)
	}
	// s a l aa m + eos
	if item.NumTokens != 6 || len(item.TokenIDs) != 6 {
		t.Errorf("NumTokens = %d", item.NumTokens)
	}
	_, cols := item.Mel.Dims()
	if cols != frames || len(item.Pitch) != frames || len(item.Energy) != frames {
		t.Errorf("frames: mel %d, pitch %d, energy %d, want %d", cols, len(item.Pitch), len(item.Energy), frames)
	}
	if item.Pitch[0] != 0 {
		t.Errorf("unvoiced frame normalized to %v", item.Pitch[0])
	}
	want := (150 - 130.05478) / 22.86267
	if d := item.Pitch[1] - want; d > 1e-9 || d < -1e-9 {
		t.Errorf("Pitch[1] = %v, want %v", item.Pitch[1], want)
	}
	if item.Speaker != nil {
		t.Error("Speaker should be nil")
	}
	if r, c := item.AttnPrior.Dims(); r != frames || c != item.NumTokens {
		t.Errorf("prior dims = %d×%d", r, c)
	}
}

func TestFastPitchDatasetPitchLength(t *testing.T) {
	var logs bytes.Buffer
	ds, _ := newFastPitchFixture(t, &logs, 3)
	if _, err := ds.Get(0); !errors.Is(err, ErrPitchLength) {
		t.Errorf("err = %v, want ErrPitchLength", err)
	}
}

// expectedKeep 直接由 audio 包计算保留帧, 不经过数据集
func expectedKeep(t *testing.T, path string) []bool {
	t.Helper()
	wave, err := audio.LoadWav(path, DefaultSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	m, err := audio.NewMelSpectrogram(audio.DefaultMelConfig())
	if err != nil {
		t.Fatal(err)
	}
	melLog, err := m.LogMel(wave)
	if err != nil {
		t.Fatal(err)
	}
	return RemoveSilence(FrameMeanEnergy(melLog), DefaultSilenceThreshold)
}

func TestFastPitchDatasetTrimsLeadingSilence(t *testing.T) {
	frames := fixtureFrames(t)
	dir := t.TempDir()
	wavFile := filepath.Join(dir, "a.wav")
	writeSilentHeadWav(t, wavFile, 5000, fixtureSamples, 7)

	txt := filepath.Join(dir, "train_phon.txt")
	writeFile(t, txt, `"a.wav" "s a l aa m"`)

	// 每帧基频不同, 便于检查对齐
	f0 := make([]float64, frames)
	for i := range f0 {
		f0[i] = 100 + float64(i)
	}
	cfg := DefaultFastPitchConfig()
	cfg.TxtPath = txt
	cfg.WavPath = dir
	ds, err := NewFastPitchDataset(cfg, NewPitchTable(map[string][]float64{"a.wav": f0}), WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("NewFastPitchDataset: %v", err)
	}

	keep := expectedKeep(t, wavFile)
	if len(keep) != frames {
		t.Fatalf("keep mask len = %d, want %d", len(keep), frames)
	}
	first, kept := -1, 0
	for i, k := range keep {
		if k {
			kept++
			if first < 0 {
				first = i
			}
		}
	}
	if first <= 0 || kept >= frames {
		t.Fatalf("fixture has no leading silence: first kept %d, kept %d of %d", first, kept, frames)
	}

	item, err := ds.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	_, cols := item.Mel.Dims()
	if cols != kept || len(item.Pitch) != kept || len(item.Energy) != kept {
		t.Fatalf("frames: mel %d, pitch %d, energy %d, want %d", cols, len(item.Pitch), len(item.Energy), kept)
	}
	want := (f0[first] - cfg.F0Mean) / cfg.F0Std
	if d := item.Pitch[0] - want; d > 1e-9 || d < -1e-9 {
		t.Errorf("Pitch[0] = %v, want f0[%d] normalized %v", item.Pitch[0], first, want)
	}
	want = (f0[frames-1] - cfg.F0Mean) / cfg.F0Std
	if d := item.Pitch[kept-1] - want; d > 1e-9 || d < -1e-9 {
		t.Errorf("last pitch = %v, want %v", item.Pitch[kept-1], want)
	}
	if r, _ := item.AttnPrior.Dims(); r != kept {
		t.Errorf("prior rows = %d, want %d", r, kept)
	}
}

func TestDynBatchDatasetGet(t *testing.T) {
	frames := fixtureFrames(t)
	dir := t.TempDir()
	writeNoiseWav(t, filepath.Join(dir, "a.wav"), fixtureSamples, 1)
	writeNoiseWav(t, filepath.Join(dir, "b.wav"), fixtureSamples, 2)
	txt := filepath.Join(dir, "train_phon.txt")
	writeFile(t, txt, "\"a.wav\" \"s a l aa m\"\n\"b.wav\" \"k i t aa b\"\n")

	f0 := make([]float64, frames)
	for i := range f0 {
		f0[i] = 140
	}
	cfg := DefaultFastPitchConfig()
	cfg.TxtPath = txt
	cfg.WavPath = dir
	ds, err := NewFastPitchDataset(cfg, NewPitchTable(map[string][]float64{"a.wav": f0, "b.wav": f0}), WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ds.Len())
	}

	d, err := NewDynBatchDataset(ds, DefaultBucketConfig(), WithRand(rand.New(rand.NewPCG(5, 6))), WithBatchLogger(zerolog.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 1 {
		t.Fatalf("batches = %d, want 1", d.Len())
	}
	items, err := d.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	paths := map[string]bool{}
	for _, it := range items {
		paths[filepath.Base(it.Path)] = true
		if _, cols := it.Mel.Dims(); cols != frames || len(it.Pitch) != frames {
			t.Errorf("%s: mel %d, pitch %d, want %d", it.Path, cols, len(it.Pitch), frames)
		}
	}
	if !paths["a.wav"] || !paths["b.wav"] {
		t.Errorf("paths = %v", paths)
	}
}
