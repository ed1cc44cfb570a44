package main

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/getcharzp/go-arabic-speech/audio"
	"github.com/getcharzp/go-arabic-speech/dataset"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	var (
		wavDir     string
		out        string
		sampleRate int
		fmin, fmax float64
	)
	pcfg := audio.DefaultPitchConfig()
	flag.StringVar(&wavDir, "wav-dir", "./data/arabic-speech-corpus/wav_new", "Root directory scanned recursively for .wav files")
	flag.StringVar(&out, "out", dataset.DefaultPitchDictPath, "Output pitch dictionary (JSON)")
	flag.IntVar(&sampleRate, "sr", dataset.DefaultSampleRate, "Target sample rate")
	flag.Float64Var(&fmin, "fmin", pcfg.FMin, "Lowest pitch in Hz")
	flag.Float64Var(&fmax, "fmax", pcfg.FMax, "Highest pitch in Hz")
	flag.Parse()

	pcfg.SampleRate = sampleRate
	pcfg.FMin = fmin
	pcfg.FMax = fmax

	files, err := audio.ListWavFiles(wavDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", wavDir).Msg("list wav files")
	}
	log.Info().Int("files", len(files)).Str("dir", wavDir).Msg("estimating pitch")

	table := make(map[string][]float64, len(files))
	for i, f := range files {
		wave, err := audio.LoadWav(f, sampleRate)
		if err != nil {
			log.Warn().Err(err).Str("path", f).Msg("skip")
			continue
		}
		name := filepath.Base(f)
		if _, dup := table[name]; dup {
			log.Warn().Str("path", f).Msg("duplicate basename, overwritten")
		}
		table[name] = audio.EstimatePitch(wave, pcfg)
		if (i+1)%100 == 0 {
			log.Info().Int("done", i+1).Int("total", len(files)).Msg("progress")
		}
	}

	if err := dataset.NewPitchTable(table).Save(out); err != nil {
		log.Fatal().Err(err).Str("path", out).Msg("save pitch dict")
	}
	log.Info().Int("entries", len(table)).Str("path", out).Msg("saved pitch dict")
}
