package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/getcharzp/go-arabic-speech/tts/tacotron2"
)

// Args 命令行参数
type Args struct {
	text      string
	out       string
	speed     float64
	denoise   float64
	speaker   int64
	batchSize int
	cfg       tacotron2.Config
}

func parseArgs() *Args {
	args := &Args{cfg: tacotron2.DefaultConfig()}

	flag.StringVar(&args.text, "text", ">anA Aln~ahAridapu Einody wAHidN waxamosyna sanapF", "Buckwalter text to synthesize")
	flag.StringVar(&args.out, "out", "output_audio.wav", "Output WAV path")
	flag.Float64Var(&args.speed, "speed", 1, "Speaking speed (higher = faster)")
	flag.Float64Var(&args.denoise, "denoise", 0.0001, "HiFiGAN denoiser strength")
	flag.Int64Var(&args.speaker, "speaker", 0, "Speaker id")
	flag.IntVar(&args.batchSize, "batch-size", 8, "Utterances per acoustic model batch")
	flag.StringVar(&args.cfg.OnnxRuntimeLibPath, "ort-lib", args.cfg.OnnxRuntimeLibPath, "Path to the onnxruntime shared library")
	flag.StringVar(&args.cfg.AcousticModelPath, "acoustic", args.cfg.AcousticModelPath, "Tacotron2 ONNX model")
	flag.StringVar(&args.cfg.VocoderModelPath, "vocoder", args.cfg.VocoderModelPath, "HiFiGAN ONNX model")
	flag.StringVar(&args.cfg.SymbolsPath, "symbols", "", "Optional symbol table (token id per line)")
	flag.BoolVar(&args.cfg.UseCuda, "use-gpu", false, "Use CUDA for inference")
	flag.IntVar(&args.cfg.NumThreads, "threads", 0, "ONNX intra-op threads (0 = default)")

	flag.Parse()
	return args
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	args := parseArgs()

	engine, err := tacotron2.NewEngine(args.cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create engine")
	}
	defer engine.Destroy()

	start := time.Now()
	err = engine.SynthesizeToFile(args.out, args.text, tacotron2.SynthesizeOption{
		Speed:     float32(args.speed),
		Denoise:   float32(args.denoise),
		SpeakerID: args.speaker,
		BatchSize: args.batchSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("synthesize")
	}
	log.Info().Str("path", args.out).Dur("elapsed", time.Since(start)).Msg("saved audio")
}
