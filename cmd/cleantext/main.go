package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/up-zero/gotool/fileutil"

	"github.com/getcharzp/go-arabic-speech/text"
)

// 去掉转写文件每行开头的 "mm:ss" 时间戳, 原地改写
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	var (
		in  string
		out string
	)
	flag.StringVar(&in, "in", "nouran2.txt", "Transcript file")
	flag.StringVar(&out, "out", "", "Output file (default: overwrite -in)")
	flag.Parse()
	if out == "" {
		out = in
	}

	data, err := os.ReadFile(in)
	if err != nil {
		log.Fatal().Err(err).Str("path", in).Msg("read transcript")
	}
	cleaned := text.StripTimestampsAll(string(data))
	if err := fileutil.FileSave(out, []byte(cleaned)); err != nil {
		log.Fatal().Err(err).Str("path", out).Msg("write transcript")
	}
	log.Info().Str("path", out).Msg("timestamps removed")
}
