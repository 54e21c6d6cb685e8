package cmd

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

// setupLogging installs a zerolog-backed slog default logger on stderr.
func setupLogging(verbose, asJSON bool) {
	slog.SetDefault(newLogger(os.Stderr, verbose, asJSON))
}

func newLogger(w io.Writer, verbose, asJSON bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	out := w
	if !asJSON {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Stamp}
	}
	log := zerolog.New(out).With().Timestamp().Logger()

	return slog.New(zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}))
}
