package main

import (
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// newLogger returns a logr.Logger backed by zerolog. Terminals get
// human-readable console output, anything else gets JSON lines.
// QGRAD_LOG_JSON forces JSON.
func newLogger(w io.Writer, level string) (logr.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return logr.Discard(), errors.Wrapf(err, "log level %q", level)
	}

	output := w
	if os.Getenv("QGRAD_LOG_JSON") == "" && isTerminal(w) {
		output = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	zl := zerolog.New(output).Level(lvl).With().Timestamp().Logger()
	return zerologr.New(&zl), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
