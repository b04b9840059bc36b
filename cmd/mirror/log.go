package main

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/gogpu/mirror/internal/config"
	"github.com/gogpu/mirror/internal/logging"
)

// newLogger builds the process logger from the log_level and log_format
// keys. Format auto writes text to a terminal and JSON otherwise.
func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	h, err := logging.NewHandler(w, cfg.LogLevel, cfg.LogFormat, isTerminal(w))
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.File()
}
