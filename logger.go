package mirror

import (
	"log/slog"

	"github.com/gogpu/mirror/internal/logging"
)

// SetLogger configures the logger for mirror and all its sub-packages.
// By default, mirror produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by mirror:
//   - [slog.LevelDebug]: per-frame diagnostics (capture outcomes, fence values)
//   - [slog.LevelInfo]: lifecycle events (adapter selected, surface resized,
//     shared texture rebuilt, capture session recreated)
//   - [slog.LevelWarn]: non-fatal issues (validation layer unavailable)
//
// Example:
//
//	mirror.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}

// Logger returns the current logger used by mirror.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
