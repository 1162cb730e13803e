package observability

import (
	"log/slog"
	"os"
	"sync"
)

var (
	defaultOnce   sync.Once
	defaultLogger *slog.Logger
)

// NewLogger returns a slog.Logger tagged with "component", so log lines
// from different packages are distinguishable without each package
// hand-rolling its own prefix. Callers that need a captureable logger
// for tests should still build their own via slog.New and inject it
// through the package's Config, per §7.1; this helper is for the
// common case of "just give me a reasonable default".
func NewLogger(component string) *slog.Logger {
	return defaultSlogLogger().With("component", component)
}

func defaultSlogLogger() *slog.Logger {
	defaultOnce.Do(func() {
		defaultLogger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	})
	return defaultLogger
}
