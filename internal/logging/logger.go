package logging

import (
	"io"
	"log/slog"
	"os"
)

// New builds the service-wide JSON slog logger at the given level; an
// unparseable level falls back to info. Request-scoped attributes (request
// id, admin id) are attached by the audit middleware, not here.
func New(level string) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

// Discard returns a logger that drops everything, for tests that only need
// a non-nil *slog.Logger.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}
