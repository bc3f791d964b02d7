package logger

import (
	"log/slog"
	"os"
)

// New returns the service-wide structured logger. JSON output so log
// pipelines can index request_id and user_id attributes.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// NewNop returns a logger that discards everything. For tests.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
