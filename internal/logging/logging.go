package logging

import (
	"io"
	"log/slog"
	"os"
)

// NewはJSONのloggerを作る。devならdebugまで出す。
func New(env string) *slog.Logger {
	return NewWithWriter(os.Stdout, env)
}

func NewWithWriter(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(h).With("service", "backoffice")
}
