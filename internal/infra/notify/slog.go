package notify

import (
	"context"
	"log/slog"

	"backoffice/internal/usecase"
)

// SlogNotifierは通知をログに出すだけ。UIへのトーストは別サービスが拾う。
type SlogNotifier struct {
	log *slog.Logger
}

func NewSlogNotifier(log *slog.Logger) *SlogNotifier {
	return &SlogNotifier{log: log.With("component", "notifier")}
}

func (n *SlogNotifier) Notify(ctx context.Context, kind usecase.NotifyKind, title string, body string) {
	level := slog.LevelInfo
	if kind == usecase.NotifyError {
		level = slog.LevelWarn
	}
	n.log.Log(ctx, level, "notification", "kind", string(kind), "title", title, "body", body)
}

var _ usecase.Notifier = (*SlogNotifier)(nil)
