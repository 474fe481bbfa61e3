package usecase

import (
	"context"
	"io"
	"time"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}

// FileStoreは証憑ファイルの保存先。StoreはURLを返す。
type FileStore interface {
	Store(ctx context.Context, body io.Reader, name string, directory string) (string, error)
	DefaultURL(kind string) string
}

type NotifyKind string

const (
	NotifySuccess NotifyKind = "success"
	NotifyError   NotifyKind = "error"
)

// Notifierは結果の通知。戻り値は使わない。
type Notifier interface {
	Notify(ctx context.Context, kind NotifyKind, title string, body string)
}
