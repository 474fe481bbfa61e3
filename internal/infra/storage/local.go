package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidDirectory = errors.New("invalid directory")

// ファイルがないときの画像。InstallDefaultsでUploadDir/defaultsへ置く。
//
//go:embed defaults/*.png
var defaultAssets embed.FS

const defaultsDir = "defaults"

// LocalStoreはUploadDir配下にファイルを置き、PublicBaseURLからのURLを返す。
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root string, baseURL string) *LocalStore {
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// 元のファイル名は拡張子だけ使う
func (s *LocalStore) Store(ctx context.Context, body io.Reader, name string, directory string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Clean(directory)
	if dir == "." || filepath.IsAbs(dir) || strings.HasPrefix(dir, "..") {
		return "", ErrInvalidDirectory
	}

	if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	fileName := uuid.NewString() + strings.ToLower(filepath.Ext(name))
	full := filepath.Join(s.root, dir, fileName)

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("close file: %w", err)
	}

	return s.baseURL + "/" + path.Join(filepath.ToSlash(dir), fileName), nil
}

// DefaultURLはファイルがないときに返す画像
func (s *LocalStore) DefaultURL(kind string) string {
	return s.baseURL + "/" + defaultsDir + "/" + kind + ".png"
}

// InstallDefaultsは同梱のデフォルト画像を書き出す。既にあるファイルはそのまま。
func (s *LocalStore) InstallDefaults() error {
	if err := os.MkdirAll(filepath.Join(s.root, defaultsDir), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return fs.WalkDir(defaultAssets, defaultsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		dst := filepath.Join(s.root, filepath.FromSlash(p))
		if _, err := os.Stat(dst); err == nil {
			return nil
		}
		b, err := defaultAssets.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst, b, 0o644); err != nil {
			return fmt.Errorf("write default: %w", err)
		}
		return nil
	})
}
