package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

type IdempotencyStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Idempotencyは同じX-Idempotency-Keyの作成リクエストを2回通さない。
// ヘッダがなければ何もしない。失敗したらキーを解放する。
func Idempotency(store IdempotencyStore, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
			if key == "" {
				return next(c)
			}
			if len(key) > 255 {
				return c.JSON(http.StatusBadRequest, errorJSON("invalid idempotency key"))
			}

			var userID int64
			if id, ok := IdentityFrom(c); ok {
				userID = id.ID
			}
			full := fmt.Sprintf("idem:%d:%s:%s:%s", userID, c.Request().Method, c.Path(), key)

			ctx := c.Request().Context()
			seen, err := store.Seen(ctx, full)
			if err != nil {
				log.Error("idempotency store error", "err", err)
				return c.JSON(http.StatusServiceUnavailable, errorJSON("idempotency store unavailable"))
			}
			if seen {
				return c.JSON(http.StatusConflict, errorJSON("duplicate request"))
			}

			err = next(c)
			if err != nil || c.Response().Status >= http.StatusBadRequest {
				if rerr := store.Release(ctx, full); rerr != nil {
					log.Error("idempotency release error", "err", rerr)
				}
			}
			return err
		}
	}
}
