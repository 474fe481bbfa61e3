package middleware

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const HeaderRequestID = "X-Request-ID"

// RequestLoggerはリクエストごとに1行JSONで出す
func RequestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			rid := c.Request().Header.Get(HeaderRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(HeaderRequestID, rid)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			attrs := []any{
				"request_id", rid,
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"latency_ms", time.Since(start).Milliseconds(),
			}
			if id, ok := IdentityFrom(c); ok {
				attrs = append(attrs, "user_id", id.ID)
			}
			if err != nil {
				log.Error("request", append(attrs, "err", err)...)
			} else {
				log.Info("request", attrs...)
			}
			return nil
		}
	}
}
