package middleware

import (
	"net/http"

	"backoffice/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// RequireRolesはIdentityがどれかのroleを持っているか確認する。
func RequireRoles(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			if !id.HasAny(roles...) {
				return c.JSON(http.StatusForbidden, errorJSON("forbidden"))
			}

			return next(c)
		}
	}
}
