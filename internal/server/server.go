package server

import (
	"log/slog"
	"net/http"

	"backoffice/internal/config"
	"backoffice/internal/domain/model"
	"backoffice/internal/handler"
	"backoffice/internal/middleware"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Orders     *handler.OrderHandler
	OrderItems *handler.OrderItemHandler
	Payments   *handler.PaymentHandler
	Audit      *handler.AuditHandler
}

// Newはルーティングまで済んだechoを返す。idemがnilなら冪等キーは見ない。
func New(log *slog.Logger, cfg config.Config, idem middleware.IdempotencyStore, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLogger(log))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, handler.SuccessResponse{Message: "ok"})
	})
	//証憑ファイル。PublicBaseURLが絶対URLでもルートはStaticRoute。
	e.Static(cfg.StaticRoute, cfg.UploadDir)

	idemMW := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if idem != nil {
		idemMW = middleware.Idempotency(idem, log)
	}

	api := e.Group("", middleware.AuthJWT(cfg.JWTSecret))
	h.Orders.RegisterRoutes(api, idemMW)
	h.OrderItems.RegisterRoutes(api)
	h.Payments.RegisterRoutes(api, idemMW)

	admin := api.Group("/admin", middleware.RequireRoles(model.RoleAdmin))
	h.Audit.RegisterRoutes(admin)

	return e
}
