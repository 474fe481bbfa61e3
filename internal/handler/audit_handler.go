package handler

import (
	"context"
	"net/http"
	"strings"

	"backoffice/internal/domain/model"
	"backoffice/internal/repository"

	"github.com/labstack/echo/v4"
)

type AuditService interface {
	List(ctx context.Context, actor model.Identity, f repository.AuditLogFilter) ([]model.AuditLog, error)
}

type AuditHandler struct {
	uc AuditService
}

func NewAuditHandler(uc AuditService) *AuditHandler {
	return &AuditHandler{uc: uc}
}

type AuditLogListResponse struct {
	Logs []model.AuditLog `json:"logs"`
}

// gはadminのグループ
func (h *AuditHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/audit-logs", h.list)
}

func (h *AuditHandler) list(c echo.Context) error {
	actor, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}

	limit, err := queryInt(c, "limit", 50)
	if err != nil || limit <= 0 || limit > 200 {
		return badRequest(c, "invalid limit")
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		return badRequest(c, "invalid offset")
	}

	f := repository.AuditLogFilter{Limit: limit, Offset: offset}
	if f.ActorUserID, err = queryInt64Ptr(c, "actor_user_id"); err != nil {
		return badRequest(c, "invalid actor_user_id")
	}
	if f.ResourceID, err = queryInt64Ptr(c, "resource_id"); err != nil {
		return badRequest(c, "invalid resource_id")
	}
	if f.OrderID, err = queryInt64Ptr(c, "order_id"); err != nil {
		return badRequest(c, "invalid order_id")
	}
	// action=CREATE_PAYMENT,DELETE_PAYMENT
	for _, v := range strings.Split(c.QueryParam("action"), ",") {
		if v = strings.TrimSpace(v); v != "" {
			f.Actions = append(f.Actions, model.AuditAction(v))
		}
	}
	if v := c.QueryParam("resource_type"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}
	if f.CreatedFrom, err = queryTimePtr(c, "from"); err != nil {
		return badRequest(c, "invalid from")
	}
	if f.CreatedTo, err = queryTimePtr(c, "to"); err != nil {
		return badRequest(c, "invalid to")
	}

	logs, err := h.uc.List(c.Request().Context(), actor, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, AuditLogListResponse{Logs: logs})
}
