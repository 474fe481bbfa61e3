package handler

import (
	"context"
	"net/http"

	"backoffice/internal/domain/model"
	"backoffice/internal/usecase"

	"github.com/labstack/echo/v4"
)

// *usecase.OrderUsecaseが満たす
type OrderService interface {
	CreateOrder(ctx context.Context, actor model.Identity, in usecase.CreateOrderInput) (model.Order, error)
	GetOrder(ctx context.Context, actor model.Identity, orderID int64) (usecase.OrderOutput, error)
	ListOrders(ctx context.Context, actor model.Identity, in usecase.ListOrdersInput) (usecase.OrderListOutput, error)
	UpdateShipping(ctx context.Context, actor model.Identity, orderID int64, in usecase.UpdateShippingInput) (model.Order, error)
	TransitionStatus(ctx context.Context, actor model.Identity, orderID int64, in usecase.TransitionOrderInput) (model.Order, error)
}

type OrderHandler struct {
	uc OrderService
}

func NewOrderHandler(uc OrderService) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderCreateRequest struct {
	BuyerID           *int64 `json:"buyer_id"`
	ShippingAddressID *int64 `json:"shipping_address_id"`
	ShippingCourierID *int64 `json:"shipping_courier_id"`
	ShippingCost      string `json:"shipping_cost"`
}

// 省略した項目は今の値のまま
type ShippingUpdateRequest struct {
	ShippingAddressID *int64  `json:"shipping_address_id"`
	ShippingCourierID *int64  `json:"shipping_courier_id"`
	ShippingCost      *string `json:"shipping_cost"`
}

type OrderStatusUpdateRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
	Override       bool   `json:"override"`
}

// gはAuthJWT済みのグループ。idemは作成系だけに付ける。
func (h *OrderHandler) RegisterRoutes(g *echo.Group, idem echo.MiddlewareFunc) {
	g.POST("/orders", h.create, idem)
	g.GET("/orders", h.list)
	g.GET("/orders/:id", h.detail)
	g.PUT("/orders/:id/shipping", h.updateShipping)
	g.POST("/orders/:id/status", h.updateStatus)
}

func (h *OrderHandler) create(c echo.Context) error {
	actor, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.CreateOrder(c.Request().Context(), actor, usecase.CreateOrderInput{
		BuyerID:           req.BuyerID,
		ShippingAddressID: req.ShippingAddressID,
		ShippingCourierID: req.ShippingCourierID,
		ShippingCost:      req.ShippingCost,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	actor, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		return badRequest(c, "invalid page")
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return badRequest(c, "invalid limit")
	}
	buyerID, err := queryInt64Ptr(c, "buyer_id")
	if err != nil {
		return badRequest(c, "invalid buyer_id")
	}
	from, err := queryTimePtr(c, "from")
	if err != nil {
		return badRequest(c, "invalid from")
	}
	to, err := queryTimePtr(c, "to")
	if err != nil {
		return badRequest(c, "invalid to")
	}

	out, err := h.uc.ListOrders(c.Request().Context(), actor, usecase.ListOrdersInput{
		Page:    page,
		Limit:   limit,
		Status:  c.QueryParam("status"),
		BuyerID: buyerID,
		From:    from,
		To:      to,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	actor, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetOrder(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateShipping(c echo.Context) error {
	actor, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}

	var req ShippingUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.UpdateShipping(c.Request().Context(), actor, id, usecase.UpdateShippingInput{
		ShippingAddressID: req.ShippingAddressID,
		ShippingCourierID: req.ShippingCourierID,
		ShippingCost:      req.ShippingCost,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	actor, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.TransitionStatus(c.Request().Context(), actor, id, usecase.TransitionOrderInput{
		Status:         req.Status,
		TrackingNumber: req.TrackingNumber,
		Override:       req.Override,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
