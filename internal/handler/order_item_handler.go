package handler

import (
	"context"
	"net/http"

	"backoffice/internal/domain/model"
	"backoffice/internal/domain/money"
	"backoffice/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderItemService interface {
	AddItem(ctx context.Context, actor model.Identity, orderID int64, in usecase.AddItemInput) (usecase.ItemOutput, error)
	UpdateItem(ctx context.Context, actor model.Identity, orderID, itemID int64, in usecase.UpdateItemInput) (usecase.ItemOutput, error)
	RemoveItem(ctx context.Context, actor model.Identity, orderID, itemID int64) (money.Money, error)
}

// 注文明細の追加・変更・削除
type OrderItemHandler struct {
	uc OrderItemService
}

func NewOrderItemHandler(uc OrderItemService) *OrderItemHandler {
	return &OrderItemHandler{uc: uc}
}

type ItemAddRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// 送られた項目だけ変える
type ItemUpdateRequest struct {
	ProductID *int64 `json:"product_id"`
	Quantity  *int64 `json:"quantity"`
}

type ItemRemoveResponse struct {
	TotalAmount money.Money `json:"total_amount"`
}

func (h *OrderItemHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/orders/:id/items", h.add)
	g.PUT("/orders/:id/items/:itemId", h.update)
	g.DELETE("/orders/:id/items/:itemId", h.remove)
}

func (h *OrderItemHandler) add(c echo.Context) error {
	actor, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}

	var req ItemAddRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.AddItem(c.Request().Context(), actor, orderID, usecase.AddItemInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderItemHandler) update(c echo.Context) error {
	actor, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return badRequest(c, "invalid item id")
	}

	var req ItemUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.UpdateItem(c.Request().Context(), actor, orderID, itemID, usecase.UpdateItemInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderItemHandler) remove(c echo.Context) error {
	actor, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return badRequest(c, "invalid item id")
	}

	total, err := h.uc.RemoveItem(c.Request().Context(), actor, orderID, itemID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ItemRemoveResponse{TotalAmount: total})
}
