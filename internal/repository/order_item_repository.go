package repository

import (
	"context"

	"backoffice/internal/domain/model"
	"backoffice/internal/domain/money"
)

type OrderItemRepository interface {
	Create(ctx context.Context, item model.OrderItem) (model.OrderItem, error)
	FindByID(ctx context.Context, itemID int64) (model.OrderItem, error)
	Update(ctx context.Context, item model.OrderItem) error
	Delete(ctx context.Context, itemID int64) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	// 明細がなければ0
	SumSubtotalByOrderID(ctx context.Context, orderID int64) (money.Money, error)
}
