package repository

import (
	"context"
	"errors"
	"time"

	"backoffice/internal/domain/model"
	"backoffice/internal/domain/money"
	"backoffice/internal/domain/scope"
)

// 注文一覧の絞り込み。Scopeは必ず入れる（空のScopeなら何も返らない）。
type OrderListFilter struct {
	Scope   scope.Scope
	Page    int
	Limit   int
	Status  *model.OrderStatus
	BuyerID *int64
	From    *time.Time
	To      *time.Time
}

var ErrInvalidPeriod = errors.New("from must be before to")

func (f OrderListFilter) Validate() error {
	if f.Status != nil && !f.Status.Valid() {
		return model.ErrInvalidOrderStatus
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return ErrInvalidPeriod
	}
	return nil
}

// 送料・配送先の変更内容
type ShippingUpdate struct {
	AddressID *int64
	CourierID *int64
	Cost      money.Money
}

type OrderRepository interface {
	// scope外はErrNotFound
	FindByID(ctx context.Context, s scope.Scope, orderID int64) (model.Order, error)
	// 更新前の読み込み（行ロック）
	FindByIDForUpdate(ctx context.Context, s scope.Scope, orderID int64) (model.Order, error)
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)
	Create(ctx context.Context, order model.Order) (model.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus, trackingNumber *string) error
	UpdateTotalAmount(ctx context.Context, orderID int64, total money.Money) error
	UpdateShipping(ctx context.Context, orderID int64, u ShippingUpdate) error
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
}
