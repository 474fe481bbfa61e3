package repository

import (
	"context"
	"time"

	"backoffice/internal/domain/model"
	"backoffice/internal/domain/scope"
)

// 支払い一覧の絞り込み。支払いは注文のscopeに従う。
type PaymentListFilter struct {
	Scope         scope.Scope
	Page          int
	Limit         int
	Status        *model.PaymentStatus
	OrderID       *int64
	PaymentTypeID *int64
}

func (f PaymentListFilter) Validate() error {
	if f.Status != nil && !f.Status.Valid() {
		return model.ErrInvalidPaymentStatus
	}
	return nil
}

type PaymentRepository interface {
	FindByID(ctx context.Context, s scope.Scope, paymentID int64) (model.Payment, error)
	FindByIDForUpdate(ctx context.Context, s scope.Scope, paymentID int64) (model.Payment, error)
	// 古い順
	ListByOrderID(ctx context.Context, orderID int64) ([]model.Payment, error)
	Create(ctx context.Context, p model.Payment) (model.Payment, error)
	// paidAtがnilならpaid_atを消す
	UpdateStatus(ctx context.Context, paymentID int64, status model.PaymentStatus, paidAt *time.Time) error
	Delete(ctx context.Context, paymentID int64) error
	List(ctx context.Context, f PaymentListFilter) ([]model.Payment, int64, error)
}

// 支払い方法のマスタ（読み取りのみ）
type PaymentTypeRepository interface {
	FindByID(ctx context.Context, id int64) (model.PaymentType, error)
}
