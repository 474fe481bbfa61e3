package repository

import (
	"context"
	"log/slog"

	repo "backoffice/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders       repo.OrderRepository
	orderItems   repo.OrderItemRepository
	payments     repo.PaymentRepository
	paymentTypes repo.PaymentTypeRepository
	products     repo.ProductRepository
	auditLogs    repo.AuditLogRepository
	outbox       repo.OutboxRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository             { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository     { return r.orderItems }
func (r *txReposGorm) Payments() repo.PaymentRepository         { return r.payments }
func (r *txReposGorm) PaymentTypes() repo.PaymentTypeRepository { return r.paymentTypes }
func (r *txReposGorm) Products() repo.ProductRepository         { return r.products }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository       { return r.auditLogs }
func (r *txReposGorm) Outbox() repo.OutboxRepository            { return r.outbox }

type TxManagerGorm struct {
	log *slog.Logger
	db  *gorm.DB
}

func NewTxManagerGorm(log *slog.Logger, db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{log: log, db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders:       NewOrderGormRepository(tx),
			orderItems:   NewOrderItemGormRepository(tx),
			payments:     NewPaymentGormRepository(tx),
			paymentTypes: NewPaymentTypeGormRepository(tx),
			products:     NewProductGormRepository(tx),
			auditLogs:    NewAuditLogGormRepository(tx),
			outbox:       NewOutboxGormRepository(tm.log, tx),
		}
		return fn(r)
	})
}
