package repository

import (
	"context"
	"time"

	"backoffice/internal/domain/model"
	"backoffice/internal/domain/scope"
	repo "backoffice/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentGormRepository struct {
	db *gorm.DB
}

func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{db: db}
}

func (r *PaymentGormRepository) FindByID(ctx context.Context, s scope.Scope, paymentID int64) (model.Payment, error) {
	return r.find(ctx, s, paymentID, false)
}

func (r *PaymentGormRepository) FindByIDForUpdate(ctx context.Context, s scope.Scope, paymentID int64) (model.Payment, error) {
	return r.find(ctx, s, paymentID, true)
}

func (r *PaymentGormRepository) find(ctx context.Context, s scope.Scope, paymentID int64, lock bool) (model.Payment, error) {
	q := r.db.WithContext(ctx).Model(&model.Payment{}).Where("payments.id = ?", paymentID)
	q = scopePayments(r.db.WithContext(ctx), q, s)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var p model.Payment
	if err := q.First(&p).Error; err != nil {
		return model.Payment{}, mapErr(err)
	}
	return p, nil
}

func (r *PaymentGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.Payment, error) {
	payments := []model.Payment{}
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&payments).Error; err != nil {
		return []model.Payment{}, err
	}
	return payments, nil
}

func (r *PaymentGormRepository) Create(ctx context.Context, p model.Payment) (model.Payment, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Payment{}, mapErr(err)
	}
	return p, nil
}

func (r *PaymentGormRepository) UpdateStatus(ctx context.Context, paymentID int64, status model.PaymentStatus, paidAt *time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]interface{}{
			"status":  status,
			"paid_at": paidAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PaymentGormRepository) Delete(ctx context.Context, paymentID int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", paymentID).Delete(&model.Payment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PaymentGormRepository) List(ctx context.Context, f repo.PaymentListFilter) ([]model.Payment, int64, error) {
	limit, offset := pageOffset(f.Page, f.Limit, 50, 100)

	q := scopePayments(r.db.WithContext(ctx), r.db.WithContext(ctx).Model(&model.Payment{}), f.Scope)
	if f.Status != nil {
		q = q.Where("payments.status = ?", *f.Status)
	}
	if f.OrderID != nil {
		q = q.Where("payments.order_id = ?", *f.OrderID)
	}
	if f.PaymentTypeID != nil {
		q = q.Where("payments.payment_type_id = ?", *f.PaymentTypeID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Payment{}, 0, err
	}

	payments := []model.Payment{}
	if err := q.Order("payments.id desc").Limit(limit).Offset(offset).Find(&payments).Error; err != nil {
		return []model.Payment{}, 0, err
	}
	return payments, total, nil
}

type PaymentTypeGormRepository struct {
	db *gorm.DB
}

func NewPaymentTypeGormRepository(db *gorm.DB) *PaymentTypeGormRepository {
	return &PaymentTypeGormRepository{db: db}
}

func (r *PaymentTypeGormRepository) FindByID(ctx context.Context, id int64) (model.PaymentType, error) {
	var pt model.PaymentType
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pt).Error; err != nil {
		return model.PaymentType{}, mapErr(err)
	}
	return pt, nil
}
