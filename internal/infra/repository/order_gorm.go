package repository

import (
	"context"

	"backoffice/internal/domain/model"
	"backoffice/internal/domain/money"
	"backoffice/internal/domain/scope"
	repo "backoffice/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, s scope.Scope, orderID int64) (model.Order, error) {
	return r.find(ctx, s, orderID, false)
}

func (r *OrderGormRepository) FindByIDForUpdate(ctx context.Context, s scope.Scope, orderID int64) (model.Order, error) {
	return r.find(ctx, s, orderID, true)
}

func (r *OrderGormRepository) find(ctx context.Context, s scope.Scope, orderID int64, lock bool) (model.Order, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{}).Where("orders.id = ?", orderID)
	q = scopeOrders(q, s)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var o model.Order
	if err := q.First(&o).Error; err != nil {
		return model.Order{}, mapErr(err)
	}
	return o, nil
}

func (r *OrderGormRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("order_number = ?", orderNumber).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (model.Order, error) {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&order).Error; err != nil {
		return model.Order{}, mapErr(err)
	}
	return order, nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus, trackingNumber *string) error {
	values := map[string]interface{}{"status": status}
	if trackingNumber != nil {
		values["shipping_tracking_number"] = *trackingNumber
	}
	return r.update(ctx, orderID, values)
}

func (r *OrderGormRepository) UpdateTotalAmount(ctx context.Context, orderID int64, total money.Money) error {
	return r.update(ctx, orderID, map[string]interface{}{"total_amount": total})
}

func (r *OrderGormRepository) UpdateShipping(ctx context.Context, orderID int64, u repo.ShippingUpdate) error {
	return r.update(ctx, orderID, map[string]interface{}{
		"shipping_address_id": u.AddressID,
		"shipping_courier_id": u.CourierID,
		"shipping_cost":       u.Cost,
	})
}

func (r *OrderGormRepository) update(ctx context.Context, orderID int64, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(values)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	limit, offset := pageOffset(f.Page, f.Limit, 50, 100)

	q := scopeOrders(r.db.WithContext(ctx).Model(&model.Order{}), f.Scope)

	//status 絞り込み
	if f.Status != nil {
		q = q.Where("orders.status = ?", *f.Status)
	}

	//buyer_id 絞り込み
	if f.BuyerID != nil {
		q = q.Where("orders.buyer_id = ?", *f.BuyerID)
	}

	//期間絞り込み
	if f.From != nil {
		q = q.Where("orders.created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("orders.created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	items := []model.Order{}
	if err := q.Order("orders.id desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}
