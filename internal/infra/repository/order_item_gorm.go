package repository

import (
	"context"

	"backoffice/internal/domain/model"
	"backoffice/internal/domain/money"
	repo "backoffice/internal/repository"

	"gorm.io/gorm"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

func (r *OrderItemGormRepository) Create(ctx context.Context, item model.OrderItem) (model.OrderItem, error) {
	if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
		return model.OrderItem{}, mapErr(err)
	}
	return item, nil
}

func (r *OrderItemGormRepository) FindByID(ctx context.Context, itemID int64) (model.OrderItem, error) {
	var it model.OrderItem
	if err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&it).Error; err != nil {
		return model.OrderItem{}, mapErr(err)
	}
	return it, nil
}

func (r *OrderItemGormRepository) Update(ctx context.Context, item model.OrderItem) error {
	res := r.db.WithContext(ctx).Model(&model.OrderItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"product_id": item.ProductID,
			"quantity":   item.Quantity,
			"unit_price": item.UnitPrice,
			"subtotal":   item.Subtotal,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderItemGormRepository) Delete(ctx context.Context, itemID int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&model.OrderItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderItemGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	items := []model.OrderItem{}
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id asc").Find(&items).Error
	if err != nil {
		return []model.OrderItem{}, err
	}
	return items, nil
}

// 合計は毎回DBの明細から足し直す
func (r *OrderItemGormRepository) SumSubtotalByOrderID(ctx context.Context, orderID int64) (money.Money, error) {
	var total money.Money
	err := r.db.WithContext(ctx).Model(&model.OrderItem{}).
		Select("COALESCE(SUM(subtotal), 0)").
		Where("order_id = ?", orderID).
		Row().
		Scan(&total)
	if err != nil {
		return money.Zero, err
	}
	return total, nil
}
