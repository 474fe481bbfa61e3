package model

import (
	"time"

	"backoffice/internal/domain/money"
)

// 注文明細。unit_priceは追加時点の商品価格を保存する。
type OrderItem struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64       `gorm:"not null;index" json:"order_id"`
	ProductID int64       `gorm:"not null;index" json:"product_id"`
	Quantity  int64       `gorm:"not null" json:"quantity"`
	UnitPrice money.Money `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	Subtotal  money.Money `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	CreatedAt time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// Recalculateは小計 = 単価 × 数量
func (it *OrderItem) Recalculate() error {
	sub, err := it.UnitPrice.Mul(it.Quantity)
	if err != nil {
		return err
	}
	it.Subtotal = sub
	return nil
}
