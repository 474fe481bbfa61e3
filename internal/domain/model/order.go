package model

import (
	"errors"
	"time"

	"backoffice/internal/domain/money"
)

type OrderStatus string

// 追加したらvalidOrderStatusesにも入れる
const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:    {},
	OrderStatusProcessing: {},
	OrderStatusShipped:    {},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
	OrderStatusRefunded:   {},
}

var ErrInvalidOrderStatus = errors.New("invalid order status")

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}
	return "", ErrInvalidOrderStatus
}

func (s OrderStatus) Valid() bool {
	_, ok := validOrderStatuses[s]
	return ok
}

// 注文。total_amountは明細の小計の合計（明細を変えるたびに再計算）
type Order struct {
	ID                     int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	BuyerID                int64       `gorm:"not null;index" json:"buyer_id"`
	ShippingAddressID      *int64      `gorm:"index" json:"shipping_address_id"`
	ShippingCourierID      *int64      `gorm:"index" json:"shipping_courier_id"`
	OrderNumber            string      `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_number"`
	Status                 OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalAmount            money.Money `gorm:"type:numeric(14,2);not null;default:0" json:"total_amount"`
	ShippingCost           money.Money `gorm:"type:numeric(14,2);not null;default:0" json:"shipping_cost"`
	ShippingTrackingNumber *string     `gorm:"type:varchar(255)" json:"shipping_tracking_number"`
	CreatedAt              time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`

	// 削除時は明細と支払いも消す
	Items    []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`
	Payments []Payment   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`
}

// GrandTotalは小計＋送料。保存しない。
func (o Order) GrandTotal() money.Money {
	return o.TotalAmount.Add(o.ShippingCost)
}
