package model

import (
	"errors"
	"time"

	"backoffice/internal/domain/money"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var validPaymentStatuses = map[PaymentStatus]struct{}{
	PaymentStatusPending:  {},
	PaymentStatusPaid:     {},
	PaymentStatusFailed:   {},
	PaymentStatusRefunded: {},
}

var ErrInvalidPaymentStatus = errors.New("invalid payment status")

func ToPaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if _, ok := validPaymentStatuses[status]; ok {
		return status, nil
	}
	return "", ErrInvalidPaymentStatus
}

func (s PaymentStatus) Valid() bool {
	_, ok := validPaymentStatuses[s]
	return ok
}

// Activeはpending/paid。アクティブな支払いがある注文には新しい支払いを作れない。
func (s PaymentStatus) Active() bool {
	return s == PaymentStatusPending || s == PaymentStatusPaid
}

// 支払い。paid_atはstatus=paidのときだけ入る。
type Payment struct {
	ID                int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID           int64         `gorm:"not null;index" json:"order_id"`
	PaymentTypeID     int64         `gorm:"not null;index" json:"payment_type_id"`
	Amount            money.Money   `gorm:"type:numeric(14,2);not null" json:"amount"`
	Status            PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TransactionID     *string       `gorm:"type:varchar(255)" json:"transaction_id"`
	PaidAt            *time.Time    `json:"paid_at"`
	ProofOfPaymentURL *string       `gorm:"type:varchar(1024)" json:"proof_of_payment_url"`
	Notes             *string       `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
