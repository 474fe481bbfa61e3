package model

import (
	"backoffice/internal/domain/money"

	"github.com/samber/lo"
)

// OrderAggregateは注文＋明細＋最新の支払いをまとめたもの。
type OrderAggregate struct {
	Order   Order
	Items   []OrderItem
	Payment *Payment
}

// Subtotalは明細の小計を全部足し直す
func (a OrderAggregate) Subtotal() money.Money {
	return money.Sum(lo.Map(a.Items, func(it OrderItem, _ int) money.Money {
		return it.Subtotal
	})...)
}

// RecomputeTotalは注文のtotal_amountを明細から作り直す
func (a *OrderAggregate) RecomputeTotal() {
	a.Order.TotalAmount = a.Subtotal()
}

func (a OrderAggregate) GrandTotal() money.Money {
	return a.Order.GrandTotal()
}

// Consistentはtotal_amountが明細の合計と一致しているか
func (a OrderAggregate) Consistent() bool {
	return a.Order.TotalAmount.Equal(a.Subtotal())
}

func (a OrderAggregate) PaymentPaid() bool {
	return a.Payment != nil && a.Payment.Status == PaymentStatusPaid
}

// LatestPaymentはIDが一番大きい支払いを返す
func LatestPayment(payments []Payment) *Payment {
	if len(payments) == 0 {
		return nil
	}
	latest := lo.MaxBy(payments, func(a, b Payment) bool { return a.ID > b.ID })
	return &latest
}

// HasActivePaymentはpending/paidの支払いがあるか
func HasActivePayment(payments []Payment) bool {
	return lo.ContainsBy(payments, func(p Payment) bool { return p.Status.Active() })
}
