package repository

import (
	"strings"

	"backoffice/internal/domain/model"
	"backoffice/internal/domain/scope"

	"gorm.io/gorm"
)

// 自分の商品を含む注文
const sellerOwnsOrderSQL = `EXISTS (SELECT 1 FROM order_items oi JOIN products p ON p.id = oi.product_id WHERE oi.order_id = orders.id AND p.seller_id = ?)`

// scopeOrdersはordersテーブルへのクエリに可視範囲の条件を足す
func scopeOrders(q *gorm.DB, s scope.Scope) *gorm.DB {
	if s.All {
		return q
	}
	if s.Empty() {
		return q.Where("1 = 0")
	}

	var conds []string
	var args []interface{}
	if s.BuyerID != nil {
		conds = append(conds, "orders.buyer_id = ?")
		args = append(args, *s.BuyerID)
	}
	if s.SellerID != nil {
		conds = append(conds, sellerOwnsOrderSQL)
		args = append(args, *s.SellerID)
	}
	return q.Where("("+strings.Join(conds, " OR ")+")", args...)
}

// scopePaymentsは支払いを注文のscopeで絞る
func scopePayments(db *gorm.DB, q *gorm.DB, s scope.Scope) *gorm.DB {
	if s.All {
		return q
	}
	if s.Empty() {
		return q.Where("1 = 0")
	}
	sub := scopeOrders(db.Model(&model.Order{}).Select("orders.id"), s)
	return q.Where("payments.order_id IN (?)", sub)
}
