package lifecycle

import (
	"fmt"
	"time"

	"backoffice/internal/domain/apperr"
	"backoffice/internal/domain/model"
)

type PaymentTransition struct {
	From model.PaymentStatus
	To   model.PaymentStatus
}

type PaymentState struct {
	Status      model.PaymentStatus
	OrderStatus model.OrderStatus
	BuyerID     int64
}

// PaymentOutcomeは支払いと注文に保存すべき結果
type PaymentOutcome struct {
	From   model.PaymentStatus
	To     model.PaymentStatus
	PaidAt *time.Time
	// 注文側の変化（なければnil）
	Order *OrderOutcome
}

type paymentRule struct {
	setPaidAt         bool
	orderNotCancelled bool
	orderTarget       model.OrderStatus
}

func defaultPaymentRules() map[PaymentTransition]paymentRule {
	return map[PaymentTransition]paymentRule{
		{model.PaymentStatusPending, model.PaymentStatusPaid}:   {setPaidAt: true, orderNotCancelled: true, orderTarget: model.OrderStatusProcessing},
		{model.PaymentStatusFailed, model.PaymentStatusPaid}:    {setPaidAt: true, orderNotCancelled: true, orderTarget: model.OrderStatusProcessing},
		{model.PaymentStatusPending, model.PaymentStatusFailed}: {},
		{model.PaymentStatusFailed, model.PaymentStatusPending}: {orderNotCancelled: true},
		{model.PaymentStatusPaid, model.PaymentStatusRefunded}:  {orderTarget: model.OrderStatusRefunded},
	}
}

// PaymentMachineは支払いステータスの遷移を判定する
type PaymentMachine struct {
	rules  map[PaymentTransition]paymentRule
	orders *OrderMachine
}

func NewPaymentMachine(orders *OrderMachine) *PaymentMachine {
	return &PaymentMachine{rules: defaultPaymentRules(), orders: orders}
}

// CanTransitionは(from, to)が遷移表にあるか
func (m *PaymentMachine) CanTransition(from, to model.PaymentStatus) bool {
	_, ok := m.rules[PaymentTransition{From: from, To: to}]
	return ok
}

// Decideは支払いの遷移を検証する。paid_atは常にstatus=paidのときだけ入る。
func (m *PaymentMachine) Decide(actor model.Identity, st PaymentState, to model.PaymentStatus, now time.Time) (PaymentOutcome, error) {
	if !to.Valid() {
		return PaymentOutcome{}, apperr.Validation("invalid status")
	}
	if !actor.HasAny(staff...) {
		return PaymentOutcome{}, apperr.Unauthorized("only admin or seller can change payment status")
	}
	if to == st.Status {
		return PaymentOutcome{}, apperr.InvalidTransition(string(st.Status), string(to))
	}

	if !m.CanTransition(st.Status, to) {
		return PaymentOutcome{}, apperr.InvalidTransition(string(st.Status), string(to))
	}
	rule := m.rules[PaymentTransition{From: st.Status, To: to}]
	if rule.orderNotCancelled && st.OrderStatus == model.OrderStatusCancelled {
		return PaymentOutcome{}, apperr.New(apperr.KindInvalidTransition,
			fmt.Sprintf("cannot mark payment %s for cancelled order", to))
	}

	out := PaymentOutcome{From: st.Status, To: to}
	if rule.setPaidAt {
		paidAt := now
		out.PaidAt = &paidAt
	}
	if rule.orderTarget != "" {
		if oo, changed := m.orders.FollowPayment(OrderState{Status: st.OrderStatus, BuyerID: st.BuyerID}, rule.orderTarget); changed {
			out.Order = &oo
		}
	}
	return out, nil
}

// CheckCreateは支払い作成の可否（本人の注文かどうかはscope側で見る）
func (m *PaymentMachine) CheckCreate(orderStatus model.OrderStatus, existing []model.Payment) error {
	if orderStatus == model.OrderStatusCancelled {
		return apperr.New(apperr.KindInvalidTransition, "cannot create payment for cancelled order")
	}
	if model.HasActivePayment(existing) {
		return apperr.Conflict("order already has an active payment")
	}
	return nil
}

// CheckDeleteはpendingのときだけ削除できる
func (m *PaymentMachine) CheckDelete(actor model.Identity, status model.PaymentStatus) error {
	if !actor.HasAny(staff...) {
		return apperr.Unauthorized("only admin or seller can delete payment")
	}
	if status != model.PaymentStatusPending {
		return apperr.New(apperr.KindInvalidTransition, fmt.Sprintf("cannot delete %s payment", status))
	}
	return nil
}
