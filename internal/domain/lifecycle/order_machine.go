package lifecycle

import (
	"fmt"
	"sort"
	"strings"

	"backoffice/internal/domain/apperr"
	"backoffice/internal/domain/model"
)

// OrderTransitionは(from, to)の組。遷移表のキー。
type OrderTransition struct {
	From model.OrderStatus
	To   model.OrderStatus
}

// OrderStateは判定に必要な注文の現在状態
type OrderState struct {
	Status  model.OrderStatus
	BuyerID int64
	// 最新の支払い（なければnil）
	Payment *model.Payment
}

// OrderRequestは要求された遷移
type OrderRequest struct {
	To             model.OrderStatus
	TrackingNumber string
	// 管理者の任意ステータス変更
	Override bool
}

// OrderOutcomeは保存すべき結果
type OrderOutcome struct {
	From           model.OrderStatus
	To             model.OrderStatus
	TrackingNumber *string
}

type orderRule struct {
	roles []model.Role
	// 注文した本人(buyer)も実行できる
	allowOwner bool
	// 支払い側の副作用でしか起きない
	paymentOnly bool
	guard       func(st OrderState, req OrderRequest) error
}

func requirePaidPayment(st OrderState, _ OrderRequest) error {
	if st.Payment == nil || st.Payment.Status != model.PaymentStatusPaid {
		return apperr.New(apperr.KindMissingPayment, "order has no paid payment")
	}
	return nil
}

func requireTrackingNumber(_ OrderState, req OrderRequest) error {
	if strings.TrimSpace(req.TrackingNumber) == "" {
		return apperr.New(apperr.KindMissingTrackingNumber, "tracking number is required")
	}
	return nil
}

var staff = []model.Role{model.RoleAdmin, model.RoleSeller}

func defaultOrderRules() map[OrderTransition]orderRule {
	return map[OrderTransition]orderRule{
		{model.OrderStatusPending, model.OrderStatusProcessing}:   {roles: staff, guard: requirePaidPayment},
		{model.OrderStatusProcessing, model.OrderStatusShipped}:   {roles: staff, guard: requireTrackingNumber},
		{model.OrderStatusShipped, model.OrderStatusCompleted}:    {roles: staff, allowOwner: true},
		{model.OrderStatusPending, model.OrderStatusCancelled}:    {roles: staff},
		{model.OrderStatusProcessing, model.OrderStatusCancelled}: {roles: staff},

		{model.OrderStatusPending, model.OrderStatusRefunded}:    {paymentOnly: true},
		{model.OrderStatusProcessing, model.OrderStatusRefunded}: {paymentOnly: true},
		{model.OrderStatusShipped, model.OrderStatusRefunded}:    {paymentOnly: true},
		{model.OrderStatusCompleted, model.OrderStatusRefunded}:  {paymentOnly: true},
	}
}

// 管理者の任意変更でもキャンセルできない状態
var overrideCancelBlocked = map[model.OrderStatus]struct{}{
	model.OrderStatusProcessing: {},
	model.OrderStatusShipped:    {},
	model.OrderStatusCompleted:  {},
	model.OrderStatusRefunded:   {},
	model.OrderStatusCancelled:  {},
}

// OrderMachineは注文ステータスの遷移を判定する。状態は持たない。
type OrderMachine struct {
	rules map[OrderTransition]orderRule
}

func NewOrderMachine() *OrderMachine {
	return &OrderMachine{rules: defaultOrderRules()}
}

// CanTransitionは通常の操作で(from, to)が遷移表にあるか
func (m *OrderMachine) CanTransition(from, to model.OrderStatus) bool {
	rule, ok := m.rules[OrderTransition{From: from, To: to}]
	return ok && !rule.paymentOnly
}

// AllowedTransitionsはactorがfromから要求できる遷移先（画面のボタン用）
func (m *OrderMachine) AllowedTransitions(actor model.Identity, st OrderState) []model.OrderStatus {
	var out []model.OrderStatus
	for tr, rule := range m.rules {
		if tr.From != st.Status || rule.paymentOnly {
			continue
		}
		if authorized(actor, st, rule) {
			out = append(out, tr.To)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Decideは要求を検証して結果を返す。エラーのときは何も保存しないこと。
func (m *OrderMachine) Decide(actor model.Identity, st OrderState, req OrderRequest) (OrderOutcome, error) {
	if !req.To.Valid() {
		return OrderOutcome{}, apperr.Validation("invalid status")
	}
	if req.To == st.Status {
		return OrderOutcome{}, apperr.InvalidTransition(string(st.Status), string(req.To))
	}

	if req.Override {
		return m.decideOverride(actor, st, req)
	}

	if !m.CanTransition(st.Status, req.To) {
		return OrderOutcome{}, apperr.InvalidTransition(string(st.Status), string(req.To))
	}
	rule := m.rules[OrderTransition{From: st.Status, To: req.To}]
	if !authorized(actor, st, rule) {
		return OrderOutcome{}, apperr.Unauthorized(fmt.Sprintf("role cannot change order to %s", req.To))
	}
	if rule.guard != nil {
		if err := rule.guard(st, req); err != nil {
			return OrderOutcome{}, err
		}
	}

	return outcome(st, req), nil
}

// FollowPaymentは支払いの遷移に伴う注文の変化。変化しないならfalse。
func (m *OrderMachine) FollowPayment(st OrderState, to model.OrderStatus) (OrderOutcome, bool) {
	if st.Status == to {
		return OrderOutcome{}, false
	}
	rule, ok := m.rules[OrderTransition{From: st.Status, To: to}]
	if !ok {
		return OrderOutcome{}, false
	}
	// pending→processingは支払い確定で自動的に進める
	if !rule.paymentOnly && to != model.OrderStatusProcessing {
		return OrderOutcome{}, false
	}
	return OrderOutcome{From: st.Status, To: to}, true
}

func (m *OrderMachine) decideOverride(actor model.Identity, st OrderState, req OrderRequest) (OrderOutcome, error) {
	if !actor.IsAdmin() {
		return OrderOutcome{}, apperr.Unauthorized("admin only")
	}
	// 返金は支払い側からのみ
	if req.To == model.OrderStatusRefunded {
		return OrderOutcome{}, apperr.InvalidTransition(string(st.Status), string(req.To))
	}
	if req.To == model.OrderStatusCancelled {
		if _, blocked := overrideCancelBlocked[st.Status]; blocked {
			return OrderOutcome{}, apperr.New(apperr.KindInvalidTransition,
				fmt.Sprintf("cannot cancel %s order", st.Status))
		}
	}
	return outcome(st, req), nil
}

func authorized(actor model.Identity, st OrderState, rule orderRule) bool {
	if actor.HasAny(rule.roles...) {
		return true
	}
	return rule.allowOwner && actor.Has(model.RoleBuyer) && actor.ID == st.BuyerID
}

func outcome(st OrderState, req OrderRequest) OrderOutcome {
	out := OrderOutcome{From: st.Status, To: req.To}
	if req.To == model.OrderStatusShipped {
		if tn := strings.TrimSpace(req.TrackingNumber); tn != "" {
			out.TrackingNumber = &tn
		}
	}
	return out
}
