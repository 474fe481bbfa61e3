package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"backoffice/internal/domain/apperr"
	"backoffice/internal/domain/lifecycle"
	"backoffice/internal/domain/model"
	"backoffice/internal/domain/money"
	"backoffice/internal/domain/scope"
	repo "backoffice/internal/repository"
)

type OrderUsecase struct {
	tx       repo.TransactionManager
	machine  *lifecycle.OrderMachine
	numbers  *OrderNumberGenerator
	clock    Clock
	ids      IDGenerator
	notifier Notifier
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	machine *lifecycle.OrderMachine,
	numbers *OrderNumberGenerator,
	clock Clock,
	ids IDGenerator,
	notifier Notifier,
) *OrderUsecase {
	return &OrderUsecase{
		tx:       tx,
		machine:  machine,
		numbers:  numbers,
		clock:    clock,
		ids:      ids,
		notifier: notifier,
	}
}

type CreateOrderInput struct {
	// adminだけ指定できる。buyerは自分。
	BuyerID           *int64
	ShippingAddressID *int64
	ShippingCourierID *int64
	ShippingCost      string
}

type OrderOutput struct {
	Order              model.Order         `json:"order"`
	Items              []model.OrderItem   `json:"items"`
	Payment            *model.Payment      `json:"payment"`
	GrandTotal         money.Money         `json:"grand_total"`
	Paid               bool                `json:"paid"`
	AllowedTransitions []model.OrderStatus `json:"allowed_transitions"`
}

type ListOrdersInput struct {
	Page    int
	Limit   int
	Status  string
	BuyerID *int64
	From    *time.Time
	To      *time.Time
}

type OrderListOutput struct {
	Orders []model.Order `json:"orders"`
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

// nilの項目は変えない
type UpdateShippingInput struct {
	ShippingAddressID *int64
	ShippingCourierID *int64
	ShippingCost      *string
}

type TransitionOrderInput struct {
	Status         string
	TrackingNumber string
	// adminの任意変更
	Override bool
}

func parseShippingCost(s string) (money.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return money.Zero, nil
	}
	m, err := money.Parse(s)
	if errors.Is(err, money.ErrTooLarge) {
		return money.Zero, apperr.Wrap(apperr.KindValidation, "shipping_cost exceeds "+money.Max.String(), err)
	}
	if err != nil {
		return money.Zero, apperr.Validation("invalid shipping_cost")
	}
	return m, nil
}

func (u *OrderUsecase) CreateOrder(ctx context.Context, actor model.Identity, in CreateOrderInput) (out model.Order, err error) {
	defer func() { notifyResult(ctx, u.notifier, "Create order", err) }()

	if !actor.Valid() {
		return model.Order{}, apperr.Unauthorized("unauthorized")
	}

	var buyerID int64
	switch {
	case actor.IsAdmin():
		if in.BuyerID == nil || *in.BuyerID <= 0 {
			return model.Order{}, apperr.Validation("buyer_id is required")
		}
		buyerID = *in.BuyerID
	case actor.Has(model.RoleBuyer):
		if in.BuyerID != nil && *in.BuyerID != actor.ID {
			return model.Order{}, apperr.Unauthorized("cannot create order for another buyer")
		}
		buyerID = actor.ID
	default:
		return model.Order{}, apperr.Unauthorized("only admin or buyer can create orders")
	}

	cost, err := parseShippingCost(in.ShippingCost)
	if err != nil {
		return model.Order{}, err
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		number, err := u.numbers.Generate(ctx, r.Orders().ExistsByOrderNumber)
		if err != nil {
			return err
		}

		created, err := r.Orders().Create(ctx, model.Order{
			BuyerID:           buyerID,
			ShippingAddressID: in.ShippingAddressID,
			ShippingCourierID: in.ShippingCourierID,
			OrderNumber:       number,
			Status:            model.OrderStatusPending,
			TotalAmount:       money.Zero,
			ShippingCost:      cost,
		})
		if err != nil {
			return repoErr(err, "order number")
		}
		out = created
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}

// GetOrderは明細・最新の支払い・画面で押せる遷移を返す
func (u *OrderUsecase) GetOrder(ctx context.Context, actor model.Identity, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, apperr.Validation("invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, scope.For(actor), orderID)
		if err != nil {
			return repoErr(err, "order")
		}
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return apperr.Internal(err)
		}
		payments, err := r.Payments().ListByOrderID(ctx, orderID)
		if err != nil {
			return apperr.Internal(err)
		}

		agg := model.OrderAggregate{Order: o, Items: items, Payment: model.LatestPayment(payments)}
		// ロックなしで読むので、明細の変更と重なったら返す明細に合わせる
		if !agg.Consistent() {
			agg.RecomputeTotal()
		}
		out = OrderOutput{
			Order:      agg.Order,
			Items:      agg.Items,
			Payment:    agg.Payment,
			GrandTotal: agg.GrandTotal(),
			Paid:       agg.PaymentPaid(),
			AllowedTransitions: u.machine.AllowedTransitions(actor, lifecycle.OrderState{
				Status:  o.Status,
				BuyerID: o.BuyerID,
				Payment: agg.Payment,
			}),
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// ListOrdersはscope内だけ返す。該当なしは空（エラーではない）。
func (u *OrderUsecase) ListOrders(ctx context.Context, actor model.Identity, in ListOrdersInput) (OrderListOutput, error) {
	if in.Page < 0 || in.Limit < 0 || in.Limit > 100 {
		return OrderListOutput{}, apperr.Validation("invalid page or limit")
	}
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Limit == 0 {
		in.Limit = 20
	}

	f := repo.OrderListFilter{
		Scope:   scope.For(actor),
		Page:    in.Page,
		Limit:   in.Limit,
		BuyerID: in.BuyerID,
		From:    in.From,
		To:      in.To,
	}
	if s := strings.TrimSpace(in.Status); s != "" {
		st := model.OrderStatus(s)
		f.Status = &st
	}
	if err := f.Validate(); err != nil {
		return OrderListOutput{}, apperr.Validation(err.Error())
	}

	out := OrderListOutput{Orders: []model.Order{}, Page: in.Page, Limit: in.Limit}
	if f.Scope.Empty() {
		return out, nil
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().List(ctx, f)
		if err != nil {
			return apperr.Internal(err)
		}
		out.Orders = orders
		out.Total = total
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

// UpdateShippingは送料と配送先の変更。pendingのときだけ。
func (u *OrderUsecase) UpdateShipping(ctx context.Context, actor model.Identity, orderID int64, in UpdateShippingInput) (out model.Order, err error) {
	defer func() { notifyResult(ctx, u.notifier, "Update shipping", err) }()

	if orderID <= 0 {
		return model.Order{}, apperr.Validation("invalid id")
	}
	if in.ShippingAddressID == nil && in.ShippingCourierID == nil && in.ShippingCost == nil {
		return model.Order{}, apperr.Validation("nothing to update")
	}
	var cost *money.Money
	if in.ShippingCost != nil {
		c, err := parseShippingCost(*in.ShippingCost)
		if err != nil {
			return model.Order{}, err
		}
		cost = &c
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, scope.For(actor), orderID)
		if err != nil {
			return repoErr(err, "order")
		}
		if err := canEditOrder(actor, o); err != nil {
			return err
		}

		upd := repo.ShippingUpdate{AddressID: o.ShippingAddressID, CourierID: o.ShippingCourierID, Cost: o.ShippingCost}
		if in.ShippingAddressID != nil {
			upd.AddressID = in.ShippingAddressID
		}
		if in.ShippingCourierID != nil {
			upd.CourierID = in.ShippingCourierID
		}
		if cost != nil {
			upd.Cost = *cost
		}
		if err := r.Orders().UpdateShipping(ctx, orderID, upd); err != nil {
			return repoErr(err, "order")
		}
		o.ShippingAddressID = upd.AddressID
		o.ShippingCourierID = upd.CourierID
		o.ShippingCost = upd.Cost
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}

// TransitionStatusは注文ステータスの変更。判定はOrderMachine、保存は1トランザクション。
func (u *OrderUsecase) TransitionStatus(ctx context.Context, actor model.Identity, orderID int64, in TransitionOrderInput) (out model.Order, err error) {
	defer func() { notifyResult(ctx, u.notifier, "Update order status", err) }()

	if orderID <= 0 {
		return model.Order{}, apperr.Validation("invalid id")
	}
	to, err := model.ToOrderStatus(strings.TrimSpace(in.Status))
	if err != nil {
		return model.Order{}, apperr.Validation("invalid status")
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, scope.For(actor), orderID)
		if err != nil {
			return repoErr(err, "order")
		}
		payments, err := r.Payments().ListByOrderID(ctx, orderID)
		if err != nil {
			return apperr.Internal(err)
		}

		res, err := u.machine.Decide(actor, lifecycle.OrderState{
			Status:  o.Status,
			BuyerID: o.BuyerID,
			Payment: model.LatestPayment(payments),
		}, lifecycle.OrderRequest{
			To:             to,
			TrackingNumber: in.TrackingNumber,
			Override:       in.Override,
		})
		if err != nil {
			return err
		}

		if err := applyOrderOutcome(ctx, r, u.ids, actor, &o, res, u.clock.Now()); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}

// applyOrderOutcomeはステータス保存＋監査ログ＋イベント。支払い側からも使う。
func applyOrderOutcome(ctx context.Context, r repo.TxRepos, ids IDGenerator, actor model.Identity, o *model.Order, res lifecycle.OrderOutcome, now time.Time) error {
	if err := r.Orders().UpdateStatus(ctx, o.ID, res.To, res.TrackingNumber); err != nil {
		return repoErr(err, "order")
	}

	before := map[string]interface{}{"status": res.From}
	after := map[string]interface{}{"status": res.To}
	if res.TrackingNumber != nil {
		after["shipping_tracking_number"] = *res.TrackingNumber
		o.ShippingTrackingNumber = res.TrackingNumber
	}
	o.Status = res.To

	if err := writeAudit(ctx, r, actor, model.AuditActionUpdateOrderStatus, model.AuditResourceOrder, o.ID, o.ID, before, after, now); err != nil {
		return err
	}
	return appendEvent(ctx, r, ids, "order", o.ID, model.EventOrderStatusChanged, OrderStatusChanged{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		From:        res.From,
		To:          res.To,
		ActorID:     actor.ID,
		OccurredAt:  now,
	})
}

// 明細・配送の変更はadminか注文した本人だけ、pendingのときだけ
func canEditOrder(actor model.Identity, o model.Order) error {
	if !actor.IsAdmin() && !(actor.Has(model.RoleBuyer) && o.BuyerID == actor.ID) {
		return apperr.Unauthorized("only admin or the buyer can edit this order")
	}
	if o.Status != model.OrderStatusPending {
		return apperr.New(apperr.KindInvalidTransition, "order is "+string(o.Status)+", only pending orders can be edited")
	}
	return nil
}
