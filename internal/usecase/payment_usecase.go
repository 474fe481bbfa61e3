package usecase

import (
	"context"
	"errors"
	"io"
	"strings"

	"backoffice/internal/domain/apperr"
	"backoffice/internal/domain/lifecycle"
	"backoffice/internal/domain/model"
	"backoffice/internal/domain/money"
	"backoffice/internal/domain/scope"
	repo "backoffice/internal/repository"

	"golang.org/x/text/currency"
)

const (
	// 証憑の保存ディレクトリ
	ProofDirectory = "payment-proofs"
	proofKind      = "payment-proof"
)

type PaymentUsecase struct {
	tx       repo.TransactionManager
	machine  *lifecycle.PaymentMachine
	files    FileStore
	clock    Clock
	ids      IDGenerator
	notifier Notifier
	currency currency.Unit
}

func NewPaymentUsecase(
	tx repo.TransactionManager,
	machine *lifecycle.PaymentMachine,
	files FileStore,
	clock Clock,
	ids IDGenerator,
	notifier Notifier,
) *PaymentUsecase {
	return &PaymentUsecase{
		tx:       tx,
		machine:  machine,
		files:    files,
		clock:    clock,
		ids:      ids,
		notifier: notifier,
		currency: currency.IDR,
	}
}

// WithDisplayCurrencyは画面表示用の通貨を変える
func (u *PaymentUsecase) WithDisplayCurrency(unit currency.Unit) *PaymentUsecase {
	u.currency = unit
	return u
}

type ProofFile struct {
	Name string
	Body io.Reader
}

type CreatePaymentInput struct {
	PaymentTypeID int64
	// 空なら注文のgrand_total
	Amount        string
	TransactionID *string
	Notes         *string
	// 任意。支払い方法がrequires_proofなら必須。
	Proof *ProofFile
}

type TransitionPaymentInput struct {
	Status string
}

type PaymentOutput struct {
	Payment model.Payment `json:"payment"`
	// 証憑がなければデフォルト画像
	ProofURL string `json:"proof_url"`
	// "IDR 20000.00"
	AmountDisplay string `json:"amount_display"`
	// 支払いの変更で注文も動いたときの注文
	Order *model.Order `json:"order,omitempty"`
}

type ListPaymentsInput struct {
	Page          int
	Limit         int
	Status        string
	OrderID       *int64
	PaymentTypeID *int64
}

type PaymentListOutput struct {
	Payments []model.Payment `json:"payments"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
}

// parseAmountは0より大きくMax以下の金額だけ通す
func parseAmount(s string) (money.Money, error) {
	m, err := money.Parse(s)
	if errors.Is(err, money.ErrTooLarge) {
		return money.Zero, apperr.Wrap(apperr.KindValidation, "amount exceeds "+money.Max.String(), err)
	}
	if err != nil || m.IsZero() {
		return money.Zero, apperr.Validation("amount must be greater than 0")
	}
	return m, nil
}

func (u *PaymentUsecase) output(p model.Payment, o *model.Order) PaymentOutput {
	url := u.files.DefaultURL(proofKind)
	if p.ProofOfPaymentURL != nil && *p.ProofOfPaymentURL != "" {
		url = *p.ProofOfPaymentURL
	}
	return PaymentOutput{Payment: p, ProofURL: url, AmountDisplay: p.Amount.Format(u.currency), Order: o}
}

// CreatePaymentは注文に支払いを作る。アクティブな支払い(pending/paid)があればCONFLICT。
// 証憑のアップロードはトランザクションの前。失敗したら何も保存しない。
func (u *PaymentUsecase) CreatePayment(ctx context.Context, actor model.Identity, orderID int64, in CreatePaymentInput) (out PaymentOutput, err error) {
	defer func() { notifyResult(ctx, u.notifier, "Create payment", err) }()

	if !actor.Valid() {
		return PaymentOutput{}, apperr.Unauthorized("unauthorized")
	}
	if orderID <= 0 {
		return PaymentOutput{}, apperr.Validation("invalid id")
	}
	if in.PaymentTypeID <= 0 {
		return PaymentOutput{}, apperr.Validation("invalid payment_type_id")
	}
	var amount *money.Money
	if s := strings.TrimSpace(in.Amount); s != "" {
		a, err := parseAmount(s)
		if err != nil {
			return PaymentOutput{}, err
		}
		amount = &a
	}

	var proofURL *string
	if in.Proof != nil {
		url, err := u.files.Store(ctx, in.Proof.Body, in.Proof.Name, ProofDirectory)
		if err != nil {
			return PaymentOutput{}, apperr.Wrap(apperr.KindExternalFailure, "failed to store proof of payment", err)
		}
		proofURL = &url
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, scope.For(actor), orderID)
		if err != nil {
			return repoErr(err, "order")
		}

		pt, err := r.PaymentTypes().FindByID(ctx, in.PaymentTypeID)
		if err != nil {
			return repoErr(err, "payment type")
		}
		if !pt.IsActive {
			return apperr.NotFound("payment type not found")
		}
		if pt.RequiresProof && proofURL == nil {
			return apperr.Validation("proof of payment is required for " + pt.Name)
		}

		existing, err := r.Payments().ListByOrderID(ctx, orderID)
		if err != nil {
			return apperr.Internal(err)
		}
		if err := u.machine.CheckCreate(o.Status, existing); err != nil {
			return err
		}

		if amount == nil {
			a, err := parseAmount(o.GrandTotal().String())
			if err != nil {
				return err
			}
			amount = &a
		}

		p, err := r.Payments().Create(ctx, model.Payment{
			OrderID:           orderID,
			PaymentTypeID:     pt.ID,
			Amount:            *amount,
			Status:            model.PaymentStatusPending,
			TransactionID:     in.TransactionID,
			ProofOfPaymentURL: proofURL,
			Notes:             in.Notes,
		})
		if err != nil {
			return apperr.Internal(err)
		}

		now := u.clock.Now()
		if err := writeAudit(ctx, r, actor, model.AuditActionCreatePayment, model.AuditResourcePayment, p.ID, orderID,
			nil, map[string]interface{}{"order_id": orderID, "amount": p.Amount, "status": p.Status}, now); err != nil {
			return err
		}
		if err := appendEvent(ctx, r, u.ids, "payment", p.ID, model.EventPaymentCreated, PaymentEvent{
			PaymentID:  p.ID,
			OrderID:    orderID,
			Amount:     p.Amount.String(),
			To:         p.Status,
			ActorID:    actor.ID,
			OccurredAt: now,
		}); err != nil {
			return err
		}

		out = u.output(p, nil)
		return nil
	})
	if err != nil {
		return PaymentOutput{}, err
	}
	return out, nil
}

// TransitionStatusは支払いステータスの変更。paidなら注文をprocessingへ、refundedなら注文もrefundedへ。
func (u *PaymentUsecase) TransitionStatus(ctx context.Context, actor model.Identity, paymentID int64, in TransitionPaymentInput) (out PaymentOutput, err error) {
	defer func() { notifyResult(ctx, u.notifier, "Update payment status", err) }()

	if paymentID <= 0 {
		return PaymentOutput{}, apperr.Validation("invalid id")
	}
	to, err := model.ToPaymentStatus(strings.TrimSpace(in.Status))
	if err != nil {
		return PaymentOutput{}, apperr.Validation("invalid status")
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s := scope.For(actor)
		p, err := r.Payments().FindByIDForUpdate(ctx, s, paymentID)
		if err != nil {
			return repoErr(err, "payment")
		}
		o, err := r.Orders().FindByIDForUpdate(ctx, s, p.OrderID)
		if err != nil {
			return repoErr(err, "payment")
		}

		now := u.clock.Now()
		res, err := u.machine.Decide(actor, lifecycle.PaymentState{
			Status:      p.Status,
			OrderStatus: o.Status,
			BuyerID:     o.BuyerID,
		}, to, now)
		if err != nil {
			return err
		}

		if err := r.Payments().UpdateStatus(ctx, paymentID, res.To, res.PaidAt); err != nil {
			return repoErr(err, "payment")
		}
		p.Status = res.To
		p.PaidAt = res.PaidAt

		if err := writeAudit(ctx, r, actor, model.AuditActionUpdatePaymentStatus, model.AuditResourcePayment, p.ID, o.ID,
			map[string]interface{}{"status": res.From},
			map[string]interface{}{"status": res.To, "paid_at": res.PaidAt}, now); err != nil {
			return err
		}
		if err := appendEvent(ctx, r, u.ids, "payment", p.ID, model.EventPaymentStatusChanged, PaymentEvent{
			PaymentID:  p.ID,
			OrderID:    o.ID,
			Amount:     p.Amount.String(),
			From:       res.From,
			To:         res.To,
			ActorID:    actor.ID,
			OccurredAt: now,
		}); err != nil {
			return err
		}

		var changed *model.Order
		if res.Order != nil {
			if err := applyOrderOutcome(ctx, r, u.ids, actor, &o, *res.Order, now); err != nil {
				return err
			}
			changed = &o
		}

		out = u.output(p, changed)
		return nil
	})
	if err != nil {
		return PaymentOutput{}, err
	}
	return out, nil
}

// DeletePaymentはpendingの支払いだけ消せる
func (u *PaymentUsecase) DeletePayment(ctx context.Context, actor model.Identity, paymentID int64) (err error) {
	defer func() { notifyResult(ctx, u.notifier, "Delete payment", err) }()

	if paymentID <= 0 {
		return apperr.Validation("invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Payments().FindByIDForUpdate(ctx, scope.For(actor), paymentID)
		if err != nil {
			return repoErr(err, "payment")
		}
		if err := u.machine.CheckDelete(actor, p.Status); err != nil {
			return err
		}
		if err := r.Payments().Delete(ctx, paymentID); err != nil {
			return repoErr(err, "payment")
		}
		return writeAudit(ctx, r, actor, model.AuditActionDeletePayment, model.AuditResourcePayment, p.ID, p.OrderID,
			map[string]interface{}{"order_id": p.OrderID, "status": p.Status}, nil, u.clock.Now())
	})
}

func (u *PaymentUsecase) GetPayment(ctx context.Context, actor model.Identity, paymentID int64) (PaymentOutput, error) {
	if paymentID <= 0 {
		return PaymentOutput{}, apperr.Validation("invalid id")
	}

	var out PaymentOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Payments().FindByID(ctx, scope.For(actor), paymentID)
		if err != nil {
			return repoErr(err, "payment")
		}
		out = u.output(p, nil)
		return nil
	})
	if err != nil {
		return PaymentOutput{}, err
	}
	return out, nil
}

func (u *PaymentUsecase) ListPayments(ctx context.Context, actor model.Identity, in ListPaymentsInput) (PaymentListOutput, error) {
	if in.Page < 0 || in.Limit < 0 || in.Limit > 100 {
		return PaymentListOutput{}, apperr.Validation("invalid page or limit")
	}
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Limit == 0 {
		in.Limit = 20
	}

	f := repo.PaymentListFilter{
		Scope:         scope.For(actor),
		Page:          in.Page,
		Limit:         in.Limit,
		OrderID:       in.OrderID,
		PaymentTypeID: in.PaymentTypeID,
	}
	if s := strings.TrimSpace(in.Status); s != "" {
		st := model.PaymentStatus(s)
		f.Status = &st
	}
	if err := f.Validate(); err != nil {
		return PaymentListOutput{}, apperr.Validation(err.Error())
	}

	out := PaymentListOutput{Payments: []model.Payment{}, Page: in.Page, Limit: in.Limit}
	if f.Scope.Empty() {
		return out, nil
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		payments, total, err := r.Payments().List(ctx, f)
		if err != nil {
			return apperr.Internal(err)
		}
		out.Payments = payments
		out.Total = total
		return nil
	})
	if err != nil {
		return PaymentListOutput{}, err
	}
	return out, nil
}
