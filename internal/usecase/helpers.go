package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"backoffice/internal/domain/apperr"
	"backoffice/internal/domain/model"
	repo "backoffice/internal/repository"
)

// repoのエラーをapperrにする。見つからないときはwhatをメッセージにする。
func repoErr(err error, what string) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return apperr.NotFound(what + " not found")
	case errors.Is(err, repo.ErrDuplicate):
		return apperr.Wrap(apperr.KindConflict, what+" already exists", err)
	default:
		return apperr.Internal(err)
	}
}

func notifyResult(ctx context.Context, n Notifier, title string, err error) {
	if n == nil {
		return
	}
	if err == nil {
		n.Notify(ctx, NotifySuccess, title, "")
		return
	}
	msg := err.Error()
	if ae, ok := apperr.As(err); ok {
		msg = ae.Message
	}
	n.Notify(ctx, NotifyError, title, msg)
}

func toJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func writeAudit(ctx context.Context, r repo.TxRepos, actor model.Identity, action model.AuditAction, resType model.AuditResourceType, resID, orderID int64, before, after interface{}, now time.Time) error {
	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actor.ID,
		Action:       action,
		ResourceType: resType,
		ResourceID:   resID,
		OrderID:      orderID,
		BeforeJSON:   toJSON(before),
		AfterJSON:    toJSON(after),
		CreatedAt:    now,
	}); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// イベントの中身
type OrderStatusChanged struct {
	OrderID     int64             `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        model.OrderStatus `json:"from"`
	To          model.OrderStatus `json:"to"`
	ActorID     int64             `json:"actor_id"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

type PaymentEvent struct {
	PaymentID  int64               `json:"payment_id"`
	OrderID    int64               `json:"order_id"`
	Amount     string              `json:"amount"`
	From       model.PaymentStatus `json:"from,omitempty"`
	To         model.PaymentStatus `json:"to"`
	ActorID    int64               `json:"actor_id"`
	OccurredAt time.Time           `json:"occurred_at"`
}

func appendEvent(ctx context.Context, r repo.TxRepos, ids IDGenerator, aggType string, aggID int64, eventType string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := r.Outbox().Append(ctx, model.OutboxEvent{
		EventID:       ids.NewID(),
		AggregateType: aggType,
		AggregateID:   strconv.FormatInt(aggID, 10),
		Type:          eventType,
		Payload:       b,
		Status:        model.OutboxStatusPending,
	}); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
