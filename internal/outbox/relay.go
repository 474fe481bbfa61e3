package outbox

import (
	"context"
	"log/slog"
	"time"

	"backoffice/internal/domain/model"
)

// Storeはoutboxテーブルの取り出し。gorm実装はinfra/repository。
type Store interface {
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]model.OutboxEvent, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string, maxRetry int) error
}

type Relay struct {
	log       *slog.Logger
	store     Store
	dispatch  *Dispatcher
	relayID   string
	batchSize int
	interval  time.Duration
	lease     time.Duration
	maxRetry  int
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option { return func(r *Relay) { r.interval = d } }

func WithBatchSize(n int) Option { return func(r *Relay) { r.batchSize = n } }

func NewRelay(log *slog.Logger, store Store, dispatch *Dispatcher, relayID string, opts ...Option) *Relay {
	r := &Relay{
		log:       log,
		store:     store,
		dispatch:  dispatch,
		relayID:   relayID,
		batchSize: 100,
		interval:  500 * time.Millisecond,
		lease:     5 * time.Second,
		maxRetry:  10,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Runはctxが終わるまでoutboxをKafkaへ流す
func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", "relay_id", r.relayID)
			return nil
		case <-t.C:
			r.tick(ctx)
		}
	}
}

func (r *Relay) tick(ctx context.Context) {
	events, err := r.store.LockBatch(ctx, r.relayID, r.batchSize, r.lease)
	if err != nil {
		r.log.Error("relay lock batch error", "err", err)
		return
	}
	if len(events) == 0 {
		return
	}

	ids := make([]int64, 0, len(events))
	for _, e := range events {
		if err := r.dispatch.Dispatch(ctx, e); err != nil {
			if markErr := r.store.MarkFailed(ctx, e.ID, err.Error(), r.maxRetry); markErr != nil {
				r.log.Error("relay mark failed error", "id", e.ID, "err", markErr)
			}
			continue
		}
		ids = append(ids, e.ID)
	}
	if len(ids) > 0 {
		if err := r.store.MarkSent(ctx, ids); err != nil {
			r.log.Error("relay mark sent error", "err", err)
		}
	}
}
