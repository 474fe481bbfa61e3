package repository

import (
	"context"
	"log/slog"
	"time"

	"backoffice/internal/domain/model"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxGormRepositoryはイベントの追加（Tx内）とrelay用の取り出しを持つ
type OutboxGormRepository struct {
	log *slog.Logger
	db  *gorm.DB
}

func NewOutboxGormRepository(log *slog.Logger, db *gorm.DB) *OutboxGormRepository {
	return &OutboxGormRepository{log: log, db: db}
}

func (r *OutboxGormRepository) Append(ctx context.Context, ev model.OutboxEvent) error {
	if ev.Status == "" {
		ev.Status = model.OutboxStatusPending
	}
	return r.db.WithContext(ctx).Create(&ev).Error
}

// LockBatchはpendingとリース切れのイベントを取り、in_progressにする。
// 他のrelayが掴んでいる行は飛ばす（SKIP LOCKED）。
func (r *OutboxGormRepository) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.
			Where("status = ? OR (status = ? AND lease_until < ?)", model.OutboxStatusPending, model.OutboxStatusInProgress, now).
			Order("id").
			Limit(batchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Find(&events).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		ids := lo.Map(events, func(e model.OutboxEvent, _ int) int64 { return e.ID })
		return tx.Model(&model.OutboxEvent{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":      model.OutboxStatusInProgress,
				"relay_id":    relayID,
				"lease_until": now.Add(lease),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *OutboxGormRepository) MarkSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("id IN ?", ids).
		Update("status", model.OutboxStatusSent).Error
}

// MarkFailedは失敗を記録してpendingに戻す。maxRetryを超えたらfailed。
func (r *OutboxGormRepository) MarkFailed(ctx context.Context, id int64, errMsg string, maxRetry int) error {
	res := r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": gorm.Expr("CASE WHEN retry_count + 1 >= ? THEN ? ELSE ? END",
				maxRetry, model.OutboxStatusFailed, model.OutboxStatusPending),
			"retry_count": gorm.Expr("retry_count + 1"),
			"last_error":  errMsg,
			"relay_id":    nil,
			"lease_until": nil,
		})
	if res.Error != nil {
		r.log.Error("outbox mark failed error", "id", id, "err", res.Error)
	}
	return res.Error
}
