package repository

import (
	"context"

	"backoffice/internal/domain/model"
	repo "backoffice/internal/repository"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

type AuditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db}
}

// Createは呼び出し側のTxのdbで作ること（ステータス変更と同時にコミット）
func (r *AuditLogGormRepository) Create(ctx context.Context, entry model.AuditLog) error {
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *AuditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	limit, offset := auditWindow(f.Limit, f.Offset)

	logs := []model.AuditLog{}
	err := auditConditions(r.db.WithContext(ctx).Model(&model.AuditLog{}), f).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return []model.AuditLog{}, err
	}
	return logs, nil
}

func auditConditions(q *gorm.DB, f repo.AuditLogFilter) *gorm.DB {
	if f.ActorUserID != nil {
		q = q.Where("actor_user_id = ?", *f.ActorUserID)
	}
	if len(f.Actions) > 0 {
		q = q.Where("action IN ?", lo.Uniq(f.Actions))
	}
	if f.ResourceType != nil {
		q = q.Where("resource_type = ?", *f.ResourceType)
	}
	if f.ResourceID != nil {
		q = q.Where("resource_id = ?", *f.ResourceID)
	}
	if f.OrderID != nil {
		q = q.Where("order_id = ?", *f.OrderID)
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at <= ?", *f.CreatedTo)
	}
	return q
}

// 監査ログはoffset指定。上限200、既定50。
func auditWindow(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
