package repository

import (
	"context"
	"errors"
	"time"

	"backoffice/internal/domain/model"
)

var (
	ErrInvalidAuditAction  = errors.New("invalid audit action")
	ErrInvalidResourceType = errors.New("invalid resource_type")
)

// 監査ログの絞り込み条件。Actionsは空なら全部。
type AuditLogFilter struct {
	ActorUserID  *int64
	Actions      []model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	// 注文と、その注文の支払いの操作をまとめて見る
	OrderID     *int64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

func (f AuditLogFilter) Validate() error {
	for _, a := range f.Actions {
		if !a.Valid() {
			return ErrInvalidAuditAction
		}
	}
	if f.ResourceType != nil && !f.ResourceType.Valid() {
		return ErrInvalidResourceType
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedFrom.After(*f.CreatedTo) {
		return ErrInvalidPeriod
	}
	return nil
}

type AuditLogRepository interface {
	//同じトランザクションで1件保存
	Create(ctx context.Context, log model.AuditLog) error

	//新しい順
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
