package usecase

import (
	"context"

	"backoffice/internal/domain/apperr"
	"backoffice/internal/domain/model"
	repo "backoffice/internal/repository"
)

// AuditUsecaseは監査ログの参照（adminのみ）
type AuditUsecase struct {
	auditRepo repo.AuditLogRepository
}

func NewAuditUsecase(auditRepo repo.AuditLogRepository) *AuditUsecase {
	return &AuditUsecase{auditRepo: auditRepo}
}

func (u *AuditUsecase) List(ctx context.Context, actor model.Identity, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if !actor.IsAdmin() {
		return []model.AuditLog{}, apperr.Unauthorized("admin only")
	}
	if err := f.Validate(); err != nil {
		return []model.AuditLog{}, apperr.Validation(err.Error())
	}

	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return []model.AuditLog{}, apperr.Internal(err)
	}
	return logs, nil
}
