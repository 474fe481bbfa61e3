package repository

import (
	"context"

	"backoffice/internal/domain/model"
)

// 業務データと同じトランザクションでイベントを積む
type OutboxRepository interface {
	Append(ctx context.Context, ev model.OutboxEvent) error
}
