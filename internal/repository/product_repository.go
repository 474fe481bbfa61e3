package repository

import (
	"context"

	"backoffice/internal/domain/model"
)

// 商品カタログ。明細の単価はここから取る。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
}
