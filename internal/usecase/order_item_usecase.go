package usecase

import (
	"context"
	"errors"

	"backoffice/internal/domain/apperr"
	"backoffice/internal/domain/model"
	"backoffice/internal/domain/money"
	"backoffice/internal/domain/scope"
	repo "backoffice/internal/repository"
)

// OrderItemUsecaseは注文明細の追加・変更・削除。
// どの操作でもtotal_amountはDBの明細から足し直す。
type OrderItemUsecase struct {
	tx       repo.TransactionManager
	notifier Notifier
}

func NewOrderItemUsecase(tx repo.TransactionManager, notifier Notifier) *OrderItemUsecase {
	return &OrderItemUsecase{tx: tx, notifier: notifier}
}

type AddItemInput struct {
	ProductID int64
	Quantity  int64
}

// nilの項目は変えない
type UpdateItemInput struct {
	ProductID *int64
	Quantity  *int64
}

type ItemOutput struct {
	Item        model.OrderItem `json:"item"`
	TotalAmount money.Money     `json:"total_amount"`
}

func (u *OrderItemUsecase) AddItem(ctx context.Context, actor model.Identity, orderID int64, in AddItemInput) (out ItemOutput, err error) {
	defer func() { notifyResult(ctx, u.notifier, "Add order item", err) }()

	if orderID <= 0 {
		return ItemOutput{}, apperr.Validation("invalid id")
	}
	if in.ProductID <= 0 {
		return ItemOutput{}, apperr.Validation("invalid product_id")
	}
	if in.Quantity < 1 {
		return ItemOutput{}, apperr.Validation("quantity must be at least 1")
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := u.lockEditableOrder(ctx, r, actor, orderID); err != nil {
			return err
		}
		p, err := activeProduct(ctx, r, in.ProductID)
		if err != nil {
			return err
		}

		item := model.OrderItem{
			OrderID:   orderID,
			ProductID: p.ID,
			Quantity:  in.Quantity,
			UnitPrice: p.Price,
		}
		if err := recalculate(&item); err != nil {
			return err
		}
		created, err := r.OrderItems().Create(ctx, item)
		if err != nil {
			return apperr.Internal(err)
		}

		total, err := recomputeTotal(ctx, r, orderID)
		if err != nil {
			return err
		}
		out = ItemOutput{Item: created, TotalAmount: total}
		return nil
	})
	if err != nil {
		return ItemOutput{}, err
	}
	return out, nil
}

// UpdateItemは商品が変わったときだけ単価を取り直す（それ以外は追加時の単価のまま）
func (u *OrderItemUsecase) UpdateItem(ctx context.Context, actor model.Identity, orderID, itemID int64, in UpdateItemInput) (out ItemOutput, err error) {
	defer func() { notifyResult(ctx, u.notifier, "Update order item", err) }()

	if orderID <= 0 || itemID <= 0 {
		return ItemOutput{}, apperr.Validation("invalid id")
	}
	if in.ProductID == nil && in.Quantity == nil {
		return ItemOutput{}, apperr.Validation("nothing to update")
	}
	if in.Quantity != nil && *in.Quantity < 1 {
		return ItemOutput{}, apperr.Validation("quantity must be at least 1")
	}
	if in.ProductID != nil && *in.ProductID <= 0 {
		return ItemOutput{}, apperr.Validation("invalid product_id")
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := u.lockEditableOrder(ctx, r, actor, orderID); err != nil {
			return err
		}
		item, err := findItem(ctx, r, orderID, itemID)
		if err != nil {
			return err
		}

		if in.ProductID != nil && *in.ProductID != item.ProductID {
			p, err := activeProduct(ctx, r, *in.ProductID)
			if err != nil {
				return err
			}
			item.ProductID = p.ID
			item.UnitPrice = p.Price
		}
		if in.Quantity != nil {
			item.Quantity = *in.Quantity
		}
		if err := recalculate(&item); err != nil {
			return err
		}
		if err := r.OrderItems().Update(ctx, item); err != nil {
			return repoErr(err, "item")
		}

		total, err := recomputeTotal(ctx, r, orderID)
		if err != nil {
			return err
		}
		out = ItemOutput{Item: item, TotalAmount: total}
		return nil
	})
	if err != nil {
		return ItemOutput{}, err
	}
	return out, nil
}

// RemoveItemは削除後の合計を返す
func (u *OrderItemUsecase) RemoveItem(ctx context.Context, actor model.Identity, orderID, itemID int64) (total money.Money, err error) {
	defer func() { notifyResult(ctx, u.notifier, "Remove order item", err) }()

	if orderID <= 0 || itemID <= 0 {
		return money.Zero, apperr.Validation("invalid id")
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := u.lockEditableOrder(ctx, r, actor, orderID); err != nil {
			return err
		}
		if _, err := findItem(ctx, r, orderID, itemID); err != nil {
			return err
		}
		if err := r.OrderItems().Delete(ctx, itemID); err != nil {
			return repoErr(err, "item")
		}

		t, err := recomputeTotal(ctx, r, orderID)
		if err != nil {
			return err
		}
		total = t
		return nil
	})
	if err != nil {
		return money.Zero, err
	}
	return total, nil
}

func (u *OrderItemUsecase) lockEditableOrder(ctx context.Context, r repo.TxRepos, actor model.Identity, orderID int64) (model.Order, error) {
	o, err := r.Orders().FindByIDForUpdate(ctx, scope.For(actor), orderID)
	if err != nil {
		return model.Order{}, repoErr(err, "order")
	}
	if err := canEditOrder(actor, o); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// 別の注文の明細はないものとして扱う
func findItem(ctx context.Context, r repo.TxRepos, orderID, itemID int64) (model.OrderItem, error) {
	item, err := r.OrderItems().FindByID(ctx, itemID)
	if err != nil {
		return model.OrderItem{}, repoErr(err, "item")
	}
	if item.OrderID != orderID {
		return model.OrderItem{}, apperr.NotFound("item not found")
	}
	return item, nil
}

// 非公開の商品も見つからない扱い
func activeProduct(ctx context.Context, r repo.TxRepos, productID int64) (model.Product, error) {
	p, err := r.Products().FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
		return model.Product{}, apperr.NotFound("product not found")
	}
	if err != nil {
		return model.Product{}, apperr.Wrap(apperr.KindExternalFailure, "catalog lookup failed", err)
	}
	return p, nil
}

func recalculate(item *model.OrderItem) error {
	err := item.Recalculate()
	if errors.Is(err, money.ErrTooLarge) {
		return apperr.Wrap(apperr.KindValidation, "subtotal exceeds "+money.Max.String(), err)
	}
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid subtotal", err)
	}
	return nil
}

// recomputeTotalは足し算・引き算ではなく、同じTxの中で明細を全部足し直す
func recomputeTotal(ctx context.Context, r repo.TxRepos, orderID int64) (money.Money, error) {
	total, err := r.OrderItems().SumSubtotalByOrderID(ctx, orderID)
	if errors.Is(err, money.ErrTooLarge) {
		return money.Zero, apperr.Wrap(apperr.KindValidation, "total_amount exceeds "+money.Max.String(), err)
	}
	if err != nil {
		return money.Zero, apperr.Internal(err)
	}
	if err := r.Orders().UpdateTotalAmount(ctx, orderID, total); err != nil {
		return money.Zero, repoErr(err, "order")
	}
	return total, nil
}
