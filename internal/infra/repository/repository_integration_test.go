package repository_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"backoffice/internal/domain/model"
	"backoffice/internal/domain/money"
	"backoffice/internal/domain/scope"
	"backoffice/internal/infra/db"
	infraRepo "backoffice/internal/infra/repository"
	repo "backoffice/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

type repositorySuite struct {
	suite.Suite

	container *postgres.PostgresContainer
	db        *gorm.DB
	log       *slog.Logger

	orders   *infraRepo.OrderGormRepository
	items    *infraRepo.OrderItemGormRepository
	payments *infraRepo.PaymentGormRepository
	outbox   *infraRepo.OutboxGormRepository
	audits   *infraRepo.AuditLogGormRepository
	tx       *infraRepo.TxManagerGorm
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	suite.Run(t, new(repositorySuite))
}

func (s *repositorySuite) SetupSuite() {
	ctx := context.Background()

	var err error
	s.container, err = postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("backoffice"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)

	dsn, err := s.container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.db, err = db.Connect(dsn, false)
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate(s.db))

	s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.orders = infraRepo.NewOrderGormRepository(s.db)
	s.items = infraRepo.NewOrderItemGormRepository(s.db)
	s.payments = infraRepo.NewPaymentGormRepository(s.db)
	s.outbox = infraRepo.NewOutboxGormRepository(s.log, s.db)
	s.audits = infraRepo.NewAuditLogGormRepository(s.db)
	s.tx = infraRepo.NewTxManagerGorm(s.log, s.db)
}

func (s *repositorySuite) TearDownSuite() {
	ctx := context.Background()
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(ctx))
	}
}

// =====================
// fixtures
// =====================

func (s *repositorySuite) newID() int64 {
	return int64(gofakeit.Number(1_000, 1_000_000_000))
}

func (s *repositorySuite) createProduct(sellerID int64, price string) model.Product {
	p := model.Product{
		SellerID:   sellerID,
		CategoryID: 1,
		Name:       gofakeit.ProductName(),
		Slug:       uuid.NewString(),
		Price:      money.MustParse(price),
		IsActive:   true,
	}
	s.Require().NoError(s.db.Create(&p).Error)
	return p
}

func (s *repositorySuite) createOrder(buyerID int64) model.Order {
	o, err := s.orders.Create(context.Background(), model.Order{
		BuyerID:     buyerID,
		OrderNumber: "TRX-" + gofakeit.LetterN(16),
		Status:      model.OrderStatusPending,
		TotalAmount: money.Zero,
	})
	s.Require().NoError(err)
	return o
}

func (s *repositorySuite) addItem(orderID int64, p model.Product, qty int64) model.OrderItem {
	it := model.OrderItem{OrderID: orderID, ProductID: p.ID, Quantity: qty, UnitPrice: p.Price}
	s.Require().NoError(it.Recalculate())
	created, err := s.items.Create(context.Background(), it)
	s.Require().NoError(err)
	return created
}

// =====================
// tests
// =====================

func (s *repositorySuite) TestOrderScope() {
	ctx := context.Background()
	buyerA, buyerB, sellerID := s.newID(), s.newID(), s.newID()

	product := s.createProduct(sellerID, "10000")
	mine := s.createOrder(buyerA)
	s.addItem(mine.ID, product, 1)
	other := s.createOrder(buyerB)

	tests := []struct {
		name    string
		scope   scope.Scope
		orderID int64
		wantErr error
	}{
		{name: "admin sees all", scope: scope.Scope{All: true}, orderID: other.ID},
		{name: "buyer sees own", scope: scope.Scope{BuyerID: &buyerA}, orderID: mine.ID},
		{name: "buyer cannot see other", scope: scope.Scope{BuyerID: &buyerA}, orderID: other.ID, wantErr: repo.ErrNotFound},
		{name: "seller sees order with own product", scope: scope.Scope{SellerID: &sellerID}, orderID: mine.ID},
		{name: "seller cannot see unrelated", scope: scope.Scope{SellerID: &sellerID}, orderID: other.ID, wantErr: repo.ErrNotFound},
		{name: "seller and buyer union", scope: scope.Scope{SellerID: &sellerID, BuyerID: &buyerB}, orderID: other.ID},
		{name: "empty scope", scope: scope.Scope{}, orderID: mine.ID, wantErr: repo.ErrNotFound},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			got, err := s.orders.FindByID(ctx, tt.scope, tt.orderID)
			if tt.wantErr != nil {
				s.ErrorIs(err, tt.wantErr)
				return
			}
			s.Require().NoError(err)
			s.Equal(tt.orderID, got.ID)
		})
	}

	s.Run("list with seller scope", func() {
		orders, total, err := s.orders.List(ctx, repo.OrderListFilter{Scope: scope.Scope{SellerID: &sellerID}})
		s.Require().NoError(err)
		s.EqualValues(1, total)
		s.Require().Len(orders, 1)
		s.Equal(mine.ID, orders[0].ID)
	})
}

func (s *repositorySuite) TestForUpdateInsideTx() {
	ctx := context.Background()
	buyerID := s.newID()
	o := s.createOrder(buyerID)

	err := s.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		locked, err := r.Orders().FindByIDForUpdate(ctx, scope.Scope{BuyerID: &buyerID}, o.ID)
		if err != nil {
			return err
		}
		return r.Orders().UpdateStatus(ctx, locked.ID, model.OrderStatusCancelled, nil)
	})
	s.Require().NoError(err)

	got, err := s.orders.FindByID(ctx, scope.Scope{All: true}, o.ID)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusCancelled, got.Status)
}

func (s *repositorySuite) TestTxRollback() {
	ctx := context.Background()
	o := s.createOrder(s.newID())
	boom := errors.New("boom")

	err := s.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Orders().UpdateTotalAmount(ctx, o.ID, money.MustParse("999")); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.orders.FindByID(ctx, scope.Scope{All: true}, o.ID)
	s.Require().NoError(err)
	s.True(got.TotalAmount.IsZero())
}

func (s *repositorySuite) TestSumSubtotal() {
	ctx := context.Background()
	o := s.createOrder(s.newID())
	p1 := s.createProduct(s.newID(), "10000")
	p2 := s.createProduct(s.newID(), "5000")

	total, err := s.items.SumSubtotalByOrderID(ctx, o.ID)
	s.Require().NoError(err)
	s.True(total.IsZero())

	first := s.addItem(o.ID, p1, 2)
	s.addItem(o.ID, p2, 1)

	total, err = s.items.SumSubtotalByOrderID(ctx, o.ID)
	s.Require().NoError(err)
	s.True(total.Equal(money.MustParse("25000")), total.String())

	s.Require().NoError(s.items.Delete(ctx, first.ID))
	total, err = s.items.SumSubtotalByOrderID(ctx, o.ID)
	s.Require().NoError(err)
	s.True(total.Equal(money.MustParse("5000")), total.String())

	s.ErrorIs(s.items.Delete(ctx, first.ID), repo.ErrNotFound)
}

// 明細ごとには入っても、合計がnumeric(14,2)を超えたらErrTooLarge
func (s *repositorySuite) TestSumSubtotalOverMax() {
	ctx := context.Background()
	o := s.createOrder(s.newID())
	p := s.createProduct(s.newID(), "600000000000.00")
	s.addItem(o.ID, p, 1)
	s.addItem(o.ID, p, 1)

	_, err := s.items.SumSubtotalByOrderID(ctx, o.ID)
	s.ErrorIs(err, money.ErrTooLarge)
}

func (s *repositorySuite) TestDuplicateOrderNumber() {
	ctx := context.Background()
	o := s.createOrder(s.newID())

	exists, err := s.orders.ExistsByOrderNumber(ctx, o.OrderNumber)
	s.Require().NoError(err)
	s.True(exists)

	_, err = s.orders.Create(ctx, model.Order{BuyerID: s.newID(), OrderNumber: o.OrderNumber, Status: model.OrderStatusPending})
	s.ErrorIs(err, repo.ErrDuplicate)
}

func (s *repositorySuite) TestPaymentScopeAndHistory() {
	ctx := context.Background()
	buyerID := s.newID()
	o := s.createOrder(buyerID)
	other := s.createOrder(s.newID())

	pt := model.PaymentType{Name: gofakeit.Company(), Code: uuid.NewString()[:8], IsActive: true}
	s.Require().NoError(s.db.Create(&pt).Error)

	first, err := s.payments.Create(ctx, model.Payment{OrderID: o.ID, PaymentTypeID: pt.ID, Amount: money.MustParse("20000"), Status: model.PaymentStatusFailed})
	s.Require().NoError(err)
	second, err := s.payments.Create(ctx, model.Payment{OrderID: o.ID, PaymentTypeID: pt.ID, Amount: money.MustParse("20000"), Status: model.PaymentStatusPending})
	s.Require().NoError(err)
	_, err = s.payments.Create(ctx, model.Payment{OrderID: other.ID, PaymentTypeID: pt.ID, Amount: money.MustParse("1"), Status: model.PaymentStatusPending})
	s.Require().NoError(err)

	history, err := s.payments.ListByOrderID(ctx, o.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(first.ID, history[0].ID)
	s.Equal(second.ID, history[1].ID)

	list, total, err := s.payments.List(ctx, repo.PaymentListFilter{Scope: scope.Scope{BuyerID: &buyerID}})
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Len(list, 2)

	_, err = s.payments.FindByID(ctx, scope.Scope{BuyerID: &buyerID}, list[0].ID)
	s.NoError(err)

	pt2 := model.PaymentType{Name: gofakeit.Company(), Code: uuid.NewString()[:8], IsActive: true}
	s.Require().NoError(s.db.Create(&pt2).Error)
	third, err := s.payments.Create(ctx, model.Payment{OrderID: o.ID, PaymentTypeID: pt2.ID, Amount: money.MustParse("5"), Status: model.PaymentStatusFailed})
	s.Require().NoError(err)

	list, total, err = s.payments.List(ctx, repo.PaymentListFilter{Scope: scope.Scope{All: true}, PaymentTypeID: &pt2.ID})
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Require().Len(list, 1)
	s.Equal(third.ID, list[0].ID)

	paidAt := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	s.Require().NoError(s.payments.UpdateStatus(ctx, second.ID, model.PaymentStatusPaid, &paidAt))
	got, err := s.payments.FindByID(ctx, scope.Scope{All: true}, second.ID)
	s.Require().NoError(err)
	s.Equal(model.PaymentStatusPaid, got.Status)
	s.Require().NotNil(got.PaidAt)
	s.True(got.PaidAt.Equal(paidAt))
}

func (s *repositorySuite) TestOutboxLockBatch() {
	ctx := context.Background()
	s.Require().NoError(s.db.Exec("DELETE FROM outbox").Error)

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.outbox.Append(ctx, model.OutboxEvent{
			EventID:       uuid.NewString(),
			AggregateType: "order",
			AggregateID:   "1",
			Type:          model.EventOrderStatusChanged,
			Payload:       []byte(`{"order_id":1}`),
		}))
	}

	first, err := s.outbox.LockBatch(ctx, "relay-a", 2, time.Minute)
	s.Require().NoError(err)
	s.Require().Len(first, 2)

	// 残りの1件だけ
	second, err := s.outbox.LockBatch(ctx, "relay-b", 10, time.Minute)
	s.Require().NoError(err)
	s.Require().Len(second, 1)

	none, err := s.outbox.LockBatch(ctx, "relay-c", 10, time.Minute)
	s.Require().NoError(err)
	s.Empty(none)

	s.Require().NoError(s.outbox.MarkSent(ctx, []int64{first[0].ID, first[1].ID}))
	s.Require().NoError(s.outbox.MarkFailed(ctx, second[0].ID, "broker down", 1))

	var statuses []model.OutboxStatus
	s.Require().NoError(s.db.Model(&model.OutboxEvent{}).Order("id").Pluck("status", &statuses).Error)
	s.Equal([]model.OutboxStatus{model.OutboxStatusSent, model.OutboxStatusSent, model.OutboxStatusFailed}, statuses)
}

func (s *repositorySuite) TestOutboxRetryReturnsToPending() {
	ctx := context.Background()
	s.Require().NoError(s.db.Exec("DELETE FROM outbox").Error)

	s.Require().NoError(s.outbox.Append(ctx, model.OutboxEvent{
		EventID:       uuid.NewString(),
		AggregateType: "payment",
		AggregateID:   "9",
		Type:          model.EventPaymentCreated,
		Payload:       []byte(`{}`),
	}))

	locked, err := s.outbox.LockBatch(ctx, "relay-a", 10, time.Minute)
	s.Require().NoError(err)
	s.Require().Len(locked, 1)
	s.Require().NoError(s.outbox.MarkFailed(ctx, locked[0].ID, "timeout", 5))

	again, err := s.outbox.LockBatch(ctx, "relay-a", 10, time.Minute)
	s.Require().NoError(err)
	s.Require().Len(again, 1)
	assert.Equal(s.T(), 1, again[0].RetryCount)
	require.NotNil(s.T(), again[0].LastError)
	assert.Equal(s.T(), "timeout", *again[0].LastError)
}

// 支払いを消しても注文の履歴として引ける
func (s *repositorySuite) TestAuditOrderHistory() {
	ctx := context.Background()
	orderID := s.newID()
	actor := s.newID()
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	entries := []model.AuditLog{
		{ActorUserID: actor, Action: model.AuditActionCreatePayment, ResourceType: model.AuditResourcePayment, ResourceID: 501, OrderID: orderID, CreatedAt: at},
		{ActorUserID: actor, Action: model.AuditActionDeletePayment, ResourceType: model.AuditResourcePayment, ResourceID: 501, OrderID: orderID, CreatedAt: at.Add(time.Minute)},
		{ActorUserID: actor, Action: model.AuditActionUpdateOrderStatus, ResourceType: model.AuditResourceOrder, ResourceID: orderID, OrderID: orderID, CreatedAt: at.Add(2 * time.Minute)},
		{ActorUserID: actor, Action: model.AuditActionCreatePayment, ResourceType: model.AuditResourcePayment, ResourceID: 502, OrderID: orderID + 1, CreatedAt: at},
	}
	for _, e := range entries {
		s.Require().NoError(s.audits.Create(ctx, e))
	}

	logs, err := s.audits.List(ctx, repo.AuditLogFilter{OrderID: &orderID})
	s.Require().NoError(err)
	s.Require().Len(logs, 3)
	s.Equal(model.AuditActionUpdateOrderStatus, logs[0].Action)

	logs, err = s.audits.List(ctx, repo.AuditLogFilter{
		OrderID: &orderID,
		Actions: []model.AuditAction{model.AuditActionCreatePayment, model.AuditActionDeletePayment, model.AuditActionCreatePayment},
	})
	s.Require().NoError(err)
	s.Len(logs, 2)

	rt := model.AuditResourcePayment
	logs, err = s.audits.List(ctx, repo.AuditLogFilter{ActorUserID: &actor, ResourceType: &rt, Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal(model.AuditActionDeletePayment, logs[0].Action)
}
