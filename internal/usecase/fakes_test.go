package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"backoffice/internal/domain/model"
	"backoffice/internal/domain/money"
	"backoffice/internal/domain/scope"
	repo "backoffice/internal/repository"
	"backoffice/internal/usecase"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / Notifier / FileStore mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) Notify(ctx context.Context, kind usecase.NotifyKind, title string, body string) {
	m.Called(ctx, kind, title, body)
}

type FileStoreMock struct{ mock.Mock }

func (m *FileStoreMock) Store(ctx context.Context, body io.Reader, name string, directory string) (string, error) {
	args := m.Called(ctx, body, name, directory)
	return args.String(0), args.Error(1)
}

func (m *FileStoreMock) DefaultURL(kind string) string {
	return "/static/default-" + kind + ".png"
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDs struct{ n int }

func (g *seqIDs) NewID() string {
	g.n++
	return fmt.Sprintf("evt-%d", g.n)
}

// =====================
// in-memory store（TxReposの全repoを持つ）
// =====================

type memDB struct {
	orders       map[int64]model.Order
	items        map[int64]model.OrderItem
	payments     map[int64]model.Payment
	paymentTypes map[int64]model.PaymentType
	products     map[int64]model.Product
	audits       []model.AuditLog
	events       []model.OutboxEvent
	nextID       int64
}

func newMemDB() *memDB {
	return &memDB{
		orders:       map[int64]model.Order{},
		items:        map[int64]model.OrderItem{},
		payments:     map[int64]model.Payment{},
		paymentTypes: map[int64]model.PaymentType{},
		products:     map[int64]model.Product{},
		nextID:       100,
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) addProduct(id, sellerID int64, price string) model.Product {
	p := model.Product{
		ID:       id,
		SellerID: sellerID,
		Name:     gofakeit.ProductName(),
		Slug:     fmt.Sprintf("%s-%d", gofakeit.LetterN(8), id),
		Price:    money.MustParse(price),
		Stock:    10,
		IsActive: true,
	}
	db.products[id] = p
	return p
}

func (db *memDB) addOrder(id, buyerID int64, status model.OrderStatus) model.Order {
	o := model.Order{
		ID:          id,
		BuyerID:     buyerID,
		OrderNumber: fmt.Sprintf("TRX-20261019-%010d", id),
		Status:      status,
		TotalAmount: money.Zero,
	}
	db.orders[id] = o
	return o
}

func (db *memDB) addPaymentType(id int64, requiresProof bool) model.PaymentType {
	pt := model.PaymentType{ID: id, Name: gofakeit.Company(), Code: fmt.Sprintf("PT%d", id), IsActive: true, RequiresProof: requiresProof}
	db.paymentTypes[id] = pt
	return pt
}

func (db *memDB) sellersOf(orderID int64) []int64 {
	var out []int64
	for _, it := range db.items {
		if it.OrderID == orderID {
			out = append(out, db.products[it.ProductID].SellerID)
		}
	}
	return out
}

func (db *memDB) eventTypes() []string {
	out := make([]string, 0, len(db.events))
	for _, e := range db.events {
		out = append(out, e.Type)
	}
	return out
}

// visibleはscopeOrdersと同じ条件（buyer本人か、自分の商品を含む注文）
func (db *memDB) visible(s scope.Scope, o model.Order) bool {
	if s.All {
		return true
	}
	if s.BuyerID != nil && o.BuyerID == *s.BuyerID {
		return true
	}
	if s.SellerID != nil {
		for _, id := range db.sellersOf(o.ID) {
			if id == *s.SellerID {
				return true
			}
		}
	}
	return false
}

func (db *memDB) repos() repo.TxRepos { return &memRepos{db: db} }

type memRepos struct{ db *memDB }

func (r *memRepos) Orders() repo.OrderRepository             { return &memOrders{r.db} }
func (r *memRepos) OrderItems() repo.OrderItemRepository     { return &memItems{r.db} }
func (r *memRepos) Payments() repo.PaymentRepository         { return &memPayments{r.db} }
func (r *memRepos) PaymentTypes() repo.PaymentTypeRepository { return &memPaymentTypes{r.db} }
func (r *memRepos) Products() repo.ProductRepository         { return &memProducts{r.db} }
func (r *memRepos) AuditLogs() repo.AuditLogRepository       { return &memAudits{r.db} }
func (r *memRepos) Outbox() repo.OutboxRepository            { return &memOutbox{r.db} }

type memOrders struct{ db *memDB }

func (m *memOrders) FindByID(ctx context.Context, s scope.Scope, orderID int64) (model.Order, error) {
	o, ok := m.db.orders[orderID]
	if !ok || !m.db.visible(s, o) {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (m *memOrders) FindByIDForUpdate(ctx context.Context, s scope.Scope, orderID int64) (model.Order, error) {
	return m.FindByID(ctx, s, orderID)
}

func (m *memOrders) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	for _, o := range m.db.orders {
		if o.OrderNumber == orderNumber {
			return true, nil
		}
	}
	return false, nil
}

func (m *memOrders) Create(ctx context.Context, order model.Order) (model.Order, error) {
	if found, _ := m.ExistsByOrderNumber(ctx, order.OrderNumber); found {
		return model.Order{}, repo.ErrDuplicate
	}
	order.ID = m.db.id()
	m.db.orders[order.ID] = order
	return order, nil
}

func (m *memOrders) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus, trackingNumber *string) error {
	o, ok := m.db.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	if trackingNumber != nil {
		o.ShippingTrackingNumber = trackingNumber
	}
	m.db.orders[orderID] = o
	return nil
}

func (m *memOrders) UpdateTotalAmount(ctx context.Context, orderID int64, total money.Money) error {
	o, ok := m.db.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.TotalAmount = total
	m.db.orders[orderID] = o
	return nil
}

func (m *memOrders) UpdateShipping(ctx context.Context, orderID int64, u repo.ShippingUpdate) error {
	o, ok := m.db.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.ShippingAddressID = u.AddressID
	o.ShippingCourierID = u.CourierID
	o.ShippingCost = u.Cost
	m.db.orders[orderID] = o
	return nil
}

func (m *memOrders) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	out := make([]model.Order, 0, len(m.db.orders))
	for _, o := range m.db.orders {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.BuyerID != nil && o.BuyerID != *f.BuyerID {
			continue
		}
		if !m.db.visible(f.Scope, o) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

type memItems struct{ db *memDB }

func (m *memItems) Create(ctx context.Context, item model.OrderItem) (model.OrderItem, error) {
	item.ID = m.db.id()
	m.db.items[item.ID] = item
	return item, nil
}

func (m *memItems) FindByID(ctx context.Context, itemID int64) (model.OrderItem, error) {
	it, ok := m.db.items[itemID]
	if !ok {
		return model.OrderItem{}, repo.ErrNotFound
	}
	return it, nil
}

func (m *memItems) Update(ctx context.Context, item model.OrderItem) error {
	if _, ok := m.db.items[item.ID]; !ok {
		return repo.ErrNotFound
	}
	m.db.items[item.ID] = item
	return nil
}

func (m *memItems) Delete(ctx context.Context, itemID int64) error {
	if _, ok := m.db.items[itemID]; !ok {
		return repo.ErrNotFound
	}
	delete(m.db.items, itemID)
	return nil
}

func (m *memItems) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	out := []model.OrderItem{}
	for _, it := range m.db.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memItems) SumSubtotalByOrderID(ctx context.Context, orderID int64) (money.Money, error) {
	items, _ := m.ListByOrderID(ctx, orderID)
	total := money.Zero
	for _, it := range items {
		sum, err := total.AddChecked(it.Subtotal)
		if err != nil {
			return money.Zero, err
		}
		total = sum
	}
	return total, nil
}

type memPayments struct{ db *memDB }

func (m *memPayments) FindByID(ctx context.Context, s scope.Scope, paymentID int64) (model.Payment, error) {
	p, ok := m.db.payments[paymentID]
	if !ok {
		return model.Payment{}, repo.ErrNotFound
	}
	if _, err := (&memOrders{m.db}).FindByID(ctx, s, p.OrderID); err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

func (m *memPayments) FindByIDForUpdate(ctx context.Context, s scope.Scope, paymentID int64) (model.Payment, error) {
	return m.FindByID(ctx, s, paymentID)
}

func (m *memPayments) ListByOrderID(ctx context.Context, orderID int64) ([]model.Payment, error) {
	out := []model.Payment{}
	for _, p := range m.db.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memPayments) Create(ctx context.Context, p model.Payment) (model.Payment, error) {
	p.ID = m.db.id()
	m.db.payments[p.ID] = p
	return p, nil
}

func (m *memPayments) UpdateStatus(ctx context.Context, paymentID int64, status model.PaymentStatus, paidAt *time.Time) error {
	p, ok := m.db.payments[paymentID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Status = status
	p.PaidAt = paidAt
	m.db.payments[paymentID] = p
	return nil
}

func (m *memPayments) Delete(ctx context.Context, paymentID int64) error {
	if _, ok := m.db.payments[paymentID]; !ok {
		return repo.ErrNotFound
	}
	delete(m.db.payments, paymentID)
	return nil
}

func (m *memPayments) List(ctx context.Context, f repo.PaymentListFilter) ([]model.Payment, int64, error) {
	out := []model.Payment{}
	for _, p := range m.db.payments {
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		if f.OrderID != nil && p.OrderID != *f.OrderID {
			continue
		}
		if f.PaymentTypeID != nil && p.PaymentTypeID != *f.PaymentTypeID {
			continue
		}
		if _, err := m.FindByID(ctx, f.Scope, p.ID); err != nil {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

type memPaymentTypes struct{ db *memDB }

func (m *memPaymentTypes) FindByID(ctx context.Context, id int64) (model.PaymentType, error) {
	pt, ok := m.db.paymentTypes[id]
	if !ok {
		return model.PaymentType{}, repo.ErrNotFound
	}
	return pt, nil
}

type memProducts struct{ db *memDB }

func (m *memProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := m.db.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

type memAudits struct{ db *memDB }

func (m *memAudits) Create(ctx context.Context, log model.AuditLog) error {
	log.ID = m.db.id()
	m.db.audits = append(m.db.audits, log)
	return nil
}

func (m *memAudits) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	return m.db.audits, nil
}

type memOutbox struct{ db *memDB }

func (m *memOutbox) Append(ctx context.Context, ev model.OutboxEvent) error {
	ev.ID = m.db.id()
	m.db.events = append(m.db.events, ev)
	return nil
}

// =====================
// helpers
// =====================

var (
	testNow = time.Date(2026, 10, 19, 10, 30, 0, 123456000, time.UTC)

	admin  = model.NewIdentity(1, model.RoleAdmin)
	seller = model.NewIdentity(2, model.RoleSeller)
	buyer  = model.NewIdentity(3, model.RoleBuyer)
	other  = model.NewIdentity(4, model.RoleBuyer)
)

func newTx(db *memDB) *TxManagerMock {
	tx := &TxManagerMock{Repos: db.repos()}
	tx.On("WithinTx", mock.Anything).Return(nil)
	return tx
}

func newNotifier() *NotifierMock {
	n := new(NotifierMock)
	n.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	return n
}
