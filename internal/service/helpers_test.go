package service_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"

	"github.com/SergeyBogomolovv/shop-order-service/internal/entities"
	"github.com/SergeyBogomolovv/shop-order-service/pkg/trm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// txManagerStub выполняет колбэк без настоящей транзакции.
type txManagerStub struct{}

func (txManagerStub) BeginTx(ctx context.Context, _ *sql.TxOptions) (context.Context, trm.Transaction, error) {
	return ctx, nopTx{}, nil
}

func (txManagerStub) Do(ctx context.Context, cb func(ctx context.Context) error) error {
	return cb(ctx)
}

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

// fakeRepo реализует service.OrderRepo функциональными полями:
// тест задает только те операции, которые ожидает.
type fakeRepo struct {
	getCart           func(ctx context.Context, ownerID string) (entities.Order, error)
	createCart        func(ctx context.Context, orderID, ownerID string) (entities.Order, error)
	getOrderByID      func(ctx context.Context, orderID string) (entities.Order, error)
	getOrderForUpdate func(ctx context.Context, orderID string) (entities.Order, error)
	listOrders        func(ctx context.Context, limit, offset uint64, status entities.Status, ownerID string) ([]entities.Order, error)
	createOrder       func(ctx context.Context, o entities.Order) error
	upsertItem        func(ctx context.Context, orderID string, item entities.LineItem) (entities.LineItem, error)
	setItemQuantity   func(ctx context.Context, orderID string, productID int64, quantity int) error
	deleteItem        func(ctx context.Context, orderID string, productID int64) error
	createShipping    func(ctx context.Context, orderID string, s entities.Shipping) error
	updateStatus      func(ctx context.Context, orderID string, from, to entities.Status) error
	deleteOrder       func(ctx context.Context, orderID string) error
}

func (f *fakeRepo) GetCart(ctx context.Context, ownerID string) (entities.Order, error) {
	return f.getCart(ctx, ownerID)
}

func (f *fakeRepo) CreateCart(ctx context.Context, orderID, ownerID string) (entities.Order, error) {
	return f.createCart(ctx, orderID, ownerID)
}

func (f *fakeRepo) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	return f.getOrderByID(ctx, orderID)
}

func (f *fakeRepo) GetOrderForUpdate(ctx context.Context, orderID string) (entities.Order, error) {
	return f.getOrderForUpdate(ctx, orderID)
}

func (f *fakeRepo) ListOrders(ctx context.Context, limit, offset uint64, status entities.Status, ownerID string) ([]entities.Order, error) {
	return f.listOrders(ctx, limit, offset, status, ownerID)
}

func (f *fakeRepo) CreateOrder(ctx context.Context, o entities.Order) error {
	return f.createOrder(ctx, o)
}

func (f *fakeRepo) UpsertItem(ctx context.Context, orderID string, item entities.LineItem) (entities.LineItem, error) {
	return f.upsertItem(ctx, orderID, item)
}

func (f *fakeRepo) SetItemQuantity(ctx context.Context, orderID string, productID int64, quantity int) error {
	return f.setItemQuantity(ctx, orderID, productID, quantity)
}

func (f *fakeRepo) DeleteItem(ctx context.Context, orderID string, productID int64) error {
	return f.deleteItem(ctx, orderID, productID)
}

func (f *fakeRepo) CreateShipping(ctx context.Context, orderID string, s entities.Shipping) error {
	return f.createShipping(ctx, orderID, s)
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, orderID string, from, to entities.Status) error {
	return f.updateStatus(ctx, orderID, from, to)
}

func (f *fakeRepo) DeleteOrder(ctx context.Context, orderID string) error {
	return f.deleteOrder(ctx, orderID)
}

type fakeCatalog struct {
	getProduct     func(ctx context.Context, productID int64) (entities.Product, error)
	decrementStock func(ctx context.Context, productID int64, quantity int) (bool, error)
	incrementStock func(ctx context.Context, productID int64, quantity int) error
}

func (f *fakeCatalog) GetProduct(ctx context.Context, productID int64) (entities.Product, error) {
	return f.getProduct(ctx, productID)
}

func (f *fakeCatalog) DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	return f.decrementStock(ctx, productID, quantity)
}

func (f *fakeCatalog) IncrementStock(ctx context.Context, productID int64, quantity int) error {
	return f.incrementStock(ctx, productID, quantity)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []entities.Order
	err  error
}

func (f *fakeNotifier) SendOrderConfirmation(_ context.Context, order entities.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, order)
	return f.err
}

func (f *fakeNotifier) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	removed []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

func (f *fakeCache) Set(key string, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
}

func (f *fakeCache) Remove(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	f.removed = append(f.removed, key)
}
