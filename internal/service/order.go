package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SergeyBogomolovv/shop-order-service/internal/entities"
	"github.com/SergeyBogomolovv/shop-order-service/pkg/trm"

	"github.com/google/uuid"
)

type OrderRepo interface {
	GetCart(ctx context.Context, ownerID string) (entities.Order, error)
	CreateCart(ctx context.Context, orderID, ownerID string) (entities.Order, error)
	GetOrderByID(ctx context.Context, orderID string) (entities.Order, error)
	GetOrderForUpdate(ctx context.Context, orderID string) (entities.Order, error)
	ListOrders(ctx context.Context, limit, offset uint64, status entities.Status, ownerID string) ([]entities.Order, error)
	CreateOrder(ctx context.Context, o entities.Order) error
	UpsertItem(ctx context.Context, orderID string, item entities.LineItem) (entities.LineItem, error)
	SetItemQuantity(ctx context.Context, orderID string, productID int64, quantity int) error
	DeleteItem(ctx context.Context, orderID string, productID int64) error
	CreateShipping(ctx context.Context, orderID string, s entities.Shipping) error
	UpdateStatus(ctx context.Context, orderID string, from, to entities.Status) error
	DeleteOrder(ctx context.Context, orderID string) error
}

// Catalog - единственная точка, через которую сервис заказов трогает остатки.
type Catalog interface {
	GetProduct(ctx context.Context, productID int64) (entities.Product, error)
	DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error)
	IncrementStock(ctx context.Context, productID int64, quantity int) error
}

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order entities.Order) error
}

type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Remove(key string)
}

type orderService struct {
	logger    *slog.Logger
	txManager trm.Manager
	repo      OrderRepo
	catalog   Catalog
	notifier  Notifier
	cache     Cache
}

func NewOrderService(
	logger *slog.Logger,
	txManager trm.Manager,
	repo OrderRepo,
	catalog Catalog,
	notifier Notifier,
	cache Cache,
) *orderService {
	return &orderService{
		logger:    logger.With(slog.String("service", "order")),
		txManager: txManager,
		repo:      repo,
		catalog:   catalog,
		notifier:  notifier,
		cache:     cache,
	}
}

type OrderedProduct struct {
	ProductID int64
	Quantity  int
}

// CreateOrder оформляет заказ авторизованного пользователя без корзины:
// заказ рождается сразу в processing, остатки списываются в той же транзакции.
func (s *orderService) CreateOrder(ctx context.Context, ownerID string, products []OrderedProduct, shipping entities.Shipping) (entities.Order, error) {
	order := entities.Order{
		ID:      uuid.NewString(),
		Status:  entities.StatusProcessing,
		OwnerID: ownerID,
	}
	return s.createCommitted(ctx, order, products, shipping)
}

// CreateGuestOrder оформляет заказ без аутентификации: владелец не задается,
// идентификация только по контактным полям. Статус cart не возникает.
func (s *orderService) CreateGuestOrder(ctx context.Context, contact entities.GuestContact, products []OrderedProduct, shipping entities.Shipping) (entities.Order, error) {
	order := entities.Order{
		ID:     uuid.NewString(),
		Status: entities.StatusProcessing,
		Guest:  &contact,
	}
	return s.createCommitted(ctx, order, products, shipping)
}

func (s *orderService) createCommitted(ctx context.Context, order entities.Order, products []OrderedProduct, shipping entities.Shipping) (entities.Order, error) {
	if len(products) == 0 {
		return entities.Order{}, entities.ErrEmptyCart
	}
	merged, err := mergeProducts(products)
	if err != nil {
		return entities.Order{}, err
	}

	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		items := make([]entities.LineItem, 0, len(merged))
		for _, p := range merged {
			product, err := s.catalog.GetProduct(ctx, p.ProductID)
			if err != nil {
				return err
			}

			ok, err := s.catalog.DecrementStock(ctx, p.ProductID, p.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w for %q", entities.ErrInsufficientStock, product.Title)
			}

			items = append(items, entities.LineItem{
				ProductID: product.ID,
				Title:     product.Title,
				Quantity:  p.Quantity,
				UnitPrice: product.Price,
			})
		}

		order.Items = items
		order.Shipping = &shipping

		if err := s.repo.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return entities.Order{}, err
	}

	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.Bool("guest", order.IsGuest()),
	)
	s.sendConfirmation(ctx, order)

	return order, nil
}

// Уведомление не входит в транзакцию: его сбой не откатывает заказ.
func (s *orderService) sendConfirmation(ctx context.Context, order entities.Order) {
	if err := s.notifier.SendOrderConfirmation(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to send order confirmation",
			slog.Any("error", err),
			slog.String("order_id", order.ID),
		)
	}
}

// mergeProducts суммирует дубли productID, чтобы не нарушить
// уникальность пары (заказ, товар).
func mergeProducts(products []OrderedProduct) ([]OrderedProduct, error) {
	index := make(map[int64]int, len(products))
	merged := make([]OrderedProduct, 0, len(products))

	for _, p := range products {
		if p.Quantity < 1 {
			return nil, entities.ErrInvalidQuantity
		}
		if i, ok := index[p.ProductID]; ok {
			merged[i].Quantity += p.Quantity
			continue
		}
		index[p.ProductID] = len(merged)
		merged = append(merged, p)
	}
	return merged, nil
}
