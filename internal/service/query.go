package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/SergeyBogomolovv/shop-order-service/internal/entities"
	"github.com/SergeyBogomolovv/shop-order-service/pkg/utils"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

var readRetry = utils.RetryConfig{
	InitialDelay: 100 * time.Millisecond,
	MaxAttempts:  5,
	Multiplier:   2,
}

// ListOrders отдает страницу заказов. Безлимитных выборок нет:
// нулевой лимит заменяется дефолтным, верхняя граница ограничена.
func (s *orderService) ListOrders(ctx context.Context, limit, offset uint64, status entities.Status, ownerID string) ([]entities.Order, error) {
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	var orders []entities.Order
	fn := func() error {
		var err error
		orders, err = s.repo.ListOrders(ctx, limit, offset, status, ownerID)
		return err
	}
	if err := utils.Retry(readRetry, fn); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	if data, ok := s.cache.Get(orderID); ok {
		var order entities.Order
		if err := order.Unmarshal(data); err != nil {
			s.logger.Error("failed to unmarshal order", slog.String("order_id", orderID), slog.Any("error", err))
			return entities.Order{}, err
		}
		return order, nil
	}

	var order entities.Order
	fn := func() error {
		var err error
		order, err = s.repo.GetOrderByID(ctx, orderID)
		return err
	}
	if err := utils.Retry(readRetry, fn, entities.ErrOrderNotFound); err != nil {
		return entities.Order{}, err
	}

	data, err := order.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal order", slog.String("order_id", orderID), slog.Any("error", err))
		return entities.Order{}, err
	}
	s.cache.Set(orderID, data)
	return order, nil
}

// RemoveOrder - административное жесткое удаление агрегата.
// Остатки не возвращаются: это инструмент коррекции, а не замена отмене.
func (s *orderService) RemoveOrder(ctx context.Context, orderID string) error {
	if err := s.repo.DeleteOrder(ctx, orderID); err != nil {
		return err
	}
	s.cache.Remove(orderID)
	s.logger.InfoContext(ctx, "order removed", slog.String("order_id", orderID))
	return nil
}
