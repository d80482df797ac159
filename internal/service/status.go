package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SergeyBogomolovv/shop-order-service/internal/entities"
)

// UpdateStatus применяет переход статуса по таблице допустимых переходов.
// Проверка прав актора происходит на границе, до вызова сервиса.
func (s *orderService) UpdateStatus(ctx context.Context, orderID string, to entities.Status) (entities.Order, error) {
	var out entities.Order

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if !order.Status.CanTransitionTo(to) {
			return fmt.Errorf("%w: %s -> %s", entities.ErrInvalidTransition, order.Status, to)
		}

		// Отмена возвращает списанные на checkout остатки.
		// После delivered отмены нет, так что повторного инкремента не бывает.
		if to == entities.StatusCancelled {
			for _, it := range order.Items {
				if err := s.catalog.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
		}

		if err := s.repo.UpdateStatus(ctx, orderID, order.Status, to); err != nil {
			return err
		}

		order.Status = to
		order.UpdatedAt = time.Now()
		out = order
		return nil
	})
	if err != nil {
		return entities.Order{}, err
	}

	s.cache.Remove(orderID)
	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", orderID),
		slog.String("status", string(to)),
	)
	return out, nil
}

// CancelOrder - удобная обертка над переходом в cancelled.
func (s *orderService) CancelOrder(ctx context.Context, orderID string) (entities.Order, error) {
	return s.UpdateStatus(ctx, orderID, entities.StatusCancelled)
}
