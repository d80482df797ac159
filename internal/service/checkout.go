package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SergeyBogomolovv/shop-order-service/internal/entities"
)

// Checkout атомарно превращает корзину в оформленный заказ: проверяет и
// списывает остатки, записывает доставку и переводит статус в processing.
// Любая ошибка откатывает транзакцию целиком, частичных списаний не бывает.
//
// Операция идемпотентна по корзине: под блокировкой строки повторный вызов
// видит статус уже не cart и возвращает оформленный заказ без второго списания.
func (s *orderService) Checkout(ctx context.Context, ownerID string, shipping entities.Shipping) (entities.Order, error) {
	cart, err := s.repo.GetCart(ctx, ownerID)
	if err != nil {
		return entities.Order{}, err
	}

	var out entities.Order
	var committed bool

	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(ctx, cart.ID)
		if err != nil {
			return err
		}

		if order.Status != entities.StatusCart {
			// конкурентный checkout уже оформил эту корзину
			out = order
			return nil
		}

		if len(order.Items) == 0 {
			return entities.ErrEmptyCart
		}

		for _, it := range order.Items {
			ok, err := s.catalog.DecrementStock(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w for %q", entities.ErrInsufficientStock, it.Title)
			}
		}

		if err := s.repo.CreateShipping(ctx, order.ID, shipping); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, order.ID, entities.StatusCart, entities.StatusProcessing); err != nil {
			return err
		}

		order.Status = entities.StatusProcessing
		order.Shipping = &shipping
		order.UpdatedAt = time.Now()
		out = order
		committed = true
		return nil
	})
	if err != nil {
		return entities.Order{}, err
	}

	s.cache.Remove(out.ID)

	if committed {
		s.logger.InfoContext(ctx, "cart checked out",
			slog.String("order_id", out.ID),
			slog.String("owner_id", ownerID),
		)
		s.sendConfirmation(ctx, out)
	}

	return out, nil
}
