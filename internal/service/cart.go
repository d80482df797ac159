package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SergeyBogomolovv/shop-order-service/internal/entities"

	"github.com/google/uuid"
)

// GetOrCreateCart возвращает корзину владельца, лениво создавая пустую.
// Гонка двух конкурентных созданий разрешается уникальным индексом:
// проигравший повторяет запрос как чтение.
func (s *orderService) GetOrCreateCart(ctx context.Context, ownerID string) (entities.Order, error) {
	cart, err := s.repo.GetCart(ctx, ownerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, entities.ErrOrderNotFound) {
		return entities.Order{}, err
	}

	cart, err = s.repo.CreateCart(ctx, uuid.NewString(), ownerID)
	if errors.Is(err, entities.ErrCartExists) {
		return s.repo.GetCart(ctx, ownerID)
	}
	if err != nil {
		return entities.Order{}, err
	}

	s.logger.DebugContext(ctx, "cart created",
		slog.String("order_id", cart.ID),
		slog.String("owner_id", ownerID),
	)
	return cart, nil
}

// AddItem добавляет товар в корзину или увеличивает количество уже лежащего.
// Цена снимается с товара в момент добавления. Проверка остатка здесь
// только консультативная, решающая проверка происходит на checkout.
func (s *orderService) AddItem(ctx context.Context, ownerID string, productID int64, quantity int) (entities.LineItem, error) {
	if quantity < 1 {
		return entities.LineItem{}, entities.ErrInvalidQuantity
	}

	cart, err := s.GetOrCreateCart(ctx, ownerID)
	if err != nil {
		return entities.LineItem{}, err
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return entities.LineItem{}, err
	}
	if product.Stock < quantity {
		return entities.LineItem{}, fmt.Errorf("%w for %q", entities.ErrInsufficientStock, product.Title)
	}

	var item entities.LineItem
	err = s.mutateCart(ctx, cart.ID, func(ctx context.Context) error {
		var err error
		item, err = s.repo.UpsertItem(ctx, cart.ID, entities.LineItem{
			ProductID: product.ID,
			Title:     product.Title,
			Quantity:  quantity,
			UnitPrice: product.Price,
		})
		return err
	})
	if err != nil {
		return entities.LineItem{}, err
	}
	return item, nil
}

// RemoveItem удаляет позицию. Отсутствие позиции - ошибка, а не no-op:
// так расхождение состояния клиента и сервера не остается незамеченным.
func (s *orderService) RemoveItem(ctx context.Context, ownerID string, productID int64) error {
	cart, err := s.repo.GetCart(ctx, ownerID)
	if err != nil {
		return err
	}
	return s.mutateCart(ctx, cart.ID, func(ctx context.Context) error {
		return s.repo.DeleteItem(ctx, cart.ID, productID)
	})
}

// SetQuantity выставляет абсолютное количество. Ноль не принимается,
// для удаления есть RemoveItem.
func (s *orderService) SetQuantity(ctx context.Context, ownerID string, productID int64, quantity int) error {
	if quantity < 1 {
		return entities.ErrInvalidQuantity
	}
	cart, err := s.repo.GetCart(ctx, ownerID)
	if err != nil {
		return err
	}
	return s.mutateCart(ctx, cart.ID, func(ctx context.Context) error {
		return s.repo.SetItemQuantity(ctx, cart.ID, productID, quantity)
	})
}

// mutateCart выполняет мутацию позиций под блокировкой строки заказа.
// Если корзина успела уйти в checkout, любая мутация - конфликт.
func (s *orderService) mutateCart(ctx context.Context, cartID string, fn func(ctx context.Context) error) error {
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(ctx, cartID)
		if err != nil {
			return err
		}
		if order.Status != entities.StatusCart {
			return fmt.Errorf("%w: status is %s", entities.ErrNotCart, order.Status)
		}
		return fn(ctx)
	})
	if err != nil {
		return err
	}

	s.cache.Remove(cartID)
	return nil
}
