package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SergeyBogomolovv/shop-order-service/internal/entities"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

const uniqueViolation = "23505"

var orderColumns = []string{
	"order_id", "status", "owner_id",
	"customer_email", "customer_name", "customer_phone",
	"created_at", "updated_at",
}

var itemColumns = []string{"order_id", "product_id", "title", "quantity", "unit_price"}

var shippingColumns = []string{"order_id", "name", "phone", "address", "city", "zip", "country"}

type ordersRepo struct {
	pgBase
	qb sq.StatementBuilderType
}

func NewOrdersRepo(db *sqlx.DB) *ordersRepo {
	return &ordersRepo{
		pgBase: pgBase{db: db},
		qb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CreateCart создает пустую корзину. Частичный уникальный индекс по владельцу
// гарантирует не больше одной корзины, при гонке возвращается ErrCartExists.
func (r *ordersRepo) CreateCart(ctx context.Context, orderID, ownerID string) (entities.Order, error) {
	query, args := r.qb.Insert("orders").
		Columns("order_id", "status", "owner_id").
		Values(orderID, entities.StatusCart, ownerID).
		Suffix("RETURNING " + joinColumns(orderColumns)).
		MustSql()

	var order Order
	err := r.getContext(ctx, &order, query, args...)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return entities.Order{}, entities.ErrCartExists
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to create cart: %w", err)
	}

	return OrderToEntity(order, nil, nil), nil
}

// GetCart возвращает корзину владельца вместе с позициями.
func (r *ordersRepo) GetCart(ctx context.Context, ownerID string) (entities.Order, error) {
	query, args := r.qb.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"owner_id": ownerID, "status": entities.StatusCart}).
		MustSql()

	var order Order
	err := r.getContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to get cart: %w", err)
	}

	items, err := r.orderItems(ctx, order.ID)
	if err != nil {
		return entities.Order{}, err
	}

	return OrderToEntity(order, items, nil), nil
}

func (r *ordersRepo) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	return r.getOrder(ctx, orderID, false)
}

// GetOrderForUpdate блокирует строку заказа до конца транзакции.
func (r *ordersRepo) GetOrderForUpdate(ctx context.Context, orderID string) (entities.Order, error) {
	return r.getOrder(ctx, orderID, true)
}

func (r *ordersRepo) getOrder(ctx context.Context, orderID string, forUpdate bool) (entities.Order, error) {
	q := r.qb.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"order_id": orderID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	query, args := q.MustSql()

	var order Order
	err := r.getContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.orderItems(ctx, orderID)
	if err != nil {
		return entities.Order{}, err
	}

	shipping, err := r.orderShipping(ctx, orderID)
	if err != nil {
		return entities.Order{}, err
	}

	return OrderToEntity(order, items, shipping), nil
}

// ListOrders возвращает страницу заказов. Пустой status или ownerID отключает фильтр.
func (r *ordersRepo) ListOrders(ctx context.Context, limit, offset uint64, status entities.Status, ownerID string) ([]entities.Order, error) {
	q := r.qb.Select(orderColumns...).
		From("orders").
		OrderBy("created_at DESC").
		Limit(limit).
		Offset(offset)
	if status != "" {
		q = q.Where(sq.Eq{"status": status})
	}
	if ownerID != "" {
		q = q.Where(sq.Eq{"owner_id": ownerID})
	}
	query, args := q.MustSql()

	var orders []Order
	if err := r.selectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select orders: %w", err)
	}

	if len(orders) == 0 {
		return []entities.Order{}, nil
	}

	ids := make([]string, len(orders))
	for i, order := range orders {
		ids[i] = order.ID
	}

	// Позиции и доставки загружаем параллельно
	var items []OrderItem
	var shippings []Shipping

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query, args := r.qb.Select(itemColumns...).
			From("order_items").
			Where(sq.Eq{"order_id": ids}).
			MustSql()
		if err := r.selectContext(gctx, &items, query, args...); err != nil {
			return fmt.Errorf("failed to select order items: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		query, args := r.qb.Select(shippingColumns...).
			From("shippings").
			Where(sq.Eq{"order_id": ids}).
			MustSql()
		if err := r.selectContext(gctx, &shippings, query, args...); err != nil {
			return fmt.Errorf("failed to select shippings: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	itemsMap := make(map[string][]OrderItem, len(ids))
	for _, item := range items {
		itemsMap[item.OrderID] = append(itemsMap[item.OrderID], item)
	}
	shippingMap := make(map[string]Shipping, len(shippings))
	for _, s := range shippings {
		shippingMap[s.OrderID] = s
	}

	result := make([]entities.Order, 0, len(orders))
	for _, order := range orders {
		var shipping *Shipping
		if s, ok := shippingMap[order.ID]; ok {
			shipping = &s
		}
		result = append(result, OrderToEntity(order, itemsMap[order.ID], shipping))
	}

	return result, nil
}

// CreateOrder сохраняет заказ целиком: строку заказа, позиции и доставку.
// Используется для гостевых и прямых заказов, создаваемых сразу в processing.
func (r *ordersRepo) CreateOrder(ctx context.Context, o entities.Order) error {
	var email, name, phone sql.NullString
	if o.Guest != nil {
		email = nullString(o.Guest.Email)
		name = nullString(o.Guest.Name)
		phone = nullString(o.Guest.Phone)
	}

	query, args := r.qb.Insert("orders").
		Columns("order_id", "status", "owner_id", "customer_email", "customer_name", "customer_phone").
		Values(o.ID, o.Status, nullString(o.OwnerID), email, name, phone).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	if err := r.insertItems(ctx, o.ID, o.Items); err != nil {
		return err
	}

	if o.Shipping != nil {
		if err := r.CreateShipping(ctx, o.ID, *o.Shipping); err != nil {
			return err
		}
	}

	return nil
}

// UpsertItem добавляет позицию в корзину. Повторное добавление того же товара
// увеличивает количество атомарно на стороне базы.
func (r *ordersRepo) UpsertItem(ctx context.Context, orderID string, item entities.LineItem) (entities.LineItem, error) {
	query, args := r.qb.Insert("order_items").
		Columns(itemColumns...).
		Values(orderID, item.ProductID, item.Title, item.Quantity, item.UnitPrice).
		Suffix(`ON CONFLICT (order_id, product_id)
			DO UPDATE SET quantity = order_items.quantity + EXCLUDED.quantity
			RETURNING order_id, product_id, title, quantity, unit_price`).
		MustSql()

	var row OrderItem
	if err := r.getContext(ctx, &row, query, args...); err != nil {
		return entities.LineItem{}, fmt.Errorf("failed to upsert item: %w", err)
	}

	return ItemToEntity(row), nil
}

// SetItemQuantity устанавливает абсолютное количество существующей позиции.
func (r *ordersRepo) SetItemQuantity(ctx context.Context, orderID string, productID int64, quantity int) error {
	query, args := r.qb.Update("order_items").
		Set("quantity", quantity).
		Where(sq.Eq{"order_id": orderID, "product_id": productID}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return entities.ErrCartItemNotFound
	}
	return nil
}

func (r *ordersRepo) DeleteItem(ctx context.Context, orderID string, productID int64) error {
	query, args := r.qb.Delete("order_items").
		Where(sq.Eq{"order_id": orderID, "product_id": productID}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return entities.ErrCartItemNotFound
	}
	return nil
}

func (r *ordersRepo) CreateShipping(ctx context.Context, orderID string, s entities.Shipping) error {
	query, args := r.qb.Insert("shippings").
		Columns(shippingColumns...).
		Values(orderID, s.Name, s.Phone, s.Address, s.City, nullString(s.ZIP), nullString(s.Country)).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save shipping: %w", err)
	}
	return nil
}

// UpdateStatus переводит заказ из from в to. Условие по текущему статусу
// защищает от конкурентной смены, поэтому 0 затронутых строк - конфликт.
func (r *ordersRepo) UpdateStatus(ctx context.Context, orderID string, from, to entities.Status) error {
	query, args := r.qb.Update("orders").
		Set("status", to).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"order_id": orderID, "status": from}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: %s -> %s", entities.ErrInvalidTransition, from, to)
	}
	return nil
}

// DeleteOrder удаляет агрегат целиком, позиции и доставка уходят каскадом.
func (r *ordersRepo) DeleteOrder(ctx context.Context, orderID string) error {
	query, args := r.qb.Delete("orders").
		Where(sq.Eq{"order_id": orderID}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return entities.ErrOrderNotFound
	}
	return nil
}

func (r *ordersRepo) orderItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	query, args := r.qb.Select(itemColumns...).
		From("order_items").
		Where(sq.Eq{"order_id": orderID}).
		MustSql()

	var items []OrderItem
	if err := r.selectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select order items: %w", err)
	}
	return items, nil
}

func (r *ordersRepo) orderShipping(ctx context.Context, orderID string) (*Shipping, error) {
	query, args := r.qb.Select(shippingColumns...).
		From("shippings").
		Where(sq.Eq{"order_id": orderID}).
		MustSql()

	var shipping Shipping
	err := r.getContext(ctx, &shipping, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shipping: %w", err)
	}
	return &shipping, nil
}

func (r *ordersRepo) insertItems(ctx context.Context, orderID string, items []entities.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	q := r.qb.Insert("order_items").Columns(itemColumns...)
	for _, it := range items {
		q = q.Values(orderID, it.ProductID, it.Title, it.Quantity, it.UnitPrice)
	}

	query, args := q.MustSql()
	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save items: %w", err)
	}
	return nil
}

func joinColumns(cols []string) string {
	out := cols[0]
	for _, c := range cols[1:] {
		out += ", " + c
	}
	return out
}
