package repo

import (
	"database/sql"
	"time"

	"github.com/SergeyBogomolovv/shop-order-service/internal/entities"
)

type Order struct {
	ID            string         `db:"order_id"`
	Status        string         `db:"status"`
	OwnerID       sql.NullString `db:"owner_id"`
	CustomerEmail sql.NullString `db:"customer_email"`
	CustomerName  sql.NullString `db:"customer_name"`
	CustomerPhone sql.NullString `db:"customer_phone"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

type OrderItem struct {
	OrderID   string `db:"order_id"`
	ProductID int64  `db:"product_id"`
	Title     string `db:"title"`
	Quantity  int    `db:"quantity"`
	UnitPrice int64  `db:"unit_price"`
}

type Shipping struct {
	OrderID string         `db:"order_id"`
	Name    string         `db:"name"`
	Phone   string         `db:"phone"`
	Address string         `db:"address"`
	City    string         `db:"city"`
	ZIP     sql.NullString `db:"zip"`
	Country sql.NullString `db:"country"`
}

type Product struct {
	ID    int64  `db:"product_id"`
	Title string `db:"title"`
	Price int64  `db:"price"`
	Stock int    `db:"stock"`
}

func ItemToEntity(i OrderItem) entities.LineItem {
	return entities.LineItem{
		ProductID: i.ProductID,
		Title:     i.Title,
		Quantity:  i.Quantity,
		UnitPrice: i.UnitPrice,
	}
}

func ShippingToEntity(s Shipping) entities.Shipping {
	return entities.Shipping{
		Name:    s.Name,
		Phone:   s.Phone,
		Address: s.Address,
		City:    s.City,
		ZIP:     nullStringToString(s.ZIP),
		Country: nullStringToString(s.Country),
	}
}

func OrderToEntity(o Order, items []OrderItem, shipping *Shipping) entities.Order {
	order := entities.Order{
		ID:        o.ID,
		Status:    entities.Status(o.Status),
		OwnerID:   nullStringToString(o.OwnerID),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}

	// контакты гостя присутствуют только у заказов без владельца
	if !o.OwnerID.Valid {
		order.Guest = &entities.GuestContact{
			Email: nullStringToString(o.CustomerEmail),
			Name:  nullStringToString(o.CustomerName),
			Phone: nullStringToString(o.CustomerPhone),
		}
	}

	if len(items) > 0 {
		order.Items = make([]entities.LineItem, 0, len(items))
		for _, it := range items {
			order.Items = append(order.Items, ItemToEntity(it))
		}
	}

	if shipping != nil {
		s := ShippingToEntity(*shipping)
		order.Shipping = &s
	}

	return order
}

func ProductToEntity(p Product) entities.Product {
	return entities.Product{
		ID:    p.ID,
		Title: p.Title,
		Price: p.Price,
		Stock: p.Stock,
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
