package handler

import (
	"time"

	"github.com/SergeyBogomolovv/shop-order-service/internal/entities"
	"github.com/SergeyBogomolovv/shop-order-service/internal/service"
)

// Order представляет заказ
type Order struct {
	ID            string     `json:"order_id"`
	Status        string     `json:"status"`
	OwnerID       string     `json:"owner_id,omitempty"`
	CustomerEmail string     `json:"customer_email,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	Items         []LineItem `json:"items"`
	Shipping      *Shipping  `json:"shipping,omitempty"`
	Total         int64      `json:"total"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// LineItem позиция заказа
type LineItem struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// Shipping данные доставки
type Shipping struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	ZIP     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

// OrderedProduct пара товар-количество в запросе
type OrderedProduct struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

type CreateOrderRequest struct {
	Products []OrderedProduct `json:"products" validate:"required,min=1,dive"`
	Shipping Shipping         `json:"shipping" validate:"required"`
}

type CreateGuestOrderRequest struct {
	Products      []OrderedProduct `json:"products" validate:"required,min=1,dive"`
	Shipping      Shipping         `json:"shipping" validate:"required"`
	CustomerEmail string           `json:"customer_email" validate:"required,email"`
	CustomerName  string           `json:"customer_name,omitempty"`
	CustomerPhone string           `json:"customer_phone,omitempty"`
}

type AddToCartRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

type UpdateCartQuantityRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=processing shipped delivered cancelled"`
}

func ShippingEntityToJSON(s entities.Shipping) Shipping {
	return Shipping{
		Name:    s.Name,
		Phone:   s.Phone,
		Address: s.Address,
		City:    s.City,
		ZIP:     s.ZIP,
		Country: s.Country,
	}
}

func ShippingJSONToEntity(s Shipping) entities.Shipping {
	return entities.Shipping{
		Name:    s.Name,
		Phone:   s.Phone,
		Address: s.Address,
		City:    s.City,
		ZIP:     s.ZIP,
		Country: s.Country,
	}
}

func ItemEntityToJSON(i entities.LineItem) LineItem {
	return LineItem{
		ProductID: i.ProductID,
		Title:     i.Title,
		Quantity:  i.Quantity,
		UnitPrice: i.UnitPrice,
	}
}

func OrderEntityToJSON(o entities.Order) Order {
	items := make([]LineItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemEntityToJSON(it))
	}

	order := Order{
		ID:        o.ID,
		Status:    string(o.Status),
		OwnerID:   o.OwnerID,
		Items:     items,
		Total:     o.Total(),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}

	if o.Guest != nil {
		order.CustomerEmail = o.Guest.Email
		order.CustomerName = o.Guest.Name
		order.CustomerPhone = o.Guest.Phone
	}

	if o.Shipping != nil {
		s := ShippingEntityToJSON(*o.Shipping)
		order.Shipping = &s
	}

	return order
}

func OrdersEntityToJSON(orders []entities.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderEntityToJSON(o))
	}
	return out
}

func ProductsJSONToInput(products []OrderedProduct) []service.OrderedProduct {
	out := make([]service.OrderedProduct, 0, len(products))
	for _, p := range products {
		out = append(out, service.OrderedProduct{
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
		})
	}
	return out
}
