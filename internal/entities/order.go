package entities

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"time"
)

type GuestContact struct {
	Email string
	Name  string
	Phone string
}

type Shipping struct {
	Name    string
	Phone   string
	Address string
	City    string
	ZIP     string
	Country string
}

type LineItem struct {
	ProductID int64
	Title     string
	Quantity  int
	// UnitPrice фиксируется в момент добавления товара и больше не пересчитывается
	UnitPrice int64
}

type Order struct {
	ID        string
	Status    Status
	OwnerID   string        // пусто для гостевых заказов
	Guest     *GuestContact // заполнено только когда OwnerID пустой
	Items     []LineItem
	Shipping  *Shipping // появляется при checkout, до него всегда nil
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrCartExists        = errors.New("cart already exists")
	ErrEmptyCart         = errors.New("cannot checkout empty cart")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("illegal status transition")
	ErrNotCart           = errors.New("order is not a cart")
	ErrInvalidOrder      = errors.New("invalid order data")
)

func (o *Order) IsGuest() bool {
	return o.Guest != nil
}

// Total возвращает сумму заказа в минимальных единицах валюты.
func (o *Order) Total() int64 {
	var total int64
	for _, it := range o.Items {
		total += it.UnitPrice * int64(it.Quantity)
	}
	return total
}

func (o *Order) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Order) Unmarshal(data []byte) error {
	buf := bytes.NewBuffer(data)
	dec := gob.NewDecoder(buf)
	if err := dec.Decode(o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	return nil
}

func init() {
	gob.Register(Order{})
	gob.Register(Shipping{})
	gob.Register(GuestContact{})
	gob.Register(LineItem{})
}
