package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SergeyBogomolovv/shop-order-service/internal/config"
	"github.com/SergeyBogomolovv/shop-order-service/internal/entities"

	"github.com/segmentio/kafka-go"
)

// OrderConfirmation - событие для сервиса уведомлений.
type OrderConfirmation struct {
	OrderID       string    `json:"order_id"`
	OwnerID       string    `json:"owner_id,omitempty"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	Status        string    `json:"status"`
	Total         int64     `json:"total"`
	Items         []Item    `json:"items"`
	CreatedAt     time.Time `json:"created_at"`
}

type Item struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type kafkaNotifier struct {
	writer       *kafka.Writer
	logger       *slog.Logger
	writeTimeout time.Duration
}

func NewKafkaNotifier(logger *slog.Logger, cfg config.Kafka) *kafkaNotifier {
	return &kafkaNotifier{
		logger: logger.With(slog.String("notifier", "kafka")),
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: cfg.BatchTimeout,
		},
		writeTimeout: cfg.WriteTimeout,
	}
}

// SendOrderConfirmation публикует подтверждение заказа.
// Вызывается по принципу fire-and-forget: ошибку логирует вызывающая сторона
// и оформление заказа от нее не зависит.
func (n *kafkaNotifier) SendOrderConfirmation(ctx context.Context, order entities.Order) error {
	event := OrderConfirmation{
		OrderID:   order.ID,
		OwnerID:   order.OwnerID,
		Status:    string(order.Status),
		Total:     order.Total(),
		CreatedAt: order.CreatedAt,
	}
	if order.Guest != nil {
		event.CustomerEmail = order.Guest.Email
	}
	for _, it := range order.Items {
		event.Items = append(event.Items, Item{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal confirmation: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.writeTimeout)
	defer cancel()

	// В библиотеке уже есть retry
	if err := n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.ID),
		Value: value,
	}); err != nil {
		return fmt.Errorf("failed to write confirmation: %w", err)
	}

	n.logger.DebugContext(ctx, "order confirmation sent", slog.String("order_id", order.ID))
	return nil
}

func (n *kafkaNotifier) Close() error {
	return n.writer.Close()
}
