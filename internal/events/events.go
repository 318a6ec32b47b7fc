package events

import (
	"context"
	"time"

	"nexusmarket/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TopicOrderPlaced        = "orders.placed"
	TopicOrderStatusChanged = "orders.status_changed"
)

// Publisher delivers domain events to a broker.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
	Close() error
}

type OrderPlacedItem struct {
	ProductID *int64          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderPlaced struct {
	EventID     string            `json:"eventId"`
	OrderID     int64             `json:"orderId"`
	UserID      int64             `json:"userId"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	Items       []OrderPlacedItem `json:"items"`
	OccurredAt  time.Time         `json:"occurredAt"`
}

func NewOrderPlaced(o domain.Order) OrderPlaced {
	items := make([]OrderPlacedItem, 0, len(o.Items))
	for _, l := range o.Items {
		items = append(items, OrderPlacedItem{ProductID: l.ProductID, Quantity: l.Quantity, Price: l.Price})
	}
	return OrderPlaced{
		EventID:     uuid.NewString(),
		OrderID:     o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Items:       items,
		OccurredAt:  time.Now().UTC(),
	}
}

type OrderStatusChanged struct {
	EventID    string             `json:"eventId"`
	OrderID    int64              `json:"orderId"`
	UserID     int64              `json:"userId"`
	From       domain.OrderStatus `json:"from"`
	To         domain.OrderStatus `json:"to"`
	ChangedBy  int64              `json:"changedBy"`
	OccurredAt time.Time          `json:"occurredAt"`
}

func NewOrderStatusChanged(o domain.Order, from domain.OrderStatus, by int64) OrderStatusChanged {
	return OrderStatusChanged{
		EventID:    uuid.NewString(),
		OrderID:    o.ID,
		UserID:     o.UserID,
		From:       from,
		To:         o.Status,
		ChangedBy:  by,
		OccurredAt: time.Now().UTC(),
	}
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error { return nil }
func (Nop) Close() error                                       { return nil }
