package domain

import "github.com/shopspring/decimal"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, n := range orderTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// DefaultShippingCost applies when a cart payload carries no shipping cost.
var DefaultShippingCost = decimal.RequireFromString("7.00")

type Order struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"userId"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	ShippingCost    decimal.Decimal `db:"shipping_cost" json:"shippingCost"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"totalAmount"`
	Status          OrderStatus     `db:"status" json:"status"`
	ShippingAddress string          `db:"shipping_address" json:"shippingAddress"`
	Phone           string          `db:"phone" json:"phone"`
	Notes           string          `db:"notes" json:"notes"`
	CreatedAt       string          `db:"created_at" json:"createdAt"`
	UpdatedAt       string          `db:"updated_at" json:"updatedAt"`

	Items []OrderLine `db:"-" json:"items"`
}

// OrderLine is the receipt snapshot of one purchased product.
type OrderLine struct {
	ID           int64           `db:"id" json:"id"`
	OrderID      int64           `db:"order_id" json:"orderId"`
	ProductID    *int64          `db:"product_id" json:"productId"`
	ProductName  string          `db:"product_name" json:"productName"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Quantity     int             `db:"quantity" json:"quantity"`
	ProductImage string          `db:"product_image" json:"productImage"`
	SellerName   string          `db:"seller_name" json:"sellerName"`

	Product *ProductSummary `db:"-" json:"product"`
}

type UserStats struct {
	TotalOrders  int                 `json:"totalOrders"`
	TotalSpent   string              `json:"totalSpent"`
	TotalItems   int                 `json:"totalItems"`
	StatusCounts map[OrderStatus]int `json:"statusCounts"`
}
