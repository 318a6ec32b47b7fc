package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"nexusmarket/internal/domain"
	"nexusmarket/internal/events"
	applog "nexusmarket/internal/log"
	"nexusmarket/internal/observability/metrics"
	"nexusmarket/internal/repos"
	"nexusmarket/internal/validate"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxCartLines    = 100
	maxLineQuantity = 10000
)

type CartItem struct {
	ProductID    int64           `json:"productId"`
	ProductName  string          `json:"productName"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	ProductImage string          `json:"productImage"`
	SellerName   string          `json:"sellerName"`
}

// CartPayload is what the storefront submits at checkout. Client prices and totals are advisory.
type CartPayload struct {
	Items           []CartItem       `json:"items"`
	TotalAmount     *decimal.Decimal `json:"totalAmount"`
	Subtotal        *decimal.Decimal `json:"subtotal"`
	ShippingCost    *decimal.Decimal `json:"shippingCost"`
	ShippingAddress string           `json:"shippingAddress"`
	Phone           string           `json:"phone"`
	Notes           string           `json:"notes"`
}

// Totals compares what the server charged with what the client displayed.
type Totals struct {
	ServerSubtotal decimal.Decimal
	ServerTotal    decimal.Decimal
	ClientSubtotal *decimal.Decimal
	ClientTotal    *decimal.Decimal
	Mismatch       bool
}

type OrderService struct {
	DB       *sqlx.DB
	Products *repos.ProductRepo
	Orders   *repos.OrderRepo
	Events   events.Publisher
	Authz    Authorizer
	tracer   trace.Tracer
}

func NewOrderService(db *sqlx.DB, products *repos.ProductRepo, orders *repos.OrderRepo, pub events.Publisher) *OrderService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &OrderService{
		DB:       db,
		Products: products,
		Orders:   orders,
		Events:   pub,
		tracer:   otel.Tracer("nexusmarket/services/orders"),
	}
}

type cartLine struct {
	productID int64
	quantity  int
}

// mergeLines validates quantities and folds duplicate products into one line, keeping cart order.
func mergeLines(items []CartItem) ([]cartLine, error) {
	if len(items) == 0 {
		return nil, newErr(ErrBadRequest, "cart is empty")
	}
	if len(items) > maxCartLines {
		return nil, newErr(ErrBadRequest, "cart cannot hold more than %d lines", maxCartLines)
	}
	idx := map[int64]int{}
	var out []cartLine
	for _, it := range items {
		if it.ProductID <= 0 {
			return nil, newErr(ErrBadRequest, "invalid product id %d", it.ProductID)
		}
		if it.Quantity <= 0 {
			return nil, newErr(ErrBadRequest, "quantity for product %d must be positive", it.ProductID)
		}
		if it.Quantity > maxLineQuantity {
			return nil, newErr(ErrBadRequest, "quantity for product %d cannot exceed %d", it.ProductID, maxLineQuantity)
		}
		if i, ok := idx[it.ProductID]; ok {
			// both operands are capped, so the sum cannot wrap
			if out[i].quantity+it.Quantity > maxLineQuantity {
				return nil, newErr(ErrBadRequest, "quantity for product %d cannot exceed %d", it.ProductID, maxLineQuantity)
			}
			out[i].quantity += it.Quantity
			continue
		}
		idx[it.ProductID] = len(out)
		out = append(out, cartLine{productID: it.ProductID, quantity: it.Quantity})
	}
	return out, nil
}

// Place runs the checkout: validate every line against the locked product, write the order,
// decrement stock and commit, all in one transaction.
func (s *OrderService) Place(ctx context.Context, c Caller, cart CartPayload) (domain.Order, Totals, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Place", trace.WithAttributes(
		attribute.Int64("user.id", c.ID),
		attribute.Int("cart.lines", len(cart.Items)),
	))
	defer span.End()
	start := time.Now()

	o, totals, units, err := s.place(ctx, c, cart)
	result := "ok"
	if err != nil {
		result = "error"
		var known *Error
		if errors.As(err, &known) {
			result = "rejected"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.ObserveOrderPlaced(result, units, time.Since(start))
	if err != nil {
		return domain.Order{}, totals, err
	}
	span.SetAttributes(attribute.Int64("order.id", o.ID), attribute.String("order.total", o.TotalAmount.StringFixed(2)))
	s.publish(ctx, events.TopicOrderPlaced, o.ID, events.NewOrderPlaced(o))
	return o, totals, nil
}

func (s *OrderService) place(ctx context.Context, c Caller, cart CartPayload) (domain.Order, Totals, int, error) {
	var totals Totals
	lines, err := mergeLines(cart.Items)
	if err != nil {
		return domain.Order{}, totals, 0, err
	}
	shipping := domain.DefaultShippingCost
	if cart.ShippingCost != nil {
		if cart.ShippingCost.IsNegative() {
			return domain.Order{}, totals, 0, newErr(ErrBadRequest, "shipping cost cannot be negative")
		}
		shipping = domain.Money(*cart.ShippingCost)
	}
	address, ok := validate.Text(cart.ShippingAddress, 500)
	if !ok {
		return domain.Order{}, totals, 0, newErr(ErrBadRequest, "shipping address is too long")
	}
	phone, ok := validate.Phone(cart.Phone)
	if !ok {
		return domain.Order{}, totals, 0, newErr(ErrBadRequest, "invalid phone number")
	}
	notes, ok := validate.Text(cart.Notes, 1000)
	if !ok {
		return domain.Order{}, totals, 0, newErr(ErrBadRequest, "notes are too long")
	}

	var orderID int64
	units := 0
	err = repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		products := s.Products.WithTx(tx)
		orders := s.Orders.WithTx(tx)

		// Lock in id order so concurrent checkouts over the same products cannot deadlock.
		ids := make([]int64, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.productID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		locked := make(map[int64]domain.Product, len(ids))
		for _, id := range ids {
			p, err := products.GetForUpdate(ctx, id)
			if repos.IsNoRows(err) {
				return productNotFound(id)
			}
			if err != nil {
				return err
			}
			locked[id] = p
		}

		snapshot := make([]domain.OrderLine, 0, len(lines))
		subtotal := decimal.Zero
		for _, l := range lines {
			p := locked[l.productID]
			if p.Status == domain.StatusInactive {
				return newErr(ErrBadRequest, "product %q is not available for purchase", p.Name)
			}
			if l.quantity > p.Stock {
				return insufficientStock(p.Name, p.Stock, l.quantity)
			}
			if p.Status != domain.StatusActive {
				return newErr(ErrBadRequest, "product %q is not available for purchase", p.Name)
			}
			pid := p.ID
			line := domain.OrderLine{
				ProductID:    &pid,
				ProductName:  p.Name,
				Price:        p.Price,
				Quantity:     l.quantity,
				ProductImage: p.MainImage,
			}
			if line.ProductImage == "" && len(p.Images) > 0 {
				line.ProductImage = p.Images[0]
			}
			if p.Seller != nil {
				line.SellerName = p.Seller.DisplayName()
			}
			snapshot = append(snapshot, line)
			subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(l.quantity))))
		}
		subtotal = domain.Money(subtotal)
		total := subtotal.Add(shipping)

		id, err := orders.Create(ctx, domain.Order{
			UserID:          c.ID,
			Subtotal:        subtotal,
			ShippingCost:    shipping,
			TotalAmount:     total,
			Status:          domain.OrderPending,
			ShippingAddress: address,
			Phone:           phone,
			Notes:           notes,
		})
		if err != nil {
			return err
		}
		for _, line := range snapshot {
			if err := orders.InsertLine(ctx, id, line); err != nil {
				return err
			}
		}
		for _, line := range snapshot {
			if _, err := products.DecrementStock(ctx, *line.ProductID, line.Quantity); err != nil {
				if errors.Is(err, repos.ErrNoStock) {
					p := locked[*line.ProductID]
					return insufficientStock(p.Name, p.Stock, line.Quantity)
				}
				return err
			}
			units += line.Quantity
		}

		orderID = id
		totals = Totals{
			ServerSubtotal: subtotal,
			ServerTotal:    total,
			ClientSubtotal: cart.Subtotal,
			ClientTotal:    cart.TotalAmount,
		}
		totals.Mismatch = (cart.TotalAmount != nil && !cart.TotalAmount.Equal(total)) ||
			(cart.Subtotal != nil && !cart.Subtotal.Equal(subtotal))
		return nil
	})
	if err != nil {
		return domain.Order{}, totals, 0, err
	}

	o, err := s.Orders.GetForUser(ctx, orderID, c.ID)
	if err != nil {
		return domain.Order{}, totals, units, err
	}
	return o, totals, units, nil
}

func (s *OrderService) ListForUser(ctx context.Context, c Caller) ([]domain.Order, error) {
	return s.Orders.ListByUser(ctx, c.ID)
}

// GetForUser hides other users' orders behind NotFound.
func (s *OrderService) GetForUser(ctx context.Context, c Caller, id int64) (domain.Order, error) {
	o, err := s.Orders.GetForUser(ctx, id, c.ID)
	if repos.IsNoRows(err) {
		return domain.Order{}, newErr(ErrNotFound, "order %d not found", id)
	}
	return o, err
}

func (s *OrderService) UserStats(ctx context.Context, c Caller) (domain.UserStats, error) {
	return s.Orders.UserStats(ctx, c.ID)
}

// ListLatest is the fulfillment view over all orders.
func (s *OrderService) ListLatest(ctx context.Context, c Caller, limit int) ([]domain.Order, error) {
	if err := s.Authz.CanFulfill(c); err != nil {
		return nil, err
	}
	return s.Orders.ListLatest(ctx, limit)
}

// UpdateStatus moves an order along the fulfillment graph. Cancelling puts stock back.
func (s *OrderService) UpdateStatus(ctx context.Context, c Caller, id int64, next domain.OrderStatus) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", string(next)),
	))
	defer span.End()

	if err := s.Authz.CanFulfill(c); err != nil {
		return domain.Order{}, err
	}
	if !next.Valid() {
		return domain.Order{}, newErr(ErrBadRequest, "invalid order status %q", next)
	}

	var from domain.OrderStatus
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		orders := s.Orders.WithTx(tx)
		products := s.Products.WithTx(tx)

		o, err := orders.GetForUpdate(ctx, id)
		if repos.IsNoRows(err) {
			return newErr(ErrNotFound, "order %d not found", id)
		}
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(next) {
			return newErr(ErrBadRequest, "cannot move order from %s to %s", o.Status, next)
		}
		if next == domain.OrderCancelled {
			for _, l := range o.Items {
				if l.ProductID == nil {
					continue
				}
				if err := products.IncrementStock(ctx, *l.ProductID, l.Quantity); err != nil {
					return err
				}
			}
		}
		from = o.Status
		return orders.SetStatus(ctx, id, next)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Order{}, err
	}

	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	metrics.ObserveStatusChange(string(next))
	s.publish(ctx, events.TopicOrderStatusChanged, id, events.NewOrderStatusChanged(o, from, c.ID))
	return o, nil
}

// publish runs after commit. A broker failure is logged and never undoes the order.
func (s *OrderService) publish(ctx context.Context, topic string, orderID int64, ev any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	key := strconv.FormatInt(orderID, 10)
	if err := s.Events.Publish(ctx, topic, key, ev); err != nil {
		metrics.ObservePublishFailure(topic)
		applog.Error(nil, "event.publish.fail", err, map[string]any{"topic": topic, "order_id": orderID})
	}
}
