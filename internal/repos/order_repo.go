package repos

import (
	"context"
	"database/sql"
	"fmt"

	"nexusmarket/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const orderCols = `id, user_id, subtotal, shipping_cost, total_amount, status,
    shipping_address, phone, notes, created_at, updated_at`

const lineCols = `id, order_id, product_id, product_name, price, quantity, product_image, seller_name`

type OrderRepo struct{ db sqlx.ExtContext }

func NewOrderRepo(db sqlx.ExtContext) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) WithTx(tx *sqlx.Tx) *OrderRepo { return &OrderRepo{db: tx} }

// Create inserts the order header. Status comes from o (pending for new orders).
func (r *OrderRepo) Create(ctx context.Context, o domain.Order) (int64, error) {
	if o.Status == "" {
		o.Status = domain.OrderPending
	}
	var id int64
	err := sqlx.GetContext(ctx, r.db, &id, r.db.Rebind(`
		INSERT INTO orders(user_id, subtotal, shipping_cost, total_amount, status, shipping_address, phone, notes)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), o.UserID, o.Subtotal, o.ShippingCost, o.TotalAmount, string(o.Status), o.ShippingAddress, o.Phone, o.Notes)
	return id, err
}

func (r *OrderRepo) InsertLine(ctx context.Context, orderID int64, l domain.OrderLine) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO order_items(order_id, product_id, product_name, price, quantity, product_image, seller_name)
		VALUES(?, ?, ?, ?, ?, ?, ?)
	`), orderID, l.ProductID, l.ProductName, l.Price, l.Quantity, l.ProductImage, l.SellerName)
	return err
}

// Get loads one order with its lines regardless of owner.
func (r *OrderRepo) Get(ctx context.Context, id int64) (domain.Order, error) {
	var o domain.Order
	if err := sqlx.GetContext(ctx, r.db, &o, r.db.Rebind(`SELECT `+orderCols+` FROM orders WHERE id = ?`), id); err != nil {
		return domain.Order{}, err
	}
	if err := r.attachLines(ctx, []*domain.Order{&o}); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

// GetForUser is Get scoped to the owner; someone else's order reads as sql.ErrNoRows.
func (r *OrderRepo) GetForUser(ctx context.Context, id, userID int64) (domain.Order, error) {
	var o domain.Order
	err := sqlx.GetContext(ctx, r.db, &o,
		r.db.Rebind(`SELECT `+orderCols+` FROM orders WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return domain.Order{}, err
	}
	if err := r.attachLines(ctx, []*domain.Order{&o}); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

// ListByUser returns the user's orders newest first, lines attached.
func (r *OrderRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	var out []domain.Order
	err := sqlx.SelectContext(ctx, r.db, &out, r.db.Rebind(`
		SELECT `+orderCols+` FROM orders
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`), userID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Order{}
	}
	return out, r.attachSlice(ctx, out)
}

// ListLatest feeds the fulfillment dashboard.
func (r *OrderRepo) ListLatest(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.Order
	err := sqlx.SelectContext(ctx, r.db, &out, r.db.Rebind(`
		SELECT `+orderCols+` FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Order{}
	}
	return out, r.attachSlice(ctx, out)
}

// GetForUpdate reads the order header under a row lock (postgres) for status changes.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id int64) (domain.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE id = ?`
	if r.db.DriverName() == "postgres" {
		q += " FOR UPDATE"
	}
	var o domain.Order
	if err := sqlx.GetContext(ctx, r.db, &o, r.db.Rebind(q), id); err != nil {
		return domain.Order{}, err
	}
	lines, err := r.lines(ctx, []int64{id})
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = lines[id]
	return o, nil
}

func (r *OrderRepo) SetStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`), string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

// UserStats totals the user's orders. totalSpent is the sum of stored totals, two decimals.
func (r *OrderRepo) UserStats(ctx context.Context, userID int64) (domain.UserStats, error) {
	stats := domain.UserStats{StatusCounts: map[domain.OrderStatus]int{}}

	var head struct {
		Orders int             `db:"orders"`
		Spent  decimal.Decimal `db:"spent"`
	}
	if err := sqlx.GetContext(ctx, r.db, &head, r.db.Rebind(`
		SELECT COUNT(*) AS orders, COALESCE(SUM(total_amount), 0) AS spent
		FROM orders WHERE user_id = ?
	`), userID); err != nil {
		return stats, err
	}

	var items int
	if err := sqlx.GetContext(ctx, r.db, &items, r.db.Rebind(`
		SELECT COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi JOIN orders o ON o.id = oi.order_id
		WHERE o.user_id = ?
	`), userID); err != nil {
		return stats, err
	}

	var counts []struct {
		Status domain.OrderStatus `db:"status"`
		N      int                `db:"n"`
	}
	if err := sqlx.SelectContext(ctx, r.db, &counts, r.db.Rebind(`
		SELECT status, COUNT(*) AS n FROM orders WHERE user_id = ? GROUP BY status
	`), userID); err != nil {
		return stats, err
	}
	for _, c := range counts {
		stats.StatusCounts[c.Status] = c.N
	}

	stats.TotalOrders = head.Orders
	stats.TotalSpent = head.Spent.StringFixed(2)
	stats.TotalItems = items
	return stats, nil
}

func (r *OrderRepo) attachSlice(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ptrs := make([]*domain.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	return r.attachLines(ctx, ptrs)
}

// attachLines loads lines for the given orders plus a live summary of each referenced product.
func (r *OrderRepo) attachLines(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	byOrder, err := r.lines(ctx, ids)
	if err != nil {
		return err
	}

	var productIDs []int64
	for _, ls := range byOrder {
		for _, l := range ls {
			if l.ProductID != nil {
				productIDs = append(productIDs, *l.ProductID)
			}
		}
	}
	summaries, err := NewProductRepo(r.db).Summaries(ctx, productIDs)
	if err != nil {
		return err
	}

	for _, o := range orders {
		ls := byOrder[o.ID]
		for i := range ls {
			if ls[i].ProductID == nil {
				continue
			}
			if s, ok := summaries[*ls[i].ProductID]; ok {
				ls[i].Product = &s
			}
		}
		if ls == nil {
			ls = []domain.OrderLine{}
		}
		o.Items = ls
	}
	return nil
}

func (r *OrderRepo) lines(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderLine, error) {
	q, args, err := sqlx.In(`SELECT `+lineCols+` FROM order_items WHERE order_id IN (?) ORDER BY id`, orderIDs)
	if err != nil {
		return nil, err
	}
	var rows []domain.OrderLine
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	out := make(map[int64][]domain.OrderLine, len(orderIDs))
	for _, l := range rows {
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	return out, nil
}
