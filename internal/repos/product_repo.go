package repos

import (
	"context"
	"strings"

	"nexusmarket/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const productCols = `
    p.id, p.name, p.description, p.price, p.stock, p.category, p.status, p.images_json, p.main_image,
    p.views, p.rating, p.reviews_count, p.seller_id, p.created_at, p.updated_at,
    u.first_name AS seller_first_name, u.last_name AS seller_last_name, u.email AS seller_email`

const productFrom = ` FROM products p JOIN users u ON u.id = p.seller_id`

type productRow struct {
	domain.Product
	SellerFirstName string `db:"seller_first_name"`
	SellerLastName  string `db:"seller_last_name"`
	SellerEmail     string `db:"seller_email"`
}

func (r productRow) product() domain.Product {
	p := r.Product
	p.Seller = &domain.SellerSummary{
		ID:        p.SellerID,
		FirstName: r.SellerFirstName,
		LastName:  r.SellerLastName,
		Email:     r.SellerEmail,
	}
	return p
}

// ProductFilter narrows ListProducts. Zero values mean "any".
type ProductFilter struct {
	Category string
	Status   string
	SellerID int64
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Search   string
}

// likeEscaper makes user search text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type ProductRepo struct{ db sqlx.ExtContext }

func NewProductRepo(db sqlx.ExtContext) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) WithTx(tx *sqlx.Tx) *ProductRepo { return &ProductRepo{db: tx} }

func (r *ProductRepo) Get(ctx context.Context, id int64) (domain.Product, error) {
	var row productRow
	err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(`SELECT `+productCols+productFrom+` WHERE p.id = ?`), id)
	if err != nil {
		return domain.Product{}, err
	}
	return row.product(), nil
}

// GetForUpdate reads the product and holds its row lock until the surrounding transaction ends.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id int64) (domain.Product, error) {
	var row productRow
	q := forUpdate(r.db, `SELECT `+productCols+productFrom+` WHERE p.id = ?`)
	if err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(q), id); err != nil {
		return domain.Product{}, err
	}
	return row.product(), nil
}

func (r *ProductRepo) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Status != "" {
		where = append(where, "p.status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		where = append(where, "p.category = ?")
		args = append(args, f.Category)
	}
	if f.SellerID != 0 {
		where = append(where, "p.seller_id = ?")
		args = append(args, f.SellerID)
	}
	if f.MinPrice != nil {
		where = append(where, "p.price >= ?")
		args = append(args, f.MinPrice.InexactFloat64())
	}
	if f.MaxPrice != nil {
		where = append(where, "p.price <= ?")
		args = append(args, f.MaxPrice.InexactFloat64())
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		where = append(where, `(LOWER(p.name) LIKE ? ESCAPE '\' OR LOWER(p.description) LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}

	q := `SELECT ` + productCols + productFrom + `
  WHERE ` + strings.Join(where, " AND ") + `
  ORDER BY p.created_at DESC, p.id DESC`

	var rows []productRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.product())
	}
	return out, nil
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) (int64, error) {
	var id int64
	err := sqlx.GetContext(ctx, r.db, &id, r.db.Rebind(`
		INSERT INTO products(name, description, price, stock, category, status, images_json, main_image, seller_id)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), p.Name, p.Description, p.Price, p.Stock, string(p.Category), string(p.Status), p.Images, p.MainImage, p.SellerID)
	return id, err
}

// Update writes the editable fields of p. Views, rating and ownership are left alone.
func (r *ProductRepo) Update(ctx context.Context, p domain.Product) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE products
		SET name = ?, description = ?, price = ?, stock = ?, category = ?, status = ?,
		    images_json = ?, main_image = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`), p.Name, p.Description, p.Price, p.Stock, string(p.Category), string(p.Status), p.Images, p.MainImage, p.ID)
	return err
}

func (r *ProductRepo) SetStatus(ctx context.Context, id int64, status domain.ProductStatus) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE products SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`), string(status), id)
	return err
}

// SetStock stores an absolute stock value together with the status it implies.
func (r *ProductRepo) SetStock(ctx context.Context, id int64, stock int, status domain.ProductStatus) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE products SET stock = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
		stock, string(status), id)
	return err
}

// DecrementStock subtracts amount only if that much stock is left and returns the new stock.
// Status follows the stock in the same statement. ErrNoStock when the guard fails.
func (r *ProductRepo) DecrementStock(ctx context.Context, id int64, amount int) (int, error) {
	var stock int
	err := sqlx.GetContext(ctx, r.db, &stock, r.db.Rebind(`
		UPDATE products
		SET stock = stock - ?,
		    status = CASE
		      WHEN stock - ? = 0 THEN 'out_of_stock'
		      WHEN status = 'out_of_stock' THEN 'active'
		      ELSE status END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
		RETURNING stock
	`), amount, amount, id, amount)
	if IsNoRows(err) {
		return 0, ErrNoStock
	}
	return stock, err
}

// IncrementStock gives units back, reactivating an out_of_stock product.
func (r *ProductRepo) IncrementStock(ctx context.Context, id int64, amount int) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE products
		SET stock = stock + ?,
		    status = CASE WHEN status = 'out_of_stock' AND stock + ? > 0 THEN 'active' ELSE status END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`), amount, amount, id)
	return err
}

func (r *ProductRepo) IncrementViews(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE products SET views = views + 1 WHERE id = ?`), id)
	return err
}

func (r *ProductRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM products WHERE id = ?`), id)
	return err
}

// SellerStats aggregates over every product the seller owns.
func (r *ProductRepo) SellerStats(ctx context.Context, sellerID int64) (domain.SellerStats, error) {
	var row struct {
		Total    int     `db:"total"`
		Active   int     `db:"active"`
		Inactive int     `db:"inactive"`
		Out      int     `db:"out_of_stock"`
		Views    int     `db:"views"`
		Rating   float64 `db:"rating"`
		Reviews  int     `db:"reviews"`
	}
	err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(`
		SELECT
		  COUNT(*) AS total,
		  COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0) AS active,
		  COALESCE(SUM(CASE WHEN status = 'inactive' THEN 1 ELSE 0 END), 0) AS inactive,
		  COALESCE(SUM(CASE WHEN status = 'out_of_stock' THEN 1 ELSE 0 END), 0) AS out_of_stock,
		  COALESCE(SUM(views), 0) AS views,
		  CAST(COALESCE(AVG(rating), 0) AS DOUBLE PRECISION) AS rating,
		  COALESCE(SUM(reviews_count), 0) AS reviews
		FROM products
		WHERE seller_id = ?
	`), sellerID)
	if err != nil {
		return domain.SellerStats{}, err
	}
	return domain.SellerStats{
		TotalProducts:    row.Total,
		ActiveProducts:   row.Active,
		InactiveProducts: row.Inactive,
		OutOfStock:       row.Out,
		TotalViews:       row.Views,
		AverageRating:    row.Rating,
		TotalReviews:     row.Reviews,
	}, nil
}

// Summaries loads live product summaries keyed by id; deleted products are simply absent.
func (r *ProductRepo) Summaries(ctx context.Context, ids []int64) (map[int64]domain.ProductSummary, error) {
	out := map[int64]domain.ProductSummary{}
	if len(ids) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`SELECT id, name, price, stock, status, main_image FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID        int64                `db:"id"`
		Name      string               `db:"name"`
		Price     decimal.Decimal      `db:"price"`
		Stock     int                  `db:"stock"`
		Status    domain.ProductStatus `db:"status"`
		MainImage string               `db:"main_image"`
	}
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = domain.ProductSummary{
			ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock, Status: p.Status, MainImage: p.MainImage,
		}
	}
	return out, nil
}
