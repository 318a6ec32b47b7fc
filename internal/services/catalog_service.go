package services

import (
	"context"

	"nexusmarket/internal/domain"
	"nexusmarket/internal/repos"
	"nexusmarket/internal/validate"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type CatalogService struct {
	DB       *sqlx.DB
	Products *repos.ProductRepo
	Authz    Authorizer
}

func NewCatalogService(db *sqlx.DB, products *repos.ProductRepo) *CatalogService {
	return &CatalogService{DB: db, Products: products}
}

// ListQuery mirrors the public product filters. An empty Status means active.
type ListQuery struct {
	Category string
	Status   string
	SellerID int64
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Search   string
}

// ProductInput is a create or partial-update payload. Nil fields are left unchanged on update.
type ProductInput struct {
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	Price       *decimal.Decimal      `json:"price"`
	Stock       *int                  `json:"stock"`
	Category    *domain.Category      `json:"category"`
	Status      *domain.ProductStatus `json:"status"`
	Images      []string              `json:"images"`
	MainImage   *string               `json:"mainImage"`
}

func productNotFound(id int64) error { return newErr(ErrNotFound, "product %d not found", id) }

func (s *CatalogService) Categories() []domain.Category { return domain.Categories }

func (s *CatalogService) ListProducts(ctx context.Context, q ListQuery) ([]domain.Product, error) {
	f := repos.ProductFilter{
		Category: q.Category,
		Status:   q.Status,
		SellerID: q.SellerID,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Search:   validate.Q(q.Search),
	}
	if f.Status == "" {
		f.Status = string(domain.StatusActive)
	}
	if !domain.ProductStatus(f.Status).Valid() {
		return nil, newErr(ErrBadRequest, "invalid status %q", f.Status)
	}
	if f.Category != "" && !domain.Category(f.Category).Valid() {
		return nil, newErr(ErrBadRequest, "invalid category %q", f.Category)
	}
	if (f.MinPrice != nil && f.MinPrice.IsNegative()) || (f.MaxPrice != nil && f.MaxPrice.IsNegative()) {
		return nil, newErr(ErrBadRequest, "price filters cannot be negative")
	}
	return s.Products.List(ctx, f)
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	p, err := s.Products.Get(ctx, id)
	if repos.IsNoRows(err) {
		return domain.Product{}, productNotFound(id)
	}
	return p, err
}

func (s *CatalogService) IncrementViews(ctx context.Context, id int64) error {
	return s.Products.IncrementViews(ctx, id)
}

// ListBySeller returns every product the caller owns, whatever its status.
func (s *CatalogService) ListBySeller(ctx context.Context, c Caller) ([]domain.Product, error) {
	if err := s.Authz.CanSell(c); err != nil {
		return nil, err
	}
	return s.Products.List(ctx, repos.ProductFilter{SellerID: c.ID})
}

func (s *CatalogService) SellerStats(ctx context.Context, c Caller) (domain.SellerStats, error) {
	if err := s.Authz.CanSell(c); err != nil {
		return domain.SellerStats{}, err
	}
	return s.Products.SellerStats(ctx, c.ID)
}

// Availability bands stock the way the storefront shows it.
func (s *CatalogService) Availability(ctx context.Context, id int64) (domain.Availability, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return domain.Availability{}, err
	}
	qty := p.Stock
	if p.Status == domain.StatusInactive {
		qty = 0
	}
	status := "OUT_OF_STOCK"
	switch {
	case qty >= 5:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{Status: status, Qty: qty}, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, c Caller, in ProductInput) (domain.Product, error) {
	if err := s.Authz.CanSell(c); err != nil {
		return domain.Product{}, err
	}
	if in.Name == nil || in.Description == nil || in.Price == nil || in.Stock == nil {
		return domain.Product{}, newErr(ErrBadRequest, "name, description, price and stock are required")
	}
	p := domain.Product{
		Category: domain.CategoryOther,
		Status:   domain.StatusActive,
		SellerID: c.ID,
		Images:   domain.StringList{},
	}
	if err := applyInput(&p, in); err != nil {
		return domain.Product{}, err
	}
	id, err := s.Products.Create(ctx, p)
	if err != nil {
		return domain.Product{}, err
	}
	return s.GetProduct(ctx, id)
}

func (s *CatalogService) UpdateProduct(ctx context.Context, c Caller, id int64, in ProductInput) (domain.Product, error) {
	return s.mutate(ctx, c, id, func(products *repos.ProductRepo, p domain.Product) error {
		if err := applyInput(&p, in); err != nil {
			return err
		}
		return products.Update(ctx, p)
	})
}

// ChangeStatus sets the status directly. A product without stock can only be out_of_stock.
func (s *CatalogService) ChangeStatus(ctx context.Context, c Caller, id int64, status domain.ProductStatus) (domain.Product, error) {
	if !status.Valid() {
		return domain.Product{}, newErr(ErrBadRequest, "invalid status %q", status)
	}
	return s.mutate(ctx, c, id, func(products *repos.ProductRepo, p domain.Product) error {
		if p.Stock == 0 && status != domain.StatusOutOfStock {
			return newErr(ErrBadRequest, "product %q has no stock; add stock before changing its status", p.Name)
		}
		return products.SetStatus(ctx, id, status)
	})
}

// AdjustStock applies a signed delta under the row lock.
func (s *CatalogService) AdjustStock(ctx context.Context, c Caller, id int64, delta int) (domain.Product, error) {
	if delta == 0 {
		return domain.Product{}, newErr(ErrBadRequest, "quantity must be non-zero")
	}
	return s.mutate(ctx, c, id, func(products *repos.ProductRepo, p domain.Product) error {
		next := p.Stock + delta
		if next < 0 {
			return insufficientStock(p.Name, p.Stock, -delta)
		}
		return products.SetStock(ctx, id, next, p.Status.AfterStock(next))
	})
}

func (s *CatalogService) RemoveProduct(ctx context.Context, c Caller, id int64) error {
	return repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		products := s.Products.WithTx(tx)
		p, err := products.GetForUpdate(ctx, id)
		if repos.IsNoRows(err) {
			return productNotFound(id)
		}
		if err != nil {
			return err
		}
		if err := s.Authz.CanMutateProduct(c, p); err != nil {
			return err
		}
		return products.Delete(ctx, id)
	})
}

// mutate locks the product, checks ownership, runs fn and returns the product as committed.
func (s *CatalogService) mutate(ctx context.Context, c Caller, id int64, fn func(*repos.ProductRepo, domain.Product) error) (domain.Product, error) {
	var out domain.Product
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		products := s.Products.WithTx(tx)
		p, err := products.GetForUpdate(ctx, id)
		if repos.IsNoRows(err) {
			return productNotFound(id)
		}
		if err != nil {
			return err
		}
		if err := s.Authz.CanMutateProduct(c, p); err != nil {
			return err
		}
		if err := fn(products, p); err != nil {
			return err
		}
		out, err = products.Get(ctx, id)
		return err
	})
	return out, err
}

// applyInput validates and copies the set fields of in onto p, then reconciles status with stock.
func applyInput(p *domain.Product, in ProductInput) error {
	if in.Name != nil {
		v, ok := validate.ProductName(*in.Name)
		if !ok {
			return newErr(ErrBadRequest, "name must be 3 to 100 characters")
		}
		p.Name = v
	}
	if in.Description != nil {
		v, ok := validate.Description(*in.Description)
		if !ok {
			return newErr(ErrBadRequest, "description must be 10 to 2000 characters")
		}
		p.Description = v
	}
	if in.Price != nil {
		if !validate.Price(*in.Price) {
			return newErr(ErrBadRequest, "price must be at least 0.01 with at most two decimals")
		}
		p.Price = domain.Money(*in.Price)
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return newErr(ErrBadRequest, "stock cannot be negative")
		}
		p.Stock = *in.Stock
	}
	if in.Category != nil {
		if !in.Category.Valid() {
			return newErr(ErrBadRequest, "invalid category %q", *in.Category)
		}
		p.Category = *in.Category
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return newErr(ErrBadRequest, "invalid status %q", *in.Status)
		}
		p.Status = *in.Status
	}
	if in.Images != nil {
		imgs := make(domain.StringList, 0, len(in.Images))
		for _, raw := range in.Images {
			u, ok := validate.URL(raw)
			if !ok {
				return newErr(ErrBadRequest, "invalid image url %q", raw)
			}
			imgs = append(imgs, u)
		}
		p.Images = imgs
	}
	if in.MainImage != nil {
		if *in.MainImage == "" {
			p.MainImage = ""
		} else {
			u, ok := validate.URL(*in.MainImage)
			if !ok {
				return newErr(ErrBadRequest, "invalid main image url")
			}
			p.MainImage = u
		}
	}
	if p.MainImage == "" && len(p.Images) > 0 {
		p.MainImage = p.Images[0]
	}
	p.Status = p.Status.AfterStock(p.Stock)
	return nil
}
