package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices go over the wire as JSON numbers, matching what the frontend sends.
	decimal.MarshalJSONWithoutQuotes = true
}

// Money rounds to cents.
func Money(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryClothing    Category = "clothing"
	CategoryFood        Category = "food"
	CategoryBooks       Category = "books"
	CategoryHome        Category = "home"
	CategorySports      Category = "sports"
	CategoryBeauty      Category = "beauty"
	CategoryToys        Category = "toys"
	CategoryOther       Category = "other"
)

var Categories = []Category{
	CategoryElectronics, CategoryClothing, CategoryFood, CategoryBooks, CategoryHome,
	CategorySports, CategoryBeauty, CategoryToys, CategoryOther,
}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

type ProductStatus string

const (
	StatusActive     ProductStatus = "active"
	StatusInactive   ProductStatus = "inactive"
	StatusOutOfStock ProductStatus = "out_of_stock"
)

func (s ProductStatus) Valid() bool {
	return s == StatusActive || s == StatusInactive || s == StatusOutOfStock
}

// AfterStock is the status a product carrying s ends up with once its stock becomes stock.
// Zero stock always means out_of_stock; leaving zero reactivates an out_of_stock product and
// leaves any other status alone.
func (s ProductStatus) AfterStock(stock int) ProductStatus {
	if stock == 0 {
		return StatusOutOfStock
	}
	if s == StatusOutOfStock {
		return StatusActive
	}
	return s
}

// StringList is a []string persisted as a JSON array in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	return string(b), err
}

func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("StringList: cannot scan %T", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(l))
}

type SellerSummary struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func (s SellerSummary) DisplayName() string {
	return User{FirstName: s.FirstName, LastName: s.LastName}.DisplayName()
}

type Product struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Description  string          `db:"description" json:"description"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Stock        int             `db:"stock" json:"stock"`
	Category     Category        `db:"category" json:"category"`
	Status       ProductStatus   `db:"status" json:"status"`
	Images       StringList      `db:"images_json" json:"images"`
	MainImage    string          `db:"main_image" json:"mainImage"`
	Views        int             `db:"views" json:"views"`
	Rating       decimal.Decimal `db:"rating" json:"rating"`
	ReviewsCount int             `db:"reviews_count" json:"reviewsCount"`
	SellerID     int64           `db:"seller_id" json:"sellerId"`
	CreatedAt    string          `db:"created_at" json:"createdAt"`
	UpdatedAt    string          `db:"updated_at" json:"updatedAt"`

	Seller *SellerSummary `db:"-" json:"seller,omitempty"`
}

// ProductSummary is the live product attached to an order line for display.
type ProductSummary struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Status    ProductStatus   `json:"status"`
	MainImage string          `json:"mainImage"`
}

type SellerStats struct {
	TotalProducts    int     `json:"totalProducts"`
	ActiveProducts   int     `json:"activeProducts"`
	InactiveProducts int     `json:"inactiveProducts"`
	OutOfStock       int     `json:"outOfStock"`
	TotalViews       int     `json:"totalViews"`
	AverageRating    float64 `json:"averageRating"`
	TotalReviews     int     `json:"totalReviews"`
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty"`
}
