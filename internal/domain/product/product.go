package product

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrInvalid is returned when a product cannot be added to the cart.
var ErrInvalid = errors.New("invalid product")

// Prices are stored as NUMERIC(12,2).
const (
	PriceScale     = 2
	priceIntDigits = 10
)

// MaxPrice is the largest storable price.
var MaxPrice = decimal.New(1, priceIntDigits).Sub(decimal.New(1, -PriceScale))

// Product is a catalog item. Catalog entries carry a zero ID until they are
// persisted the first time they are added to the cart.
type Product struct {
	ID    int64
	Title string
	Price decimal.Decimal
	// Image is the image URL. Empty means the client shows a placeholder.
	Image string
}

// Validate reports whether p can be resolved to a stored product.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.Wrap(ErrInvalid, "title required")
	}
	return ValidatePrice(p.Price)
}

// ValidatePrice reports whether d fits the stored price column: not negative,
// at most two decimal places and at most MaxPrice.
func ValidatePrice(d decimal.Decimal) error {
	if d.IsNegative() {
		return errors.Wrap(ErrInvalid, "price must not be negative")
	}
	// Bound the exponent before any arithmetic: rescaling 1e30000000 is not cheap.
	exp := d.Exponent()
	if exp > 0 && !d.IsZero() && d.NumDigits()+int(exp) > priceIntDigits {
		return errors.Wrap(ErrInvalid, "price too large")
	}
	if exp < -18 || !d.Equal(d.Truncate(PriceScale)) {
		return errors.Wrap(ErrInvalid, "price must have at most 2 decimal places")
	}
	if d.GreaterThan(MaxPrice) {
		return errors.Wrap(ErrInvalid, "price too large")
	}
	return nil
}

// Repository defines persistence operations for products. Title is the natural
// key used by cart reconciliation.
type Repository interface {
	GetByTitle(ctx context.Context, title string) (*Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	// Create inserts p unless a product with the same title exists, and returns
	// the identifier of the stored row. An existing row is never updated.
	Create(ctx context.Context, p *Product) (int64, error)
}

// Catalog is the remote product listing.
type Catalog interface {
	Fetch(ctx context.Context) ([]Product, error)
}
