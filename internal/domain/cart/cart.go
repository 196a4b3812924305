package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopcart/internal/domain/product"
)

// ErrLineNotFound is returned when a cart line does not exist.
var ErrLineNotFound = errors.New("cart line not found")

// Transient notification texts shown to the user.
const (
	MsgAdded   = "Added to cart"
	MsgRemoved = "Item removed"
)

// Line is one product in the cart. Title and Price are a snapshot taken when
// the line was created and are not refreshed from the product row.
type Line struct {
	ID        int64
	ProductID int64
	Title     string
	Price     decimal.Decimal
	// Quantity is at least 1 while the line exists.
	Quantity int
}

// Subtotal returns Price × Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Repository defines persistence operations for cart lines.
type Repository interface {
	List(ctx context.Context) ([]Line, error)
	GetByID(ctx context.Context, id int64) (*Line, error)
	GetByProductID(ctx context.Context, productID int64) (*Line, error)
	Create(ctx context.Context, line *Line) error
	Update(ctx context.Context, line *Line) error
	Delete(ctx context.Context, id int64) error
}

// TxFunc is the unit of work executed by a Transactor.
type TxFunc func(ctx context.Context, products product.Repository, lines Repository) error

// Transactor runs a unit of work atomically. Units of work sharing the same key
// never interleave.
type Transactor interface {
	WithinTx(ctx context.Context, key string, fn TxFunc) error
}

// Notification is pushed to the presentation layer after a cart mutation.
type Notification struct {
	Message string
	// CartVisible drives the cart indicator on the catalog screen.
	CartVisible bool
	TotalCount  int
}

// Notifier delivers notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) {}
