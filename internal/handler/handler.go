// Package handler exposes the catalog and the cart over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/shopcart/internal/domain/cart"
	"github.com/xenking/shopcart/internal/domain/product"
)

// CartService is the cart behaviour the handlers rely on.
type CartService interface {
	AddToCart(ctx context.Context, p product.Product) (*cart.AddResult, error)
	View(ctx context.Context) (*cart.View, error)
	Line(ctx context.Context, id int64) (*cart.Line, error)
	ChangeQuantity(ctx context.Context, line cart.Line, increase bool) (*cart.Result, error)
	RemoveLine(ctx context.Context, line cart.Line) (*cart.Result, error)
}

var _ CartService = (*cart.Service)(nil)

// Options holds optional Handler dependencies.
type Options struct {
	// Events serves the notification stream. The route is not registered
	// when nil.
	Events http.Handler
	// MeterProvider defaults to a no-op provider.
	MeterProvider metric.MeterProvider
}

// Handler serves the /api routes.
type Handler struct {
	catalog product.Catalog
	carts   CartService
	events  http.Handler

	added         metric.Int64Counter
	removed       metric.Int64Counter
	catalogErrors metric.Int64Counter
}

// NewHandler creates a Handler.
func NewHandler(catalog product.Catalog, carts CartService, opts Options) (*Handler, error) {
	mp := opts.MeterProvider
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter("github.com/xenking/shopcart/internal/handler")

	h := &Handler{
		catalog: catalog,
		carts:   carts,
		events:  opts.Events,
	}
	var err error
	if h.added, err = meter.Int64Counter("cart.items.added",
		metric.WithDescription("Products added to the cart"),
	); err != nil {
		return nil, errors.Wrap(err, "create added counter")
	}
	if h.removed, err = meter.Int64Counter("cart.lines.removed",
		metric.WithDescription("Cart lines deleted by decrement or removal"),
	); err != nil {
		return nil, errors.Wrap(err, "create removed counter")
	}
	if h.catalogErrors, err = meter.Int64Counter("catalog.fetch.errors",
		metric.WithDescription("Failed catalog fetches"),
	); err != nil {
		return nil, errors.Wrap(err, "create catalog errors counter")
	}
	return h, nil
}

// Register mounts all routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("GET /api/cart/indicator", h.GetIndicator)
	mux.HandleFunc("POST /api/cart/items", h.AddItem)
	mux.HandleFunc("POST /api/cart/items/{id}/increment", h.Increment)
	mux.HandleFunc("POST /api/cart/items/{id}/decrement", h.Decrement)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.RemoveItem)
	if h.events != nil {
		mux.Handle("GET /api/cart/events", h.events)
	}
}
