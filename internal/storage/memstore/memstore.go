// Package memstore provides an in-process cart store. Writes are serialized by
// a single lock and every unit of work commits or rolls back as a whole.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/xenking/shopcart/internal/domain/cart"
	"github.com/xenking/shopcart/internal/domain/product"
)

var (
	_ cart.Transactor    = (*Store)(nil)
	_ cart.Repository    = (*LineRepository)(nil)
	_ product.Repository = (*ProductRepository)(nil)
)

type state struct {
	products    map[int64]product.Product
	lines       map[int64]cart.Line
	nextProduct int64
	nextLine    int64
}

func (s *state) clone() *state {
	return &state{
		products:    maps.Clone(s.products),
		lines:       maps.Clone(s.lines),
		nextProduct: s.nextProduct,
		nextLine:    s.nextLine,
	}
}

// Store holds products and cart lines in memory.
type Store struct {
	mu sync.Mutex
	st *state
}

// New returns an empty Store.
func New() *Store {
	return &Store{st: &state{
		products: make(map[int64]product.Product),
		lines:    make(map[int64]cart.Line),
	}}
}

// WithinTx runs fn against a private copy of the state and publishes the copy
// only when fn succeeds. The key is ignored: all units of work are serialized.
func (s *Store) WithinTx(ctx context.Context, _ string, fn cart.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, productTable{work}, lineTable{work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Products returns a product repository over the committed state.
func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }

// Lines returns a cart line repository over the committed state.
func (s *Store) Lines() *LineRepository { return &LineRepository{s: s} }

// ProductRepository implements product.Repository outside of transactions.
type ProductRepository struct{ s *Store }

func (r *ProductRepository) GetByTitle(ctx context.Context, title string) (*product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return productTable{r.s.st}.GetByTitle(ctx, title)
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return productTable{r.s.st}.GetByID(ctx, id)
}

func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return productTable{r.s.st}.List(ctx)
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return productTable{r.s.st}.Create(ctx, p)
}

// LineRepository implements cart.Repository outside of transactions.
type LineRepository struct{ s *Store }

func (r *LineRepository) List(ctx context.Context) ([]cart.Line, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return lineTable{r.s.st}.List(ctx)
}

func (r *LineRepository) GetByID(ctx context.Context, id int64) (*cart.Line, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return lineTable{r.s.st}.GetByID(ctx, id)
}

func (r *LineRepository) GetByProductID(ctx context.Context, productID int64) (*cart.Line, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return lineTable{r.s.st}.GetByProductID(ctx, productID)
}

func (r *LineRepository) Create(ctx context.Context, line *cart.Line) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return lineTable{r.s.st}.Create(ctx, line)
}

func (r *LineRepository) Update(ctx context.Context, line *cart.Line) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return lineTable{r.s.st}.Update(ctx, line)
}

func (r *LineRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return lineTable{r.s.st}.Delete(ctx, id)
}

// productTable and lineTable operate on a state without locking; callers hold
// Store.mu.
type productTable struct{ st *state }

func (t productTable) GetByTitle(_ context.Context, title string) (*product.Product, error) {
	for _, id := range sortedKeys(t.st.products) {
		if p := t.st.products[id]; p.Title == title {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (t productTable) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (t productTable) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(t.st.products))
	for _, id := range sortedKeys(t.st.products) {
		out = append(out, t.st.products[id])
	}
	return out, nil
}

func (t productTable) Create(ctx context.Context, p *product.Product) (int64, error) {
	if existing, err := t.GetByTitle(ctx, p.Title); err == nil {
		return existing.ID, nil
	}
	t.st.nextProduct++
	stored := *p
	stored.ID = t.st.nextProduct
	t.st.products[stored.ID] = stored
	p.ID = stored.ID
	return stored.ID, nil
}

type lineTable struct{ st *state }

func (t lineTable) List(_ context.Context) ([]cart.Line, error) {
	out := make([]cart.Line, 0, len(t.st.lines))
	for _, id := range sortedKeys(t.st.lines) {
		out = append(out, t.st.lines[id])
	}
	return out, nil
}

func (t lineTable) GetByID(_ context.Context, id int64) (*cart.Line, error) {
	l, ok := t.st.lines[id]
	if !ok {
		return nil, cart.ErrLineNotFound
	}
	return &l, nil
}

func (t lineTable) GetByProductID(_ context.Context, productID int64) (*cart.Line, error) {
	for _, id := range sortedKeys(t.st.lines) {
		if l := t.st.lines[id]; l.ProductID == productID {
			return &l, nil
		}
	}
	return nil, cart.ErrLineNotFound
}

func (t lineTable) Create(_ context.Context, line *cart.Line) error {
	t.st.nextLine++
	line.ID = t.st.nextLine
	t.st.lines[line.ID] = *line
	return nil
}

func (t lineTable) Update(_ context.Context, line *cart.Line) error {
	if _, ok := t.st.lines[line.ID]; !ok {
		return cart.ErrLineNotFound
	}
	t.st.lines[line.ID] = *line
	return nil
}

func (t lineTable) Delete(_ context.Context, id int64) error {
	if _, ok := t.st.lines[id]; !ok {
		return cart.ErrLineNotFound
	}
	delete(t.st.lines, id)
	return nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	return slices.Sorted(maps.Keys(m))
}
