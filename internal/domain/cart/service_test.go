package cart

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/shopcart/internal/domain/product"
)

// --- Mock implementations ---

type mockProducts struct {
	byTitle   map[string]product.Product
	nextID    int64
	getErr    error
	createErr error
	created   []product.Product
}

func newMockProducts(existing ...product.Product) *mockProducts {
	m := &mockProducts{byTitle: make(map[string]product.Product), nextID: 100}
	for _, p := range existing {
		m.byTitle[p.Title] = p
	}
	return m
}

func (m *mockProducts) GetByTitle(_ context.Context, title string) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byTitle[title]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProducts) GetByID(context.Context, int64) (*product.Product, error) {
	return nil, product.ErrNotFound
}

func (m *mockProducts) List(context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProducts) Create(_ context.Context, p *product.Product) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.nextID++
	stored := *p
	stored.ID = m.nextID
	m.byTitle[p.Title] = stored
	m.created = append(m.created, stored)
	return stored.ID, nil
}

type mockLines struct {
	lines     []Line
	nextID    int64
	listErr   error
	getErr    error
	createErr error
	updateErr error
	deleteErr error
}

func (m *mockLines) List(context.Context) ([]Line, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]Line(nil), m.lines...), nil
}

func (m *mockLines) GetByID(_ context.Context, id int64) (*Line, error) {
	for _, l := range m.lines {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, ErrLineNotFound
}

func (m *mockLines) GetByProductID(_ context.Context, productID int64) (*Line, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, l := range m.lines {
		if l.ProductID == productID {
			return &l, nil
		}
	}
	return nil, ErrLineNotFound
}

func (m *mockLines) Create(_ context.Context, line *Line) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	line.ID = m.nextID
	m.lines = append(m.lines, *line)
	return nil
}

func (m *mockLines) Update(_ context.Context, line *Line) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	for i := range m.lines {
		if m.lines[i].ID == line.ID {
			m.lines[i] = *line
			return nil
		}
	}
	return ErrLineNotFound
}

func (m *mockLines) Delete(_ context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i := range m.lines {
		if m.lines[i].ID == id {
			m.lines = append(m.lines[:i], m.lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

// mockTx runs the unit of work directly against the mocks. It does not roll
// back.
type mockTx struct {
	products *mockProducts
	lines    *mockLines
	keys     []string
	err      error
}

func (m *mockTx) WithinTx(ctx context.Context, key string, fn TxFunc) error {
	m.keys = append(m.keys, key)
	if m.err != nil {
		return m.err
	}
	return fn(ctx, m.products, m.lines)
}

type recordingNotifier struct {
	got []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) {
	r.got = append(r.got, n)
}

// --- Helpers ---

type fixture struct {
	products *mockProducts
	lines    *mockLines
	tx       *mockTx
	notifier *recordingNotifier
	svc      *Service
}

func newFixture(products *mockProducts, lines *mockLines) *fixture {
	tx := &mockTx{products: products, lines: lines}
	n := &recordingNotifier{}
	return &fixture{
		products: products,
		lines:    lines,
		tx:       tx,
		notifier: n,
		svc:      NewService(tx, lines, n),
	}
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// --- Tests ---

func TestAddToCart_NewProduct(t *testing.T) {
	f := newFixture(newMockProducts(), &mockLines{})

	res, err := f.svc.AddToCart(context.Background(), product.Product{
		Title: "Backpack", Price: price("109.95"), Image: "bag.jpg",
	})
	require.NoError(t, err)

	assert.True(t, res.ProductCreated)
	assert.Equal(t, []string{"Backpack"}, f.tx.keys)
	require.Len(t, f.products.created, 1)
	assert.Equal(t, "bag.jpg", f.products.created[0].Image)

	assert.Equal(t, Line{ID: 1, ProductID: 101, Title: "Backpack", Price: price("109.95"), Quantity: 1}, res.Line)
	assert.Equal(t, Notification{Message: MsgAdded, CartVisible: true, TotalCount: 1}, res.Notification)
	assert.Equal(t, []Notification{res.Notification}, f.notifier.got)
}

func TestAddToCart_ExistingLine(t *testing.T) {
	stored := product.Product{ID: 7, Title: "Shirt", Price: price("22.30")}
	lines := &mockLines{
		lines: []Line{
			{ID: 3, ProductID: 7, Title: "Shirt", Price: price("22.30"), Quantity: 1},
			{ID: 4, ProductID: 8, Title: "Ring", Price: price("9.99"), Quantity: 2},
		},
		nextID: 4,
	}
	f := newFixture(newMockProducts(stored), lines)

	res, err := f.svc.AddToCart(context.Background(), product.Product{Title: "Shirt", Price: price("99.99")})
	require.NoError(t, err)

	assert.False(t, res.ProductCreated)
	assert.Empty(t, f.products.created)
	assert.True(t, price("22.30").Equal(f.products.byTitle["Shirt"].Price))
	assert.Equal(t, 2, res.Line.Quantity)
	assert.True(t, price("22.30").Equal(res.Line.Price))
	assert.Equal(t, 4, res.Notification.TotalCount)
}

func TestAddToCart_ExistingProductNewLine(t *testing.T) {
	stored := product.Product{ID: 7, Title: "Shirt", Price: price("22.30")}
	f := newFixture(newMockProducts(stored), &mockLines{})

	res, err := f.svc.AddToCart(context.Background(), product.Product{Title: "Shirt", Price: price("25.00")})
	require.NoError(t, err)

	assert.False(t, res.ProductCreated)
	assert.Equal(t, int64(7), res.Line.ProductID)
	// The line snapshots the incoming price, not the stored one.
	assert.True(t, price("25.00").Equal(res.Line.Price))
}

func TestAddToCart_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   product.Product
	}{
		{name: "empty title", in: product.Product{Price: price("1")}},
		{name: "blank title", in: product.Product{Title: " \t", Price: price("1")}},
		{name: "negative price", in: product.Product{Title: "A", Price: price("-0.01")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(newMockProducts(), &mockLines{})

			_, err := f.svc.AddToCart(context.Background(), tt.in)
			require.ErrorIs(t, err, product.ErrInvalid)
			assert.Empty(t, f.tx.keys)
			assert.Empty(t, f.notifier.got)
		})
	}
}

func TestAddToCart_StoreErrors(t *testing.T) {
	storeErr := errors.New("disk full")

	tests := []struct {
		name    string
		setup   func(*fixture)
		wantMsg string
	}{
		{
			name:    "transaction",
			setup:   func(f *fixture) { f.tx.err = storeErr },
			wantMsg: "disk full",
		},
		{
			name:    "product lookup",
			setup:   func(f *fixture) { f.products.getErr = storeErr },
			wantMsg: "get product by title: disk full",
		},
		{
			name:    "product create",
			setup:   func(f *fixture) { f.products.createErr = storeErr },
			wantMsg: "create product: disk full",
		},
		{
			name:    "line lookup",
			setup:   func(f *fixture) { f.lines.getErr = storeErr },
			wantMsg: "get cart line: disk full",
		},
		{
			name:    "line create",
			setup:   func(f *fixture) { f.lines.createErr = storeErr },
			wantMsg: "create cart line: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(newMockProducts(), &mockLines{})
			tt.setup(f)

			res, err := f.svc.AddToCart(context.Background(), product.Product{Title: "A", Price: price("1")})
			require.ErrorIs(t, err, storeErr)
			assert.EqualError(t, err, tt.wantMsg)
			assert.Nil(t, res)
			assert.Empty(t, f.notifier.got)
		})
	}
}

func TestAddToCart_UpdateError(t *testing.T) {
	storeErr := errors.New("disk full")
	lines := &mockLines{lines: []Line{{ID: 1, ProductID: 7, Title: "A", Price: price("1"), Quantity: 1}}, updateErr: storeErr}
	f := newFixture(newMockProducts(product.Product{ID: 7, Title: "A", Price: price("1")}), lines)

	_, err := f.svc.AddToCart(context.Background(), product.Product{Title: "A", Price: price("1")})
	require.ErrorIs(t, err, storeErr)
	assert.EqualError(t, err, "update cart line: disk full")
}

func TestAddToCart_CountError(t *testing.T) {
	storeErr := errors.New("timeout")
	f := newFixture(newMockProducts(), &mockLines{listErr: storeErr})

	res, err := f.svc.AddToCart(context.Background(), product.Product{Title: "A", Price: price("1")})
	require.ErrorIs(t, err, storeErr)
	assert.EqualError(t, err, "list cart lines: timeout")
	assert.Nil(t, res)
	assert.Empty(t, f.notifier.got)
}

func TestChangeQuantity(t *testing.T) {
	tests := []struct {
		name        string
		quantity    int
		increase    bool
		wantMessage string
		wantLines   int
		wantCount   int
	}{
		{name: "increment", quantity: 1, increase: true, wantLines: 2, wantCount: 4},
		{name: "decrement above one", quantity: 3, increase: false, wantLines: 2, wantCount: 4},
		{name: "decrement to zero deletes", quantity: 1, increase: false, wantMessage: MsgRemoved, wantLines: 1, wantCount: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := Line{ID: 1, ProductID: 1, Title: "A", Price: price("10"), Quantity: tt.quantity}
			lines := &mockLines{lines: []Line{
				target,
				{ID: 2, ProductID: 2, Title: "B", Price: price("5"), Quantity: 2},
			}}
			f := newFixture(newMockProducts(), lines)

			res, err := f.svc.ChangeQuantity(context.Background(), target, tt.increase)
			require.NoError(t, err)

			assert.Equal(t, []string{"A"}, f.tx.keys)
			assert.Equal(t, tt.wantMessage, res.Message)
			assert.Len(t, res.View.Items, tt.wantLines)
			assert.Equal(t, tt.wantCount, res.View.TotalCount)
			require.Len(t, f.notifier.got, 1)
			assert.Equal(t, Notification{Message: tt.wantMessage, CartVisible: true, TotalCount: tt.wantCount}, f.notifier.got[0])
		})
	}
}

func TestChangeQuantity_RereadsLine(t *testing.T) {
	stored := Line{ID: 1, ProductID: 1, Title: "A", Price: price("10"), Quantity: 5}
	f := newFixture(newMockProducts(), &mockLines{lines: []Line{stored}})

	stale := stored
	stale.Quantity = 1
	res, err := f.svc.ChangeQuantity(context.Background(), stale, false)
	require.NoError(t, err)

	assert.Empty(t, res.Message)
	assert.Equal(t, 4, f.lines.lines[0].Quantity)
	assert.Equal(t, 4, res.View.TotalCount)
}

func TestChangeQuantity_LastLine(t *testing.T) {
	target := Line{ID: 1, ProductID: 1, Title: "A", Price: price("10"), Quantity: 1}
	f := newFixture(newMockProducts(), &mockLines{lines: []Line{target}})

	res, err := f.svc.ChangeQuantity(context.Background(), target, false)
	require.NoError(t, err)

	assert.True(t, res.View.IsEmpty)
	assert.True(t, res.View.TotalPrice.IsZero())
	assert.Equal(t, Notification{Message: MsgRemoved}, f.notifier.got[0])
}

func TestRemoveLine(t *testing.T) {
	target := Line{ID: 1, ProductID: 1, Title: "A", Price: price("10"), Quantity: 5}
	f := newFixture(newMockProducts(), &mockLines{lines: []Line{
		target,
		{ID: 2, ProductID: 2, Title: "B", Price: price("5.50"), Quantity: 1},
	}})

	res, err := f.svc.RemoveLine(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, MsgRemoved, res.Message)
	assert.Equal(t, 1, res.View.TotalCount)
	assert.Equal(t, "5.50", res.View.TotalPrice.StringFixed(2))
}

func TestMutations_Errors(t *testing.T) {
	storeErr := errors.New("locked")
	target := Line{ID: 1, ProductID: 1, Title: "A", Price: price("10"), Quantity: 1}

	t.Run("update", func(t *testing.T) {
		f := newFixture(newMockProducts(), &mockLines{lines: []Line{target}, updateErr: storeErr})
		_, err := f.svc.ChangeQuantity(context.Background(), target, true)
		require.ErrorIs(t, err, storeErr)
		assert.Empty(t, f.notifier.got)
	})
	t.Run("delete", func(t *testing.T) {
		f := newFixture(newMockProducts(), &mockLines{lines: []Line{target}, deleteErr: storeErr})
		_, err := f.svc.RemoveLine(context.Background(), target)
		require.ErrorIs(t, err, storeErr)
	})
	t.Run("refresh", func(t *testing.T) {
		f := newFixture(newMockProducts(), &mockLines{lines: []Line{target}, listErr: storeErr})
		_, err := f.svc.ChangeQuantity(context.Background(), target, true)
		require.ErrorIs(t, err, storeErr)
		assert.Empty(t, f.notifier.got)
	})
	t.Run("missing line", func(t *testing.T) {
		f := newFixture(newMockProducts(), &mockLines{})
		_, err := f.svc.RemoveLine(context.Background(), target)
		require.ErrorIs(t, err, ErrLineNotFound)
		assert.Equal(t, []string{"A"}, f.tx.keys)
	})
	t.Run("changed line deleted", func(t *testing.T) {
		f := newFixture(newMockProducts(), &mockLines{})
		_, err := f.svc.ChangeQuantity(context.Background(), target, true)
		require.ErrorIs(t, err, ErrLineNotFound)
		assert.Empty(t, f.notifier.got)
	})
	t.Run("transaction", func(t *testing.T) {
		f := newFixture(newMockProducts(), &mockLines{lines: []Line{target}})
		f.tx.err = storeErr
		_, err := f.svc.ChangeQuantity(context.Background(), target, true)
		require.ErrorIs(t, err, storeErr)
		_, err = f.svc.RemoveLine(context.Background(), target)
		require.ErrorIs(t, err, storeErr)
		assert.Equal(t, 1, f.lines.lines[0].Quantity)
	})
}

func TestView(t *testing.T) {
	f := newFixture(newMockProducts(), &mockLines{})

	v, err := f.svc.View(context.Background())
	require.NoError(t, err)
	assert.True(t, v.IsEmpty)
	assert.NotNil(t, v.Items)

	f.lines.listErr = errors.New("gone")
	_, err = f.svc.View(context.Background())
	assert.EqualError(t, err, "list cart lines: gone")
}

func TestLine(t *testing.T) {
	f := newFixture(newMockProducts(), &mockLines{lines: []Line{{ID: 9, Quantity: 1}}})

	l, err := f.svc.Line(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), l.ID)

	_, err = f.svc.Line(context.Background(), 10)
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestNewService_NilNotifier(t *testing.T) {
	products := newMockProducts()
	lines := &mockLines{}
	svc := NewService(&mockTx{products: products, lines: lines}, lines, nil)

	_, err := svc.AddToCart(context.Background(), product.Product{Title: "A", Price: price("1")})
	require.NoError(t, err)
}
