package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/shopcart/internal/domain/product"
)

const (
	getProductByTitleSQL = `SELECT id, title, price, image FROM products WHERE title = $1`

	getProductByIDSQL = `SELECT id, title, price, image FROM products WHERE id = $1`

	listProductsSQL = `SELECT id, title, price, image FROM products ORDER BY id`

	insertProductSQL = `INSERT INTO products (title, price, image) VALUES ($1, $2, $3)
		ON CONFLICT (title) DO NOTHING
		RETURNING id`

	getProductIDByTitleSQL = `SELECT id FROM products WHERE title = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	q querier
}

// GetByTitle returns the product with the exact title.
func (r *ProductRepository) GetByTitle(ctx context.Context, title string) (*product.Product, error) {
	return r.getOne(ctx, getProductByTitleSQL, title)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	return r.getOne(ctx, getProductByIDSQL, id)
}

func (r *ProductRepository) getOne(ctx context.Context, sql string, arg any) (*product.Product, error) {
	rows, err := r.q.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting product %v: %w", arg, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %v: %w", arg, err)
	}
	return &p, nil
}

// List returns all stored products ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.q.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts p unless its title is already stored. A concurrent insert of
// the same title resolves to the row that won; its price is left untouched.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, insertProductSQL, p.Title, p.Price, p.Image).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = r.q.QueryRow(ctx, getProductIDByTitleSQL, p.Title).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("creating product %q: %w", p.Title, err)
	}
	p.ID = id
	return id, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Title, &p.Price, &p.Image)
	return p, err
}
