package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/shopcart/internal/domain/cart"
)

const (
	listLinesSQL = `SELECT id, product_id, title, price, quantity FROM cart ORDER BY id`

	getLineByIDSQL = `SELECT id, product_id, title, price, quantity FROM cart WHERE id = $1`

	getLineByProductIDSQL = `SELECT id, product_id, title, price, quantity FROM cart WHERE product_id = $1`

	insertLineSQL = `INSERT INTO cart (product_id, title, price, quantity)
		VALUES ($1, $2, $3, $4) RETURNING id`

	updateLineSQL = `UPDATE cart SET product_id = $2, title = $3, price = $4, quantity = $5
		WHERE id = $1`

	deleteLineSQL = `DELETE FROM cart WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	q querier
}

// List returns every cart line ordered by ID.
func (r *CartRepository) List(ctx context.Context) ([]cart.Line, error) {
	rows, err := r.q.Query(ctx, listLinesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing cart lines: %w", err)
	}
	return pgx.CollectRows(rows, scanLine)
}

// GetByID returns a cart line by its identifier.
func (r *CartRepository) GetByID(ctx context.Context, id int64) (*cart.Line, error) {
	return r.getOne(ctx, getLineByIDSQL, id)
}

// GetByProductID returns the cart line holding the given product.
func (r *CartRepository) GetByProductID(ctx context.Context, productID int64) (*cart.Line, error) {
	return r.getOne(ctx, getLineByProductIDSQL, productID)
}

func (r *CartRepository) getOne(ctx context.Context, sql string, id int64) (*cart.Line, error) {
	rows, err := r.q.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("getting cart line %d: %w", id, err)
	}

	l, err := pgx.CollectExactlyOneRow(rows, scanLine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrLineNotFound
		}
		return nil, fmt.Errorf("getting cart line %d: %w", id, err)
	}
	return &l, nil
}

// Create inserts line and sets its generated ID.
func (r *CartRepository) Create(ctx context.Context, line *cart.Line) error {
	err := r.q.QueryRow(ctx, insertLineSQL,
		line.ProductID, line.Title, line.Price, line.Quantity,
	).Scan(&line.ID)
	if err != nil {
		return fmt.Errorf("creating cart line for product %d: %w", line.ProductID, err)
	}
	return nil
}

// Update replaces the stored line with the same ID.
func (r *CartRepository) Update(ctx context.Context, line *cart.Line) error {
	tag, err := r.q.Exec(ctx, updateLineSQL,
		line.ID, line.ProductID, line.Title, line.Price, line.Quantity,
	)
	if err != nil {
		return fmt.Errorf("updating cart line %d: %w", line.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// Delete removes the line with the given ID.
func (r *CartRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, deleteLineSQL, id)
	if err != nil {
		return fmt.Errorf("deleting cart line %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

func scanLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.ID, &l.ProductID, &l.Title, &l.Price, &l.Quantity)
	return l, err
}
