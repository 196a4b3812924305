package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/shopcart/internal/domain/product"
)

// AddResult holds the output of a successful add-to-cart.
type AddResult struct {
	Line           Line
	ProductCreated bool
	Notification   Notification
}

// Result holds the refreshed cart after a quantity change or removal.
type Result struct {
	View View
	// Message is empty when no notification is due.
	Message string
}

// Service encapsulates cart reconciliation and cart view logic.
type Service struct {
	tx       Transactor
	lines    Repository
	notifier Notifier
}

// NewService creates a cart Service. A nil notifier discards notifications.
func NewService(tx Transactor, lines Repository, notifier Notifier) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		tx:       tx,
		lines:    lines,
		notifier: notifier,
	}
}

// AddToCart resolves p to a stored product by title, creating it when absent,
// then increments its cart line or inserts a new line with quantity 1.
//
// The whole sequence runs in one transaction keyed by title, so concurrent adds
// of the same product converge on a single product row and a single line.
func (s *Service) AddToCart(ctx context.Context, p product.Product) (*AddResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var res AddResult
	err := s.tx.WithinTx(ctx, p.Title, func(ctx context.Context, products product.Repository, lines Repository) error {
		productID, created, err := resolveProduct(ctx, products, p)
		if err != nil {
			return err
		}
		res.ProductCreated = created

		line, err := upsertLine(ctx, lines, productID, p)
		if err != nil {
			return err
		}
		res.Line = line

		all, err := lines.List(ctx)
		if err != nil {
			return fmt.Errorf("list cart lines: %w", err)
		}
		res.Notification = Notification{
			Message:     MsgAdded,
			CartVisible: true,
			TotalCount:  ComputeView(all).TotalCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, res.Notification)

	return &res, nil
}

func upsertLine(ctx context.Context, lines Repository, productID int64, p product.Product) (Line, error) {
	existing, err := lines.GetByProductID(ctx, productID)
	switch {
	case err == nil:
		updated := *existing
		updated.Quantity++
		if err := lines.Update(ctx, &updated); err != nil {
			return Line{}, fmt.Errorf("update cart line: %w", err)
		}
		return updated, nil
	case errors.Is(err, ErrLineNotFound):
		// Snapshot title and price from the incoming product, not the stored row.
		line := Line{
			ProductID: productID,
			Title:     p.Title,
			Price:     p.Price,
			Quantity:  1,
		}
		if err := lines.Create(ctx, &line); err != nil {
			return Line{}, fmt.Errorf("create cart line: %w", err)
		}
		return line, nil
	default:
		return Line{}, fmt.Errorf("get cart line: %w", err)
	}
}

func resolveProduct(ctx context.Context, products product.Repository, p product.Product) (id int64, created bool, _ error) {
	stored, err := products.GetByTitle(ctx, p.Title)
	switch {
	case err == nil:
		// Existing price is kept even if p.Price differs.
		return stored.ID, false, nil
	case errors.Is(err, product.ErrNotFound):
		id, err := products.Create(ctx, &product.Product{
			Title: p.Title,
			Price: p.Price,
			Image: p.Image,
		})
		if err != nil {
			return 0, false, fmt.Errorf("create product: %w", err)
		}
		return id, true, nil
	default:
		return 0, false, fmt.Errorf("get product by title: %w", err)
	}
}

// View re-fetches all cart lines and derives the cart view.
func (s *Service) View(ctx context.Context) (*View, error) {
	lines, err := s.lines.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	v := ComputeView(lines)
	return &v, nil
}

// Line returns a single cart line by ID.
func (s *Service) Line(ctx context.Context, id int64) (*Line, error) {
	l, err := s.lines.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get cart line: %w", err)
	}
	return l, nil
}

// ChangeQuantity moves the quantity of line by one. A decrement that would
// reach zero deletes the line instead.
//
// Only line.ID and line.Title are used: the current quantity is re-read inside
// a transaction sharing the AddToCart key, so concurrent changes to the same
// product never overwrite each other.
func (s *Service) ChangeQuantity(ctx context.Context, line Line, increase bool) (*Result, error) {
	var msg string
	err := s.tx.WithinTx(ctx, line.Title, func(ctx context.Context, _ product.Repository, lines Repository) error {
		current, err := lines.GetByID(ctx, line.ID)
		if err != nil {
			return fmt.Errorf("get cart line: %w", err)
		}

		updated := *current
		if increase {
			updated.Quantity++
		} else {
			updated.Quantity--
		}
		if updated.Quantity > 0 {
			if err := lines.Update(ctx, &updated); err != nil {
				return fmt.Errorf("update cart line: %w", err)
			}
			return nil
		}
		if err := lines.Delete(ctx, current.ID); err != nil {
			return fmt.Errorf("delete cart line: %w", err)
		}
		msg = MsgRemoved
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.refresh(ctx, msg)
}

// RemoveLine deletes line regardless of its quantity.
func (s *Service) RemoveLine(ctx context.Context, line Line) (*Result, error) {
	err := s.tx.WithinTx(ctx, line.Title, func(ctx context.Context, _ product.Repository, lines Repository) error {
		if err := lines.Delete(ctx, line.ID); err != nil {
			return fmt.Errorf("delete cart line: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, MsgRemoved)
}

func (s *Service) refresh(ctx context.Context, msg string) (*Result, error) {
	v, err := s.View(ctx)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, Notification{
		Message:     msg,
		CartVisible: !v.IsEmpty,
		TotalCount:  v.TotalCount,
	})
	return &Result{View: *v, Message: msg}, nil
}
