package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albyshop/storefront/internal/domain/cart"
)

const (
	getCartSQL = `SELECT id, shipping_modifier FROM carts WHERE id = $1`

	getCartLinesSQL = `SELECT product_id, product_code, quantity
		FROM cart_lines WHERE cart_id = $1 ORDER BY id`

	upsertCartSQL = `INSERT INTO carts (id, shipping_modifier) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET shipping_modifier = $2, updated_at = now()`

	deleteCartLinesSQL = `DELETE FROM cart_lines WHERE cart_id = $1`

	insertCartLineSQL = `INSERT INTO cart_lines (cart_id, product_id, product_code, quantity)
		VALUES ($1, $2, $3, $4)`

	deleteCartSQL = `DELETE FROM carts WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Only the
// lines' product references and quantities are stored; prices and totals are
// recomputed after loading.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the cart with its stored lines.
func (r *CartRepository) Get(ctx context.Context, id string) (*cart.Cart, error) {
	var c cart.Cart
	err := r.pool.QueryRow(ctx, getCartSQL, id).Scan(&c.ID, &c.ShippingModifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart %q: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, getCartLinesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting lines of cart %q: %w", id, err)
	}
	c.Lines, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Line, error) {
		var ln cart.Line
		err := row.Scan(&ln.ProductID, &ln.Code, &ln.Quantity)
		return ln, err
	})
	if err != nil {
		return nil, fmt.Errorf("getting lines of cart %q: %w", id, err)
	}
	return &c, nil
}

// Save upserts the cart and rewrites its lines in one transaction.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("saving cart %q: %w", c.ID, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, upsertCartSQL, c.ID, c.ShippingModifier); err != nil {
		return fmt.Errorf("saving cart %q: %w", c.ID, err)
	}
	if _, err := tx.Exec(ctx, deleteCartLinesSQL, c.ID); err != nil {
		return fmt.Errorf("saving cart %q: %w", c.ID, err)
	}
	for _, ln := range c.Lines {
		if _, err := tx.Exec(ctx, insertCartLineSQL, c.ID, ln.ProductID, ln.Code, ln.Quantity); err != nil {
			return fmt.Errorf("saving line of cart %q: %w", c.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// Delete removes the cart and, via cascade, its lines.
func (r *CartRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, deleteCartSQL, id); err != nil {
		return fmt.Errorf("deleting cart %q: %w", id, err)
	}
	return nil
}
