package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albyshop/storefront/internal/domain/fulfillment"
)

const (
	createOrderSQL = `INSERT INTO orders (id, status, items, extra_rows, subtotal, total)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderSQL = `SELECT id, status, items, extra_rows, subtotal, total, created_at, updated_at
		FROM orders WHERE id = $1`

	// The status guard in the WHERE clause makes the guard-then-mutate a
	// single compare-and-set; a lost race affects zero rows.
	updateOrderStatusSQL = `UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
)

var _ fulfillment.Repository = (*OrderRepository)(nil)

// OrderRepository implements fulfillment.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Items and fee rows are serialized to JSON for
// the JSONB columns.
func (r *OrderRepository) Create(ctx context.Context, o *fulfillment.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	rowsJSON, err := json.Marshal(o.ExtraRows)
	if err != nil {
		return fmt.Errorf("marshaling order extra rows: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, string(o.Status), itemsJSON, rowsJSON, o.Subtotal, o.Total,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// Get returns a single order by its identifier.
func (r *OrderRepository) Get(ctx context.Context, id string) (*fulfillment.Order, error) {
	var (
		o         fulfillment.Order
		status    string
		itemsJSON []byte
		rowsJSON  []byte
	)
	err := r.pool.QueryRow(ctx, getOrderSQL, id).Scan(
		&o.ID, &status, &itemsJSON, &rowsJSON,
		&o.Subtotal, &o.Total, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fulfillment.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o.Status = fulfillment.Status(status)
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling items of order %q: %w", id, err)
	}
	if err := json.Unmarshal(rowsJSON, &o.ExtraRows); err != nil {
		return nil, fmt.Errorf("unmarshaling extra rows of order %q: %w", id, err)
	}
	return &o, nil
}

// UpdateStatus moves the order from one status to another atomically. When
// the guarded UPDATE affects no rows the order either vanished or was moved
// by a concurrent action; the two are told apart with a follow-up existence
// check.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to fulfillment.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking order %q: %w", id, err)
	}
	if !exists {
		return fulfillment.ErrOrderNotFound
	}
	return fulfillment.ErrConcurrentModification
}
