package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albyshop/storefront/internal/domain/pricing"
)

const scheduleForProductSQL = `SELECT rs.scheme FROM rebate_schedules rs
	JOIN products p ON p.rebate_schedule_id = rs.id
	WHERE p.id = $1`

var _ pricing.ScheduleSource = (*RebateRepository)(nil)

// RebateRepository loads and parses rebate schedules from PostgreSQL.
type RebateRepository struct {
	pool *pgxpool.Pool
}

// NewRebateRepository returns a RebateRepository that uses the given pool.
func NewRebateRepository(pool *pgxpool.Pool) *RebateRepository {
	return &RebateRepository{pool: pool}
}

// ScheduleFor returns the parsed rebate schedule attached to the product.
func (r *RebateRepository) ScheduleFor(ctx context.Context, productID int64) (pricing.Schedule, error) {
	var scheme string
	err := r.pool.QueryRow(ctx, scheduleForProductSQL, productID).Scan(&scheme)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Schedule{}, pricing.ErrNoSchedule
		}
		return pricing.Schedule{}, fmt.Errorf("loading schedule for product %d: %w", productID, err)
	}
	return pricing.ParseSchedule(scheme)
}
