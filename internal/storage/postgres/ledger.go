package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albyshop/storefront/internal/domain/catalog"
)

const (
	// The code column is generated from the identity value, so one INSERT
	// is the whole atomic increment-or-create: two concurrent mints can
	// never observe the same sequence value.
	mintCodeSQL = `INSERT INTO product_codes (kind) VALUES ($1) RETURNING id, code`

	lookupCodeSQL = `SELECT id, kind, code FROM product_codes WHERE code = $1`
)

var _ catalog.Ledger = (*CodeLedger)(nil)

// CodeLedger implements catalog.Ledger backed by PostgreSQL.
type CodeLedger struct {
	pool *pgxpool.Pool
}

// NewCodeLedger returns a CodeLedger that uses the given pool.
func NewCodeLedger(pool *pgxpool.Pool) *CodeLedger {
	return &CodeLedger{pool: pool}
}

// Mint allocates the next product code for the given kind.
func (l *CodeLedger) Mint(ctx context.Context, kind catalog.Kind) (catalog.CodeEntry, error) {
	entry := catalog.CodeEntry{Kind: kind}
	err := l.pool.QueryRow(ctx, mintCodeSQL, string(kind)).Scan(&entry.ID, &entry.Code)
	if err != nil {
		return catalog.CodeEntry{}, fmt.Errorf("minting code for %s: %w", kind, err)
	}
	return entry, nil
}

// Lookup resolves a code token to its ledger entry.
func (l *CodeLedger) Lookup(ctx context.Context, code string) (*catalog.CodeEntry, error) {
	var (
		entry catalog.CodeEntry
		kind  string
	)
	err := l.pool.QueryRow(ctx, lookupCodeSQL, code).Scan(&entry.ID, &kind, &entry.Code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("looking up code %q: %w", code, err)
	}
	entry.Kind = catalog.Kind(kind)
	return &entry, nil
}
