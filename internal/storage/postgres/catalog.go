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
	productColumns = `id, kind, name, slug, caption, sort_order, active,
		COALESCE(code, ''), unit_price, weight, COALESCE(rebate_schedule_id, 0),
		COALESCE(lamel_width, ''), COALESCE(lamel_length, ''), COALESCE(lamel_depth, ''), weight_by_hand`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products WHERE active ORDER BY sort_order, id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductBySlugSQL = `SELECT ` + productColumns + ` FROM products WHERE slug = $1`

	variantColumns = `id, sofa_model_id, ledger_id, code, fabric_id, unit_price, weight`

	variantsOfSQL = `SELECT ` + variantColumns + ` FROM sofa_variants
		WHERE sofa_model_id = $1 ORDER BY id`

	variantByLedgerIDSQL = `SELECT ` + variantColumns + ` FROM sofa_variants
		WHERE sofa_model_id = $1 AND ledger_id = $2`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all active products in catalog display order.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// GetBySlug returns a single product by its URL slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductBySlugSQL, slug)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", slug, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", slug, err)
	}
	return &p, nil
}

// VariantsOf returns all variants of the given sofa model.
func (r *ProductRepository) VariantsOf(ctx context.Context, sofaModelID int64) ([]catalog.SofaVariant, error) {
	rows, err := r.pool.Query(ctx, variantsOfSQL, sofaModelID)
	if err != nil {
		return nil, fmt.Errorf("listing variants of %d: %w", sofaModelID, err)
	}
	return pgx.CollectRows(rows, scanVariant)
}

// VariantByLedgerID returns the variant of the given sofa model whose code
// has the given ledger surrogate ID.
func (r *ProductRepository) VariantByLedgerID(ctx context.Context, sofaModelID, ledgerID int64) (*catalog.SofaVariant, error) {
	rows, err := r.pool.Query(ctx, variantByLedgerIDSQL, sofaModelID, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("getting variant %d of %d: %w", ledgerID, sofaModelID, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting variant %d of %d: %w", ledgerID, sofaModelID, err)
	}
	return &v, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p     catalog.Product
		kind  string
		lamel catalog.LamelSpec
	)
	err := row.Scan(
		&p.ID, &kind, &p.Name, &p.Slug, &p.Caption, &p.SortOrder, &p.Active,
		&p.Code, &p.UnitPrice, &p.Weight, &p.RebateScheduleID,
		&lamel.Width, &lamel.Length, &lamel.Depth, &lamel.WeightByHand,
	)
	p.Kind = catalog.Kind(kind)
	if p.Kind == catalog.KindLamel {
		p.Lamel = &lamel
	}
	return p, err
}

func scanVariant(row pgx.CollectableRow) (catalog.SofaVariant, error) {
	var v catalog.SofaVariant
	err := row.Scan(
		&v.ID, &v.SofaModelID, &v.LedgerID, &v.Code,
		&v.FabricID, &v.UnitPrice, &v.Weight,
	)
	return v, err
}
