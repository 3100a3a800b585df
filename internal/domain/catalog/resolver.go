package catalog

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// UnknownCodeError indicates a product code token that was never minted in
// the ledger. It matches ErrNotFound, so callers that do not care about the
// distinction can treat it as "variant unavailable".
type UnknownCodeError struct {
	Code string
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("product code %q not found in ledger", e.Code)
}

// Is reports that an UnknownCodeError matches ErrNotFound.
func (e *UnknownCodeError) Is(target error) bool { return target == ErrNotFound }

// NoVariantError indicates a code that exists in the ledger but does not
// belong to any variant of the queried product. Like UnknownCodeError it
// matches ErrNotFound.
type NoVariantError struct {
	Code      string
	ProductID int64
}

func (e *NoVariantError) Error() string {
	return fmt.Sprintf("code %q is not a variant of product %d", e.Code, e.ProductID)
}

// Is reports that a NoVariantError matches ErrNotFound.
func (e *NoVariantError) Is(target error) bool { return target == ErrNotFound }

// Variant is the priced entity a product code resolves to: either the product
// itself (commodity, lamel, fabric) or one of a sofa model's variants.
type Variant struct {
	Code      string
	UnitPrice decimal.Decimal
	Weight    decimal.Decimal

	// SofaVariantID is set when the variant is a sofa configuration, 0
	// otherwise.
	SofaVariantID int64
	FabricID      int64
}

// Resolver resolves a product code token to the priced variant it identifies,
// scoped to a product.
type Resolver struct {
	ledger   Ledger
	products Repository
}

// NewResolver creates a Resolver over the given ledger and catalog.
func NewResolver(ledger Ledger, products Repository) *Resolver {
	return &Resolver{ledger: ledger, products: products}
}

// Resolve returns the priced variant the given code identifies within p.
//
// For directly priced kinds the code must be the product's own; for sofa
// models resolution is two-stage: the token is first resolved against the
// global code ledger, then the model's variant collection is queried by the
// resulting surrogate ID. An empty code is accepted for directly priced
// kinds and means "the product itself".
func (r *Resolver) Resolve(ctx context.Context, p *Product, code string) (*Variant, error) {
	switch p.Kind {
	case KindCommodity, KindLamel, KindFabric:
		if code != "" && code != p.Code {
			return nil, &NoVariantError{Code: code, ProductID: p.ID}
		}
		return &Variant{
			Code:      p.Code,
			UnitPrice: p.UnitPrice,
			Weight:    p.Weight,
		}, nil

	case KindSofaModel:
		entry, err := r.ledger.Lookup(ctx, code)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, &UnknownCodeError{Code: code}
			}
			return nil, errors.Wrap(err, "lookup code")
		}

		sv, err := r.products.VariantByLedgerID(ctx, p.ID, entry.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, &NoVariantError{Code: code, ProductID: p.ID}
			}
			return nil, errors.Wrap(err, "query variant")
		}

		return &Variant{
			Code:          sv.Code,
			UnitPrice:     sv.UnitPrice,
			Weight:        sv.Weight,
			SofaVariantID: sv.ID,
			FabricID:      sv.FabricID,
		}, nil

	default:
		return nil, errors.Errorf("unsupported product kind: %q", p.Kind)
	}
}
