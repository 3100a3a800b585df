package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product, code, or variant does not exist.
var ErrNotFound = errors.New("product not found")

// Kind enumerates the concrete product types of the catalog. The set is
// closed: pricing and weight logic switch over it exhaustively.
type Kind string

const (
	// KindCommodity is a simple stocked product with its own price.
	KindCommodity Kind = "commodity"
	// KindLamel is a slatted-blind lamel, directly priced, optionally rebated
	// by quantity.
	KindLamel Kind = "lamel"
	// KindFabric is an upholstery fabric, directly priced.
	KindFabric Kind = "fabric"
	// KindSofaModel is a configurable sofa; it carries no price of its own,
	// only its variants do.
	KindSofaModel Kind = "sofa_model"
)

// Valid reports whether k is a known product kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCommodity, KindLamel, KindFabric, KindSofaModel:
		return true
	default:
		return false
	}
}

// Product represents a catalog entity of any kind. Fields that only apply to
// some kinds are zero for the others: UnitPrice is zero for sofa models,
// Lamel is nil for everything but lamels.
type Product struct {
	ID        int64
	Kind      Kind
	Name      string
	Slug      string
	Caption   string
	SortOrder int
	Active    bool

	// Code is the ledger-minted product code identifying this entity.
	Code string

	// UnitPrice is the net price for directly priced kinds.
	UnitPrice decimal.Decimal

	// Weight is the per-unit weight in kilograms.
	Weight decimal.Decimal

	// RebateScheduleID references the quantity rebate schedule, 0 when none
	// is attached. Only lamels carry schedules.
	RebateScheduleID int64

	Lamel *LamelSpec
}

// LamelSpec holds the physical dimensions of a lamel. All values are strings
// of millimetres as entered by the catalog staff.
type LamelSpec struct {
	Width  string
	Length string
	Depth  string

	// WeightByHand disables the derived weight calculation.
	WeightByHand bool
}

// SofaVariant is one concrete, independently priced configuration of a sofa
// model. It owns its own ledger code and references the fabric it is covered
// with.
type SofaVariant struct {
	ID          int64
	SofaModelID int64

	// LedgerID is the surrogate identifier of the variant's code in the
	// shared product code ledger.
	LedgerID int64

	Code      string
	FabricID  int64
	UnitPrice decimal.Decimal
	Weight    decimal.Decimal
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)

	// VariantsOf returns all variants of the given sofa model.
	VariantsOf(ctx context.Context, sofaModelID int64) ([]SofaVariant, error)

	// VariantByLedgerID returns the variant of the given sofa model whose
	// code has the given ledger surrogate ID. Returns ErrNotFound when the
	// model has no such variant.
	VariantByLedgerID(ctx context.Context, sofaModelID, ledgerID int64) (*SofaVariant, error)
}

// StartingPrice returns the catalog display price for p. For sofa models it
// is the minimum unit price across the given variants; for every other kind
// it is the product's own unit price.
func StartingPrice(p *Product, variants []SofaVariant) decimal.Decimal {
	switch p.Kind {
	case KindCommodity, KindLamel, KindFabric:
		return p.UnitPrice
	case KindSofaModel:
		if len(variants) == 0 {
			return decimal.Zero
		}
		lowest := variants[0].UnitPrice
		for _, v := range variants[1:] {
			if v.UnitPrice.LessThan(lowest) {
				lowest = v.UnitPrice
			}
		}
		return lowest
	default:
		return decimal.Zero
	}
}

// lamelDensityFactor converts a lamel's volume in cubic millimetres to
// kilograms. Determined empirically for the PVC stock the workshop uses.
const lamelDensityFactor = "0.00000075"

// DerivedLamelWeight computes a lamel's weight in kilograms from its
// dimensions, rounded to three decimal places. Returns false when any
// dimension is missing or unparseable, or when the weight was entered by
// hand and must not be overwritten.
func DerivedLamelWeight(spec *LamelSpec) (decimal.Decimal, bool) {
	if spec == nil || spec.WeightByHand {
		return decimal.Zero, false
	}
	length, err := decimal.NewFromString(spec.Length)
	if err != nil {
		return decimal.Zero, false
	}
	width, err := decimal.NewFromString(spec.Width)
	if err != nil {
		return decimal.Zero, false
	}
	depth, err := decimal.NewFromString(spec.Depth)
	if err != nil {
		return decimal.Zero, false
	}
	vol := length.Mul(width).Mul(depth)
	return vol.Mul(decimal.RequireFromString(lamelDensityFactor)).Round(3), true
}
