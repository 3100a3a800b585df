package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested cart does not exist.
var ErrNotFound = errors.New("cart not found")

// Line is one position of a cart: a product, the chosen variant code, and a
// quantity. UnitPrice, Subtotal, and Weight are ephemeral: they are recomputed
// on every cart mutation and never persist independently of the cart snapshot.
type Line struct {
	ProductID int64

	// Code identifies the chosen variant for configurable products. Empty
	// means the product itself.
	Code string

	Quantity int

	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal

	// Weight is the per-unit weight in kilograms, filled during
	// recomputation.
	Weight decimal.Decimal
}

// ExtraRow is a labeled fee appended to the cart's breakdown by a cart
// modifier, e.g. shipping costs.
type ExtraRow struct {
	Modifier string
	Label    string
	Amount   decimal.Decimal
}

// Cart holds the lines and computed totals of one customer's cart.
type Cart struct {
	ID    string
	Lines []Line

	// ShippingModifier is the identifier of the shipping method the
	// customer selected, empty when none was chosen yet.
	ShippingModifier string

	// ExtraRows and the totals below are recomputed by the modifier
	// pipeline; any previous values are discarded.
	ExtraRows []ExtraRow
	Subtotal  decimal.Decimal
	Total     decimal.Decimal
}

// TotalWeight returns the summed weight of all lines (per-unit weight times
// quantity) in kilograms, rounded to two decimal places.
func (c *Cart) TotalWeight() decimal.Decimal {
	sum := decimal.Zero
	for _, ln := range c.Lines {
		sum = sum.Add(ln.Weight.Mul(decimal.NewFromInt(int64(ln.Quantity))))
	}
	return sum.Round(2)
}

// Repository defines persistence operations for carts. Computed fields are
// not stored; carts are recomputed after loading.
type Repository interface {
	Get(ctx context.Context, id string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, id string) error
}
