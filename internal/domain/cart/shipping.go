package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// Shipping modifier identifiers.
const (
	PostalShippingID  = "postal-shipping"
	CourierShippingID = "courier-delivery"
)

// Postal shipping fee tiers by total cart weight in kilograms.
var (
	feeUnderOne        = decimal.RequireFromString("4")
	feeOneToThree      = decimal.RequireFromString("7.5")
	feeThreeToFifteen  = decimal.RequireFromString("10")
	feeFifteenToThirty = decimal.RequireFromString("20")
	feeOverThirty      = decimal.RequireFromString("500")
	courierFlatFee     = decimal.RequireFromString("3")
	oneKg              = decimal.NewFromInt(1)
	threeKg            = decimal.NewFromInt(3)
	fifteenKg          = decimal.NewFromInt(15)
	thirtyKg           = decimal.NewFromInt(30)
)

// FeeWeightExactly30 is the fee the legacy tier chain produces for a cart
// weighing exactly 30 kg: the 15–30 tier stops below 30 and the >30 tier
// starts above it, so 30.00 falls through to this default. Kept as-is until
// a product decision replaces it.
var FeeWeightExactly30 = decimal.RequireFromString("999")

// PostalFee returns the flat shipping fee for the given total cart weight.
// Every weight maps to exactly one tier; there is no error path.
func PostalFee(weight decimal.Decimal) decimal.Decimal {
	switch {
	case weight.LessThan(oneKg):
		return feeUnderOne
	case weight.LessThan(threeKg):
		return feeOneToThree
	case weight.LessThan(fifteenKg):
		return feeThreeToFifteen
	case weight.LessThan(thirtyKg):
		return feeFifteenToThirty
	case weight.GreaterThan(thirtyKg):
		return feeOverThirty
	default:
		return FeeWeightExactly30
	}
}

// PostalModifier appends a weight-tiered flat shipping fee to the cart.
type PostalModifier struct{}

// Identifier implements CartModifier.
func (PostalModifier) Identifier() string { return PostalShippingID }

// Label implements CartModifier.
func (PostalModifier) Label() string { return "Postal shipping" }

// ProcessCart appends the "Shipping costs" fee row and raises the cart total
// by the tiered fee for the cart's total weight.
func (PostalModifier) ProcessCart(_ context.Context, c *Cart) error {
	fee := PostalFee(c.TotalWeight())
	c.ExtraRows = append(c.ExtraRows, ExtraRow{
		Modifier: PostalShippingID,
		Label:    "Shipping costs",
		Amount:   fee,
	})
	c.Total = c.Total.Add(fee)
	return nil
}

// CourierModifier charges a flat courier fee regardless of weight. The
// courier only serves the local city area; the restriction is advisory here,
// enforcement belongs to the delivery dispatch.
type CourierModifier struct{}

// Identifier implements CartModifier.
func (CourierModifier) Identifier() string { return CourierShippingID }

// Label implements CartModifier.
func (CourierModifier) Label() string { return "Courier delivery, only within Minsk" }

// ProcessCart appends the flat courier fee row.
func (CourierModifier) ProcessCart(_ context.Context, c *Cart) error {
	c.ExtraRows = append(c.ExtraRows, ExtraRow{
		Modifier: CourierShippingID,
		Label:    "Courier shipping costs",
		Amount:   courierFlatFee,
	})
	c.Total = c.Total.Add(courierFlatFee)
	return nil
}
