package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albyshop/storefront/internal/domain/catalog"
	"github.com/albyshop/storefront/internal/domain/pricing"
)

func testPipeline(t *testing.T, shipping ...CartModifier) *Pipeline {
	t.Helper()

	lamel := lamelProduct()
	rail := &catalog.Product{
		ID:        20,
		Kind:      catalog.KindCommodity,
		Name:      "Curtain rail",
		Code:      "00201",
		UnitPrice: decimal.RequireFromString("12.00"),
		Weight:    decimal.RequireFromString("0.85"),
	}
	cat := &mockCatalog{byID: map[int64]*catalog.Product{lamel.ID: lamel, rail.ID: rail}}
	schedule, err := pricing.ParseSchedule("5:10\n10:20")
	require.NoError(t, err)
	m := newModifier(t, cat, nil, &mockSchedules{byProduct: map[int64]pricing.Schedule{lamel.ID: schedule}})

	return NewPipeline([]LineModifier{m}, shipping)
}

func TestRecompute_Totals(t *testing.T) {
	p := testPipeline(t, PostalModifier{})
	c := &Cart{Lines: []Line{
		{ProductID: 7, Quantity: 10}, // 42.00 minus 20% = 33.60
		{ProductID: 20, Quantity: 1}, // 12.00
	}}

	require.NoError(t, p.Recompute(context.Background(), c))

	assert.True(t, decimal.RequireFromString("45.60").Equal(c.Subtotal), "subtotal %s", c.Subtotal)
	// Weight 10*0.12 + 0.85 = 2.05 kg -> 7.5 postal fee.
	require.Len(t, c.ExtraRows, 1)
	assert.True(t, decimal.RequireFromString("7.5").Equal(c.ExtraRows[0].Amount))
	assert.True(t, decimal.RequireFromString("53.10").Equal(c.Total), "total %s", c.Total)
}

func TestRecompute_Idempotent(t *testing.T) {
	p := testPipeline(t, PostalModifier{})
	c := &Cart{Lines: []Line{{ProductID: 7, Quantity: 10}}}

	require.NoError(t, p.Recompute(context.Background(), c))
	firstTotal := c.Total
	firstRows := len(c.ExtraRows)

	// Recomputing an unchanged cart must not accumulate fees or drift.
	require.NoError(t, p.Recompute(context.Background(), c))
	assert.True(t, firstTotal.Equal(c.Total))
	assert.Equal(t, firstRows, len(c.ExtraRows))
}

func TestRecompute_DiscardsStaleComputedState(t *testing.T) {
	p := testPipeline(t, PostalModifier{})
	c := &Cart{
		Lines:     []Line{{ProductID: 20, Quantity: 1}},
		ExtraRows: []ExtraRow{{Modifier: "stale", Amount: decimal.NewFromInt(99)}},
		Subtotal:  decimal.NewFromInt(500),
		Total:     decimal.NewFromInt(600),
	}

	require.NoError(t, p.Recompute(context.Background(), c))

	assert.True(t, decimal.RequireFromString("12.00").Equal(c.Subtotal))
	require.Len(t, c.ExtraRows, 1)
	assert.Equal(t, PostalShippingID, c.ExtraRows[0].Modifier)
}

func TestRecompute_ShippingGating(t *testing.T) {
	p := testPipeline(t, PostalModifier{}, CourierModifier{})

	c := &Cart{
		Lines:            []Line{{ProductID: 20, Quantity: 1}},
		ShippingModifier: CourierShippingID,
	}
	require.NoError(t, p.Recompute(context.Background(), c))

	require.Len(t, c.ExtraRows, 1)
	assert.Equal(t, CourierShippingID, c.ExtraRows[0].Modifier)
	assert.True(t, decimal.RequireFromString("15.00").Equal(c.Total))
}

func TestRecompute_NoShippingSelected(t *testing.T) {
	// With several methods registered and none selected, no fee applies.
	p := testPipeline(t, PostalModifier{}, CourierModifier{})
	c := &Cart{Lines: []Line{{ProductID: 20, Quantity: 1}}}

	require.NoError(t, p.Recompute(context.Background(), c))

	assert.Empty(t, c.ExtraRows)
	assert.True(t, c.Subtotal.Equal(c.Total))
}

func TestRecompute_SoleShippingAlwaysApplies(t *testing.T) {
	// A single registered method applies regardless of selection.
	p := testPipeline(t, PostalModifier{})
	c := &Cart{Lines: []Line{{ProductID: 20, Quantity: 1}}}

	require.NoError(t, p.Recompute(context.Background(), c))

	require.Len(t, c.ExtraRows, 1)
	assert.Equal(t, PostalShippingID, c.ExtraRows[0].Modifier)
}

func TestRecompute_EmptyCart(t *testing.T) {
	p := testPipeline(t, PostalModifier{})
	c := &Cart{}

	require.NoError(t, p.Recompute(context.Background(), c))

	assert.True(t, decimal.Zero.Equal(c.Subtotal))
	// An empty cart still gets the under-1kg fee if shipping applies.
	require.Len(t, c.ExtraRows, 1)
	assert.True(t, decimal.RequireFromString("4").Equal(c.ExtraRows[0].Amount))
}

func TestRecompute_LineErrorAborts(t *testing.T) {
	p := testPipeline(t, PostalModifier{})
	c := &Cart{Lines: []Line{{ProductID: 404, Quantity: 1}}}

	err := p.Recompute(context.Background(), c)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestShippingChoices(t *testing.T) {
	p := testPipeline(t, PostalModifier{}, CourierModifier{})

	choices := p.ShippingChoices()
	require.Len(t, choices, 2)
	assert.Equal(t, PostalShippingID, choices[0][0])
	assert.Equal(t, "Postal shipping", choices[0][1])
	assert.Equal(t, CourierShippingID, choices[1][0])
}
