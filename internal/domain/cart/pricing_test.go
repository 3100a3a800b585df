package cart

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albyshop/storefront/internal/domain/catalog"
	"github.com/albyshop/storefront/internal/domain/pricing"
)

// --- Mock implementations ---

type mockCatalog struct {
	byID     map[int64]*catalog.Product
	variants map[int64][]catalog.SofaVariant
}

func (m *mockCatalog) List(context.Context) ([]catalog.Product, error) { return nil, nil }

func (m *mockCatalog) GetByID(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (m *mockCatalog) GetBySlug(context.Context, string) (*catalog.Product, error) {
	return nil, catalog.ErrNotFound
}

func (m *mockCatalog) VariantsOf(_ context.Context, sofaModelID int64) ([]catalog.SofaVariant, error) {
	return m.variants[sofaModelID], nil
}

func (m *mockCatalog) VariantByLedgerID(_ context.Context, sofaModelID, ledgerID int64) (*catalog.SofaVariant, error) {
	for _, v := range m.variants[sofaModelID] {
		if v.LedgerID == ledgerID {
			return &v, nil
		}
	}
	return nil, catalog.ErrNotFound
}

type mockLedger struct {
	entries map[string]*catalog.CodeEntry
}

func (m *mockLedger) Mint(context.Context, catalog.Kind) (catalog.CodeEntry, error) {
	return catalog.CodeEntry{}, errors.New("not implemented")
}

func (m *mockLedger) Lookup(_ context.Context, code string) (*catalog.CodeEntry, error) {
	entry, ok := m.entries[code]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return entry, nil
}

type mockSchedules struct {
	byProduct map[int64]pricing.Schedule
	err       error
}

func (m *mockSchedules) ScheduleFor(_ context.Context, productID int64) (pricing.Schedule, error) {
	if m.err != nil {
		return pricing.Schedule{}, m.err
	}
	s, ok := m.byProduct[productID]
	if !ok {
		return pricing.Schedule{}, pricing.ErrNoSchedule
	}
	return s, nil
}

// --- Helpers ---

func lamelProduct() *catalog.Product {
	return &catalog.Product{
		ID:               7,
		Kind:             catalog.KindLamel,
		Name:             "PVC lamel 89mm",
		Code:             "00101",
		UnitPrice:        decimal.RequireFromString("4.20"),
		Weight:           decimal.RequireFromString("0.12"),
		RebateScheduleID: 1,
	}
}

func newModifier(t *testing.T, cat *mockCatalog, ledger catalog.Ledger, schedules pricing.ScheduleSource) *PricingModifier {
	t.Helper()
	if ledger == nil {
		ledger = &mockLedger{}
	}
	m, err := NewPricingModifier(cat, catalog.NewResolver(ledger, cat), schedules, nil)
	require.NoError(t, err)
	return m
}

// --- Tests ---

func TestPricingModifier_PricesLine(t *testing.T) {
	p := lamelProduct()
	cat := &mockCatalog{byID: map[int64]*catalog.Product{p.ID: p}}
	m := newModifier(t, cat, nil, &mockSchedules{})

	ln := Line{ProductID: p.ID, Quantity: 3}
	require.NoError(t, m.ProcessLine(context.Background(), &Cart{}, &ln))

	assert.True(t, decimal.RequireFromString("4.20").Equal(ln.UnitPrice))
	assert.True(t, decimal.RequireFromString("12.60").Equal(ln.Subtotal))
	assert.True(t, decimal.RequireFromString("0.12").Equal(ln.Weight))
}

func TestPricingModifier_AppliesRebate(t *testing.T) {
	p := lamelProduct()
	cat := &mockCatalog{byID: map[int64]*catalog.Product{p.ID: p}}
	schedule, err := pricing.ParseSchedule("5:10\n10:20")
	require.NoError(t, err)
	m := newModifier(t, cat, nil, &mockSchedules{byProduct: map[int64]pricing.Schedule{p.ID: schedule}})

	ln := Line{ProductID: p.ID, Quantity: 10}
	require.NoError(t, m.ProcessLine(context.Background(), &Cart{}, &ln))

	// 20% off: unit 4.20 -> 3.36, subtotal 42.00 -> 33.60.
	assert.True(t, decimal.RequireFromString("3.36").Equal(ln.UnitPrice))
	assert.True(t, decimal.RequireFromString("33.60").Equal(ln.Subtotal))
}

func TestPricingModifier_RebateSubtotalFromRawPrice(t *testing.T) {
	// The rebate applies to the exact line total, not the rounded unit
	// price times quantity.
	p := lamelProduct()
	p.UnitPrice = decimal.RequireFromString("4.205")
	cat := &mockCatalog{byID: map[int64]*catalog.Product{p.ID: p}}
	schedule, err := pricing.ParseSchedule("5:10")
	require.NoError(t, err)
	m := newModifier(t, cat, nil, &mockSchedules{byProduct: map[int64]pricing.Schedule{p.ID: schedule}})

	ln := Line{ProductID: p.ID, Quantity: 5}
	require.NoError(t, m.ProcessLine(context.Background(), &Cart{}, &ln))

	// 4.205 * 5 = 21.025; minus 10% = 18.9225 -> 18.92.
	assert.True(t, decimal.RequireFromString("18.92").Equal(ln.Subtotal))
}

func TestPricingModifier_NoScheduleAttached(t *testing.T) {
	p := lamelProduct()
	p.RebateScheduleID = 0
	cat := &mockCatalog{byID: map[int64]*catalog.Product{p.ID: p}}
	// The source would fail if queried; an unattached schedule must not be.
	m := newModifier(t, cat, nil, &mockSchedules{err: errors.New("source must not be queried")})

	ln := Line{ProductID: p.ID, Quantity: 10}
	require.NoError(t, m.ProcessLine(context.Background(), &Cart{}, &ln))

	assert.True(t, decimal.RequireFromString("4.20").Equal(ln.UnitPrice))
}

func TestPricingModifier_RebateFailureFallsBackUnrebated(t *testing.T) {
	p := lamelProduct()
	cat := &mockCatalog{byID: map[int64]*catalog.Product{p.ID: p}}
	m := newModifier(t, cat, nil, &mockSchedules{err: pricing.ErrInvalidSchedule})

	ln := Line{ProductID: p.ID, Quantity: 10}
	require.NoError(t, m.ProcessLine(context.Background(), &Cart{}, &ln))

	// The line keeps its unrebated price instead of failing.
	assert.True(t, decimal.RequireFromString("4.20").Equal(ln.UnitPrice))
	assert.True(t, decimal.RequireFromString("42.00").Equal(ln.Subtotal))
}

func TestPricingModifier_UnresolvableVariantIsAnError(t *testing.T) {
	p := lamelProduct()
	cat := &mockCatalog{byID: map[int64]*catalog.Product{p.ID: p}}
	m := newModifier(t, cat, nil, &mockSchedules{})

	ln := Line{ProductID: p.ID, Code: "00999", Quantity: 1}
	err := m.ProcessLine(context.Background(), &Cart{}, &ln)

	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestPricingModifier_UnknownProduct(t *testing.T) {
	m := newModifier(t, &mockCatalog{}, nil, &mockSchedules{})

	ln := Line{ProductID: 404, Quantity: 1}
	err := m.ProcessLine(context.Background(), &Cart{}, &ln)

	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestPricingModifier_SofaVariant(t *testing.T) {
	model := &catalog.Product{ID: 40, Kind: catalog.KindSofaModel, Name: "Orion"}
	variant := catalog.SofaVariant{
		ID:          1,
		SofaModelID: 40,
		LedgerID:    55,
		Code:        "00055",
		FabricID:    30,
		UnitPrice:   decimal.RequireFromString("1450.00"),
		Weight:      decimal.RequireFromString("96.5"),
	}
	cat := &mockCatalog{
		byID:     map[int64]*catalog.Product{model.ID: model},
		variants: map[int64][]catalog.SofaVariant{40: {variant}},
	}
	ledger := &mockLedger{entries: map[string]*catalog.CodeEntry{
		"00055": {ID: 55, Kind: catalog.KindSofaModel, Code: "00055"},
	}}
	m := newModifier(t, cat, ledger, &mockSchedules{})

	ln := Line{ProductID: 40, Code: "00055", Quantity: 1}
	require.NoError(t, m.ProcessLine(context.Background(), &Cart{}, &ln))

	assert.True(t, decimal.RequireFromString("1450.00").Equal(ln.UnitPrice))
	assert.True(t, decimal.RequireFromString("96.5").Equal(ln.Weight))
}
