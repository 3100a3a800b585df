package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCode(t *testing.T) {
	assert.Equal(t, "00001", FormatCode(1))
	assert.Equal(t, "00042", FormatCode(42))
	assert.Equal(t, "99999", FormatCode(99999))
	// Codes past five digits keep their full width.
	assert.Equal(t, "100000", FormatCode(100000))
}

func TestStartingPrice_DirectKinds(t *testing.T) {
	for _, kind := range []Kind{KindCommodity, KindLamel, KindFabric} {
		p := &Product{Kind: kind, UnitPrice: decimal.RequireFromString("12.50")}
		got := StartingPrice(p, nil)
		assert.True(t, decimal.RequireFromString("12.50").Equal(got), "kind %s", kind)
	}
}

func TestStartingPrice_SofaModel(t *testing.T) {
	p := &Product{Kind: KindSofaModel}
	variants := []SofaVariant{
		{UnitPrice: decimal.RequireFromString("1450.00")},
		{UnitPrice: decimal.RequireFromString("1390.00")},
		{UnitPrice: decimal.RequireFromString("1500.00")},
	}

	got := StartingPrice(p, variants)
	assert.True(t, decimal.RequireFromString("1390.00").Equal(got))
}

func TestStartingPrice_SofaModelWithoutVariants(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(StartingPrice(&Product{Kind: KindSofaModel}, nil)))
}

func TestKindValid(t *testing.T) {
	for _, kind := range []Kind{KindCommodity, KindLamel, KindFabric, KindSofaModel} {
		assert.True(t, kind.Valid())
	}
	assert.False(t, Kind("couch").Valid())
	assert.False(t, Kind("").Valid())
}

func TestDerivedLamelWeight(t *testing.T) {
	// 89mm x 2000mm x 0.9mm = 160200 mm3 -> 0.120 kg
	spec := &LamelSpec{Width: "89", Length: "2000", Depth: "0.9"}

	got, ok := DerivedLamelWeight(spec)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("0.12").Equal(got), "got %s", got)
}

func TestDerivedLamelWeight_RoundsToThreePlaces(t *testing.T) {
	spec := &LamelSpec{Width: "127", Length: "1800", Depth: "0.9"}

	got, ok := DerivedLamelWeight(spec)
	require.True(t, ok)
	// 205740 mm3 * 0.00000075 = 0.154305 -> 0.154
	assert.True(t, decimal.RequireFromString("0.154").Equal(got), "got %s", got)
}

func TestDerivedLamelWeight_WeightByHand(t *testing.T) {
	spec := &LamelSpec{Width: "89", Length: "2000", Depth: "0.9", WeightByHand: true}

	_, ok := DerivedLamelWeight(spec)
	assert.False(t, ok)
}

func TestDerivedLamelWeight_MissingDimensions(t *testing.T) {
	for _, spec := range []*LamelSpec{
		nil,
		{Width: "", Length: "2000", Depth: "0.9"},
		{Width: "89", Length: "two meters", Depth: "0.9"},
		{Width: "89", Length: "2000", Depth: ""},
	} {
		_, ok := DerivedLamelWeight(spec)
		assert.False(t, ok)
	}
}
