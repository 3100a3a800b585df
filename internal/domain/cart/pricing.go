package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/albyshop/storefront/internal/domain/catalog"
	"github.com/albyshop/storefront/internal/domain/pricing"
)

// PricingModifier prices each cart line: it resolves the line's variant for
// the unit price and applies the product's quantity rebate when one exists.
type PricingModifier struct {
	products  catalog.Repository
	resolver  *catalog.Resolver
	schedules pricing.ScheduleSource

	// degraded counts lines that fell back to unrebated pricing because
	// the rebate could not be resolved. Silent mispricing must stay
	// detectable in production.
	degraded metric.Int64Counter
}

// NewPricingModifier creates a PricingModifier. meter may be nil, in which
// case the degradation counter is a no-op.
func NewPricingModifier(
	products catalog.Repository,
	resolver *catalog.Resolver,
	schedules pricing.ScheduleSource,
	meter metric.Meter,
) (*PricingModifier, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("")
	}
	degraded, err := meter.Int64Counter("cart.pricing.rebate_degraded",
		metric.WithDescription("cart lines priced without rebate due to a rebate resolution failure"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create counter")
	}
	return &PricingModifier{
		products:  products,
		resolver:  resolver,
		schedules: schedules,
		degraded:  degraded,
	}, nil
}

// Identifier implements LineModifier.
func (m *PricingModifier) Identifier() string { return "primary-pricing" }

// ProcessLine resolves the line's variant, sets unit price, subtotal, and
// weight, and applies the product's rebate to both unit price and subtotal.
//
// A variant that cannot be resolved is an error: the line has no price. A
// rebate that cannot be resolved is not: the line keeps its unrebated price
// so incomplete rebate data never blocks a cart, but the fallback is logged
// and counted.
func (m *PricingModifier) ProcessLine(ctx context.Context, c *Cart, ln *Line) error {
	p, err := m.products.GetByID(ctx, ln.ProductID)
	if err != nil {
		return errors.Wrapf(err, "product %d", ln.ProductID)
	}

	variant, err := m.resolver.Resolve(ctx, p, ln.Code)
	if err != nil {
		return errors.Wrapf(err, "resolve variant %q", ln.Code)
	}

	qty := int64(ln.Quantity)
	ln.UnitPrice = variant.UnitPrice.Round(2)
	ln.Subtotal = variant.UnitPrice.Mul(decimal.NewFromInt(qty)).Round(2)
	ln.Weight = variant.Weight

	rebate, err := m.lineRebate(ctx, p, ln.Quantity)
	if err != nil {
		m.degraded.Add(ctx, 1, metric.WithAttributes(attribute.Int64("product_id", p.ID)))
		zctx.From(ctx).Warn("rebate resolution failed, pricing line without rebate",
			zap.Int64("product_id", p.ID),
			zap.String("code", ln.Code),
			zap.Error(err),
		)
		return nil
	}
	if rebate > 0 {
		ln.UnitPrice = pricing.ApplyRebate(variant.UnitPrice, rebate)
		ln.Subtotal = pricing.ApplyRebate(variant.UnitPrice.Mul(decimal.NewFromInt(qty)), rebate)
	}
	return nil
}

// lineRebate returns the rebate percentage for the line, 0 when the product
// has no schedule attached.
func (m *PricingModifier) lineRebate(ctx context.Context, p *catalog.Product, quantity int) (int, error) {
	if p.RebateScheduleID == 0 {
		return 0, nil
	}
	schedule, err := m.schedules.ScheduleFor(ctx, p.ID)
	if err != nil {
		return 0, err
	}
	return schedule.RebateFor(quantity), nil
}
