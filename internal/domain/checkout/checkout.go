// Package checkout turns a finalized cart into an order and starts its
// fulfillment workflow.
package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/albyshop/storefront/internal/domain/cart"
	"github.com/albyshop/storefront/internal/domain/catalog"
	"github.com/albyshop/storefront/internal/domain/fulfillment"
)

// PaymentMethod selects how the customer pays for an order.
type PaymentMethod string

const (
	// PayByCard forwards the customer to the card payment provider; the
	// order stays in its initial status until the payment side confirms.
	PayByCard PaymentMethod = "card-payment"
	// PayWhenTake requires no upfront payment: the customer pays on
	// pickup, so the order is immediately prepared for taking.
	PayWhenTake PaymentMethod = "no-payment-required"
)

var (
	// ErrUnknownPayment is returned for a payment method the shop does not
	// offer.
	ErrUnknownPayment = errors.New("unknown payment method")
	// ErrEmptyCart is returned when checking out a cart with no lines.
	ErrEmptyCart = errors.New("cart is empty")
)

// Service creates orders from carts.
type Service struct {
	pipeline    *cart.Pipeline
	products    catalog.Repository
	carts       cart.Repository
	orders      fulfillment.Repository
	fulfillment *fulfillment.Service
}

// NewService creates a checkout Service.
func NewService(
	pipeline *cart.Pipeline,
	products catalog.Repository,
	carts cart.Repository,
	orders fulfillment.Repository,
	fulfillmentSvc *fulfillment.Service,
) *Service {
	return &Service{
		pipeline:    pipeline,
		products:    products,
		carts:       carts,
		orders:      orders,
		fulfillment: fulfillmentSvc,
	}
}

// CreateFromCart recomputes the cart one final time, snapshots its lines and
// fee rows into immutable order items, persists the order, and deletes the
// cart. A line whose variant can no longer be resolved aborts the checkout:
// an order must never be created with an unpriceable item.
//
// With PayWhenTake the order is immediately moved to ready_for_take, the
// pay-on-pickup entry point of the fulfillment workflow.
func (s *Service) CreateFromCart(ctx context.Context, cartID string, payment PaymentMethod) (*fulfillment.Order, error) {
	switch payment {
	case PayByCard, PayWhenTake:
	default:
		return nil, errors.Wrapf(ErrUnknownPayment, "%q", payment)
	}

	c, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if len(c.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Final recompute prices every line from its variant; a resolver miss
	// here fails the whole checkout.
	if err := s.pipeline.Recompute(ctx, c); err != nil {
		return nil, errors.Wrap(err, "recompute cart")
	}

	items := make([]fulfillment.Item, len(c.Lines))
	for i, ln := range c.Lines {
		p, err := s.products.GetByID(ctx, ln.ProductID)
		if err != nil {
			return nil, errors.Wrapf(err, "snapshot line %d", i)
		}
		items[i] = fulfillment.Item{
			ProductID: ln.ProductID,
			Code:      ln.Code,
			Name:      p.Name,
			Quantity:  ln.Quantity,
			UnitPrice: ln.UnitPrice,
			Subtotal:  ln.Subtotal,
		}
	}

	rows := make([]fulfillment.ExtraRow, len(c.ExtraRows))
	for i, r := range c.ExtraRows {
		rows[i] = fulfillment.ExtraRow{Modifier: r.Modifier, Label: r.Label, Amount: r.Amount}
	}

	o := &fulfillment.Order{
		ID:        uuid.New().String(),
		Status:    fulfillment.StatusCreated,
		Items:     items,
		ExtraRows: rows,
		Subtotal:  c.Subtotal,
		Total:     c.Total,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	if payment == PayWhenTake {
		o, err = s.fulfillment.Apply(ctx, o.ID, fulfillment.TransitionReadyForTake)
		if err != nil {
			return nil, errors.Wrap(err, "prepare for taking")
		}
	}

	if err := s.carts.Delete(ctx, cartID); err != nil {
		// The order exists; a stale cart is an inconvenience, not a
		// failure.
		zctx.From(ctx).Warn("delete cart after checkout",
			zap.String("cart_id", cartID), zap.Error(err))
	}

	return o, nil
}
