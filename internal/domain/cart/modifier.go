package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// LineModifier mutates a single cart line during recomputation. Modifiers run
// once per line, in registration order.
type LineModifier interface {
	Identifier() string
	ProcessLine(ctx context.Context, c *Cart, ln *Line) error
}

// CartModifier runs once per cart after all lines were processed, typically
// appending fee rows and adjusting the total.
type CartModifier interface {
	Identifier() string

	// Label is the human-readable choice label shown during checkout.
	Label() string

	ProcessCart(ctx context.Context, c *Cart) error
}

// Pipeline recomputes a cart by running all registered modifiers. Line
// modifiers price the individual lines; shipping modifiers append their fee
// rows afterwards.
//
// Recomputation is idempotent: all computed fields are derived from the lines'
// product references and quantities alone, so re-running it on an unchanged
// cart yields identical results.
type Pipeline struct {
	lines    []LineModifier
	shipping []CartModifier
}

// NewPipeline creates a Pipeline with the given modifiers.
func NewPipeline(lines []LineModifier, shipping []CartModifier) *Pipeline {
	return &Pipeline{lines: lines, shipping: shipping}
}

// ShippingChoices returns the identifier and label of every registered
// shipping modifier, for rendering the shipping method selection.
func (p *Pipeline) ShippingChoices() [][2]string {
	choices := make([][2]string, len(p.shipping))
	for i, m := range p.shipping {
		choices[i] = [2]string{m.Identifier(), m.Label()}
	}
	return choices
}

// Recompute reprices the whole cart in place. Previous computed values are
// discarded first.
//
// A shipping modifier only runs when it is the cart's selected shipping
// method, or when it is the sole one registered.
func (p *Pipeline) Recompute(ctx context.Context, c *Cart) error {
	c.ExtraRows = c.ExtraRows[:0]
	c.Subtotal = decimal.Zero
	c.Total = decimal.Zero

	for i := range c.Lines {
		ln := &c.Lines[i]
		for _, m := range p.lines {
			if err := m.ProcessLine(ctx, c, ln); err != nil {
				return errors.Wrapf(err, "modifier %s: line %d", m.Identifier(), i)
			}
		}
		c.Subtotal = c.Subtotal.Add(ln.Subtotal)
	}
	c.Total = c.Subtotal

	for _, m := range p.shipping {
		if len(p.shipping) > 1 && c.ShippingModifier != m.Identifier() {
			continue
		}
		if err := m.ProcessCart(ctx, c); err != nil {
			return errors.Wrapf(err, "modifier %s", m.Identifier())
		}
	}
	return nil
}
