package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/albyshop/storefront/internal/domain/cart"
	"github.com/albyshop/storefront/internal/domain/catalog"
	"github.com/albyshop/storefront/internal/domain/fulfillment"
)

// writeJSON writes an encoded jx payload with the given status code.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func encMoney(e *jx.Encoder, field string, d decimal.Decimal) {
	e.FieldStart(field)
	e.Raw([]byte(d.StringFixed(2)))
}

func encProduct(e *jx.Encoder, p *catalog.Product, variants []catalog.SofaVariant) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("kind")
	e.Str(string(p.Kind))
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("slug")
	e.Str(p.Slug)
	if p.Caption != "" {
		e.FieldStart("caption")
		e.Str(p.Caption)
	}
	if p.Code != "" {
		e.FieldStart("product_code")
		e.Str(p.Code)
	}
	encMoney(e, "price", catalog.StartingPrice(p, variants))
	if p.Kind == catalog.KindSofaModel {
		e.FieldStart("variants")
		e.ArrStart()
		for i := range variants {
			encVariant(e, &variants[i])
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

func encVariant(e *jx.Encoder, v *catalog.SofaVariant) {
	e.ObjStart()
	e.FieldStart("product_code")
	e.Str(v.Code)
	e.FieldStart("fabric_id")
	e.Int64(v.FabricID)
	encMoney(e, "unit_price", v.UnitPrice)
	e.ObjEnd()
}

func encCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	if c.ShippingModifier != "" {
		e.FieldStart("shipping_modifier")
		e.Str(c.ShippingModifier)
	}
	e.FieldStart("lines")
	e.ArrStart()
	for i := range c.Lines {
		ln := &c.Lines[i]
		e.ObjStart()
		e.FieldStart("product_id")
		e.Int64(ln.ProductID)
		if ln.Code != "" {
			e.FieldStart("product_code")
			e.Str(ln.Code)
		}
		e.FieldStart("quantity")
		e.Int(ln.Quantity)
		encMoney(e, "unit_price", ln.UnitPrice)
		encMoney(e, "subtotal", ln.Subtotal)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("extra_rows")
	e.ArrStart()
	for _, row := range c.ExtraRows {
		e.ObjStart()
		e.FieldStart("modifier")
		e.Str(row.Modifier)
		e.FieldStart("label")
		e.Str(row.Label)
		encMoney(e, "amount", row.Amount)
		e.ObjEnd()
	}
	e.ArrEnd()
	encMoney(e, "subtotal", c.Subtotal)
	encMoney(e, "total", c.Total)
	e.FieldStart("total_weight")
	e.Raw([]byte(c.TotalWeight().StringFixed(2)))
	e.ObjEnd()
}

func encOrder(e *jx.Encoder, o *fulfillment.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Int64(it.ProductID)
		if it.Code != "" {
			e.FieldStart("product_code")
			e.Str(it.Code)
		}
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		encMoney(e, "unit_price", it.UnitPrice)
		encMoney(e, "subtotal", it.Subtotal)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("extra_rows")
	e.ArrStart()
	for _, row := range o.ExtraRows {
		e.ObjStart()
		e.FieldStart("label")
		e.Str(row.Label)
		encMoney(e, "amount", row.Amount)
		e.ObjEnd()
	}
	e.ArrEnd()
	encMoney(e, "subtotal", o.Subtotal)
	encMoney(e, "total", o.Total)
	e.ObjEnd()
}

func encTransitions(e *jx.Encoder, ts []fulfillment.Transition) {
	e.ArrStart()
	for _, t := range ts {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(t.Name)
		e.FieldStart("label")
		e.Str(t.Label)
		e.FieldStart("target")
		e.Str(string(t.Target))
		e.ObjEnd()
	}
	e.ArrEnd()
}
