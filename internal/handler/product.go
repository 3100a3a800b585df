package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/albyshop/storefront/internal/domain/catalog"
	"github.com/albyshop/storefront/internal/domain/pricing"
)

// ListProducts returns the catalog list view: every active product with its
// display price ("starting at" for sofa models).
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	products, err := h.products.List(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	e := &jx.Encoder{}
	e.ArrStart()
	for i := range products {
		p := &products[i]
		var variants []catalog.SofaVariant
		if p.Kind == catalog.KindSofaModel {
			variants, err = h.products.VariantsOf(ctx, p.ID)
			if err != nil {
				writeError(w, r, err)
				return
			}
		}
		encProduct(e, p, variants)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, e)
}

// GetProduct returns the product detail view, including the variant list for
// sofa models.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.products.GetBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var variants []catalog.SofaVariant
	if p.Kind == catalog.KindSofaModel {
		variants, err = h.products.VariantsOf(ctx, p.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	e := &jx.Encoder{}
	encProduct(e, p, variants)
	writeJSON(w, http.StatusOK, e)
}

// addToCartRequest is the payload of the add-to-cart dialog: the desired
// quantity and, for configurable products, the chosen variant code.
type addToCartRequest struct {
	Quantity int
	Code     string
}

func decodeAddToCart(body []byte) (addToCartRequest, error) {
	var req addToCartRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "quantity":
			n, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "quantity")
			}
			req.Quantity = n
			return nil
		case "product_code":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "product_code")
			}
			req.Code = s
			return nil
		default:
			return d.Skip()
		}
	})
	return req, err
}

// AddToCart computes the quantity-sensitive price preview for the add-to-cart
// dialog: the resolved variant's unit price and subtotal, both reduced by the
// product's quantity rebate when one applies.
//
// A rebate that cannot be resolved never blocks the dialog; the preview falls
// back to the unrebated price, mirroring cart line pricing.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		writeBadRequest(w, "read body")
		return
	}
	req, err := decodeAddToCart(body)
	if err != nil {
		writeBadRequest(w, "invalid payload: "+err.Error())
		return
	}
	if req.Quantity <= 0 {
		writeBadRequest(w, "quantity must be greater than 0")
		return
	}

	p, err := h.products.GetBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	variant, err := h.resolver.Resolve(ctx, p, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	qty := decimal.NewFromInt(int64(req.Quantity))
	unitPrice := variant.UnitPrice.Round(2)
	subtotal := variant.UnitPrice.Mul(qty).Round(2)

	if p.RebateScheduleID != 0 {
		schedule, err := h.schedules.ScheduleFor(ctx, p.ID)
		if err != nil {
			zctx.From(ctx).Warn("rebate resolution failed for add-to-cart preview",
				zap.Int64("product_id", p.ID), zap.Error(err))
		} else if rebate := schedule.RebateFor(req.Quantity); rebate > 0 {
			unitPrice = pricing.ApplyRebate(variant.UnitPrice, rebate)
			subtotal = pricing.ApplyRebate(variant.UnitPrice.Mul(qty), rebate)
		}
	}

	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("product")
	e.Int64(p.ID)
	e.FieldStart("product_code")
	e.Str(variant.Code)
	e.FieldStart("quantity")
	e.Int(req.Quantity)
	encMoney(e, "unit_price", unitPrice)
	encMoney(e, "subtotal", subtotal)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e)
}
