package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/albyshop/storefront/internal/domain/cart"
)

// GetCart loads and reprices the cart through the modifier pipeline.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.carts.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.pipeline.Recompute(ctx, c); err != nil {
		writeError(w, r, err)
		return
	}

	e := &jx.Encoder{}
	encCart(e, c)
	writeJSON(w, http.StatusOK, e)
}

type saveCartRequest struct {
	ShippingModifier string
	Lines            []cart.Line
}

func decodeSaveCart(body []byte) (saveCartRequest, error) {
	var req saveCartRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "shipping_modifier":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "shipping_modifier")
			}
			req.ShippingModifier = s
			return nil
		case "lines":
			return d.Arr(func(d *jx.Decoder) error {
				var ln cart.Line
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "product_id":
						n, err := d.Int64()
						if err != nil {
							return errors.Wrap(err, "product_id")
						}
						ln.ProductID = n
						return nil
					case "product_code":
						s, err := d.Str()
						if err != nil {
							return errors.Wrap(err, "product_code")
						}
						ln.Code = s
						return nil
					case "quantity":
						n, err := d.Int()
						if err != nil {
							return errors.Wrap(err, "quantity")
						}
						ln.Quantity = n
						return nil
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				req.Lines = append(req.Lines, ln)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	return req, err
}

// SaveCart replaces the cart's lines and shipping selection, then reprices
// and returns it. Repricing runs on every mutation; it is idempotent and
// performs no locking of its own.
func (h *Handler) SaveCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeBadRequest(w, "read body")
		return
	}
	req, err := decodeSaveCart(body)
	if err != nil {
		writeBadRequest(w, "invalid payload: "+err.Error())
		return
	}
	for _, ln := range req.Lines {
		if ln.Quantity <= 0 {
			writeBadRequest(w, "quantity must be greater than 0")
			return
		}
	}

	c := &cart.Cart{
		ID:               chi.URLParam(r, "id"),
		ShippingModifier: req.ShippingModifier,
		Lines:            req.Lines,
	}
	// Reprice before saving so an unresolvable line is rejected instead of
	// stored.
	if err := h.pipeline.Recompute(ctx, c); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.carts.Save(ctx, c); err != nil {
		writeError(w, r, err)
		return
	}

	e := &jx.Encoder{}
	encCart(e, c)
	writeJSON(w, http.StatusOK, e)
}
