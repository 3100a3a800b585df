package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/albyshop/storefront/internal/domain/checkout"
)

// Checkout finalizes the cart into an order using the requested payment
// method.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		writeBadRequest(w, "read body")
		return
	}

	payment := ""
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "payment" {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return errors.Wrap(err, "payment")
		}
		payment = s
		return nil
	}); err != nil {
		writeBadRequest(w, "invalid payload: "+err.Error())
		return
	}

	o, err := h.checkout.CreateFromCart(ctx, chi.URLParam(r, "id"), checkout.PaymentMethod(payment))
	if err != nil {
		writeError(w, r, err)
		return
	}

	e := &jx.Encoder{}
	encOrder(e, o)
	writeJSON(w, http.StatusCreated, e)
}

// GetOrder returns a single order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.fulfillment.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	e := &jx.Encoder{}
	encOrder(e, o)
	writeJSON(w, http.StatusOK, e)
}

// ListOrderActions returns the transitions currently legal for the order,
// with the labels the administrative UI renders as buttons. Only these
// actions may be fired; nothing else moves an order.
func (h *Handler) ListOrderActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.fulfillment.Actions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	e := &jx.Encoder{}
	encTransitions(e, actions)
	writeJSON(w, http.StatusOK, e)
}

// ApplyOrderAction fires the named transition on the order. An illegal
// transition or a lost race against a concurrent administrative action is
// reported to the caller with its specific reason.
func (h *Handler) ApplyOrderAction(w http.ResponseWriter, r *http.Request) {
	o, err := h.fulfillment.Apply(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	e := &jx.Encoder{}
	encOrder(e, o)
	writeJSON(w, http.StatusOK, e)
}
