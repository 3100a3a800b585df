package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/albyshop/storefront/internal/domain/cart"
	"github.com/albyshop/storefront/internal/domain/catalog"
	"github.com/albyshop/storefront/internal/domain/checkout"
	"github.com/albyshop/storefront/internal/domain/fulfillment"
	"github.com/albyshop/storefront/internal/domain/pricing"
)

// writeError maps a domain error to its HTTP status and writes a JSON error
// body. InvalidTransition and ConcurrentModification surface their specific
// reason to the administrative caller; anything unrecognized becomes an
// opaque 500 with the detail kept in the server log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, fulfillment.ErrOrderNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, fulfillment.ErrInvalidTransition),
		errors.Is(err, checkout.ErrUnknownPayment),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, pricing.ErrInvalidSchedule):
		status = http.StatusUnprocessableEntity
		msg = err.Error()
	case errors.Is(err, fulfillment.ErrConcurrentModification):
		status = http.StatusConflict
		msg = err.Error()
	}

	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
	}

	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()
	writeJSON(w, status, e)
}

// writeBadRequest writes a 400 with the given message.
func writeBadRequest(w http.ResponseWriter, msg string) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("code")
	e.Int(http.StatusBadRequest)
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()
	writeJSON(w, http.StatusBadRequest, e)
}
