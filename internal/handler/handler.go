// Package handler exposes the storefront REST API: catalog browsing,
// add-to-cart pricing, checkout, and the administrative order action surface.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/albyshop/storefront/internal/domain/cart"
	"github.com/albyshop/storefront/internal/domain/catalog"
	"github.com/albyshop/storefront/internal/domain/checkout"
	"github.com/albyshop/storefront/internal/domain/fulfillment"
	"github.com/albyshop/storefront/internal/domain/pricing"
)

// Handler holds the domain dependencies of the REST API.
type Handler struct {
	products    catalog.Repository
	resolver    *catalog.Resolver
	schedules   pricing.ScheduleSource
	carts       cart.Repository
	pipeline    *cart.Pipeline
	checkout    *checkout.Service
	fulfillment *fulfillment.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products catalog.Repository,
	resolver *catalog.Resolver,
	schedules pricing.ScheduleSource,
	carts cart.Repository,
	pipeline *cart.Pipeline,
	checkoutSvc *checkout.Service,
	fulfillmentSvc *fulfillment.Service,
) *Handler {
	return &Handler{
		products:    products,
		resolver:    resolver,
		schedules:   schedules,
		carts:       carts,
		pipeline:    pipeline,
		checkout:    checkoutSvc,
		fulfillment: fulfillmentSvc,
	}
}

// Routes mounts all API routes on a chi router. The administrative order
// actions are guarded by the given security middleware.
func (h *Handler) Routes(security func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/products", h.ListProducts)
	r.Get("/products/{slug}", h.GetProduct)
	r.Post("/products/{slug}/add-to-cart", h.AddToCart)

	r.Get("/carts/{id}", h.GetCart)
	r.Put("/carts/{id}", h.SaveCart)
	r.Post("/carts/{id}/checkout", h.Checkout)

	r.Get("/orders/{id}", h.GetOrder)
	r.Group(func(r chi.Router) {
		r.Use(security)
		r.Get("/orders/{id}/actions", h.ListOrderActions)
		r.Post("/orders/{id}/actions/{name}", h.ApplyOrderAction)
	})

	return r
}
