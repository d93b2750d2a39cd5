package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rakhulsr/axen-cart/app/helpers"
	"github.com/Rakhulsr/axen-cart/app/models"
	"github.com/Rakhulsr/axen-cart/app/services"
	"github.com/Rakhulsr/axen-cart/app/utils/format"
	"github.com/Rakhulsr/axen-cart/app/utils/sessions"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/unrolled/render"
	"go.uber.org/zap"
)

type CartHandler struct {
	carts    *services.CartRegistry
	catalog  *models.Catalog
	render   *render.Render
	validate *validator.Validate
	logger   *zap.Logger
}

func NewCartHandler(carts *services.CartRegistry, catalog *models.Catalog, render *render.Render, validate *validator.Validate, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:    carts,
		catalog:  catalog,
		render:   render,
		validate: validate,
		logger:   logger,
	}
}

// Quantity limits mirror models.MaxQuantity.
type addItemRequest struct {
	ID       string `json:"id" validate:"required,max=64"`
	Quantity *int   `json:"quantity" validate:"omitempty,max=9999"`
}

// quantity is 1 when the field was left out.
func (r addItemRequest) quantity() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

type buyNowRequest struct {
	ID       string `json:"id" validate:"required,max=64"`
	Quantity *int   `json:"quantity" validate:"omitempty,min=1,max=9999"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=9999"`
}

type displayTotals struct {
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Shipping string `json:"shipping"`
	Total    string `json:"total"`
}

type cartResponse struct {
	Items    []models.LineItem `json:"items"`
	Totals   models.Totals     `json:"totals"`
	Display  displayTotals     `json:"display"`
	Count    int               `json:"count"`
	Applied  *bool             `json:"applied,omitempty"`
	Degraded bool              `json:"degraded,omitempty"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func newCartResponse(store *services.CartStore, cart models.Cart, policy models.PricingPolicy) cartResponse {
	totals := store.TotalsFor(cart.Items, policy)
	return cartResponse{
		Items:    cart.Items,
		Totals:   totals,
		Display:  display(totals),
		Count:    cart.Count(),
		Degraded: store.Degraded(),
	}
}

func display(totals models.Totals) displayTotals {
	return displayTotals{
		Subtotal: format.Money(totals.Subtotal),
		Discount: format.Discount(totals.Discount),
		Shipping: format.Money(totals.Shipping),
		Total:    format.Money(totals.Total),
	}
}

// store holds the visitor's cart for the duration of the request.
func (h *CartHandler) store(r *http.Request) (*services.CartStore, func()) {
	sid, _ := sessions.SessionIDFrom(r.Context())
	return h.carts.Acquire(sid)
}

func (h *CartHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	_ = h.render.JSON(w, http.StatusOK, map[string]interface{}{"products": h.catalog.Products()})
}

// GetCart renders the cart. A checkout page that lets the shopper pick a
// delivery method passes its fee as ?shipping_cost=.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, release := h.store(r)
	defer release()
	policy := store.Policy()

	if raw := r.URL.Query().Get("shipping_cost"); raw != "" {
		cost, err := helpers.ParseAmount(raw)
		if err != nil {
			h.fail(w, http.StatusBadRequest, "shipping_cost: "+err.Error(), nil)
			return
		}
		policy = policy.WithShipping(cost)
	}

	cart := store.Read(r.Context())
	_ = h.render.JSON(w, http.StatusOK, newCartResponse(store, cart, policy))
}

// AddItem adds a catalog product, one unit when no quantity is sent.
// Unknown products and non-positive quantities leave the cart unchanged and
// answer with applied=false.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	store, release := h.store(r)
	defer release()
	ctx := r.Context()

	qty := req.quantity()
	product, found := h.catalog.Lookup(req.ID)
	applied := found && qty > 0

	var cart models.Cart
	if applied {
		cart = store.Add(ctx, product.LineItem(qty))
	} else {
		h.logger.Info("add not applied",
			zap.String("product_id", req.ID),
			zap.Bool("known_product", found),
			zap.Int("quantity", qty),
		)
		cart = store.Read(ctx)
	}

	resp := newCartResponse(store, cart, store.Policy())
	resp.Applied = &applied
	_ = h.render.JSON(w, http.StatusOK, resp)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if !h.decode(w, r, &req) {
		return
	}

	store, release := h.store(r)
	defer release()
	cart := store.SetQuantity(r.Context(), mux.Vars(r)["id"], *req.Quantity)
	_ = h.render.JSON(w, http.StatusOK, newCartResponse(store, cart, store.Policy()))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store, release := h.store(r)
	defer release()
	cart := store.RemoveItem(r.Context(), mux.Vars(r)["id"])
	_ = h.render.JSON(w, http.StatusOK, newCartResponse(store, cart, store.Policy()))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, release := h.store(r)
	defer release()
	cart := store.Clear(r.Context())
	_ = h.render.JSON(w, http.StatusOK, newCartResponse(store, cart, store.Policy()))
}

func (h *CartHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.fail(w, http.StatusBadRequest, "request body must be valid JSON", nil)
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			h.fail(w, http.StatusUnprocessableEntity, "validation failed", helpers.FormatValidationErrors(validationErrors))
			return false
		}
		h.fail(w, http.StatusBadRequest, err.Error(), nil)
		return false
	}
	return true
}

func (h *CartHandler) fail(w http.ResponseWriter, status int, msg string, fields map[string]string) {
	_ = h.render.JSON(w, status, errorResponse{Error: msg, Fields: fields})
}
