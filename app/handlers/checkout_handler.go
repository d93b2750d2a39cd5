package handlers

import (
	"errors"
	"net/http"

	"github.com/Rakhulsr/axen-cart/app/models"
	"github.com/Rakhulsr/axen-cart/app/services"
	"github.com/Rakhulsr/axen-cart/app/utils/sessions"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuyNowRedirect is where the product page sends the shopper after staging
// a buy-now hand-off.
const BuyNowRedirect = "/checkout.html?mode=buy-now"

type buyNowResponse struct {
	Redirect string            `json:"redirect"`
	Items    []models.LineItem `json:"items"`
}

type handoffResponse struct {
	cartResponse
	Consumed bool `json:"consumed"`
	Merged   int  `json:"merged"`
	Stale    bool `json:"stale,omitempty"`
}

// BuyNow stages a single product for the checkout page instead of adding
// it to the cart directly.
func (h *CartHandler) BuyNow(w http.ResponseWriter, r *http.Request) {
	var req buyNowRequest
	if !h.decode(w, r, &req) {
		return
	}

	product, found := h.catalog.Lookup(req.ID)
	if !found {
		h.fail(w, http.StatusNotFound, "product not found", nil)
		return
	}

	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	sid, _ := sessions.SessionIDFrom(r.Context())
	store, release := h.carts.Acquire(sid)
	defer release()

	items := []models.LineItem{product.LineItem(qty)}
	if err := h.carts.Handoff(sid, store).Stage(r.Context(), items); err != nil {
		if errors.Is(err, services.ErrEmptyHandoff) {
			h.fail(w, http.StatusUnprocessableEntity, err.Error(), nil)
			return
		}
		h.logger.Error("staging buy-now hand-off", zap.Error(err))
		h.fail(w, http.StatusInternalServerError, "could not stage checkout", nil)
		return
	}

	_ = h.render.JSON(w, http.StatusCreated, buyNowResponse{
		Redirect: BuyNowRedirect,
		Items:    models.NormalizeItems(items),
	})
}

// ConsumeHandoff is called once by the checkout page on load. It merges a
// pending buy-now payload into the cart and always answers with the cart.
func (h *CartHandler) ConsumeHandoff(w http.ResponseWriter, r *http.Request) {
	sid, _ := sessions.SessionIDFrom(r.Context())
	store, release := h.carts.Acquire(sid)
	defer release()
	result := h.carts.Handoff(sid, store).Consume(r.Context())

	_ = h.render.JSON(w, http.StatusOK, handoffResponse{
		cartResponse: newCartResponse(store, result.Cart, store.Policy()),
		Consumed:     result.Consumed,
		Merged:       result.Merged,
		Stale:        result.Stale,
	})
}

func (h *CartHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	_ = h.render.JSON(w, http.StatusOK, map[string]string{"token": csrf.Token(r)})
}
