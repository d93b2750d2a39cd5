package routes

import (
	"net/http"

	"github.com/Rakhulsr/axen-cart/app/handlers"
	"github.com/Rakhulsr/axen-cart/app/middlewares"
	"github.com/Rakhulsr/axen-cart/app/utils/sessions"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Deps struct {
	Cart     *handlers.CartHandler
	Sessions sessions.SessionStore
	Logger   *zap.Logger

	// CSRFKey enables token checks on mutating requests when non-nil.
	CSRFKey []byte
	Secure  bool
}

func NewRouter(deps Deps) http.Handler {
	router := mux.NewRouter()
	router.Use(middlewares.RequestLogger(deps.Logger))

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middlewares.SessionMiddleware(deps.Sessions, deps.Logger))
	if deps.CSRFKey != nil {
		api.Use(csrf.Protect(deps.CSRFKey,
			csrf.Secure(deps.Secure),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.ErrorHandler(http.HandlerFunc(csrfFailure(deps.Logger))),
		))
		api.HandleFunc("/csrf", deps.Cart.CSRFToken).Methods(http.MethodGet)
	}

	h := deps.Cart
	api.HandleFunc("/catalog", h.Catalog).Methods(http.MethodGet)

	api.HandleFunc("/cart", h.GetCart).Methods(http.MethodGet)
	api.HandleFunc("/cart", h.ClearCart).Methods(http.MethodDelete)
	api.HandleFunc("/cart/events", h.Events).Methods(http.MethodGet)
	api.HandleFunc("/cart/items", h.AddItem).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{id}", h.UpdateItem).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/cart/items/{id}", h.RemoveItem).Methods(http.MethodDelete)

	api.HandleFunc("/checkout/buy-now", h.BuyNow).Methods(http.MethodPost)
	api.HandleFunc("/checkout/handoff", h.ConsumeHandoff).Methods(http.MethodPost)

	// Forms that can only POST tunnel PATCH and DELETE through a header,
	// which has to be rewritten before mux matches the method.
	return middlewares.MethodOverrideMiddleware(router)
}

func csrfFailure(logger *zap.Logger) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Warn("csrf check failed", zap.String("path", r.URL.Path), zap.Error(csrf.FailureReason(r)))
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"invalid csrf token"}`))
	}
}
