package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Rakhulsr/axen-cart/app/models"
	"go.uber.org/zap"
)

const (
	eventBuffer       = 16
	heartbeatInterval = 25 * time.Second
)

type cartEventResponse struct {
	cartResponse
	Source models.EventSource `json:"source"`
}

// Events streams the cart as server-sent events: a snapshot first, then one
// "cart" event per change made here or in another view of the same cart.
func (h *CartHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.fail(w, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}

	store, release := h.store(r)
	defer release()
	ctx := r.Context()

	events := make(chan models.CartEvent, eventBuffer)
	push := func(ev models.CartEvent) {
		select {
		case events <- ev:
		default:
			h.logger.Warn("dropping cart event for slow client", zap.String("cart_key", store.Key()))
		}
	}
	unsubscribe := store.Subscribe(push)
	defer unsubscribe()
	unwatch := store.OnExternalChange(push)
	defer unwatch()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	cart := store.Read(ctx)
	snapshot := cartEventResponse{
		cartResponse: newCartResponse(store, cart, store.Policy()),
		Source:       models.SourceLocal,
	}
	if err := writeEvent(w, "snapshot", snapshot); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ev := <-events:
			resp := cartEventResponse{
				cartResponse: cartResponse{
					Items:    ev.Items,
					Totals:   ev.Totals,
					Display:  display(ev.Totals),
					Count:    models.Cart{Items: ev.Items}.Count(),
					Degraded: store.Degraded(),
				},
				Source: ev.Source,
			}
			if err := writeEvent(w, "cart", resp); err != nil {
				h.logger.Debug("cart event stream closed", zap.Error(err))
				return
			}
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
