package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rakhulsr/axen-cart/app/models"
	"github.com/Rakhulsr/axen-cart/app/repositories"
	"go.uber.org/zap"
)

var ErrEmptyHandoff = errors.New("buy-now hand-off has no items")

// HandoffResult describes what Consume found.
type HandoffResult struct {
	// Consumed is true when a payload existed and has now been deleted.
	Consumed bool
	// Merged counts the items added to the cart.
	Merged int
	Stale  bool
	Cart   models.Cart
}

// HandoffService passes a "buy now" selection from a product page to the
// checkout page through a separately keyed, single-use payload.
type HandoffService struct {
	storage repositories.SharedStorage
	key     string
	cart    *CartStore
	maxAge  time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

func NewHandoffService(storage repositories.SharedStorage, key string, cart *CartStore, maxAge time.Duration, logger *zap.Logger) *HandoffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HandoffService{
		storage: storage,
		key:     key,
		cart:    cart,
		maxAge:  maxAge,
		now:     time.Now,
		logger:  logger.With(zap.String("handoff_key", key)),
	}
}

func (h *HandoffService) Stage(ctx context.Context, items []models.LineItem) error {
	items = models.NormalizeItems(items)
	if len(items) == 0 {
		return ErrEmptyHandoff
	}

	raw, err := models.EncodeHandoff(models.HandoffPayload{
		Mode:      models.HandoffModeBuyNow,
		Items:     items,
		Timestamp: h.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode hand-off: %w", err)
	}

	if err := h.storage.Set(ctx, h.cart.ViewID(), h.key, raw); err != nil {
		return fmt.Errorf("stage hand-off: %w", err)
	}
	return nil
}

// Consume takes the payload out of storage, so of several concurrent
// callers only one merges it. The key is gone whether or not the payload
// held usable items; valid items of a fresh payload are then added to the
// cart.
func (h *HandoffService) Consume(ctx context.Context) HandoffResult {
	raw, err := h.storage.Take(ctx, h.cart.ViewID(), h.key)
	if err != nil {
		if !errors.Is(err, repositories.ErrKeyNotFound) {
			h.logger.Warn("taking hand-off failed", zap.Error(err))
		}
		return HandoffResult{Cart: h.cart.Read(ctx)}
	}

	result := HandoffResult{Consumed: true}

	payload, ok := models.DecodeHandoff(raw)
	if !ok {
		h.logger.Info("discarding malformed hand-off")
		result.Cart = h.cart.Read(ctx)
		return result
	}

	if h.maxAge > 0 && h.now().Sub(payload.StagedAt()) > h.maxAge {
		h.logger.Info("discarding stale hand-off", zap.Time("staged_at", payload.StagedAt()))
		result.Stale = true
		result.Cart = h.cart.Read(ctx)
		return result
	}

	cart := h.cart.Read(ctx)
	for _, item := range payload.Items {
		cart = h.cart.Add(ctx, item)
		result.Merged++
	}
	result.Cart = cart
	return result
}
