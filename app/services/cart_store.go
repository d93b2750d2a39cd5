package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Rakhulsr/axen-cart/app/models"
	"github.com/Rakhulsr/axen-cart/app/repositories"
	"github.com/Rakhulsr/axen-cart/app/utils/calc"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MergePolicy decides what happens to the stored unit price when an item
// that is already in the cart is added again.
type MergePolicy int

const (
	// MergeOverwriteNonZero replaces the stored price with a non-zero
	// incoming price; a zero incoming price keeps the stored one.
	MergeOverwriteNonZero MergePolicy = iota
	// MergeKeepExisting ignores the incoming price entirely.
	MergeKeepExisting
)

type CartStoreOptions struct {
	Policy models.PricingPolicy
	Merge  MergePolicy
	// ViewID identifies this store's writes in storage events. A random id
	// is used when empty.
	ViewID string
	Logger *zap.Logger
}

// CartStore owns one cart scope. Every mutation re-reads storage, applies
// the change and replaces the persisted value, then notifies subscribers.
// Storage failures never reach the caller: the store falls back to a
// private in-memory copy for the rest of its life.
type CartStore struct {
	storage repositories.SharedStorage
	key     string
	viewID  string
	policy  models.PricingPolicy
	merge   MergePolicy
	logger  *zap.Logger

	mu       sync.Mutex
	fallback *repositories.MemoryStorage
	degraded atomic.Bool

	subMu     sync.RWMutex
	local     map[int]func(models.CartEvent)
	external  map[int]func(models.CartEvent)
	nextSubID int
	unwatch   func()
}

func NewCartStore(storage repositories.SharedStorage, key string, opts CartStoreOptions) *CartStore {
	viewID := opts.ViewID
	if viewID == "" {
		viewID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CartStore{
		storage:  storage,
		key:      key,
		viewID:   viewID,
		policy:   opts.Policy,
		merge:    opts.Merge,
		logger:   logger.With(zap.String("cart_key", key)),
		fallback: repositories.NewMemoryStorage(),
		local:    make(map[int]func(models.CartEvent)),
		external: make(map[int]func(models.CartEvent)),
	}
}

func (s *CartStore) Key() string    { return s.key }
func (s *CartStore) ViewID() string { return s.viewID }

// Degraded reports whether the store lost its shared storage.
func (s *CartStore) Degraded() bool { return s.degraded.Load() }

// Start attaches the store to storage change notifications so that
// writes from other views reach OnExternalChange listeners.
func (s *CartStore) Start(ctx context.Context) error {
	cancel, err := s.storage.Subscribe(ctx, func(ev repositories.StorageEvent) {
		s.HandleStorageEvent(ctx, ev)
	})
	if err != nil {
		return err
	}

	s.subMu.Lock()
	s.unwatch = cancel
	s.subMu.Unlock()
	return nil
}

func (s *CartStore) Close() {
	s.subMu.Lock()
	unwatch := s.unwatch
	s.unwatch = nil
	s.subMu.Unlock()

	if unwatch != nil {
		unwatch()
	}
}

func (s *CartStore) Read(ctx context.Context) models.Cart {
	raw, err := s.backend().Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, repositories.ErrKeyNotFound) {
			s.degrade(err)
		}
		return models.EmptyCart()
	}
	return models.DecodeCart(raw)
}

func (s *CartStore) Write(ctx context.Context, cart models.Cart) models.Cart {
	s.mu.Lock()
	written := s.persist(ctx, cart)
	s.mu.Unlock()

	s.emitLocal(written)
	return written
}

// Add merges item into the cart by id. A non-positive quantity or a blank
// id leaves the cart untouched; merged quantities saturate at
// models.MaxQuantity.
func (s *CartStore) Add(ctx context.Context, item models.LineItem) models.Cart {
	if item.Quantity <= 0 {
		return s.Read(ctx)
	}
	item, ok := item.Normalize()
	if !ok {
		return s.Read(ctx)
	}

	s.mu.Lock()
	cart := s.Read(ctx)
	if i, found := cart.Find(item.ID); found {
		existing := &cart.Items[i]
		existing.Quantity = models.AddQuantity(existing.Quantity, item.Quantity)
		if s.merge == MergeOverwriteNonZero && !item.Price.IsZero() {
			existing.Price = item.Price
		}
	} else {
		cart.Items = append(cart.Items, item)
	}
	written := s.persist(ctx, cart)
	s.mu.Unlock()

	s.emitLocal(written)
	return written
}

func (s *CartStore) RemoveItem(ctx context.Context, id string) models.Cart {
	s.mu.Lock()
	cart := s.Read(ctx)
	i, found := cart.Find(id)
	if !found {
		s.mu.Unlock()
		return cart
	}
	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	written := s.persist(ctx, cart)
	s.mu.Unlock()

	s.emitLocal(written)
	return written
}

// SetQuantity replaces the quantity of an existing line; qty <= 0 removes
// it and qty above models.MaxQuantity is capped. Unknown ids are ignored
// without a write.
func (s *CartStore) SetQuantity(ctx context.Context, id string, qty int) models.Cart {
	if qty <= 0 {
		return s.RemoveItem(ctx, id)
	}
	if qty > models.MaxQuantity {
		qty = models.MaxQuantity
	}

	s.mu.Lock()
	cart := s.Read(ctx)
	i, found := cart.Find(id)
	if !found {
		s.mu.Unlock()
		return cart
	}
	cart.Items[i].Quantity = qty
	written := s.persist(ctx, cart)
	s.mu.Unlock()

	s.emitLocal(written)
	return written
}

func (s *CartStore) Clear(ctx context.Context) models.Cart {
	return s.Write(ctx, models.EmptyCart())
}

func (s *CartStore) Totals(ctx context.Context) models.Totals {
	return s.TotalsFor(s.Read(ctx).Items, s.policy)
}

// TotalsFor prices items under policy, logging policy violations for the
// operator rather than failing the view.
func (s *CartStore) TotalsFor(items []models.LineItem, policy models.PricingPolicy) models.Totals {
	totals, err := calc.Compute(items, policy)
	if err != nil {
		s.logger.Error("pricing policy violation",
			zap.Error(err),
			zap.String("subtotal", totals.Subtotal.String()),
			zap.String("discount", totals.Discount.String()),
			zap.String("shipping", totals.Shipping.String()),
		)
	}
	return totals
}

func (s *CartStore) Policy() models.PricingPolicy { return s.policy }

// Subscribe registers fn for changes made through this store.
func (s *CartStore) Subscribe(fn func(models.CartEvent)) func() {
	return s.register(s.local, fn)
}

// OnExternalChange registers fn for changes other views wrote to this
// cart's key. Listeners receive the freshly re-read cart.
func (s *CartStore) OnExternalChange(fn func(models.CartEvent)) func() {
	return s.register(s.external, fn)
}

// HandleStorageEvent is the storage subscription callback. Events for other
// keys, and echoes of this store's own writes, are ignored.
func (s *CartStore) HandleStorageEvent(ctx context.Context, ev repositories.StorageEvent) {
	if ev.Key != s.key || ev.Origin == s.viewID {
		return
	}
	cart := s.Read(ctx)
	s.emit(s.external, s.event(cart, models.SourceExternal))
}

func (s *CartStore) persist(ctx context.Context, cart models.Cart) models.Cart {
	normalized := models.Cart{Items: models.NormalizeItems(cart.Items)}

	raw, err := models.EncodeCart(normalized)
	if err != nil {
		// Normalised items always encode; keep serving the in-memory state.
		s.logger.Error("encoding cart", zap.Error(err))
		return normalized
	}

	if err := s.backend().Set(ctx, s.viewID, s.key, raw); err != nil {
		s.degrade(err)
		_ = s.fallback.Set(ctx, s.viewID, s.key, raw)
	}
	return normalized
}

func (s *CartStore) backend() repositories.SharedStorage {
	if s.degraded.Load() {
		return s.fallback
	}
	return s.storage
}

func (s *CartStore) degrade(err error) {
	if s.degraded.CompareAndSwap(false, true) {
		s.logger.Warn("shared storage unavailable, cart kept in memory only", zap.Error(err))
	}
}

func (s *CartStore) register(set map[int]func(models.CartEvent), fn func(models.CartEvent)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	set[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(set, id)
		s.subMu.Unlock()
	}
}

func (s *CartStore) emitLocal(cart models.Cart) {
	s.emit(s.local, s.event(cart, models.SourceLocal))
}

func (s *CartStore) event(cart models.Cart, source models.EventSource) models.CartEvent {
	return models.CartEvent{
		Scope:  s.key,
		Items:  cart.Clone().Items,
		Totals: s.TotalsFor(cart.Items, s.policy),
		Source: source,
	}
}

func (s *CartStore) emit(set map[int]func(models.CartEvent), ev models.CartEvent) {
	s.subMu.RLock()
	fns := make([]func(models.CartEvent), 0, len(set))
	for _, fn := range set {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
