package services

import (
	"context"
	"sync"
	"time"

	"github.com/Rakhulsr/axen-cart/app/models"
	"github.com/Rakhulsr/axen-cart/app/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ScopeMode string

const (
	// ScopeSession keys every visitor's cart by their session token.
	ScopeSession ScopeMode = "session"
	// ScopeDevice shares one fixed cart key between all visitors.
	ScopeDevice ScopeMode = "device"

	DeviceCartKey = "axen-demo-cart"
)

func CartKey(mode ScopeMode, sessionID string) string {
	if mode == ScopeDevice {
		return DeviceCartKey
	}
	return "cart:" + sessionID
}

func HandoffKey(sessionID string) string {
	return "checkout:" + sessionID
}

type RegistryOptions struct {
	Scope         ScopeMode
	Policy        models.PricingPolicy
	Merge         MergePolicy
	HandoffMaxAge time.Duration
}

type registryEntry struct {
	store *CartStore
	refs  int
}

// CartRegistry hands out one CartStore per cart key for as long as someone
// holds it. All stores built by a registry share its view id, so one
// process counts as one view of the shared storage, and a single storage
// subscription is fanned out to the live store owning the changed key.
// A store is dropped when its last holder releases it; the cart itself
// lives in storage.
type CartRegistry struct {
	ctx     context.Context
	storage repositories.SharedStorage
	opts    RegistryOptions
	viewID  string
	logger  *zap.Logger

	mu      sync.Mutex
	stores  map[string]*registryEntry
	unwatch func()
}

func NewCartRegistry(ctx context.Context, storage repositories.SharedStorage, opts RegistryOptions, logger *zap.Logger) *CartRegistry {
	if opts.Scope == "" {
		opts.Scope = ScopeSession
	}
	return &CartRegistry{
		ctx:     ctx,
		storage: storage,
		opts:    opts,
		viewID:  uuid.NewString(),
		logger:  logger,
		stores:  make(map[string]*registryEntry),
	}
}

func (r *CartRegistry) Scope() ScopeMode { return r.opts.Scope }

// Acquire returns the store for the visitor's cart. Concurrent holders of
// the same key share one store, so their mutations are serialised. The
// release func must be called exactly once when the caller is done.
func (r *CartRegistry) Acquire(sessionID string) (*CartStore, func()) {
	key := CartKey(r.opts.Scope, sessionID)

	r.mu.Lock()
	entry, ok := r.stores[key]
	if !ok {
		entry = &registryEntry{store: NewCartStore(r.storage, key, CartStoreOptions{
			Policy: r.opts.Policy,
			Merge:  r.opts.Merge,
			ViewID: r.viewID,
			Logger: r.logger,
		})}
		r.stores[key] = entry
	}
	entry.refs++
	r.mu.Unlock()

	var once sync.Once
	return entry.store, func() {
		once.Do(func() { r.release(key, entry) })
	}
}

func (r *CartRegistry) release(key string, entry *registryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.refs--
	if entry.refs <= 0 && r.stores[key] == entry {
		delete(r.stores, key)
	}
}

// Live reports how many carts are currently held.
func (r *CartRegistry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Start subscribes to storage changes. Without it carts still work but
// never hear about writes from other processes.
func (r *CartRegistry) Start() error {
	cancel, err := r.storage.Subscribe(r.ctx, r.dispatch)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.unwatch = cancel
	r.mu.Unlock()
	return nil
}

func (r *CartRegistry) dispatch(ev repositories.StorageEvent) {
	r.mu.Lock()
	entry, ok := r.stores[ev.Key]
	r.mu.Unlock()

	if ok {
		entry.store.HandleStorageEvent(r.ctx, ev)
	}
}

// Handoff builds the buy-now channel for a visitor, merging into cart.
func (r *CartRegistry) Handoff(sessionID string, cart *CartStore) *HandoffService {
	return NewHandoffService(r.storage, HandoffKey(sessionID), cart, r.opts.HandoffMaxAge, r.logger)
}

func (r *CartRegistry) Close() {
	r.mu.Lock()
	unwatch := r.unwatch
	r.unwatch = nil
	r.mu.Unlock()

	if unwatch != nil {
		unwatch()
	}
}
