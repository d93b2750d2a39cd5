package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Rakhulsr/axen-cart/app/models"
	"github.com/Rakhulsr/axen-cart/app/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandoff(t *testing.T, maxAge time.Duration) (*HandoffService, *CartStore, *repositories.MemoryStorage) {
	t.Helper()
	storage := repositories.NewMemoryStorage()
	cart := NewCartStore(storage, "cart:s1", CartStoreOptions{Policy: testPolicy})
	return NewHandoffService(storage, HandoffKey("s1"), cart, maxAge, nil), cart, storage
}

func TestHandoffConsumeMergesAndDeletes(t *testing.T) {
	ctx := context.Background()
	handoff, cart, storage := newHandoff(t, 30*time.Minute)

	require.NoError(t, handoff.Stage(ctx, []models.LineItem{{ID: "shield", Name: "Axion Shield", Price: price(48), Quantity: 1}}))

	raw, err := storage.Get(ctx, "checkout:s1")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"mode":"buy-now"`)

	result := handoff.Consume(ctx)
	assert.True(t, result.Consumed)
	assert.Equal(t, 1, result.Merged)
	assertItems(t, []models.LineItem{{ID: "shield", Name: "Axion Shield", Price: price(48), Quantity: 1}}, cart.Read(ctx).Items)

	_, err = storage.Get(ctx, "checkout:s1")
	require.ErrorIs(t, err, repositories.ErrKeyNotFound)

	again := handoff.Consume(ctx)
	assert.False(t, again.Consumed, "a payload is consumed exactly once")
	assert.Len(t, cart.Read(ctx).Items, 1)
}

func TestHandoffMergesIntoExistingCart(t *testing.T) {
	ctx := context.Background()
	handoff, cart, _ := newHandoff(t, 0)
	cart.Add(ctx, models.LineItem{ID: "shield", Price: price(48), Quantity: 2})

	require.NoError(t, handoff.Stage(ctx, []models.LineItem{{ID: "shield", Price: price(48), Quantity: 1}}))
	result := handoff.Consume(ctx)

	assertItems(t, []models.LineItem{{ID: "shield", Price: price(48), Quantity: 3}}, result.Cart.Items)
}

func TestHandoffWithoutValidItemsIsStillDeleted(t *testing.T) {
	for name, raw := range map[string]string{
		"no valid items": `{"mode":"buy-now","items":[{"name":"missing id"}],"ts":1}`,
		"malformed":      `{"mode":`,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			handoff, cart, storage := newHandoff(t, 0)
			require.NoError(t, storage.Set(ctx, "product-page", "checkout:s1", []byte(raw)))

			result := handoff.Consume(ctx)

			assert.True(t, result.Consumed)
			assert.Zero(t, result.Merged)
			assert.Empty(t, cart.Read(ctx).Items)
			_, err := storage.Get(ctx, "checkout:s1")
			require.ErrorIs(t, err, repositories.ErrKeyNotFound)
		})
	}
}

func TestHandoffStalePayloadIsDiscarded(t *testing.T) {
	ctx := context.Background()
	handoff, cart, storage := newHandoff(t, 10*time.Minute)

	staged := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	handoff.now = func() time.Time { return staged }
	require.NoError(t, handoff.Stage(ctx, []models.LineItem{{ID: "flux", Price: price(64), Quantity: 1}}))

	handoff.now = func() time.Time { return staged.Add(11 * time.Minute) }
	result := handoff.Consume(ctx)

	assert.True(t, result.Consumed)
	assert.True(t, result.Stale)
	assert.Empty(t, cart.Read(ctx).Items)
	_, err := storage.Get(ctx, "checkout:s1")
	require.ErrorIs(t, err, repositories.ErrKeyNotFound)
}

func TestHandoffStageRejectsEmpty(t *testing.T) {
	handoff, _, _ := newHandoff(t, 0)
	err := handoff.Stage(context.Background(), []models.LineItem{{Name: "no id"}})
	require.ErrorIs(t, err, ErrEmptyHandoff)
}

func TestHandoffConcurrentConsumersMergeOnce(t *testing.T) {
	ctx := context.Background()
	storage := repositories.NewMemoryStorage()
	cart := NewCartStore(storage, "cart:s1", CartStoreOptions{Policy: testPolicy})
	require.NoError(t, NewHandoffService(storage, HandoffKey("s1"), cart, 0, nil).
		Stage(ctx, []models.LineItem{{ID: "shield", Price: price(48), Quantity: 1}}))

	// each checkout tab builds its own service over the same storage
	const tabs = 4
	results := make(chan HandoffResult, tabs)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < tabs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handoff := NewHandoffService(storage, HandoffKey("s1"), cart, 0, nil)
			<-start
			results <- handoff.Consume(ctx)
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var consumed int
	for result := range results {
		if result.Consumed {
			consumed++
			assert.Equal(t, 1, result.Merged)
		}
	}
	assert.Equal(t, 1, consumed)
	assertItems(t, []models.LineItem{{ID: "shield", Price: price(48), Quantity: 1}}, cart.Read(ctx).Items)
}
