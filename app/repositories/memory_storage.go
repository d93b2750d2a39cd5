package repositories

import (
	"context"
	"sync"
)

// MemoryStorage keeps values in process. Subscribers are called
// synchronously after the write, outside the lock.
type MemoryStorage struct {
	mu          sync.RWMutex
	values      map[string][]byte
	subscribers map[int]func(StorageEvent)
	nextID      int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		values:      make(map[string][]byte),
		subscribers: make(map[int]func(StorageEvent)),
	}
}

func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *MemoryStorage) Set(_ context.Context, origin, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	m.values[key] = stored
	m.mu.Unlock()

	m.notify(StorageEvent{Key: key, Origin: origin})
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, origin, key string) error {
	m.mu.Lock()
	_, existed := m.values[key]
	delete(m.values, key)
	m.mu.Unlock()

	if existed {
		m.notify(StorageEvent{Key: key, Origin: origin})
	}
	return nil
}

func (m *MemoryStorage) Take(_ context.Context, origin, key string) ([]byte, error) {
	m.mu.Lock()
	value, ok := m.values[key]
	delete(m.values, key)
	m.mu.Unlock()

	if !ok {
		return nil, ErrKeyNotFound
	}
	m.notify(StorageEvent{Key: key, Origin: origin})
	return value, nil
}

func (m *MemoryStorage) Subscribe(_ context.Context, fn func(StorageEvent)) (func(), error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}, nil
}

func (m *MemoryStorage) notify(ev StorageEvent) {
	m.mu.RLock()
	fns := make([]func(StorageEvent), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
