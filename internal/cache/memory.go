package cache

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store, used in tests and when no cache file is wanted
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

// Partition returns the named partition
func (m *MemoryStore) Partition(name string) Partition {
	return &memoryPartition{store: m, name: name}
}

// Count returns the number of entries in a partition
func (m *MemoryStore) Count(_ context.Context, partition string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[partition]), nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}

type memoryPartition struct {
	store *MemoryStore
	name  string
}

func (p *memoryPartition) Get(_ context.Context, key string) (string, bool) {
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()
	v, ok := p.store.data[p.name][key]
	return v, ok
}

func (p *memoryPartition) Set(_ context.Context, key, value string) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	part, ok := p.store.data[p.name]
	if !ok {
		part = make(map[string]string)
		p.store.data[p.name] = part
	}
	part[key] = value
	return nil
}

func (p *memoryPartition) Clear(_ context.Context) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	delete(p.store.data, p.name)
	return nil
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Counter = (*MemoryStore)(nil)
)
