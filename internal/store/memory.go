package store

import (
	"context"
	"sync"

	"github.com/hyprcat/hyprcat/internal/ld"
)

// memory is a concurrency-safe in-memory Store. Readers take the RLock;
// every mutation replaces the whole map entry so a reader observes
// either the old or the new resource, never a torn value.
type memory struct {
	mu   sync.RWMutex
	data map[string]map[string]any
}

// NewMemory returns a Store backed by an in-process map.
func NewMemory() Store {
	return &memory{data: make(map[string]map[string]any)}
}

func (m *memory) Get(ctx context.Context, id string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneResource(res), nil
}

func (m *memory) Put(ctx context.Context, id string, resource map[string]any) error {
	clone := cloneResource(resource)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = clone
	return nil
}

func (m *memory) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[id]
	delete(m.data, id)
	return ok, nil
}

func (m *memory) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memory) FindByType(ctx context.Context, typ string) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []map[string]any
	for _, res := range m.data {
		if ld.IsOfType(res, typ) {
			out = append(out, cloneResource(res))
		}
	}
	return out, nil
}

func cloneResource(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
