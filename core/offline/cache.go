package offline

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Entry is a stored response.
type Entry struct {
	Status int
	Header http.Header
	Body   []byte
}

// Write replays the entry on w.
func (e *Entry) Write(w http.ResponseWriter) {
	for k, vs := range e.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(e.Status)
	w.Write(e.Body)
}

// Partition is one named response store, keyed by absolute URL.
type Partition interface {
	Match(ctx context.Context, key string) (*Entry, bool, error)
	Put(ctx context.Context, key string, entry *Entry) error
	Keys(ctx context.Context) ([]string, error)
}

// Cache holds the named partitions.
type Cache interface {
	Open(ctx context.Context, name string) (Partition, error)
	Names(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// MemoryCache keeps partitions in process memory.
type MemoryCache struct {
	mu         sync.RWMutex
	partitions map[string]*memoryPartition
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{partitions: make(map[string]*memoryPartition)}
}

func (c *MemoryCache) Open(_ context.Context, name string) (Partition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.partitions[name]
	if !ok {
		p = &memoryPartition{entries: make(map[string]*Entry)}
		c.partitions[name] = p
	}
	return p, nil
}

func (c *MemoryCache) Names(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := lo.Keys(c.partitions)
	sort.Strings(names)
	return names, nil
}

func (c *MemoryCache) Delete(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.partitions, name)
	return nil
}

type memoryPartition struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func (p *memoryPartition) Match(_ context.Context, key string) (*Entry, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[key]
	return e, ok, nil
}

func (p *memoryPartition) Put(_ context.Context, key string, entry *Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[key] = entry
	return nil
}

func (p *memoryPartition) Keys(_ context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
