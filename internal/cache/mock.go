package cache

import (
	"sync"
	"time"
)

// MockCache is an unbounded map-backed Cache for tests. It ignores TTLs.
type MockCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	hits   uint64
	misses uint64
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, found := m.data[key]
	if found {
		m.hits++
	} else {
		m.misses++
	}
	return val, found
}

func (m *MockCache) Set(key string, value []byte, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *MockCache) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *MockCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
}

func (m *MockCache) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var size int64
	for _, v := range m.data {
		size += int64(len(v))
	}
	return Stats{Hits: m.hits, Misses: m.misses, Size: size, Items: int64(len(m.data))}
}
