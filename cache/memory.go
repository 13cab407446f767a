package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is the in-process fallback backend: a map with explicit expiry
// timestamps checked lazily on read and oldest-inserted-first eviction once
// the item ceiling is reached. Used when Redis is not configured.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	order    []string // insertion order for eviction
	ttl      time.Duration
	maxItems int
	prefix   string
	logger   *zap.Logger
	now      func() time.Time
}

func NewMemory(ttl time.Duration, maxItems int, prefix string, logger *zap.Logger) *Memory {
	return &Memory{
		entries:  make(map[string]memoryEntry),
		ttl:      ttl,
		maxItems: maxItems,
		prefix:   prefix,
		logger:   logger,
		now:      time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().After(entry.expiresAt) {
		// Lazy expiry: delete on read, no background sweep.
		delete(m.entries, key)
		m.removeFromOrder(key)
		return nil, false
	}
	return entry.value, true
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) {
	if key == "" || len(value) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries[key]; ok {
		if m.now().Before(entry.expiresAt) {
			// Write-once within the TTL window.
			return
		}
		m.removeFromOrder(key)
	}

	if len(m.entries) >= m.maxItems && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
		m.logger.Debug("Evicted oldest cache entry", zap.String("key", oldest))
	}

	m.entries[key] = memoryEntry{value: value, expiresAt: m.now().Add(m.ttl)}
	m.order = append(m.order, key)
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Mode:     "memory",
		Size:     len(m.entries),
		TTL:      m.ttl,
		TTLHuman: ttlHuman(m.ttl),
		MaxItems: m.maxItems,
		Prefix:   m.prefix,
	}
}

func (m *Memory) removeFromOrder(key string) {
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
