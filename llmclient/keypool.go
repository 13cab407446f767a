package llmclient

import (
	"sync"

	apperrors "kelurahan-assistant/errors"
)

// KeyPool rotates through the configured provider credentials. The cursor
// always points to a valid index and wraps modulo the pool size. The pool is
// shared by every request, so the cursor is mutex-guarded.
type KeyPool struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

func NewKeyPool(keys []string) *KeyPool {
	return &KeyPool{keys: keys}
}

// Next returns the current credential and advances the cursor. An empty pool
// is a configuration error, never a silent success.
func (p *KeyPool) Next() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.keys) == 0 {
		return "", apperrors.ErrNoCredentials
	}
	key := p.keys[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.keys)
	return key, nil
}

func (p *KeyPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}
