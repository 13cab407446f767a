package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Store is the response cache. The Redis and in-memory backends are
// interchangeable behind this interface; the orchestrator never knows which
// one it is talking to.
type Store interface {
	// Get returns the cached payload for key, or absent. Expired entries are
	// treated as absent.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores the payload under key with the configured TTL. A key that is
	// already present and unexpired is left untouched (write-once per TTL
	// window); writes are idempotent, so this needs no coordination across
	// instances.
	Set(ctx context.Context, key string, value []byte)
	// Ping reports backend reachability for health checks.
	Ping(ctx context.Context) error
	// Stats returns a snapshot for the status endpoint.
	Stats() Stats
}

// Stats describes the cache backend for /status.
type Stats struct {
	Mode     string        `json:"mode"`
	Size     int           `json:"size"`
	TTL      time.Duration `json:"-"`
	TTLHuman string        `json:"ttl"`
	MaxItems int           `json:"max_items,omitempty"`
	Prefix   string        `json:"prefix"`
}

var keySpaceRe = regexp.MustCompile(`\s+`)

// Normalize lowercases, collapses whitespace runs and trims the message so
// textually equivalent queries share one cache entry.
func Normalize(message string) string {
	return strings.TrimSpace(keySpaceRe.ReplaceAllString(strings.ToLower(message), " "))
}

// Key derives the cache key for a query: a versioned namespace prefix plus a
// sha1 of the normalized text. Returns false when the query is empty after
// normalization.
func Key(prefix, message string) (string, bool) {
	normalized := Normalize(message)
	if normalized == "" {
		return "", false
	}
	sum := sha1.Sum([]byte(normalized))
	return fmt.Sprintf("%s:q:%s", prefix, hex.EncodeToString(sum[:])), true
}

func ttlHuman(ttl time.Duration) string {
	return fmt.Sprintf("%dh %dm", int(ttl.Hours()), int(ttl.Minutes())%60)
}
