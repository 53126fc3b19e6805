package costledger

import (
	"context"
	"time"
)

// Store is the minimal atomic-counter-plus-retention surface the ledger
// needs from its backing key-value store. A Redis-backed implementation
// and an in-memory fake both satisfy it; see redis_store.go and
// memory_store.go.
type Store interface {
	// IncrByFloat atomically adds delta to the named field of a hash at key.
	IncrByFloat(ctx context.Context, key, field string, delta float64) error
	// IncrBy atomically adds delta to the named field of a hash at key.
	IncrBy(ctx context.Context, key, field string, delta int64) error
	// HashGetAll returns every field of the hash at key, or an empty map
	// when the key doesn't exist.
	HashGetAll(ctx context.Context, key string) (map[string]string, error)
	// Expire sets (or refreshes) the TTL on key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// PushRaw appends payload to the raw-entry list at key and refreshes
	// its TTL to ttl.
	PushRaw(ctx context.Context, key, payload string, ttl time.Duration) error
}
