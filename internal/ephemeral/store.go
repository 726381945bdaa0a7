package ephemeral

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the backing store cannot be reached.
// Callers surface it as a transient failure; it never carries partial results.
var ErrUnavailable = errors.New("ephemeral store unavailable")

// SetMember identifies one membership probe in a batched set lookup.
type SetMember struct {
	Key    string
	Member string
}

// Store is the key/value contract the realtime engine runs on: plain values
// with per-key expiry, lists, sets and hashes. Individual operations are
// atomic at the single-key level; multi-key reads are batched into a single
// round trip.
type Store interface {
	// --- Plain values ---
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX sets the key only if it is absent. Returns true if it was set.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Get returns the value and whether the key exists. An expired key is
	// indistinguishable from one that never existed.
	Get(ctx context.Context, key string) (string, bool, error)
	// MGet fetches many keys in one round trip. Absent keys yield nil entries.
	MGet(ctx context.Context, keys ...string) ([]*string, error)
	Del(ctx context.Context, keys ...string) error
	// TTL returns the remaining lifetime of the key, or a non-positive
	// duration when the key is absent or has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// --- Lists ---
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string) ([]string, error)
	// LRemAll removes every occurrence of each value, pipelined as one
	// round trip.
	LRemAll(ctx context.Context, key string, values ...string) error

	// --- Sets ---
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	// SIsMemberBatch answers many membership probes in one round trip.
	// The result slice is index-aligned with pairs.
	SIsMemberBatch(ctx context.Context, pairs []SetMember) ([]bool, error)

	// --- Hashes ---
	HSet(ctx context.Context, key, field, value string) error
	HDel(ctx context.Context, key string, fields ...string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	Ping(ctx context.Context) error
	Close() error
}
