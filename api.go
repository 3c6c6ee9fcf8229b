package topocache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/topocache/codec"
	"github.com/unkn0wn-root/topocache/session"
)

// Cache is the topology-agnostic cache API. K is the caller's key type, V the
// value type; both are converted by pluggable codecs.
type Cache[K comparable, V any] interface {
	Enabled() bool
	// Close releases the session. The cache is unusable afterwards: every
	// call, including a second Close, returns ErrCacheClosed.
	Close(context.Context) error

	// Put stores v under k with the default TTL.
	Put(ctx context.Context, k K, v V) error
	// Get returns (v, true, nil) on hit and (zero, false, nil) on miss.
	Get(ctx context.Context, k K) (v V, ok bool, err error)
	// Remove deletes k; removing an absent key is not an error.
	Remove(ctx context.Context, k K) error
	// Clear empties the logical database backing the cache, including
	// entries outside its namespace. Counters are not reset.
	Clear(ctx context.Context) error
	// ContainsKey checks presence without reading the value or counting.
	ContainsKey(ctx context.Context, k K) (bool, error)
}

// StatsReporter is implemented by caches that count hits and misses.
type StatsReporter interface {
	HitCount() int64
	MissCount() int64
}

// HitCount returns c's hit counter, or 0 when c does not keep one.
func HitCount(c any) int64 {
	if s, ok := c.(StatsReporter); ok {
		return s.HitCount()
	}
	return 0
}

// MissCount returns c's miss counter, or 0 when c does not keep one.
func MissCount(c any) int64 {
	if s, ok := c.(StatsReporter); ok {
		return s.MissCount()
	}
	return 0
}

// Options tune the behavior of the cache.
// Only Session is required (unless Disabled); others have sensible defaults.
type Options[K comparable, V any] struct {
	// Required. Owned by the cache from here on and released by Close.
	Session session.Session

	KeyCodec   codec.KeyCodec[K] // nil => codec.DefaultKey[K]() (string and integer kinds)
	Codec      codec.Codec[V]    // nil => JSON framed with V's type tag
	Namespace  string            // optional key prefix, "<ns>:<key>"
	DefaultTTL time.Duration     // applied to every Put; 0 => no expiry
	Logger     Logger            // if nil, NopLogger is used
	Hooks      Hooks             // if nil, NopHooks is used
	Disabled   bool              // no-op cache: every Get misses, nothing is counted
}

func New[K comparable, V any](opts Options[K, V]) (Cache[K, V], error) {
	return newCache(opts)
}
