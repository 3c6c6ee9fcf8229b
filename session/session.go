// Package session defines the byte-level handle a cache uses to talk to its
// backing store.
//
// Implementations MUST be byte-for-byte transparent: Get returns exactly the
// bytes previously passed to Set for a key. They MUST be safe for concurrent
// use; pooling or serializing physical connections is their concern, not the
// caller's.
package session

import (
	"context"
	"time"
)

// Session is an owned, reusable handle to one store topology.
type Session interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. ttl <= 0 means no expiry, unless
	// the store bounds entry lifetime itself (see session/bigcache).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes key and reports whether it was present.
	Del(ctx context.Context, key string) (bool, error)

	// Exists reports whether key is present without reading its value.
	Exists(ctx context.Context, key string) (bool, error)

	// Clear empties the logical database in use. On sharded topologies each
	// shard is flushed independently: the operation is not atomic and a
	// concurrent writer may observe a partially cleared dataset.
	Clear(ctx context.Context) error

	// Close releases the session. Safe to call multiple times.
	Close(ctx context.Context) error
}
