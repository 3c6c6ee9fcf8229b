package topocache

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/topocache/codec"
	"github.com/unkn0wn-root/topocache/config"
	"github.com/unkn0wn-root/topocache/session"
	"github.com/unkn0wn-root/topocache/topology"
)

// Error kinds raised below the cache, re-exported so callers can match them
// with errors.As without importing every subpackage.
type (
	// ConfigurationError: invalid or incomplete settings; fatal to startup.
	ConfigurationError = config.Error
	// ConnectionError: the initial handshake failed; fatal unless the caller retries.
	ConnectionError = topology.ConnectionError
	// StoreUnavailableError: command timeout or broken connection mid-operation.
	StoreUnavailableError = session.UnavailableError
	// SerializationError: a key or value could not be encoded or decoded.
	SerializationError = codec.Error
)

// ErrCacheClosed is returned by every call made after Close.
var ErrCacheClosed = errors.New("topocache: cache is closed")

// CacheWriteError wraps the cause of a failed Put, Remove or Clear.
type CacheWriteError struct {
	Op  string
	Key string // storage key; empty when the key itself could not be encoded
	Err error
}

func (e *CacheWriteError) Error() string { return opError("write", e.Op, e.Key, e.Err) }
func (e *CacheWriteError) Unwrap() error { return e.Err }

// CacheReadError wraps the cause of a failed Get or ContainsKey. A miss is
// never a CacheReadError.
type CacheReadError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheReadError) Error() string { return opError("read", e.Op, e.Key, e.Err) }
func (e *CacheReadError) Unwrap() error { return e.Err }

func opError(kind, op, key string, err error) string {
	if key == "" {
		return fmt.Sprintf("topocache: %s %s failed: %v", op, kind, err)
	}
	return fmt.Sprintf("topocache: %s %q %s failed: %v", op, key, kind, err)
}
