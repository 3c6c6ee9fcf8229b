package topocache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/topocache/codec"
	"github.com/unkn0wn-root/topocache/session"
)

type cache[K comparable, V any] struct {
	ns      string
	sess    session.Session
	keys    codec.KeyCodec[K]
	codec   codec.Codec[V]
	log     Logger
	hooks   Hooks
	enabled bool
	ttl     time.Duration

	hits   atomic.Int64
	misses atomic.Int64
	closed atomic.Bool
}

var (
	_ Cache[string, any] = (*cache[string, any])(nil)
	_ StatsReporter      = (*cache[string, any])(nil)
)

func newCache[K comparable, V any](opts Options[K, V]) (*cache[K, V], error) {
	if opts.Session == nil && !opts.Disabled {
		return nil, errors.New("topocache: session is required")
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("topocache: negative default ttl %v", opts.DefaultTTL)
	}

	c := &cache[K, V]{
		ns:      opts.Namespace,
		sess:    opts.Session,
		keys:    opts.KeyCodec,
		codec:   opts.Codec,
		enabled: !opts.Disabled,
		ttl:     opts.DefaultTTL,
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if c.keys == nil {
		kc, err := codec.DefaultKey[K]()
		if err != nil {
			return nil, fmt.Errorf("topocache: key codec is required: %w", err)
		}
		c.keys = kc
	}
	if c.codec == nil {
		// JSON into an interface loses the concrete type (numbers come back
		// as float64, structs as maps).
		if t := reflect.TypeFor[V](); t.Kind() == reflect.Interface && c.enabled {
			return nil, fmt.Errorf("topocache: codec is required for interface value type %s; use codec.Registry", t)
		}
		c.codec = codec.NewFramed[V](codec.JSON[V]{})
	}
	return c, nil
}

func (c *cache[K, V]) Enabled() bool    { return c.enabled }
func (c *cache[K, V]) HitCount() int64  { return c.hits.Load() }
func (c *cache[K, V]) MissCount() int64 { return c.misses.Load() }

func (c *cache[K, V]) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrCacheClosed
	}
	if c.sess == nil {
		return nil
	}
	if err := c.sess.Close(ctx); err != nil {
		c.log.Warn("session close failed", Fields{"ns": c.ns, "err": err})
		return err
	}
	return nil
}

func (c *cache[K, V]) Put(ctx context.Context, k K, v V) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if !c.enabled {
		return nil
	}
	sk, err := c.storageKey(k)
	if err != nil {
		c.hooks.CodecError("put", "", err)
		return &CacheWriteError{Op: "put", Err: err}
	}
	b, err := c.codec.Encode(v)
	if err != nil {
		// nothing reaches the session on a failed encode
		c.hooks.CodecError("put", sk, err)
		return &CacheWriteError{Op: "put", Key: sk, Err: err}
	}
	if err := c.sess.Set(ctx, sk, b, c.ttl); err != nil {
		return c.storeErr("put", sk, err, false)
	}
	return nil
}

func (c *cache[K, V]) Get(ctx context.Context, k K) (V, bool, error) {
	var zero V
	if c.closed.Load() {
		return zero, false, ErrCacheClosed
	}
	if !c.enabled {
		return zero, false, nil
	}
	sk, err := c.storageKey(k)
	if err != nil {
		c.hooks.CodecError("get", "", err)
		return zero, false, &CacheReadError{Op: "get", Err: err}
	}
	raw, ok, err := c.sess.Get(ctx, sk)
	if err != nil {
		return zero, false, c.storeErr("get", sk, err, true)
	}
	if !ok {
		c.misses.Add(1)
		c.hooks.Miss(sk)
		return zero, false, nil
	}
	v, err := c.codec.Decode(raw)
	if err != nil {
		c.hooks.CodecError("get", sk, err)
		c.selfHeal(ctx, sk, "value_decode")
		return zero, false, &CacheReadError{Op: "get", Key: sk, Err: err}
	}
	c.hits.Add(1)
	c.hooks.Hit(sk)
	return v, true, nil
}

func (c *cache[K, V]) Remove(ctx context.Context, k K) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if !c.enabled {
		return nil
	}
	sk, err := c.storageKey(k)
	if err != nil {
		c.hooks.CodecError("remove", "", err)
		return &CacheWriteError{Op: "remove", Err: err}
	}
	if _, err := c.sess.Del(ctx, sk); err != nil {
		return c.storeErr("remove", sk, err, false)
	}
	return nil
}

func (c *cache[K, V]) Clear(ctx context.Context) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if !c.enabled {
		return nil
	}
	if err := c.sess.Clear(ctx); err != nil {
		return c.storeErr("clear", "", err, false)
	}
	c.log.Info("cache cleared", Fields{"ns": c.ns})
	return nil
}

func (c *cache[K, V]) ContainsKey(ctx context.Context, k K) (bool, error) {
	if c.closed.Load() {
		return false, ErrCacheClosed
	}
	if !c.enabled {
		return false, nil
	}
	sk, err := c.storageKey(k)
	if err != nil {
		c.hooks.CodecError("contains", "", err)
		return false, &CacheReadError{Op: "contains", Err: err}
	}
	ok, err := c.sess.Exists(ctx, sk)
	if err != nil {
		return false, c.storeErr("contains", sk, err, true)
	}
	return ok, nil
}

func (c *cache[K, V]) storageKey(k K) (string, error) {
	enc, err := c.keys.EncodeKey(k)
	if err != nil {
		return "", err
	}
	if c.ns == "" {
		return enc, nil
	}
	return c.ns + ":" + enc, nil
}

// storeErr maps a session failure to the caller-facing error. A call that
// raced with Close reports ErrCacheClosed rather than the teardown noise.
func (c *cache[K, V]) storeErr(op, sk string, err error, read bool) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	c.hooks.StoreError(op, sk, err)
	c.log.Debug("session error", Fields{"op": op, "key": sk, "err": err})
	if read {
		return &CacheReadError{Op: op, Key: sk, Err: err}
	}
	return &CacheWriteError{Op: op, Key: sk, Err: err}
}

func (c *cache[K, V]) selfHeal(ctx context.Context, sk, reason string) {
	if _, err := c.sess.Del(ctx, sk); err != nil {
		c.log.Warn("self-heal delete failed", Fields{"key": sk, "reason": reason, "err": err})
		return
	}
	c.hooks.SelfHeal(sk, reason)
	c.log.Debug("self-healed undecodable entry", Fields{"key": sk, "reason": reason})
}

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
