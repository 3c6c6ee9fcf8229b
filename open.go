package topocache

import (
	"context"

	"github.com/unkn0wn-root/topocache/config"
	"github.com/unkn0wn-root/topocache/topology"
)

// Open is the composition root for one cache: it resolves s into a session
// and builds a cache over it with s.TimeToLive as the default TTL.
//
// A disabled configuration (enable=false) yields a disabled cache and makes
// no connection. opts.Session and opts.DefaultTTL are overwritten;
// opts.Namespace falls back to s.Namespace.
func Open[K comparable, V any](ctx context.Context, s config.Settings, opts Options[K, V]) (Cache[K, V], error) {
	opts.DefaultTTL = s.TimeToLive
	opts.Namespace = coalesce(opts.Namespace, s.Namespace)

	if !s.Enabled {
		opts.Session = nil
		opts.Disabled = true
		return New(opts)
	}

	sess, err := topology.Resolve(ctx, s, opts.Logger)
	if err != nil {
		return nil, err
	}
	opts.Session = sess

	c, err := New(opts)
	if err != nil {
		_ = sess.Close(ctx)
		return nil, err
	}
	return c, nil
}
