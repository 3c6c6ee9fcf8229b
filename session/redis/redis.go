package redis

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/topocache/session"
)

var ErrNilClient = errors.New("redis session: nil client")

// Redis is a Session over any go-redis client: *Client (standalone),
// *ClusterClient (cluster, sentinel with replica reads) or a ring.
// It exclusively owns the client and closes it on Close.
type Redis struct {
	rdb           goredis.UniversalClient
	timeout       time.Duration
	autoReconnect bool

	broken    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var _ session.Session = (*Redis)(nil)

type Config struct {
	Client goredis.UniversalClient
	// CommandTimeout bounds every command; 0 leaves only the client's own
	// read/write timeouts in place.
	CommandTimeout time.Duration
	// AutoReconnect=false latches the session broken on the first
	// connection-level failure instead of letting the pool redial.
	AutoReconnect bool
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{
		rdb:           cfg.Client,
		timeout:       cfg.CommandTimeout,
		autoReconnect: cfg.AutoReconnect,
	}, nil
}

// Client exposes the underlying go-redis client, e.g. for health checks.
func (p *Redis) Client() goredis.UniversalClient { return p.rdb }

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var b []byte
	err := p.do(ctx, "get", key, func(ctx context.Context) error {
		var err error
		b, err = p.rdb.Get(ctx, key).Bytes()
		return err
	})
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0 // go-redis: 0 => no expiry; negative values mean KEEPTTL
	}
	return p.do(ctx, "set", key, func(ctx context.Context) error {
		return p.rdb.Set(ctx, key, value, ttl).Err()
	})
}

func (p *Redis) Del(ctx context.Context, key string) (bool, error) {
	var n int64
	err := p.do(ctx, "del", key, func(ctx context.Context) error {
		var err error
		n, err = p.rdb.Del(ctx, key).Result()
		return err
	})
	return n > 0, err
}

func (p *Redis) Exists(ctx context.Context, key string) (bool, error) {
	var n int64
	err := p.do(ctx, "exists", key, func(ctx context.Context) error {
		var err error
		n, err = p.rdb.Exists(ctx, key).Result()
		return err
	})
	return n > 0, err
}

// Clear flushes the selected database. Cluster clients flush every master
// concurrently and independently; a failure on one shard leaves the others
// flushed.
func (p *Redis) Clear(ctx context.Context) error {
	return p.do(ctx, "clear", "", func(ctx context.Context) error {
		if cc, ok := p.rdb.(*goredis.ClusterClient); ok {
			return cc.ForEachMaster(ctx, func(ctx context.Context, shard *goredis.Client) error {
				return shard.FlushDB(ctx).Err()
			})
		}
		return p.rdb.FlushDB(ctx).Err()
	})
}

// Ping checks the connection. Used for the initial handshake.
func (p *Redis) Ping(ctx context.Context) error {
	return p.do(ctx, "ping", "", func(ctx context.Context) error {
		return p.rdb.Ping(ctx).Err()
	})
}

// Close releases the underlying client immediately, without waiting for
// in-flight commands. Safe to call multiple times.
func (p *Redis) Close(context.Context) error {
	p.closeOnce.Do(func() {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			p.closeErr = err
		}
	})
	return p.closeErr
}

func (p *Redis) do(ctx context.Context, op, key string, fn func(context.Context) error) error {
	if p.broken.Load() {
		return session.Unavailable(op, key, session.ErrBroken)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err := fn(ctx)
	if err == nil || errors.Is(err, goredis.Nil) {
		return err
	}
	if !p.autoReconnect && connLost(err) {
		p.broken.Store(true)
	}
	return session.Unavailable(op, key, err)
}

// connLost reports whether err came from the transport rather than from the
// server (error reply), the caller (cancellation) or a command timeout. With
// ContextTimeoutEnabled a deadline surfaces as a net.Error "i/o timeout".
func connLost(err error) bool {
	var (
		reply goredis.Error
		nerr  net.Error
	)
	switch {
	case errors.As(err, &reply):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.As(err, &nerr) && nerr.Timeout():
		return false
	default:
		return true
	}
}
