// Package topology turns validated settings into a live Redis session for
// exactly one of the standalone, cluster or sentinel topologies.
//
// Every topology gets the same transport policy: TLS per useSsl, the command
// timeout on reads and writes, no silent retries, replica-preferred reads
// where replicas exist, and an optional PING on every new connection.
package topology

import (
	"context"
	"crypto/tls"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/topocache/config"
	"github.com/unkn0wn-root/topocache/log"
	redissession "github.com/unkn0wn-root/topocache/session/redis"
)

// Resolve validates s, builds the client for s.Mode and performs one PING
// bounded by the command timeout. Invalid settings fail with *config.Error
// before any dial; an unreachable store fails with *ConnectionError. Resolve
// does not retry.
func Resolve(ctx context.Context, s config.Settings, logger log.Logger) (*redissession.Redis, error) {
	l := log.OrNop(logger)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	addrs, err := Addrs(s)
	if err != nil {
		return nil, err
	}
	if s.ShutdownTimeout > 0 {
		l.Warn("shutdown grace ignored; sessions close without waiting for in-flight commands",
			log.Fields{"shutdownTimeout": s.ShutdownTimeout.String()})
	}

	rdb, err := Build(s)
	if err != nil {
		return nil, err
	}

	hctx, cancel := context.WithTimeout(ctx, s.CommandTimeout)
	defer cancel()
	if err := rdb.Ping(hctx).Err(); err != nil {
		_ = rdb.Close()
		l.Error("cache handshake failed", log.Fields{"mode": s.Mode.String(), "addrs": addrs, "err": err})
		return nil, &ConnectionError{Mode: s.Mode, Addrs: addrs, Err: err}
	}

	sess, err := redissession.New(redissession.Config{
		Client:         rdb,
		CommandTimeout: s.CommandTimeout,
		AutoReconnect:  s.AutoReconnect,
	})
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	l.Info("cache session ready", log.Fields{
		"mode":  s.Mode.String(),
		"addrs": addrs,
		"tls":   s.UseSSL,
	})
	return sess, nil
}

// Build creates the client for s.Mode without touching the network. It
// assumes s is valid.
func Build(s config.Settings) (goredis.UniversalClient, error) {
	switch s.Mode {
	case config.Clustered:
		opt, err := ClusterOptions(s)
		if err != nil {
			return nil, err
		}
		return goredis.NewClusterClient(opt), nil
	case config.Sentinel:
		opt, err := FailoverOptions(s)
		if err != nil {
			return nil, err
		}
		// cluster flavour of the failover client: reads go to replicas
		// and fall back to the master when none is reachable
		return goredis.NewFailoverClusterClient(opt), nil
	case config.Standalone:
		return goredis.NewClient(StandaloneOptions(s)), nil
	default:
		return nil, &config.Error{Field: "mode", Value: s.Mode.String(), Reason: "unknown topology"}
	}
}

// Addrs lists the endpoints s.Mode dials, in configured order.
func Addrs(s config.Settings) ([]string, error) {
	switch s.Mode {
	case config.Clustered:
		return nodeAddrs("cluster.nodes", s.Cluster.Nodes)
	case config.Sentinel:
		return nodeAddrs("sentinel.nodes", s.Sentinel.Nodes)
	default:
		return []string{s.Endpoint().Addr()}, nil
	}
}

func StandaloneOptions(s config.Settings) *goredis.Options {
	return &goredis.Options{
		Addr:     s.Endpoint().Addr(),
		Username: s.Username,
		Password: s.Password,
		DB:       s.Database,

		ReadTimeout:           s.CommandTimeout,
		WriteTimeout:          s.CommandTimeout,
		ContextTimeoutEnabled: true,
		MaxRetries:            -1,

		PoolSize:       s.Pool.MaxTotal,
		MaxActiveConns: s.Pool.MaxTotal,
		MaxIdleConns:   s.Pool.MaxIdle,
		MinIdleConns:   s.Pool.MinIdle,
		PoolTimeout:    s.Pool.MaxWait,

		TLSConfig: tlsConfig(s),
		OnConnect: onConnect(s),
	}
}

func ClusterOptions(s config.Settings) (*goredis.ClusterOptions, error) {
	addrs, err := nodeAddrs("cluster.nodes", s.Cluster.Nodes)
	if err != nil {
		return nil, err
	}
	return &goredis.ClusterOptions{
		Addrs:    addrs,
		Username: s.Username,
		Password: s.Password,
		ReadOnly: true,

		ReadTimeout:           s.CommandTimeout,
		WriteTimeout:          s.CommandTimeout,
		ContextTimeoutEnabled: true,
		MaxRetries:            -1,
		// The cluster client retries network errors inside its redirect
		// loop, so one attempt per command. A MOVED/ASK reply fails that
		// call and schedules a slot map reload for the next one.
		MaxRedirects: -1,

		PoolSize:       s.Pool.MaxTotal,
		MaxActiveConns: s.Pool.MaxTotal,
		MaxIdleConns:   s.Pool.MaxIdle,
		MinIdleConns:   s.Pool.MinIdle,
		PoolTimeout:    s.Pool.MaxWait,

		TLSConfig: tlsConfig(s),
		OnConnect: onConnect(s),
	}, nil
}

func FailoverOptions(s config.Settings) (*goredis.FailoverOptions, error) {
	addrs, err := nodeAddrs("sentinel.nodes", s.Sentinel.Nodes)
	if err != nil {
		return nil, err
	}
	return &goredis.FailoverOptions{
		MasterName:       s.Sentinel.Master,
		SentinelAddrs:    addrs,
		SentinelPassword: s.Sentinel.Password,
		Username:         s.Username,
		Password:         s.Password,
		ReplicaOnly:      true,

		ReadTimeout:           s.CommandTimeout,
		WriteTimeout:          s.CommandTimeout,
		ContextTimeoutEnabled: true,
		MaxRetries:            -1,

		PoolSize:       s.Pool.MaxTotal,
		MaxActiveConns: s.Pool.MaxTotal,
		MaxIdleConns:   s.Pool.MaxIdle,
		MinIdleConns:   s.Pool.MinIdle,
		PoolTimeout:    s.Pool.MaxWait,

		TLSConfig: tlsConfig(s),
		OnConnect: onConnect(s),
	}, nil
}

func nodeAddrs(field string, nodes []string) ([]string, error) {
	eps, err := config.ParseEndpoints(field, nodes)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(eps))
	for i, ep := range eps {
		out[i] = ep.Addr()
	}
	return out, nil
}

func tlsConfig(s config.Settings) *tls.Config {
	if !s.UseSSL {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

func onConnect(s config.Settings) func(context.Context, *goredis.Conn) error {
	if !s.PingBeforeActivateConnection {
		return nil
	}
	return func(ctx context.Context, cn *goredis.Conn) error {
		return cn.Ping(ctx).Err()
	}
}
