// Package ristretto is an in-process Session backed by dgraph-io/ristretto.
// Writes are made visible before Set returns.
package ristretto

import (
	"context"
	"errors"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/topocache/session"
)

// ErrRejected is returned when ristretto's admission policy drops a write.
var ErrRejected = errors.New("ristretto: write rejected")

type Session struct {
	c *rc.Cache

	closeOnce sync.Once
}

var _ session.Session = (*Session)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Session, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Session{c: c}, nil
}

func (s *Session) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		s.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set costs each entry by its length in bytes.
func (s *Session) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if !s.c.SetWithTTL(key, value, int64(len(value)), ttl) {
		return session.Unavailable("set", key, ErrRejected)
	}
	s.c.Wait()
	return nil
}

func (s *Session) Del(ctx context.Context, key string) (bool, error) {
	_, ok, _ := s.Get(ctx, key)
	s.c.Del(key)
	return ok, nil
}

func (s *Session) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.c.Get(key)
	return ok, nil
}

func (s *Session) Clear(context.Context) error {
	s.c.Clear()
	return nil
}

func (s *Session) Close(context.Context) error {
	s.closeOnce.Do(func() {
		s.c.Wait()
		s.c.Close()
	})
	return nil
}

// Metrics exposes ristretto's internal counters when Config.Metrics is set.
func (s *Session) Metrics() *rc.Metrics { return s.c.Metrics }
