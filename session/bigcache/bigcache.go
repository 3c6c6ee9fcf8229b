// Package bigcache is an in-process Session backed by allegro/bigcache.
//
// BigCache has no per-entry TTL: every entry lives for Config.LifeWindow.
// Set accepts ttl <= 0 or a ttl equal to LifeWindow and rejects anything else
// with ErrTTLMismatch.
package bigcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/topocache/session"
)

var ErrTTLMismatch = errors.New("bigcache session: per-entry ttl differs from life window")

type Session struct {
	c    *bc.BigCache
	life time.Duration

	closeOnce sync.Once
	closeErr  error
}

var _ session.Session = (*Session)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(ctx context.Context, cfg Config) (*Session, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	conf.Verbose = false
	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &Session{c: c, life: cfg.LifeWindow}, nil
}

func (s *Session) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := s.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, session.Unavailable("get", key, err)
	}
	return b, true, nil
}

func (s *Session) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl > 0 && ttl != s.life {
		return fmt.Errorf("%w: ttl %v, life window %v", ErrTTLMismatch, ttl, s.life)
	}
	return session.Unavailable("set", key, s.c.Set(key, value))
}

func (s *Session) Del(_ context.Context, key string) (bool, error) {
	err := s.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return false, nil
	}
	if err != nil {
		return false, session.Unavailable("del", key, err)
	}
	return true, nil
}

func (s *Session) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *Session) Clear(context.Context) error {
	return session.Unavailable("clear", "", s.c.Reset())
}

func (s *Session) Close(context.Context) error {
	s.closeOnce.Do(func() { s.closeErr = s.c.Close() })
	return s.closeErr
}
