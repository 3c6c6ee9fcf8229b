package topocache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/topocache/codec"
	"github.com/unkn0wn-root/topocache/config"
	"github.com/unkn0wn-root/topocache/session"
)

type memSession struct {
	mu     sync.Mutex
	m      map[string][]byte
	ttls   []time.Duration // one per Set
	sets   int
	closes int

	// injected failures, keyed by op
	fail map[string]error
}

var _ session.Session = (*memSession)(nil)

func newMemSession() *memSession {
	return &memSession{m: make(map[string][]byte), fail: make(map[string]error)}
}

func (s *memSession) failing(op, key string) error {
	if err := s.fail[op]; err != nil {
		return session.Unavailable(op, key, err)
	}
	return nil
}

func (s *memSession) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing("get", key); err != nil {
		return nil, false, err
	}
	b, ok := s.m[key]
	return b, ok, nil
}

func (s *memSession) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing("set", key); err != nil {
		return err
	}
	s.sets++
	s.ttls = append(s.ttls, ttl)
	s.m[key] = value
	return nil
}

func (s *memSession) Del(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing("del", key); err != nil {
		return false, err
	}
	_, ok := s.m[key]
	delete(s.m, key)
	return ok, nil
}

func (s *memSession) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing("exists", key); err != nil {
		return false, err
	}
	_, ok := s.m[key]
	return ok, nil
}

func (s *memSession) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing("clear", ""); err != nil {
		return err
	}
	s.m = make(map[string][]byte)
	return nil
}

func (s *memSession) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *memSession) raw(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.m[key]
	return b, ok
}

type recHooks struct {
	mu       sync.Mutex
	selfHeal []string
	store    []string
	codec    []string
}

func (h *recHooks) Hit(string)  {}
func (h *recHooks) Miss(string) {}
func (h *recHooks) StoreError(op, _ string, _ error) {
	h.mu.Lock()
	h.store = append(h.store, op)
	h.mu.Unlock()
}
func (h *recHooks) CodecError(op, _ string, _ error) {
	h.mu.Lock()
	h.codec = append(h.codec, op)
	h.mu.Unlock()
}
func (h *recHooks) SelfHeal(k, _ string) {
	h.mu.Lock()
	h.selfHeal = append(h.selfHeal, k)
	h.mu.Unlock()
}

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestCache[K comparable, V any](t *testing.T, sess session.Session, optsOpt func(*Options[K, V])) Cache[K, V] {
	t.Helper()
	opts := Options[K, V]{Session: sess, DefaultTTL: 60 * time.Second}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	cc, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cc
}

func wantCounts(t *testing.T, c any, hits, misses int64) {
	t.Helper()
	if h, m := HitCount(c), MissCount(c); h != hits || m != misses {
		t.Fatalf("counters: hits=%d misses=%d, want %d/%d", h, m, hits, misses)
	}
}

func TestPutThenGetCountsHit(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache[string, int](t, newMemSession(), nil)

	if err := cc.Put(ctx, "a", 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, ok, err := cc.Get(ctx, "a")
	if err != nil || !ok || v != 1 {
		t.Fatalf("Get: v=%d ok=%v err=%v", v, ok, err)
	}
	wantCounts(t, cc, 1, 0)
}

func TestGetMissingCountsMiss(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache[string, int](t, newMemSession(), nil)

	v, ok, err := cc.Get(ctx, "missing")
	if err != nil || ok || v != 0 {
		t.Fatalf("Get: v=%d ok=%v err=%v", v, ok, err)
	}
	wantCounts(t, cc, 0, 1)
}

func TestContainsKeyDoesNotCount(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache[string, user](t, newMemSession(), nil)

	_ = cc.Put(ctx, "u:1", user{ID: "1", Name: "Ada"})
	_, _, _ = cc.Get(ctx, "u:1")
	_, _, _ = cc.Get(ctx, "u:2")

	for _, k := range []string{"u:1", "u:2", "u:1"} {
		if _, err := cc.ContainsKey(ctx, k); err != nil {
			t.Fatalf("ContainsKey(%q): %v", k, err)
		}
	}
	if ok, _ := cc.ContainsKey(ctx, "u:1"); !ok {
		t.Fatal("ContainsKey: expected present")
	}
	if ok, _ := cc.ContainsKey(ctx, "u:2"); ok {
		t.Fatal("ContainsKey: expected absent")
	}
	wantCounts(t, cc, 1, 1)
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache[string, user](t, newMemSession(), nil)

	if err := cc.Remove(ctx, "never"); err != nil {
		t.Fatalf("Remove absent: %v", err)
	}
	_ = cc.Put(ctx, "k", user{ID: "k"})
	for i := 0; i < 2; i++ {
		if err := cc.Remove(ctx, "k"); err != nil {
			t.Fatalf("Remove #%d: %v", i, err)
		}
	}
	if _, ok, err := cc.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("Get after remove: ok=%v err=%v", ok, err)
	}
}

func TestClearKeepsCounters(t *testing.T) {
	ctx := context.Background()
	sess := newMemSession()
	cc := newTestCache[string, int](t, sess, nil)

	_ = cc.Put(ctx, "a", 1)
	_, _, _ = cc.Get(ctx, "a")
	_, _, _ = cc.Get(ctx, "b")
	if err := cc.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := sess.raw("a"); ok {
		t.Fatal("Clear left entries behind")
	}
	wantCounts(t, cc, 1, 1)
}

func TestEveryPutCarriesDefaultTTL(t *testing.T) {
	ctx := context.Background()
	sess := newMemSession()
	cc := newTestCache[int, string](t, sess, nil)

	for i := 0; i < 5; i++ {
		_ = cc.Put(ctx, i, "v")
	}
	if len(sess.ttls) != 5 {
		t.Fatalf("sets: %d", len(sess.ttls))
	}
	for i, ttl := range sess.ttls {
		if ttl != 60*time.Second {
			t.Fatalf("set #%d ttl=%v", i, ttl)
		}
	}
}

func TestStoreFailureIsReadErrorAndNotCounted(t *testing.T) {
	ctx := context.Background()
	sess := newMemSession()
	hooks := &recHooks{}
	cc := newTestCache(t, sess, func(o *Options[string, int]) { o.Hooks = hooks })

	down := errors.New("connection reset")
	sess.fail["get"] = down

	_, ok, err := cc.Get(ctx, "a")
	if ok {
		t.Fatal("Get: unexpected hit")
	}
	var re *CacheReadError
	if !errors.As(err, &re) || re.Op != "get" || re.Key != "a" {
		t.Fatalf("expected CacheReadError for get \"a\", got %v", err)
	}
	var ue *StoreUnavailableError
	if !errors.As(err, &ue) || !errors.Is(err, down) {
		t.Fatalf("cause lost: %v", err)
	}
	wantCounts(t, cc, 0, 0)
	if len(hooks.store) != 1 || hooks.store[0] != "get" {
		t.Fatalf("StoreError hook: %v", hooks.store)
	}
}

func TestStoreFailureOnWritePaths(t *testing.T) {
	ctx := context.Background()
	sess := newMemSession()
	cc := newTestCache[string, int](t, sess, nil)

	down := errors.New("broken pipe")
	for _, op := range []string{"set", "del", "clear", "exists"} {
		sess.fail[op] = down
	}

	var we *CacheWriteError
	if err := cc.Put(ctx, "a", 1); !errors.As(err, &we) || we.Op != "put" {
		t.Fatalf("Put: %v", err)
	}
	if err := cc.Remove(ctx, "a"); !errors.As(err, &we) || we.Op != "remove" {
		t.Fatalf("Remove: %v", err)
	}
	if err := cc.Clear(ctx); !errors.As(err, &we) || we.Op != "clear" {
		t.Fatalf("Clear: %v", err)
	}
	var re *CacheReadError
	if _, err := cc.ContainsKey(ctx, "a"); !errors.As(err, &re) || re.Op != "contains" {
		t.Fatalf("ContainsKey: %v", err)
	}
}

func TestEncodeFailureNeverReachesSession(t *testing.T) {
	ctx := context.Background()
	sess := newMemSession()
	hooks := &recHooks{}
	cc := newTestCache(t, sess, func(o *Options[string, any]) {
		o.Hooks = hooks
		o.Codec = codec.NewFramed[any](codec.JSON[any]{})
	})

	err := cc.Put(ctx, "ch", make(chan int))
	var we *CacheWriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected CacheWriteError, got %v", err)
	}
	var se *SerializationError
	if !errors.As(err, &se) {
		t.Fatalf("expected SerializationError cause, got %v", err)
	}
	if sess.sets != 0 {
		t.Fatalf("session Set called %d times", sess.sets)
	}
	if len(hooks.codec) != 1 || hooks.codec[0] != "put" {
		t.Fatalf("CodecError hook: %v", hooks.codec)
	}
}

func TestUndecodableEntrySelfHeals(t *testing.T) {
	ctx := context.Background()
	sess := newMemSession()
	hooks := &recHooks{}
	cc := newTestCache(t, sess, func(o *Options[string, user]) {
		o.Namespace = "user"
		o.Hooks = hooks
	})

	sess.m["user:1"] = []byte("not a frame")

	_, ok, err := cc.Get(ctx, "1")
	if ok {
		t.Fatal("unexpected hit")
	}
	var re *CacheReadError
	var se *SerializationError
	if !errors.As(err, &re) || !errors.As(err, &se) {
		t.Fatalf("expected CacheReadError wrapping SerializationError, got %v", err)
	}
	if _, ok := sess.raw("user:1"); ok {
		t.Fatal("undecodable entry not deleted")
	}
	if len(hooks.selfHeal) != 1 || hooks.selfHeal[0] != "user:1" {
		t.Fatalf("SelfHeal hook: %v", hooks.selfHeal)
	}
	wantCounts(t, cc, 0, 0)
}

func TestFramedTypeMismatchIsNotDecoded(t *testing.T) {
	ctx := context.Background()
	sess := newMemSession()
	ints := newTestCache[string, int](t, sess, nil)
	users := newTestCache[string, user](t, sess, nil)

	_ = ints.Put(ctx, "shared", 7)
	_, ok, err := users.Get(ctx, "shared")
	if ok || !errors.Is(err, codec.ErrTagMismatch) {
		t.Fatalf("expected tag mismatch, ok=%v err=%v", ok, err)
	}
}

func TestNamespaceAndIntegerKeys(t *testing.T) {
	ctx := context.Background()
	sess := newMemSession()
	type userID int64
	cc := newTestCache(t, sess, func(o *Options[userID, user]) { o.Namespace = "app:user" })

	_ = cc.Put(ctx, userID(42), user{ID: "42"})
	if _, ok := sess.raw("app:user:42"); !ok {
		t.Fatalf("storage key not namespaced: %v", sess.m)
	}
	v, ok, err := cc.Get(ctx, userID(42))
	if err != nil || !ok || v.ID != "42" {
		t.Fatalf("Get: %+v ok=%v err=%v", v, ok, err)
	}
}

func TestRegistryValuesKeepTheirType(t *testing.T) {
	ctx := context.Background()
	reg := codec.NewRegistry()
	codec.MustRegister(reg, "user", codec.Msgpack[user]{})
	codec.MustRegister(reg, "int", codec.JSON[int]{})

	cc := newTestCache(t, newMemSession(), func(o *Options[string, any]) { o.Codec = reg })

	_ = cc.Put(ctx, "u", user{ID: "1", Name: "Ada"})
	_ = cc.Put(ctx, "n", 5)

	u, _, _ := cc.Get(ctx, "u")
	if got, ok := u.(user); !ok || got.Name != "Ada" {
		t.Fatalf("user: %#v", u)
	}
	n, _, _ := cc.Get(ctx, "n")
	if got, ok := n.(int); !ok || got != 5 {
		t.Fatalf("int: %#v", n)
	}
	if err := cc.Put(ctx, "f", 1.5); !errors.Is(err, codec.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestClosedCacheRejectsEverything(t *testing.T) {
	ctx := context.Background()
	sess := newMemSession()
	cc := newTestCache[string, int](t, sess, nil)
	_ = cc.Put(ctx, "a", 1)

	if err := cc.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	checks := map[string]error{
		"close":  cc.Close(ctx),
		"put":    cc.Put(ctx, "a", 2),
		"remove": cc.Remove(ctx, "a"),
		"clear":  cc.Clear(ctx),
	}
	_, _, checks["get"] = cc.Get(ctx, "a")
	_, checks["contains"] = cc.ContainsKey(ctx, "a")
	for op, err := range checks {
		if !errors.Is(err, ErrCacheClosed) {
			t.Fatalf("%s after close: %v", op, err)
		}
	}
	if sess.closes != 1 {
		t.Fatalf("session closed %d times", sess.closes)
	}
}

func TestConcurrentCloseReleasesOnce(t *testing.T) {
	ctx := context.Background()
	sess := newMemSession()
	cc := newTestCache[string, int](t, sess, nil)

	var g errgroup.Group
	var okCloses sync.Map
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			if err := cc.Close(ctx); err == nil {
				okCloses.Store(i, true)
			}
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	okCloses.Range(func(any, any) bool { n++; return true })
	if n != 1 || sess.closes != 1 {
		t.Fatalf("successful closes=%d session closes=%d", n, sess.closes)
	}
}

func TestDisabledCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, nil, func(o *Options[string, int]) { o.Disabled = true })

	if cc.Enabled() {
		t.Fatal("Enabled: expected false")
	}
	if err := cc.Put(ctx, "a", 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, err := cc.Get(ctx, "a"); ok || err != nil {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if ok, err := cc.ContainsKey(ctx, "a"); ok || err != nil {
		t.Fatalf("ContainsKey: ok=%v err=%v", ok, err)
	}
	wantCounts(t, cc, 0, 0)
	if err := cc.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestConcurrentDistinctKeys(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache[string, user](t, newMemSession(), nil)

	const workers, perWorker = 32, 50
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				k := fmt.Sprintf("w%d:k%d", w, i)
				want := user{ID: k, Name: strconv.Itoa(w * i)}
				if err := cc.Put(ctx, k, want); err != nil {
					return err
				}
				got, ok, err := cc.Get(ctx, k)
				if err != nil {
					return err
				}
				if !ok || got != want {
					return fmt.Errorf("%s: got %+v ok=%v", k, got, ok)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	wantCounts(t, cc, workers*perWorker, 0)
}

type plainCache struct{}

func TestCountersDefaultToZero(t *testing.T) {
	wantCounts(t, plainCache{}, 0, 0)
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options[string, int]{}); err == nil {
		t.Fatal("expected error without session")
	}
	if _, err := New(Options[string, int]{Session: newMemSession(), DefaultTTL: -time.Second}); err == nil {
		t.Fatal("expected error for negative ttl")
	}
	type pair struct{ A, B int }
	if _, err := New(Options[pair, int]{Session: newMemSession()}); !errors.Is(err, codec.ErrNoKeyCodec) {
		t.Fatalf("expected ErrNoKeyCodec, got %v", err)
	}
}

func TestNewInterfaceValueNeedsCodec(t *testing.T) {
	if _, err := New(Options[string, any]{Session: newMemSession()}); err == nil {
		t.Fatal("expected error for interface value type without codec")
	}
	if _, err := New(Options[string, fmt.Stringer]{Session: newMemSession()}); err == nil {
		t.Fatal("expected error for fmt.Stringer value type without codec")
	}
	if _, err := New(Options[string, any]{Disabled: true}); err != nil {
		t.Fatalf("disabled cache never encodes: %v", err)
	}

	reg := codec.NewRegistry()
	if _, err := New(Options[string, any]{Session: newMemSession(), Codec: reg}); err != nil {
		t.Fatalf("explicit codec: %v", err)
	}
}

func miniSettings(t *testing.T) config.Settings {
	t.Helper()
	mr := miniredis.RunT(t)
	host, port, _ := net.SplitHostPort(mr.Addr())
	p, _ := strconv.Atoi(port)
	return config.Settings{
		Mode:           config.Standalone,
		Enabled:        true,
		Host:           host,
		Port:           p,
		CommandTimeout: time.Second,
		TimeToLive:     60 * time.Second,
		AutoReconnect:  true,
	}
}

func TestOpen_Standalone(t *testing.T) {
	ctx := context.Background()
	s := miniSettings(t)

	cc, err := Open(ctx, s, Options[string, int]{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cc.Close(ctx)

	if err := cc.Put(ctx, "a", 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if v, ok, err := cc.Get(ctx, "a"); err != nil || !ok || v != 1 {
		t.Fatalf("Get: v=%d ok=%v err=%v", v, ok, err)
	}
	wantCounts(t, cc, 1, 0)
}

func TestOpen_DisabledDoesNotConnect(t *testing.T) {
	s := config.Settings{Mode: config.Standalone, Host: "203.0.113.1", Port: 6379, CommandTimeout: time.Second}
	cc, err := Open(context.Background(), s, Options[string, int]{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if cc.Enabled() {
		t.Fatal("expected disabled cache")
	}
}

func TestOpen_SentinelWithoutMaster(t *testing.T) {
	s := config.Settings{
		Mode:           config.Sentinel,
		Enabled:        true,
		CommandTimeout: time.Second,
		Sentinel:       config.SentinelSettings{Nodes: []string{"10.0.0.1:26379"}},
	}
	_, err := Open(context.Background(), s, Options[string, int]{})
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}
