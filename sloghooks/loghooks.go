// Package sloghooks logs cache events through log/slog. Hit and miss are
// not logged; use hooks/prometheus for rates.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/topocache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery   uint64
	StoreErrorEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr   atomic.Uint64
	storeErrorCtr atomic.Uint64
}

var _ topocache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if k == "" {
		return ""
	}
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n <= 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(string)  {}
func (h *Hooks) Miss(string) {}

func (h *Hooks) StoreError(op, storageKey string, err error) {
	if h.l == nil || !sample(h.opts.StoreErrorEvery, &h.storeErrorCtr) {
		return
	}
	h.l.Warn("topocache.store_error",
		"op", op,
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) CodecError(op, storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("topocache.codec_error",
		"op", op,
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("topocache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}
