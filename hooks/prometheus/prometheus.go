// Package promhooks counts cache events with Prometheus collectors.
package promhooks

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/topocache"
)

// Hooks exports hit, miss and error counters. Keys are never used as label
// values; cardinality is bounded by op and reason.
type Hooks struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	storeErrors *prometheus.CounterVec
	codecErrors *prometheus.CounterVec
	selfHeals   *prometheus.CounterVec
}

var _ topocache.Hooks = (*Hooks)(nil)

// New creates the collectors under namespace (e.g. "myapp") with a constant
// cache=<name> label, and registers them with reg.
func New(reg prometheus.Registerer, namespace, name string) (*Hooks, error) {
	labels := prometheus.Labels{"cache": name}
	h := &Hooks{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "cache",
			Name:        "hits_total",
			Help:        "Reads that found and decoded an entry",
			ConstLabels: labels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "cache",
			Name:        "misses_total",
			Help:        "Reads that found no entry",
			ConstLabels: labels,
		}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "cache",
			Name:        "store_errors_total",
			Help:        "Operations failed by the backing store",
			ConstLabels: labels,
		}, []string{"op"}),
		codecErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "cache",
			Name:        "codec_errors_total",
			Help:        "Keys or values that failed to encode or decode",
			ConstLabels: labels,
		}, []string{"op"}),
		selfHeals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "cache",
			Name:        "self_heals_total",
			Help:        "Undecodable entries deleted on read",
			ConstLabels: labels,
		}, []string{"reason"}),
	}
	for _, c := range []prometheus.Collector{h.hits, h.misses, h.storeErrors, h.codecErrors, h.selfHeals} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) Hit(string)                       { h.hits.Inc() }
func (h *Hooks) Miss(string)                      { h.misses.Inc() }
func (h *Hooks) StoreError(op, _ string, _ error) { h.storeErrors.WithLabelValues(op).Inc() }
func (h *Hooks) CodecError(op, _ string, _ error) { h.codecErrors.WithLabelValues(op).Inc() }
func (h *Hooks) SelfHeal(_ string, reason string) { h.selfHeals.WithLabelValues(reason).Inc() }
