// Package metrics exposes smrt's Prometheus metrics on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teranos/smrt/store"
)

// Registry holds every smrt metric. It implements store.Observer.
type Registry struct {
	reg *prometheus.Registry

	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
	Loads           prometheus.Counter
	TableRows       *prometheus.GaugeVec
	LastLoad        prometheus.Gauge
	Refreshes       *prometheus.CounterVec
	Dispatches      *prometheus.CounterVec
	ChatLatency     prometheus.Histogram
	Classifications *prometheus.CounterVec
}

// NewRegistry registers all metrics on a fresh registry
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	cacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smrt_query_cache_hits_total",
		Help: "Query results served from cache",
	}, []string{"op"})
	cacheMisses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smrt_query_cache_misses_total",
		Help: "Query results computed",
	}, []string{"op"})
	loads := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "smrt_loads_total",
		Help: "Table set replacements",
	})
	tableRows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "smrt_table_rows",
		Help: "Rows per table in the current load",
	}, []string{"table"})
	lastLoad := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smrt_last_load_timestamp_seconds",
		Help: "Unix time of the current load",
	})
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smrt_refreshes_total",
		Help: "Refresh attempts by result",
	}, []string{"result"})
	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smrt_dispatch_total",
		Help: "Answered questions by executed query",
	}, []string{"query"})
	chatLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "smrt_chat_latency_seconds",
		Help:    "End-to-end chat latency",
		Buckets: prometheus.DefBuckets,
	})
	classifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smrt_classifications_total",
		Help: "Classifier outcomes",
	}, []string{"outcome"})

	r.MustRegister(cacheHits, cacheMisses, loads, tableRows, lastLoad, refreshes, dispatches, chatLatency, classifications)
	return &Registry{
		reg:             r,
		CacheHits:       cacheHits,
		CacheMisses:     cacheMisses,
		Loads:           loads,
		TableRows:       tableRows,
		LastLoad:        lastLoad,
		Refreshes:       refreshes,
		Dispatches:      dispatches,
		ChatLatency:     chatLatency,
		Classifications: classifications,
	}
}

// CacheHit implements store.Observer
func (r *Registry) CacheHit(op string) { r.CacheHits.WithLabelValues(op).Inc() }

// CacheMiss implements store.Observer
func (r *Registry) CacheMiss(op string) { r.CacheMisses.WithLabelValues(op).Inc() }

// Loaded implements store.Observer
func (r *Registry) Loaded(summary store.LoadSummary) {
	r.Loads.Inc()
	r.TableRows.Reset()
	for table, rows := range summary.Tables {
		r.TableRows.WithLabelValues(table).Set(float64(rows))
	}
	r.LastLoad.Set(float64(summary.LoadedAt.Unix()))
}

// Refreshed records the outcome of one refresh
func (r *Registry) Refreshed(loaded bool, err error) {
	switch {
	case err != nil:
		r.Refreshes.WithLabelValues("error").Inc()
	case loaded:
		r.Refreshes.WithLabelValues("loaded").Inc()
	default:
		r.Refreshes.WithLabelValues("empty").Inc()
	}
}

// Dispatched counts one answered question; pass as dispatch.Options.OnDispatch
func (r *Registry) Dispatched(query string) { r.Dispatches.WithLabelValues(query).Inc() }

// Classified counts a classifier outcome (ok, fallback)
func (r *Registry) Classified(outcome string) { r.Classifications.WithLabelValues(outcome).Inc() }

// ObserveChat records one chat round trip
func (r *Registry) ObserveChat(d time.Duration) { r.ChatLatency.Observe(d.Seconds()) }

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

var _ store.Observer = (*Registry)(nil)
