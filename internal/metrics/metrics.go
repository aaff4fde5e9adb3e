// Package metrics exports statelayout's observability hooks to Prometheus.
//
// A [Registry] owns one prometheus.Registry and implements the pipeline, cache
// and HTTP hook interfaces of the observability package. Register it once at
// startup:
//
//	reg := metrics.NewRegistry()
//	reg.Install()
//	mux.Handle("/metrics", reg.Handler())
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/statelayout/pkg/observability"
)

const namespace = "statelayout"

// Registry holds every statelayout metric.
type Registry struct {
	registry *prometheus.Registry

	// Pipeline
	LoadsTotal        *prometheus.CounterVec
	LoadDuration      *prometheus.HistogramVec
	LayoutsTotal      *prometheus.CounterVec
	LayoutDuration    *prometheus.HistogramVec
	LayoutsInFlight   prometheus.Gauge
	LayoutsSuperseded *prometheus.CounterVec
	LayoutGraphSize   *prometheus.HistogramVec

	// Cache
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheSetBytes    *prometheus.HistogramVec

	// Outgoing HTTP (remote engine)
	ClientRequestsTotal   *prometheus.CounterVec
	ClientRequestDuration *prometheus.HistogramVec
	ClientErrorsTotal     *prometheus.CounterVec

	// Incoming HTTP (API server)
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with all metrics and the Go runtime
// collectors registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r.initPipelineMetrics()
	r.initCacheMetrics()
	r.initHTTPMetrics()
	return r
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Install registers r as the global pipeline, cache and HTTP hooks.
func (r *Registry) Install() {
	observability.SetPipelineHooks(pipelineHooks{r})
	observability.SetCacheHooks(cacheHooks{r})
	observability.SetHTTPHooks(httpHooks{r})
}

// RecordHTTPRequest records one request handled by the API server.
func (r *Registry) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	r.HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
}

// =============================================================================
// Initialization
// =============================================================================

func (r *Registry) initPipelineMetrics() {
	f := promauto.With(r.registry)
	r.LoadsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loads_total",
		Help:      "Definitions loaded, by format and outcome",
	}, []string{"format", "status"})
	r.LoadDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "load_duration_seconds",
		Help:      "Time spent decoding, validating and building definitions",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"format"})
	r.LayoutsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "layouts_total",
		Help:      "Layout passes, by engine and outcome",
	}, []string{"engine", "status"})
	r.LayoutDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "layout_duration_seconds",
		Help:      "Engine time per layout pass",
		Buckets:   prometheus.DefBuckets,
	}, []string{"engine"})
	r.LayoutsInFlight = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "layouts_in_flight",
		Help:      "Layout passes waiting on an engine",
	})
	r.LayoutsSuperseded = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "layouts_superseded_total",
		Help:      "Layout results discarded because a newer pass was already applied",
	}, []string{"engine"})
	r.LayoutGraphSize = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "layout_graph_elements",
		Help:      "Nodes and edges per layout request",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"kind"})
}

func (r *Registry) initCacheMetrics() {
	f := promauto.With(r.registry)
	r.CacheHitsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Layout cache hits",
	}, []string{"type"})
	r.CacheMissesTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Layout cache misses",
	}, []string{"type"})
	r.CacheSetBytes = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cache_set_bytes",
		Help:      "Size of entries written to the layout cache",
		Buckets:   []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576},
	}, []string{"type"})
}

func (r *Registry) initHTTPMetrics() {
	f := promauto.With(r.registry)
	r.ClientRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "engine_requests_total",
		Help:      "Requests sent to remote layout engines",
	}, []string{"host", "status"})
	r.ClientRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "engine_request_duration_seconds",
		Help:      "Remote layout engine latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"host"})
	r.ClientErrorsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "engine_errors_total",
		Help:      "Remote layout engine calls that failed without a response",
	}, []string{"host"})
	r.HTTPRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "API requests, by method, route and status",
	}, []string{"method", "route", "status"})
	r.HTTPRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "API request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
}

// =============================================================================
// Hooks
// =============================================================================

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type pipelineHooks struct{ r *Registry }

func (h pipelineHooks) OnLoadStart(context.Context, string, string) {}

func (h pipelineHooks) OnLoadComplete(_ context.Context, format, _ string, _ int, d time.Duration, err error) {
	h.r.LoadsTotal.WithLabelValues(format, status(err)).Inc()
	h.r.LoadDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (h pipelineHooks) OnLayoutStart(_ context.Context, _ string, nodes, edges int) {
	h.r.LayoutsInFlight.Inc()
	h.r.LayoutGraphSize.WithLabelValues("nodes").Observe(float64(nodes))
	h.r.LayoutGraphSize.WithLabelValues("edges").Observe(float64(edges))
}

func (h pipelineHooks) OnLayoutComplete(_ context.Context, engine string, d time.Duration, err error) {
	h.r.LayoutsInFlight.Dec()
	h.r.LayoutsTotal.WithLabelValues(engine, status(err)).Inc()
	h.r.LayoutDuration.WithLabelValues(engine).Observe(d.Seconds())
}

func (h pipelineHooks) OnLayoutSuperseded(_ context.Context, engine string, _ uint64) {
	h.r.LayoutsSuperseded.WithLabelValues(engine).Inc()
}

type cacheHooks struct{ r *Registry }

func (h cacheHooks) OnCacheHit(_ context.Context, keyType string) {
	h.r.CacheHitsTotal.WithLabelValues(keyType).Inc()
}

func (h cacheHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.r.CacheMissesTotal.WithLabelValues(keyType).Inc()
}

func (h cacheHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.r.CacheSetBytes.WithLabelValues(keyType).Observe(float64(size))
}

type httpHooks struct{ r *Registry }

func (h httpHooks) OnRequest(context.Context, string, string, string) {}

func (h httpHooks) OnResponse(_ context.Context, _, host, _ string, code int, d time.Duration) {
	h.r.ClientRequestsTotal.WithLabelValues(host, strconv.Itoa(code)).Inc()
	h.r.ClientRequestDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (h httpHooks) OnError(_ context.Context, _, host, _ string, _ error) {
	h.r.ClientErrorsTotal.WithLabelValues(host).Inc()
}

var (
	_ observability.PipelineHooks = pipelineHooks{}
	_ observability.CacheHooks    = cacheHooks{}
	_ observability.HTTPHooks     = httpHooks{}
)
