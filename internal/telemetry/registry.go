package telemetry

import (
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

// Metric names are stable and carry the libervia_ prefix, per spec §4.8.
const (
	MetricHTTPRequestsTotal      = "libervia_http_requests_total"
	MetricHTTPRequestDurationMs  = "libervia_http_request_duration_ms"
	MetricHTTPErrorsTotal        = "libervia_http_errors_total"
	MetricAuthFailuresTotal      = "libervia_auth_failures_total"
	MetricTenantConflictsTotal   = "libervia_tenant_conflicts_total"
	MetricRateLimitedTotal       = "libervia_rate_limited_total"
	MetricActiveInstances        = "libervia_active_instances"
	MetricTenantsTotal           = "libervia_tenants_total"
	MetricProcessUptimeSeconds   = "libervia_process_uptime_seconds"
	MetricProcessMemoryBytes     = "libervia_process_memory_bytes"
)

// durationBuckets are the default histogram buckets for request duration,
// per spec §4.5.
var durationBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// counterStore and gaugeStore hold the registry's own numeric mirrors,
// keyed by metric name then by sorted label key, so getValuesForTenant and
// the JSON snapshot exporter can read current values directly instead of
// scraping the Prometheus registry (which doesn't expose per-series reads
// cheaply). These are the values of record; the Prometheus vectors below
// exist only to serve /internal/metrics text output.
type labeledValue struct {
	labels map[string]string
	value  *atomic.Float64
}

type histogramValue struct {
	labels  map[string]string
	mu      sync.Mutex
	buckets map[float64]uint64
	sum     float64
	count   uint64
}

// Registry is TelemetryRegistry: the single per-process metrics instance.
type Registry struct {
	startedAt time.Time

	promReg     *prometheus.Registry
	promCounter map[string]*prometheus.CounterVec
	promGauge   map[string]*prometheus.GaugeVec
	promHist    map[string]*prometheus.HistogramVec

	mu         sync.RWMutex
	counters   map[string]map[string]*labeledValue
	gauges     map[string]map[string]*labeledValue
	histograms map[string]map[string]*histogramValue
}

// NewRegistry constructs the process's TelemetryRegistry, registering
// Go/process collectors alongside the fixed metric set.
func NewRegistry() *Registry {
	r := &Registry{
		startedAt:   time.Now(),
		promReg:     prometheus.NewRegistry(),
		promCounter: map[string]*prometheus.CounterVec{},
		promGauge:   map[string]*prometheus.GaugeVec{},
		promHist:    map[string]*prometheus.HistogramVec{},
		counters:    map[string]map[string]*labeledValue{},
		gauges:      map[string]map[string]*labeledValue{},
		histograms:  map[string]map[string]*histogramValue{},
	}

	r.defineCounter(MetricHTTPRequestsTotal, "Total HTTP requests.", "method", "route_template", "status_code", "tenant_id")
	r.defineCounter(MetricHTTPErrorsTotal, "Total HTTP error responses by status class.", "error_code", "tenant_id")
	r.defineCounter(MetricAuthFailuresTotal, "Total authentication failures.", "tenant_id")
	r.defineCounter(MetricTenantConflictsTotal, "Total tenant-resolution conflicts.")
	r.defineCounter(MetricRateLimitedTotal, "Total rate-limited requests.", "tenant_id")
	r.defineHistogram(MetricHTTPRequestDurationMs, "HTTP request duration in milliseconds.", durationBuckets, "method", "route_template", "status_code", "tenant_id")
	r.defineGauge(MetricActiveInstances, "Number of live tenant core instances.")
	r.defineGauge(MetricTenantsTotal, "Number of registered tenants.")
	r.defineGauge(MetricProcessUptimeSeconds, "Process uptime in seconds.")
	r.defineGauge(MetricProcessMemoryBytes, "Process memory usage in bytes.", "kind")

	return r
}

func (r *Registry) defineCounter(name, help string, labelNames ...string) {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labelNames)
	r.promReg.MustRegister(cv)
	r.promCounter[name] = cv
	r.counters[name] = map[string]*labeledValue{}
}

func (r *Registry) defineGauge(name, help string, labelNames ...string) {
	gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labelNames)
	r.promReg.MustRegister(gv)
	r.promGauge[name] = gv
	r.gauges[name] = map[string]*labeledValue{}
}

func (r *Registry) defineHistogram(name, help string, buckets []float64, labelNames ...string) {
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets}, labelNames)
	r.promReg.MustRegister(hv)
	r.promHist[name] = hv
	r.histograms[name] = map[string]*histogramValue{}
}

func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + labels[k]
	}
	return strings.Join(parts, ",")
}

// IncCounter increments the named counter by 1 for the given label set.
func (r *Registry) IncCounter(name string, labels map[string]string) {
	r.addCounter(name, labels, 1)
}

func (r *Registry) addCounter(name string, labels map[string]string, by float64) {
	r.mu.Lock()
	bucket, ok := r.counters[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	key := labelKey(labels)
	lv, ok := bucket[key]
	if !ok {
		lv = &labeledValue{labels: labels, value: atomic.NewFloat64(0)}
		bucket[key] = lv
	}
	r.mu.Unlock()
	lv.value.Add(by)

	if cv, ok := r.promCounter[name]; ok {
		cv.With(promLabels(labels)).Add(by)
	}
}

// SetGauge sets the named gauge to value for the given label set.
func (r *Registry) SetGauge(name string, labels map[string]string, value float64) {
	r.mu.Lock()
	bucket, ok := r.gauges[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	key := labelKey(labels)
	lv, ok := bucket[key]
	if !ok {
		lv = &labeledValue{labels: labels, value: atomic.NewFloat64(0)}
		bucket[key] = lv
	}
	r.mu.Unlock()
	lv.value.Store(value)

	if gv, ok := r.promGauge[name]; ok {
		gv.With(promLabels(labels)).Set(value)
	}
}

// IncGauge increments the named gauge by 1.
func (r *Registry) IncGauge(name string, labels map[string]string) {
	r.addGauge(name, labels, 1)
}

// DecGauge decrements the named gauge by 1.
func (r *Registry) DecGauge(name string, labels map[string]string) {
	r.addGauge(name, labels, -1)
}

func (r *Registry) addGauge(name string, labels map[string]string, by float64) {
	r.mu.Lock()
	bucket, ok := r.gauges[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	key := labelKey(labels)
	lv, ok := bucket[key]
	if !ok {
		lv = &labeledValue{labels: labels, value: atomic.NewFloat64(0)}
		bucket[key] = lv
	}
	r.mu.Unlock()
	lv.value.Add(by)

	if gv, ok := r.promGauge[name]; ok {
		if by >= 0 {
			gv.With(promLabels(labels)).Add(by)
		} else {
			gv.With(promLabels(labels)).Sub(-by)
		}
	}
}

// ObserveHistogram records value for the named histogram and label set.
func (r *Registry) ObserveHistogram(name string, labels map[string]string, value float64) {
	r.mu.Lock()
	bucket, ok := r.histograms[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	key := labelKey(labels)
	hv, ok := bucket[key]
	if !ok {
		hv = &histogramValue{labels: labels, buckets: map[float64]uint64{}}
		for _, b := range durationBuckets {
			hv.buckets[b] = 0
		}
		bucket[key] = hv
	}
	r.mu.Unlock()

	hv.mu.Lock()
	hv.sum += value
	hv.count++
	for b := range hv.buckets {
		if value <= b {
			hv.buckets[b]++
		}
	}
	hv.mu.Unlock()

	if phv, ok := r.promHist[name]; ok {
		phv.With(promLabels(labels)).Observe(value)
	}
}

func promLabels(labels map[string]string) prometheus.Labels {
	out := make(prometheus.Labels, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// UpdateRuntimeMetrics refreshes process uptime and memory gauges.
func (r *Registry) UpdateRuntimeMetrics() {
	r.SetGauge(MetricProcessUptimeSeconds, nil, time.Since(r.startedAt).Seconds())

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.SetGauge(MetricProcessMemoryBytes, map[string]string{"kind": "heap_used"}, float64(m.HeapAlloc))
	r.SetGauge(MetricProcessMemoryBytes, map[string]string{"kind": "heap_total"}, float64(m.HeapSys))
	r.SetGauge(MetricProcessMemoryBytes, map[string]string{"kind": "rss"}, float64(m.Sys))
}

// Value is one exported counter/gauge reading.
type Value struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// GetValuesForTenant returns every counter/gauge value whose tenant_id
// label matches tenantID, never exposing other tenants' label values.
func (r *Registry) GetValuesForTenant(tenantID string) []Value {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Value
	collect := func(store map[string]map[string]*labeledValue) {
		for name, bucket := range store {
			for _, lv := range bucket {
				if lv.labels["tenant_id"] != tenantID {
					continue
				}
				out = append(out, Value{Name: name, Labels: lv.labels, Value: lv.value.Load()})
			}
		}
	}
	collect(r.counters)
	collect(r.gauges)
	return out
}

// Snapshot is the JSON export shape for generateSnapshot().
type Snapshot struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Counters    []Value   `json:"counters"`
	Gauges      []Value   `json:"gauges"`
}

// GenerateSnapshot exports every counter and gauge as JSON. tenantID, if
// non-empty, filters to that tenant's label values only.
func (r *Registry) GenerateSnapshot(tenantID string) Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{GeneratedAt: time.Now()}
	for name, bucket := range r.counters {
		for _, lv := range bucket {
			if tenantID != "" && lv.labels["tenant_id"] != tenantID {
				continue
			}
			snap.Counters = append(snap.Counters, Value{Name: name, Labels: lv.labels, Value: lv.value.Load()})
		}
	}
	for name, bucket := range r.gauges {
		for _, lv := range bucket {
			if tenantID != "" && lv.labels["tenant_id"] != tenantID {
				continue
			}
			snap.Gauges = append(snap.Gauges, Value{Name: name, Labels: lv.labels, Value: lv.value.Load()})
		}
	}
	return snap
}

// PrometheusRegisterer exposes the underlying Prometheus registry for the
// internal metrics text-format HTTP handler.
func (r *Registry) PrometheusRegisterer() *prometheus.Registry {
	return r.promReg
}
