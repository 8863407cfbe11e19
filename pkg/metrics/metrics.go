package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vendorportal"

// Upstream targets.
const (
	TargetBackend    = "backend"
	TargetPaystack   = "paystack"
	TargetCloudinary = "cloudinary"
)

// Registry bundles every collector the service exports.
type Registry struct {
	reg       *prometheus.Registry
	Upstream  *UpstreamMetrics
	Inventory *InventoryMetrics
	Jobs      *JobMetrics
}

// NewRegistry builds a private registry with runtime collectors and the service metrics.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:       reg,
		Upstream:  NewUpstreamMetrics(reg),
		Inventory: NewInventoryMetrics(reg),
		Jobs:      NewJobMetrics(reg),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil || r.reg == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// UpstreamMetrics tracks calls to the backend API and third-party gateways.
type UpstreamMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	if reg == nil {
		return &UpstreamMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of outbound requests by target.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"target", "method"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Outbound requests by target, method and response status.",
	}, []string{"target", "method", "status"})
	reg.MustRegister(duration, requests)
	return &UpstreamMetrics{duration: duration, requests: requests}
}

// Observe records one outbound call. A status of zero means the transport failed.
func (u *UpstreamMetrics) Observe(target, method string, status int, elapsed time.Duration) {
	if u == nil || u.duration == nil {
		return
	}
	target = normalizeLabel(target)
	method = normalizeLabel(method)
	statusLabel := "error"
	if status > 0 {
		statusLabel = strconv.Itoa(status)
	}
	u.duration.WithLabelValues(target, method).Observe(elapsed.Seconds())
	u.requests.WithLabelValues(target, method, statusLabel).Inc()
}

// InventoryMetrics counts inventory mutations by operation and outcome.
type InventoryMetrics struct {
	mutations *prometheus.CounterVec
	conflicts prometheus.Counter
}

func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_mutations_total",
		Help:      "Inventory mutations by operation and result.",
	}, []string{"operation", "result"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_version_conflicts_total",
		Help:      "Optimistic version mismatches observed while writing inventory.",
	})
	reg.MustRegister(mutations, conflicts)
	return &InventoryMetrics{mutations: mutations, conflicts: conflicts}
}

func (i *InventoryMetrics) Mutation(operation string, err error) {
	if i == nil || i.mutations == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	i.mutations.WithLabelValues(normalizeLabel(operation), result).Inc()
}

func (i *InventoryMetrics) Conflict() {
	if i == nil || i.conflicts == nil {
		return
	}
	i.conflicts.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
