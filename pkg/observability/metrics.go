package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Plugin run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec

	// Admission metrics
	AdmissionsTotal      *prometheus.CounterVec
	AdmissionDeniedTotal *prometheus.CounterVec

	// Container dispatch metrics
	ContainerDispatchTotal *prometheus.CounterVec

	// Resource gauges
	MemoryAvailableMB prometheus.Gauge
	CPUAvailableCores prometheus.Gauge
	DiskFreeMB        prometheus.Gauge
	TrackedProcesses  prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prowl_plugin_runs_total",
				Help: "Total number of plugin runs",
			},
			[]string{"plugin", "dispatch", "status"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prowl_plugin_run_duration_seconds",
				Help:    "Plugin execute duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
			},
			[]string{"plugin", "dispatch"},
		),
		AdmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prowl_admissions_total",
				Help: "Total number of admission checks",
			},
			[]string{"plugin", "admitted"},
		),
		AdmissionDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prowl_admission_denied_total",
				Help: "Admission denials by failing dimension",
			},
			[]string{"plugin", "dimension"},
		),
		ContainerDispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prowl_container_dispatch_total",
				Help: "Container fallback dispatches by outcome",
			},
			[]string{"plugin", "outcome"},
		),
		MemoryAvailableMB: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prowl_memory_available_mb",
			Help: "Available system memory in MB at last snapshot",
		}),
		CPUAvailableCores: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prowl_cpu_available_cores",
			Help: "Estimated idle CPU cores at last snapshot",
		}),
		DiskFreeMB: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prowl_disk_free_mb",
			Help: "Free disk on the working volume in MB at last snapshot",
		}),
		TrackedProcesses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prowl_tracked_processes",
			Help: "Number of tracked local plugin processes",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.AdmissionsTotal,
		m.AdmissionDeniedTotal,
		m.ContainerDispatchTotal,
		m.MemoryAvailableMB,
		m.CPUAvailableCores,
		m.DiskFreeMB,
		m.TrackedProcesses,
	)

	return m
}

// ObserveRun records one plugin run outcome.
func (m *Metrics) ObserveRun(pluginName, dispatch, status string, elapsed time.Duration) {
	m.RunsTotal.WithLabelValues(pluginName, dispatch, status).Inc()
	m.RunDuration.WithLabelValues(pluginName, dispatch).Observe(elapsed.Seconds())
}

// ObserveAdmission records one admission verdict.
func (m *Metrics) ObserveAdmission(pluginName string, admitted bool, dimension string) {
	verdict := "false"
	if admitted {
		verdict = "true"
	}
	m.AdmissionsTotal.WithLabelValues(pluginName, verdict).Inc()
	if !admitted && dimension != "" {
		m.AdmissionDeniedTotal.WithLabelValues(pluginName, dimension).Inc()
	}
}

// Handler returns an HTTP handler serving the registry's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// DenialDimension extracts the failing dimension label from an admission
// rejection reason.
func DenialDimension(reason string) string {
	switch {
	case strings.Contains(reason, "memory"):
		return "memory"
	case strings.Contains(reason, "CPU"):
		return "cpu"
	case strings.Contains(reason, "disk"):
		return "disk"
	case strings.Contains(reason, "Network"):
		return "network"
	default:
		return "unknown"
	}
}
