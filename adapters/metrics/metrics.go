// Package metrics provides Prometheus metrics collection for carehub.
package metrics

import (
	"github.com/artpar/carehub/core/hooks"
	"github.com/artpar/carehub/core/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "carehub"

// Collector holds all Prometheus metrics for carehub.
type Collector struct {
	// Admin API metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Registry metrics
	Registrations   *prometheus.CounterVec
	Unregistrations *prometheus.CounterVec
	Conflicts       *prometheus.CounterVec
	Modules         *prometheus.GaugeVec
	Routes          prometheus.Gauge
	Components      prometheus.Gauge
	HookNames       prometheus.Gauge

	// Hook metrics
	HookFailures *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_requests_total",
				Help:      "Total number of admin API requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "admin_request_duration_seconds",
				Help:      "Admin API request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "admin_requests_in_flight",
				Help:      "Number of admin API requests currently being processed",
			},
		),

		Registrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_registrations_total",
				Help:      "Total number of successful module registrations",
			},
			[]string{"module"},
		),
		Unregistrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_unregistrations_total",
				Help:      "Total number of module unregistrations",
			},
			[]string{"module"},
		),
		Conflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_conflicts_total",
				Help:      "Total number of route and component conflicts that rejected a registration",
			},
			[]string{"module"},
		),
		Modules: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "modules",
				Help:      "Number of registered modules by state",
			},
			[]string{"state"},
		),
		Routes: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "routes",
				Help:      "Number of routes declared by registered modules",
			},
		),
		Components: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "components",
				Help:      "Number of components declared by registered modules",
			},
		),
		HookNames: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "hook_names",
				Help:      "Number of hook names with at least one callback",
			},
		),

		HookFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hook_failures_total",
				Help:      "Total number of hook callbacks that failed, panicked or timed out",
			},
			[]string{"hook", "module"},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

var (
	_ registry.Metrics      = (*Collector)(nil)
	_ hooks.FailureObserver = (*Collector)(nil)
)

// ModuleRegistered implements registry.Metrics.
func (c *Collector) ModuleRegistered(id string) {
	c.Registrations.WithLabelValues(id).Inc()
}

// ModuleUnregistered implements registry.Metrics.
func (c *Collector) ModuleUnregistered(id string) {
	c.Unregistrations.WithLabelValues(id).Inc()
}

// ConflictDetected implements registry.Metrics.
func (c *Collector) ConflictDetected(id string, conflicts int) {
	c.Conflicts.WithLabelValues(id).Add(float64(conflicts))
}

// StatsChanged implements registry.Metrics.
func (c *Collector) StatsChanged(s registry.Stats) {
	c.Modules.WithLabelValues("total").Set(float64(s.TotalModules))
	c.Modules.WithLabelValues("enabled").Set(float64(s.EnabledModules))
	c.Modules.WithLabelValues("isolated").Set(float64(s.IsolatedModules))
	c.Routes.Set(float64(s.TotalRoutes))
	c.Components.Set(float64(s.TotalComponents))
	c.HookNames.Set(float64(s.TotalHooks))
}

// HookFailed implements hooks.FailureObserver. Global callbacks are
// reported under the "global" module label.
func (c *Collector) HookFailed(hook, moduleID string) {
	if moduleID == "" {
		moduleID = "global"
	}
	c.HookFailures.WithLabelValues(hook, moduleID).Inc()
}

// StatusClass buckets an HTTP status code into 2xx, 4xx and similar labels.
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
