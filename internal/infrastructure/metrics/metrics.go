// Package metrics provides Prometheus metrics for the attribution layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsTotal counts connect and disconnect attempts by platform and result
	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attribution",
			Name:      "connections_total",
			Help:      "Total number of platform connection changes by platform and result",
		},
		[]string{"platform", "result"},
	)

	// InstallationsTotal counts tracking installations by terminal status
	InstallationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attribution",
			Name:      "installations_total",
			Help:      "Total number of tracking installations by terminal status",
		},
		[]string{"status"},
	)

	// InstallationDuration tracks how long an installation pipeline runs
	InstallationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "attribution",
			Name:      "installation_duration_seconds",
			Help:      "Duration of tracking installations in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// ReportsTotal counts attribution report computations
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attribution",
			Name:      "reports_total",
			Help:      "Total number of attribution reports by result",
		},
		[]string{"result"},
	)
)

// Result label values
const (
	ResultSuccess = "success"
	ResultError   = "error"
)
