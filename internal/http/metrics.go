package http

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	ResolutionsTotal *prometheus.CounterVec
	RejectionsTotal  *prometheus.CounterVec
	RelaysTotal      *prometheus.CounterVec
	ResolveDuration  prometheus.Histogram
	ActiveTokens     prometheus.Gauge
}

func NewMetrics() *Metrics {
	metrics := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerfulapi_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"endpoint", "status"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerfulapi_resolutions_total",
				Help: "Total number of successful track resolutions",
			},
			[]string{"source"},
		),
		RejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerfulapi_rejections_total",
				Help: "Total number of credential rejections",
			},
			[]string{"reason"},
		),
		RelaysTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerfulapi_relays_total",
				Help: "Total number of proxy relay requests",
			},
			[]string{"status"},
		),
		ResolveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "powerfulapi_resolve_duration_seconds",
				Help:    "Time spent resolving queries",
				Buckets: prometheus.DefBuckets,
			},
		),
		ActiveTokens: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "powerfulapi_active_tokens",
				Help: "Current number of live proxy tokens",
			},
		),
	}

	prometheus.MustRegister(
		metrics.RequestsTotal,
		metrics.ResolutionsTotal,
		metrics.RejectionsTotal,
		metrics.RelaysTotal,
		metrics.ResolveDuration,
		metrics.ActiveTokens,
	)

	return metrics
}
