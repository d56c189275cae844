package renderer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors updated by the photon mapper
type Metrics struct {
	PhotonsEmitted prometheus.Counter
	Deposits       prometheus.Counter
	Rounds         prometheus.Counter
	HitPoints      prometheus.Gauge
	MeanRadius2    prometheus.Gauge
	RoundDuration  prometheus.Histogram
}

// NewMetrics registers the photon mapper collectors on reg. Passing a fresh
// registry per renderer keeps tests and concurrent renders independent.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PhotonsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "sppm_photons_emitted_total",
			Help: "Total photons emitted from all lights",
		}),
		Deposits: factory.NewCounter(prometheus.CounterOpts{
			Name: "sppm_photon_deposits_total",
			Help: "Total photon to HitPoint matches",
		}),
		Rounds: factory.NewCounter(prometheus.CounterOpts{
			Name: "sppm_rounds_total",
			Help: "Completed photon rounds",
		}),
		HitPoints: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sppm_hitpoints",
			Help: "HitPoints in the spatial index",
		}),
		MeanRadius2: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sppm_mean_radius2",
			Help: "Mean squared gather radius after the last round",
		}),
		RoundDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sppm_round_duration_seconds",
			Help:    "Photon round duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),
	}
}
