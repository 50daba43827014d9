// Package metrics exposes Prometheus instrumentation for the scanner.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// Metrics collects scan-cycle telemetry into a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal   *prometheus.CounterVec
	CycleDuration *prometheus.HistogramVec

	EventsScanned      *prometheus.CounterVec
	QuotesCollected    *prometheus.CounterVec
	QuotesDropped      *prometheus.CounterVec
	OpportunitiesTotal *prometheus.CounterVec
	InfeasibleTotal    *prometheus.CounterVec

	OpportunityEdge prometheus.Histogram

	QuotaRemaining prometheus.Gauge
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbisport_cycles_total",
				Help: "Completed scan cycles",
			},
			[]string{"scan", "mode"},
		),
		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arbisport_cycle_duration_seconds",
				Help:    "Wall-clock duration of a scan cycle",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~200s
			},
			[]string{"scan"},
		),
		EventsScanned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbisport_events_scanned_total",
				Help: "Events inside the scan window, per cycle",
			},
			[]string{"scan"},
		),
		QuotesCollected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbisport_quotes_collected_total",
				Help: "Normalized quotes accepted into cycles",
			},
			[]string{"scan"},
		),
		QuotesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbisport_quotes_dropped_total",
				Help: "Raw quotes rejected during normalization",
			},
			[]string{"scan"},
		),
		OpportunitiesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbisport_opportunities_total",
				Help: "Arbitrage opportunities with a feasible stake plan",
			},
			[]string{"scan"},
		),
		InfeasibleTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbisport_infeasible_total",
				Help: "Opportunities dropped because no valid stake plan exists",
			},
			[]string{"scan"},
		),
		OpportunityEdge: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "arbisport_opportunity_edge",
				Help:    "Realized edge of feasible opportunities, as a fraction",
				Buckets: []float64{0.005, 0.01, 0.02, 0.03, 0.05, 0.08, 0.12, 0.2},
			},
		),
		QuotaRemaining: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "arbisport_quota_remaining",
				Help: "Provider requests remaining in the current quota window",
			},
		),
	}

	m.registry.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.EventsScanned,
		m.QuotesCollected,
		m.QuotesDropped,
		m.OpportunitiesTotal,
		m.InfeasibleTotal,
		m.OpportunityEdge,
		m.QuotaRemaining,
	)
	return m
}

// Registry returns the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCycle records the telemetry of one completed cycle.
func (m *Metrics) ObserveCycle(result domain.CycleResult) {
	scan := result.ScanName

	m.CyclesTotal.WithLabelValues(scan, string(result.Mode)).Inc()
	if !result.FinishedAt.IsZero() && !result.StartedAt.IsZero() {
		m.CycleDuration.WithLabelValues(scan).Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
	}

	m.EventsScanned.WithLabelValues(scan).Add(float64(result.EventsInWindow))
	m.QuotesCollected.WithLabelValues(scan).Add(float64(result.QuotesCollected))
	m.QuotesDropped.WithLabelValues(scan).Add(float64(result.QuotesDropped))
	m.OpportunitiesTotal.WithLabelValues(scan).Add(float64(len(result.Opportunities)))
	m.InfeasibleTotal.WithLabelValues(scan).Add(float64(result.Infeasible))

	for _, staked := range result.Opportunities {
		edge, _ := staked.Plan.RealizedEdge.Float64()
		m.OpportunityEdge.Observe(edge)
	}

	if result.Usage.Remaining != nil {
		m.QuotaRemaining.Set(float64(*result.Usage.Remaining))
	}
}
