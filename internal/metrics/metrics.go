// Package metrics exposes Prometheus instrumentation for backtest runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	barsProcessed    prometheus.Counter
	signalsGenerated *prometheus.CounterVec
	tradesExecuted   *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		backtestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantrail_backtests_total",
				Help: "Total number of backtest runs",
			},
			[]string{"status"},
		),
		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quantrail_backtest_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
		),
		barsProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "quantrail_bars_processed_total",
				Help: "Total number of bars processed by the simulation loop",
			},
		),
		signalsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantrail_signals_generated_total",
				Help: "Total number of trade signals generated",
			},
			[]string{"strategy", "trigger"},
		),
		tradesExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantrail_trades_executed_total",
				Help: "Total number of fills applied to the ledger",
			},
			[]string{"action"},
		),
	}

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.barsProcessed)
	reg.MustRegister(r.signalsGenerated)
	reg.MustRegister(r.tradesExecuted)

	return r
}

// RecordBacktest records a backtest run completion.
func (r *Registry) RecordBacktest(status string, duration float64) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
}

// RecordBar records one processed bar.
func (r *Registry) RecordBar() {
	r.barsProcessed.Inc()
}

// RecordSignal records a generated signal.
func (r *Registry) RecordSignal(strategy, trigger string) {
	r.signalsGenerated.WithLabelValues(strategy, trigger).Inc()
}

// RecordTrade records an executed fill.
func (r *Registry) RecordTrade(action string) {
	r.tradesExecuted.WithLabelValues(action).Inc()
}
