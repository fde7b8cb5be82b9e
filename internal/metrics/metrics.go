// Package metrics provides the Prometheus registry and collectors for electcast.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	ForecastsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "electcast",
		Name:      "forecasts_total",
		Help:      "Total number of forecast requests by outcome",
	}, []string{"outcome"})
	SimulatedDrawsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "electcast",
		Name:      "simulated_draws_total",
		Help:      "Total number of Beta samples drawn",
	})
	CacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "electcast",
		Name:      "cache_lookups_total",
		Help:      "Forecast view cache lookups by result",
	}, []string{"result"})
	DatasetLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "electcast",
		Name:      "dataset_loads_total",
		Help:      "Dataset loads by outcome",
	}, []string{"outcome"})
	BotCommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "electcast",
		Name:      "bot_commands_total",
		Help:      "Telegram commands handled",
	}, []string{"command"})
)

// Gauge metrics
var (
	DatasetRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "electcast",
		Name:      "dataset_records",
		Help:      "Number of constituency records in the active dataset",
	})
	DatasetWarnings = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "electcast",
		Name:      "dataset_warnings",
		Help:      "Number of warnings raised while loading the active dataset",
	})
)

// Histogram metrics
var (
	SimulationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "electcast",
		Name:      "simulation_duration_seconds",
		Help:      "Duration of Monte Carlo simulations in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "electcast",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of all-constituency sweeps in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(ForecastsTotal)
		registry.MustRegister(SimulatedDrawsTotal)
		registry.MustRegister(CacheLookupsTotal)
		registry.MustRegister(DatasetLoadsTotal)
		registry.MustRegister(BotCommandsTotal)

		registry.MustRegister(DatasetRecords)
		registry.MustRegister(DatasetWarnings)

		registry.MustRegister(SimulationDuration)
		registry.MustRegister(SweepDuration)
	})
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(InitRegistry(), promhttp.HandlerOpts{})
}

// RecordForecast records one forecast call. outcome is "ok", "cached" or an error kind.
func RecordForecast(outcome string, draws int, durationSeconds float64) {
	ForecastsTotal.WithLabelValues(outcome).Inc()
	if draws > 0 {
		SimulatedDrawsTotal.Add(float64(draws))
		SimulationDuration.Observe(durationSeconds)
	}
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheLookupsTotal.WithLabelValues("miss").Inc()
}

// RecordDatasetLoad records a dataset load and, on success, its size.
func RecordDatasetLoad(err error, records, warnings int) {
	if err != nil {
		DatasetLoadsTotal.WithLabelValues("error").Inc()
		return
	}
	DatasetLoadsTotal.WithLabelValues("ok").Inc()
	DatasetRecords.Set(float64(records))
	DatasetWarnings.Set(float64(warnings))
}

// RecordSweep records the duration of a sweep.
func RecordSweep(durationSeconds float64) {
	SweepDuration.Observe(durationSeconds)
}

// RecordBotCommand records a handled Telegram command.
func RecordBotCommand(command string) {
	BotCommandsTotal.WithLabelValues(command).Inc()
}
