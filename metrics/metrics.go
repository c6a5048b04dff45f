// Package metrics provides Prometheus observability metrics for the call forecast engine.
// It includes Critical and Important metrics for business and operational visibility.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for our application
var Registry = prometheus.NewRegistry()

// factory allows us to register metrics to our custom Registry directly
var factory = promauto.With(Registry)

// =============================================================================
// CRITICAL METRICS - Business Impact Visibility
// =============================================================================

// ForecastPredictedVolume tracks total predicted calls across the latest horizon.
var ForecastPredictedVolume = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "forecast",
	Name:      "predicted_volume",
	Help:      "Total predicted call volume across the latest forecast horizon",
})

// ForecastExpectedSuccessRate tracks the volume-weighted expected answer rate.
// It keeps its last known value while ForecastExpectedSuccessRateKnown is 0.
var ForecastExpectedSuccessRate = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "forecast",
	Name:      "expected_success_rate",
	Help:      "Volume-weighted expected success rate across the latest horizon",
})

// ForecastExpectedSuccessRateKnown is 1 when the latest horizon has a rate.
var ForecastExpectedSuccessRateKnown = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "forecast",
	Name:      "expected_success_rate_known",
	Help:      "Whether the latest horizon has an expected success rate (1) or not (0)",
})

// ForecastPeakVolume tracks the busiest predicted hour.
var ForecastPeakVolume = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "forecast",
	Name:      "peak_volume",
	Help:      "Predicted call volume of the busiest hour in the latest horizon",
})

// ForecastHoursWithoutHistory tracks hours the engine could not predict.
// High values indicate the history does not cover the requested horizon.
var ForecastHoursWithoutHistory = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "forecast",
	Name:      "hours_without_history",
	Help:      "Number of forecast hours with no historical bucket",
})

// ForecastPointsByConfidence tracks forecast points per confidence grade.
var ForecastPointsByConfidence = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "forecast",
	Name:      "points_by_confidence",
	Help:      "Forecast points in the latest horizon broken down by confidence",
}, []string{"confidence"})

// =============================================================================
// IMPORTANT METRICS - Operational Health
// =============================================================================

// NormalizerFailuresTotal tracks timestamps that could not be normalized.
var NormalizerFailuresTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "normalizer",
	Name:      "failures_total",
	Help:      "Total timestamps that failed normalization by reason",
}, []string{"reason"})

// ParserErrorsTotal tracks parse errors by error type.
var ParserErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "errors_total",
	Help:      "Total parse errors by error type",
}, []string{"error_type"})

// ParserRecordsTotal tracks total records successfully parsed.
var ParserRecordsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "records_total",
	Help:      "Total CSV records successfully parsed",
})

// ParserDurationSeconds tracks time to parse input files.
var ParserDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "parser",
	Name:      "duration_seconds",
	Help:      "Time taken to parse CSV input file",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
})

// AggregatorRecordsTotal tracks records folded into buckets.
var AggregatorRecordsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "aggregator",
	Name:      "records_total",
	Help:      "Total call records aggregated into buckets",
})

// AggregatorRecordsSkippedTotal tracks records dropped for bad timestamps.
var AggregatorRecordsSkippedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "aggregator",
	Name:      "records_skipped_total",
	Help:      "Total call records skipped because their timestamp could not be parsed",
})

// AggregatorBuckets tracks distinct weekday/hour buckets in the latest pass.
var AggregatorBuckets = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "aggregator",
	Name:      "buckets",
	Help:      "Distinct weekday/hour buckets built by the latest aggregation",
})

// AggregatorDurationSeconds tracks time to aggregate records.
var AggregatorDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "aggregator",
	Name:      "duration_seconds",
	Help:      "Time taken to aggregate call records",
	Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1.0},
})

// SourceFetchDurationSeconds tracks time to fetch records from the source.
var SourceFetchDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "source",
	Name:      "fetch_duration_seconds",
	Help:      "Time taken to fetch call records from the configured source",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0},
})

// SourceFetchErrorsTotal tracks failed fetches.
var SourceFetchErrorsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "source",
	Name:      "fetch_errors_total",
	Help:      "Total failed record fetches",
})

// SourceRecordsFetched tracks records returned by the latest fetch.
var SourceRecordsFetched = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "source",
	Name:      "records_fetched",
	Help:      "Number of records returned by the latest fetch",
})

// EngineRunsTotal tracks engine runs by outcome.
var EngineRunsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "engine",
	Name:      "runs_total",
	Help:      "Total engine runs by result",
}, []string{"result"})
