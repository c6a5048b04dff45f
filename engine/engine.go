package engine

import (
	"call-forecast/aggregator"
	"call-forecast/errors"
	"call-forecast/forecast"
	"call-forecast/metrics"
	"call-forecast/models"
	"call-forecast/source"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Options configures a forecast run.
type Options struct {
	Horizon       int
	SuccessLabels []string
	Location      *time.Location
}

// Engine runs fetch, aggregate and forecast against an injected source.
// It keeps no state between runs.
type Engine struct {
	src    source.RecordSource
	opts   Options
	agg    *aggregator.Aggregator
	logger *zap.Logger
}

// New builds an Engine. A nil Location means UTC.
func New(src source.RecordSource, opts Options, logger *zap.Logger) *Engine {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		src:    src,
		opts:   opts,
		agg:    aggregator.New(opts.SuccessLabels, opts.Location, logger),
		logger: logger,
	}
}

// Run fetches a fresh record snapshot and forecasts opts.Horizon hours from
// the top of the hour containing now, in the configured location.
func (e *Engine) Run(ctx context.Context, now time.Time) (*models.Forecast, error) {
	if e.opts.Horizon < 0 {
		metrics.EngineRunsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %d", errors.ErrNegativeHorizon, e.opts.Horizon)
	}

	fetchStart := time.Now()
	records, err := e.src.Fetch(ctx)
	metrics.SourceFetchDurationSeconds.Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		metrics.SourceFetchErrorsTotal.Inc()
		metrics.EngineRunsTotal.WithLabelValues("fetch_error").Inc()
		return nil, fmt.Errorf("%w: %w", errors.ErrFetchFailed, err)
	}
	metrics.SourceRecordsFetched.Set(float64(len(records)))

	hist, stats := e.agg.Aggregate(records)

	start := forecast.TopOfHour(now.In(e.opts.Location))
	points, err := forecast.Generate(hist, start, e.opts.Horizon)
	if err != nil {
		metrics.EngineRunsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	summary := forecast.Summarize(points)

	observe(points, summary)
	metrics.EngineRunsTotal.WithLabelValues("ok").Inc()

	e.logger.Info("forecast generated",
		zap.Int("records", stats.Seen),
		zap.Int("aggregated", stats.Aggregated),
		zap.Int("skipped", stats.Skipped),
		zap.Int("buckets", len(hist)),
		zap.Time("start", start),
		zap.Int("horizon", e.opts.Horizon),
		zap.Float64("predicted_volume", summary.TotalVolume),
		zap.Int("hours_without_history", summary.HoursWithoutHistory))
	if stats.Skipped > 0 {
		e.logger.Warn("records skipped during aggregation",
			zap.Int("skipped", stats.Skipped),
			zap.Int("seen", stats.Seen))
	}

	return &models.Forecast{
		GeneratedAt: now,
		Start:       start,
		Horizon:     e.opts.Horizon,
		Points:      points,
		Summary:     summary,
		Stats:       stats,
		Buckets:     hist,
	}, nil
}

// observe publishes the gauges of a successful run. Failed runs leave the
// previous values in place. Every confidence label is set rather than
// incremented, so overlapping runs cannot accumulate counts.
func observe(points []models.ForecastPoint, summary models.ForecastSummary) {
	metrics.ForecastPredictedVolume.Set(summary.TotalVolume)
	metrics.ForecastPeakVolume.Set(summary.PeakVolume)
	metrics.ForecastHoursWithoutHistory.Set(float64(summary.HoursWithoutHistory))
	if summary.ExpectedSuccessRate != nil {
		metrics.ForecastExpectedSuccessRate.Set(*summary.ExpectedSuccessRate)
		metrics.ForecastExpectedSuccessRateKnown.Set(1)
	} else {
		metrics.ForecastExpectedSuccessRateKnown.Set(0)
	}

	counts := make(map[models.Confidence]int)
	for _, p := range points {
		counts[p.Confidence]++
	}
	for _, c := range confidenceLevels {
		metrics.ForecastPointsByConfidence.WithLabelValues(string(c)).Set(float64(counts[c]))
	}
}

var confidenceLevels = []models.Confidence{
	models.ConfidenceNone,
	models.ConfidenceLow,
	models.ConfidenceMedium,
	models.ConfidenceHigh,
}
