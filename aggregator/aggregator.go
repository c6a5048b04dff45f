package aggregator

import (
	"call-forecast/metrics"
	"call-forecast/models"
	"call-forecast/normalizer"
	"errors"
	"strings"
	"time"

	customerrors "call-forecast/errors"

	"go.uber.org/zap"
)

// DefaultSuccessLabels is the status vocabulary counted as answered when the
// caller supplies none.
var DefaultSuccessLabels = []string{"CALL_COMPLETED", "ANSWERED"}

// Aggregator folds raw call records into weekday/hour buckets.
type Aggregator struct {
	successLabels map[string]struct{}
	loc           *time.Location
	logger        *zap.Logger
}

// New builds an Aggregator. Labels are matched case-insensitively; an empty
// list falls back to DefaultSuccessLabels. A nil loc means UTC and a nil
// logger disables logging.
func New(successLabels []string, loc *time.Location, logger *zap.Logger) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	labels := make(map[string]struct{})
	for _, l := range successLabels {
		l = strings.ToUpper(strings.TrimSpace(l))
		if l != "" {
			labels[l] = struct{}{}
		}
	}
	if len(labels) == 0 {
		for _, l := range DefaultSuccessLabels {
			labels[l] = struct{}{}
		}
	}

	return &Aggregator{
		successLabels: labels,
		loc:           loc,
		logger:        logger,
	}
}

// IsSuccess reports whether status belongs to the success vocabulary.
func (a *Aggregator) IsSuccess(status string) bool {
	_, ok := a.successLabels[strings.ToUpper(strings.TrimSpace(status))]
	return ok
}

// Aggregate builds a fresh bucket map from records in a single pass.
// Records whose timestamp cannot be normalized are skipped and counted.
// The result does not depend on record order.
func (a *Aggregator) Aggregate(records []models.RawRecord) (models.HistoricalMap, models.AggregationStats) {
	start := time.Now()
	defer func() {
		metrics.AggregatorDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	hist := make(models.HistoricalMap)
	stats := models.AggregationStats{Seen: len(records)}

	for i, rec := range records {
		ts, err := normalizer.Normalize(rec.DateTime, a.loc)
		if err != nil {
			stats.Skipped++
			metrics.NormalizerFailuresTotal.WithLabelValues(failureReason(err)).Inc()
			a.logger.Debug("skipping record with unparseable timestamp",
				zap.Int("index", i),
				zap.String("datetime", rec.DateTime),
				zap.Error(err))
			continue
		}

		key := models.KeyFor(ts)
		bucket, ok := hist[key]
		if !ok {
			bucket = models.NewHistoricalBucket()
			hist[key] = bucket
		}
		bucket.Total++
		bucket.WeeksObserved[models.WeekOf(ts)] = struct{}{}
		if a.IsSuccess(rec.Status) {
			bucket.Answered++
		}
		stats.Aggregated++
	}

	metrics.AggregatorRecordsTotal.Add(float64(stats.Aggregated))
	metrics.AggregatorRecordsSkippedTotal.Add(float64(stats.Skipped))
	metrics.AggregatorBuckets.Set(float64(len(hist)))

	return hist, stats
}

func failureReason(err error) string {
	if errors.Is(err, customerrors.ErrEmptyTimestamp) {
		return "empty"
	}
	return "unparseable"
}
