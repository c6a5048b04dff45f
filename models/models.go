package models

import (
	"fmt"
	"sort"
	"time"
)

// RawRecord is one call-log row as delivered by a record source.
// Only the datetime and status fields matter to the engine.
type RawRecord struct {
	DateTime string
	Status   string
}

// BucketKey identifies a weekday/hour slot independent of calendar date.
type BucketKey struct {
	Weekday time.Weekday
	Hour    int
}

// KeyFor returns the bucket key of t in t's own location.
func KeyFor(t time.Time) BucketKey {
	return BucketKey{Weekday: t.Weekday(), Hour: t.Hour()}
}

// String renders the key as "Mon-14".
func (k BucketKey) String() string {
	return fmt.Sprintf("%s-%d", k.Weekday.String()[:3], k.Hour)
}

// WeekID labels an ISO-8601 week, e.g. "2026-W01".
type WeekID string

// WeekOf returns the ISO week identifier of t.
func WeekOf(t time.Time) WeekID {
	year, week := t.ISOWeek()
	return WeekID(fmt.Sprintf("%04d-W%02d", year, week))
}

// HistoricalBucket holds the statistics of one weekday/hour slot.
// Answered never exceeds Total, and WeeksObserved is non-empty once Total > 0.
type HistoricalBucket struct {
	Total         int
	Answered      int
	WeeksObserved map[WeekID]struct{}
}

// NewHistoricalBucket returns an empty bucket ready for updates.
func NewHistoricalBucket() *HistoricalBucket {
	return &HistoricalBucket{WeeksObserved: make(map[WeekID]struct{})}
}

// Weeks is the number of distinct weeks observed.
func (b *HistoricalBucket) Weeks() int {
	return len(b.WeeksObserved)
}

// WeeklyVolume is the average number of calls per observed week.
func (b *HistoricalBucket) WeeklyVolume() float64 {
	return float64(b.Total) / float64(max(1, b.Weeks()))
}

// SuccessRate is Answered/Total, or 0 for an empty bucket.
func (b *HistoricalBucket) SuccessRate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Answered) / float64(b.Total)
}

// SortedWeeks returns the observed week identifiers in ascending order.
func (b *HistoricalBucket) SortedWeeks() []WeekID {
	weeks := make([]WeekID, 0, len(b.WeeksObserved))
	for w := range b.WeeksObserved {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i] < weeks[j] })
	return weeks
}

// HistoricalMap maps each observed slot to its bucket. At most 7*24 keys exist.
type HistoricalMap map[BucketKey]*HistoricalBucket

// Keys returns the keys ordered Sunday through Saturday, then by hour.
func (m HistoricalMap) Keys() []BucketKey {
	keys := make([]BucketKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Weekday != keys[j].Weekday {
			return keys[i].Weekday < keys[j].Weekday
		}
		return keys[i].Hour < keys[j].Hour
	})
	return keys
}

// TotalRecords sums Total across all buckets.
func (m HistoricalMap) TotalRecords() int {
	total := 0
	for _, b := range m {
		total += b.Total
	}
	return total
}

// AggregationStats counts what happened to the input of one aggregation pass.
type AggregationStats struct {
	Seen       int `json:"seen"`
	Aggregated int `json:"aggregated"`
	Skipped    int `json:"skipped"`
}

// Confidence grades a forecast point by how many weeks of history back it.
type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ConfidenceFor maps a distinct-week count to a confidence grade.
func ConfidenceFor(weeks int) Confidence {
	switch {
	case weeks <= 0:
		return ConfidenceNone
	case weeks < 2:
		return ConfidenceLow
	case weeks < 4:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}

// ForecastPoint is the prediction for one future hour.
// PredictedSuccessRate is nil when the slot has no history.
type ForecastPoint struct {
	Time                 time.Time  `json:"time"`
	Key                  BucketKey  `json:"-"`
	Slot                 string     `json:"slot"`
	PredictedVolume      float64    `json:"predicted_volume"`
	PredictedSuccessRate *float64   `json:"predicted_success_rate"`
	Confidence           Confidence `json:"confidence"`
	WeeksObserved        int        `json:"weeks_observed"`
}

// ForecastSummary condenses a forecast horizon into dashboard figures.
type ForecastSummary struct {
	Hours               int        `json:"hours"`
	TotalVolume         float64    `json:"total_volume"`
	PeakTime            *time.Time `json:"peak_time"`
	PeakVolume          float64    `json:"peak_volume"`
	ExpectedSuccessRate *float64   `json:"expected_success_rate"`
	HoursWithoutHistory int        `json:"hours_without_history"`
}

// Forecast is the result of one engine run.
type Forecast struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Start       time.Time        `json:"start"`
	Horizon     int              `json:"horizon"`
	Points      []ForecastPoint  `json:"points"`
	Summary     ForecastSummary  `json:"summary"`
	Stats       AggregationStats `json:"stats"`
	Buckets     HistoricalMap    `json:"-"`
}
