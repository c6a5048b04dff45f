package forecast_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	customerrors "call-forecast/errors"
	"call-forecast/forecast"
	"call-forecast/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bucket builds a HistoricalBucket observed over the given number of weeks.
func bucket(total, answered, weeks int) *models.HistoricalBucket {
	b := models.NewHistoricalBucket()
	b.Total = total
	b.Answered = answered
	for w := 1; w <= weeks; w++ {
		b.WeeksObserved[models.WeekID(fmt.Sprintf("2026-W%02d", w))] = struct{}{}
	}
	return b
}

func ptr(f float64) *float64 { return &f }

func TestGenerate(t *testing.T) {
	// Monday 2026-01-05
	start := time.Date(2026, 1, 5, 9, 37, 12, 500, time.UTC)
	hist := models.HistoricalMap{
		{Weekday: time.Monday, Hour: 9}:  bucket(20, 15, 4),
		{Weekday: time.Monday, Hour: 10}: bucket(3, 0, 1),
		{Weekday: time.Monday, Hour: 11}: bucket(6, 6, 3),
	}

	tests := map[string]struct {
		hours    int
		expected []models.ForecastPoint
	}{
		"ZeroHorizon": {
			hours:    0,
			expected: []models.ForecastPoint{},
		},
		"FourHours": {
			hours: 4,
			expected: []models.ForecastPoint{
				{
					Time:                 time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
					Key:                  models.BucketKey{Weekday: time.Monday, Hour: 9},
					Slot:                 "Mon-9",
					PredictedVolume:      5,
					PredictedSuccessRate: ptr(0.75),
					Confidence:           models.ConfidenceHigh,
					WeeksObserved:        4,
				},
				{
					Time:                 time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
					Key:                  models.BucketKey{Weekday: time.Monday, Hour: 10},
					Slot:                 "Mon-10",
					PredictedVolume:      3,
					PredictedSuccessRate: ptr(0),
					Confidence:           models.ConfidenceLow,
					WeeksObserved:        1,
				},
				{
					Time:                 time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC),
					Key:                  models.BucketKey{Weekday: time.Monday, Hour: 11},
					Slot:                 "Mon-11",
					PredictedVolume:      2,
					PredictedSuccessRate: ptr(1),
					Confidence:           models.ConfidenceMedium,
					WeeksObserved:        3,
				},
				{
					Time:       time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC),
					Key:        models.BucketKey{Weekday: time.Monday, Hour: 12},
					Slot:       "Mon-12",
					Confidence: models.ConfidenceNone,
				},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := forecast.Generate(hist, start, tt.hours)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestGenerate_NegativeHorizon(t *testing.T) {
	got, err := forecast.Generate(models.HistoricalMap{}, time.Now(), -1)

	assert.Nil(t, got)
	assert.True(t, errors.Is(err, customerrors.ErrNegativeHorizon))
}

func TestGenerate_FullDay(t *testing.T) {
	start := time.Date(2026, 1, 5, 23, 59, 59, 0, time.UTC)

	got, err := forecast.Generate(nil, start, 24)
	require.NoError(t, err)
	require.Len(t, got, 24)

	assert.Equal(t, time.Date(2026, 1, 5, 23, 0, 0, 0, time.UTC), got[0].Time)
	for i := 1; i < len(got); i++ {
		assert.Equal(t, time.Hour, got[i].Time.Sub(got[i-1].Time))
	}
	// Crosses midnight into Tuesday.
	assert.Equal(t, models.BucketKey{Weekday: time.Tuesday, Hour: 0}, got[1].Key)
}

func TestGenerate_EmptyHistory(t *testing.T) {
	got, err := forecast.Generate(models.HistoricalMap{}, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), 6)
	require.NoError(t, err)

	for _, p := range got {
		assert.Zero(t, p.PredictedVolume)
		assert.Nil(t, p.PredictedSuccessRate, "absent rate must not be reported as zero")
		assert.Equal(t, models.ConfidenceNone, p.Confidence)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	hist := models.HistoricalMap{
		{Weekday: time.Monday, Hour: 9}: bucket(20, 15, 4),
	}
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	first, err := forecast.Generate(hist, start, 48)
	require.NoError(t, err)
	second, err := forecast.Generate(hist, start, 48)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerate_DSTSpringForward(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// March 8, 2026 - clocks jump from 2:00 AM to 3:00 AM.
	start := time.Date(2026, 3, 8, 1, 0, 0, 0, loc)

	got, err := forecast.Generate(nil, start, 3)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 4}, []int{got[0].Key.Hour, got[1].Key.Hour, got[2].Key.Hour})
}

func TestTopOfHour(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	got := forecast.TopOfHour(time.Date(2026, 1, 5, 14, 45, 30, 99, loc))

	assert.Equal(t, time.Date(2026, 1, 5, 14, 0, 0, 0, loc), got)
}

func TestSummarize(t *testing.T) {
	tests := map[string]struct {
		points   []models.ForecastPoint
		expected models.ForecastSummary
	}{
		"Empty": {
			points:   nil,
			expected: models.ForecastSummary{},
		},
		"NoHistory": {
			points: []models.ForecastPoint{
				{Time: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)},
				{Time: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)},
			},
			expected: models.ForecastSummary{Hours: 2, HoursWithoutHistory: 2},
		},
		"Mixed": {
			points: []models.ForecastPoint{
				{Time: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC), PredictedVolume: 5, PredictedSuccessRate: ptr(0.8)},
				{Time: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), PredictedVolume: 15, PredictedSuccessRate: ptr(0.4)},
				{Time: time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)},
				{Time: time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC), PredictedVolume: 15, PredictedSuccessRate: ptr(0.6)},
			},
			expected: models.ForecastSummary{
				Hours:               4,
				TotalVolume:         35,
				PeakTime:            func() *time.Time { t := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC); return &t }(),
				PeakVolume:          15,
				ExpectedSuccessRate: ptr((5*0.8 + 15*0.4 + 15*0.6) / 35),
				HoursWithoutHistory: 1,
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := forecast.Summarize(tt.points)

			assert.Equal(t, tt.expected.Hours, got.Hours)
			assert.InDelta(t, tt.expected.TotalVolume, got.TotalVolume, 1e-9)
			assert.Equal(t, tt.expected.PeakTime, got.PeakTime)
			assert.InDelta(t, tt.expected.PeakVolume, got.PeakVolume, 1e-9)
			assert.Equal(t, tt.expected.HoursWithoutHistory, got.HoursWithoutHistory)
			if tt.expected.ExpectedSuccessRate == nil {
				assert.Nil(t, got.ExpectedSuccessRate)
				return
			}
			require.NotNil(t, got.ExpectedSuccessRate)
			assert.InDelta(t, *tt.expected.ExpectedSuccessRate, *got.ExpectedSuccessRate, 1e-9)
		})
	}
}
