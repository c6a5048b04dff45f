package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"call-forecast/engine"
	customerrors "call-forecast/errors"
	"call-forecast/metrics"
	"call-forecast/models"
	"call-forecast/source"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingSource struct{ err error }

func (f failingSource) Fetch(context.Context) ([]models.RawRecord, error) {
	return nil, f.err
}

// historyRecords returns, for each of the four Mondays in January 2026,
// five calls at 9 AM of which the first `answered` completed.
func historyRecords(answered int) source.Static {
	var records source.Static
	for _, day := range []int{5, 12, 19, 26} {
		for i := 0; i < 5; i++ {
			status := "NO_ANSWER"
			if i < answered {
				status = "CALL_COMPLETED"
			}
			records = append(records, models.RawRecord{
				DateTime: fmt.Sprintf("%02d-Jan-26 09.%02d.00.000000 AM", day, i*10),
				Status:   status,
			})
		}
	}
	records = append(records, models.RawRecord{DateTime: "bogus", Status: "ANSWERED"})
	return records
}

func TestRun(t *testing.T) {
	eng := engine.New(historyRecords(3), engine.Options{Horizon: 3, Location: time.UTC}, zap.NewNop())
	// Monday 2026-02-02 08:20
	now := time.Date(2026, 2, 2, 8, 20, 0, 0, time.UTC)

	got, err := eng.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, now, got.GeneratedAt)
	assert.Equal(t, time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC), got.Start)
	assert.Equal(t, 3, got.Horizon)
	assert.Equal(t, models.AggregationStats{Seen: 21, Aggregated: 20, Skipped: 1}, got.Stats)
	require.Len(t, got.Points, 3)

	assert.Nil(t, got.Points[0].PredictedSuccessRate)
	assert.Equal(t, "Mon-9", got.Points[1].Slot)
	assert.InDelta(t, 5, got.Points[1].PredictedVolume, 1e-9)
	require.NotNil(t, got.Points[1].PredictedSuccessRate)
	assert.InDelta(t, 0.6, *got.Points[1].PredictedSuccessRate, 1e-9)
	assert.Equal(t, models.ConfidenceHigh, got.Points[1].Confidence)
	assert.Nil(t, got.Points[2].PredictedSuccessRate)

	assert.InDelta(t, 5, got.Summary.TotalVolume, 1e-9)
	assert.Equal(t, 2, got.Summary.HoursWithoutHistory)
	assert.Len(t, got.Buckets, 1)
}

func TestRun_UsesConfiguredLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	eng := engine.New(historyRecords(5), engine.Options{Horizon: 1, Location: loc}, nil)

	// 14:05 UTC is 09:05 EST on Monday.
	got, err := eng.Run(context.Background(), time.Date(2026, 2, 2, 14, 5, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, got.Points, 1)
	assert.Equal(t, "Mon-9", got.Points[0].Slot)
	assert.Equal(t, loc, got.Points[0].Time.Location())
	require.NotNil(t, got.Points[0].PredictedSuccessRate)
	assert.InDelta(t, 1.0, *got.Points[0].PredictedSuccessRate, 1e-9)
}

func TestRun_EmptySource(t *testing.T) {
	eng := engine.New(source.Static{}, engine.Options{Horizon: 24}, nil)

	got, err := eng.Run(context.Background(), time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Empty(t, got.Buckets)
	require.Len(t, got.Points, 24)
	for _, p := range got.Points {
		assert.Nil(t, p.PredictedSuccessRate)
	}
	assert.Nil(t, got.Summary.ExpectedSuccessRate)
}

func TestRun_Errors(t *testing.T) {
	boom := errors.New("connection refused")

	tests := map[string]struct {
		src           source.RecordSource
		horizon       int
		expectedError error
	}{
		"FetchFailure": {
			src:           failingSource{err: boom},
			horizon:       24,
			expectedError: customerrors.ErrFetchFailed,
		},
		"FetchFailureKeepsCause": {
			src:           failingSource{err: boom},
			horizon:       24,
			expectedError: boom,
		},
		"NegativeHorizon": {
			src:           source.Static{},
			horizon:       -1,
			expectedError: customerrors.ErrNegativeHorizon,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			eng := engine.New(tt.src, engine.Options{Horizon: tt.horizon}, nil)
			got, err := eng.Run(context.Background(), time.Now())

			assert.Nil(t, got)
			assert.True(t, errors.Is(err, tt.expectedError), "Run() error = %v, want %v", err, tt.expectedError)
		})
	}
}

func TestRun_FailedRunKeepsPublishedGauges(t *testing.T) {
	now := time.Date(2026, 2, 2, 8, 20, 0, 0, time.UTC)
	good := engine.New(historyRecords(3), engine.Options{Horizon: 3, Location: time.UTC}, nil)
	_, err := good.Run(context.Background(), now)
	require.NoError(t, err)

	assertPublished := func(t *testing.T) {
		t.Helper()
		assert.InDelta(t, 5, testutil.ToFloat64(metrics.ForecastPredictedVolume), 1e-9)
		assert.InDelta(t, 5, testutil.ToFloat64(metrics.ForecastPeakVolume), 1e-9)
		assert.InDelta(t, 0.6, testutil.ToFloat64(metrics.ForecastExpectedSuccessRate), 1e-9)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ForecastExpectedSuccessRateKnown))
		assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ForecastHoursWithoutHistory))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ForecastPointsByConfidence.WithLabelValues("high")))
		assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ForecastPointsByConfidence.WithLabelValues("none")))
	}
	assertPublished(t)

	failing := engine.New(failingSource{err: errors.New("connection reset")}, engine.Options{Horizon: 3}, nil)
	_, err = failing.Run(context.Background(), now)
	require.Error(t, err)
	assertPublished(t)

	invalid := engine.New(historyRecords(3), engine.Options{Horizon: -1}, nil)
	_, err = invalid.Run(context.Background(), now)
	require.Error(t, err)
	assertPublished(t)

	// A rerun sets the confidence counts instead of adding to them.
	_, err = good.Run(context.Background(), now)
	require.NoError(t, err)
	assertPublished(t)
}

func TestRun_UnknownRateClearsKnownFlag(t *testing.T) {
	eng := engine.New(source.Static{}, engine.Options{Horizon: 2}, nil)

	_, err := eng.Run(context.Background(), time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ForecastExpectedSuccessRateKnown))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ForecastPredictedVolume))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ForecastPointsByConfidence.WithLabelValues("none")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ForecastPointsByConfidence.WithLabelValues("high")))
}
