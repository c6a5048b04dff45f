package forecast

import (
	"call-forecast/errors"
	"call-forecast/models"
	"fmt"
	"time"
)

// Generate projects hours consecutive hourly points starting at the top of
// the hour containing start. Each point reads the bucket of its weekday/hour
// slot; slots without history predict zero volume and no success rate.
// The result depends only on its arguments.
func Generate(hist models.HistoricalMap, start time.Time, hours int) ([]models.ForecastPoint, error) {
	if hours < 0 {
		return nil, fmt.Errorf("%w: %d", errors.ErrNegativeHorizon, hours)
	}

	points := make([]models.ForecastPoint, 0, hours)
	t := TopOfHour(start)
	for i := 0; i < hours; i++ {
		points = append(points, pointFor(hist, t))
		// Elapsed hours, not wall clock, so DST transitions stay one hour apart.
		t = t.Add(time.Hour)
	}
	return points, nil
}

// TopOfHour floors t to the start of its hour in t's own location.
func TopOfHour(t time.Time) time.Time {
	return t.Add(-time.Duration(t.Minute())*time.Minute -
		time.Duration(t.Second())*time.Second -
		time.Duration(t.Nanosecond()))
}

func pointFor(hist models.HistoricalMap, t time.Time) models.ForecastPoint {
	key := models.KeyFor(t)
	point := models.ForecastPoint{
		Time:       t,
		Key:        key,
		Slot:       key.String(),
		Confidence: models.ConfidenceNone,
	}

	bucket, ok := hist[key]
	if !ok || bucket.Total == 0 {
		return point
	}

	rate := bucket.SuccessRate()
	point.PredictedVolume = bucket.WeeklyVolume()
	point.PredictedSuccessRate = &rate
	point.WeeksObserved = bucket.Weeks()
	point.Confidence = models.ConfidenceFor(bucket.Weeks())
	return point
}

// Summarize reduces points to the figures shown on the dashboard cards.
// The peak is the earliest hour with the highest volume. The expected success
// rate is weighted by predicted volume over hours that have a rate, and is nil
// when none do.
func Summarize(points []models.ForecastPoint) models.ForecastSummary {
	summary := models.ForecastSummary{Hours: len(points)}

	var weightedRate, rateVolume float64
	for i := range points {
		p := &points[i]
		summary.TotalVolume += p.PredictedVolume

		if p.PredictedSuccessRate == nil {
			summary.HoursWithoutHistory++
			continue
		}
		weightedRate += *p.PredictedSuccessRate * p.PredictedVolume
		rateVolume += p.PredictedVolume

		if summary.PeakTime == nil || p.PredictedVolume > summary.PeakVolume {
			peak := p.Time
			summary.PeakTime = &peak
			summary.PeakVolume = p.PredictedVolume
		}
	}

	if rateVolume > 0 {
		rate := weightedRate / rateVolume
		summary.ExpectedSuccessRate = &rate
	}
	return summary
}
