package formatter

import (
	"call-forecast/models"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
)

const timeLayout = "2006-01-02 15:04"

// BucketData is the diagnostic view of one historical bucket.
type BucketData struct {
	Slot          string          `json:"slot"`
	Total         int             `json:"total"`
	Answered      int             `json:"answered"`
	SuccessRate   float64         `json:"success_rate"`
	WeeklyVolume  float64         `json:"weekly_volume"`
	WeeksObserved []models.WeekID `json:"weeks_observed"`
}

// PrepareBuckets flattens a bucket map into display order.
func PrepareBuckets(hist models.HistoricalMap) []BucketData {
	keys := hist.Keys()
	out := make([]BucketData, 0, len(keys))
	for _, k := range keys {
		b := hist[k]
		out = append(out, BucketData{
			Slot:          k.String(),
			Total:         b.Total,
			Answered:      b.Answered,
			SuccessRate:   b.SuccessRate(),
			WeeklyVolume:  b.WeeklyVolume(),
			WeeksObserved: b.SortedWeeks(),
		})
	}
	return out
}

// FormatText returns the text representation of the forecast
func FormatText(f *models.Forecast) string {
	var sb strings.Builder

	for _, p := range f.Points {
		sb.WriteString(formatTextLine(p))
		sb.WriteString("\n")
	}

	s := f.Summary
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Summary: hours=%d, volume=%.2f, success=%s, without_history=%d\n",
		s.Hours, s.TotalVolume, formatRate(s.ExpectedSuccessRate), s.HoursWithoutHistory))
	if s.PeakTime != nil {
		sb.WriteString(fmt.Sprintf("Peak: %s (%.2f calls)\n", s.PeakTime.Format(timeLayout), s.PeakVolume))
	}
	if f.Stats.Skipped > 0 {
		sb.WriteString(fmt.Sprintf("  ⚠️  SKIPPED RECORDS: %d of %d had unparseable timestamps\n",
			f.Stats.Skipped, f.Stats.Seen))
	}

	return sb.String()
}

// FormatJSON returns the JSON representation of the forecast
func FormatJSON(f *models.Forecast) string {
	payload := struct {
		*models.Forecast
		Buckets []BucketData `json:"buckets,omitempty"`
	}{
		Forecast: f,
		Buckets:  PrepareBuckets(f.Buckets),
	}
	jsonBytes, _ := json.MarshalIndent(payload, "", "  ")
	return string(jsonBytes)
}

// FormatCSV returns the CSV representation of the forecast
func FormatCSV(f *models.Forecast) string {
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	// Write header
	writer.Write([]string{
		"Time", "Slot", "Predicted Volume", "Predicted Success Rate", "Confidence", "Weeks Observed",
	})

	for _, p := range f.Points {
		rate := ""
		if p.PredictedSuccessRate != nil {
			rate = fmt.Sprintf("%.4f", *p.PredictedSuccessRate)
		}
		writer.Write([]string{
			p.Time.Format(timeLayout),
			p.Slot,
			fmt.Sprintf("%.2f", p.PredictedVolume),
			rate,
			string(p.Confidence),
			fmt.Sprintf("%d", p.WeeksObserved),
		})
	}

	writer.Flush()
	return sb.String()
}

// FormatBuckets returns the text representation of the bucket map
func FormatBuckets(hist models.HistoricalMap) string {
	buckets := PrepareBuckets(hist)
	if len(buckets) == 0 {
		return "no history\n"
	}

	var sb strings.Builder
	for _, b := range buckets {
		weeks := make([]string, len(b.WeeksObserved))
		for i, w := range b.WeeksObserved {
			weeks[i] = string(w)
		}
		sb.WriteString(fmt.Sprintf("%-7s : total=%d, answered=%d, success=%.1f%%, weekly=%.2f ; [%s]\n",
			b.Slot, b.Total, b.Answered, b.SuccessRate*100, b.WeeklyVolume, strings.Join(weeks, ", ")))
	}
	return sb.String()
}

// formatTextLine formats a single forecast hour for text output
func formatTextLine(p models.ForecastPoint) string {
	if p.PredictedSuccessRate == nil {
		return fmt.Sprintf("%s %s : volume=0.00 ; success=n/a ; confidence=%s",
			p.Time.Format(timeLayout), p.Time.Format("Mon"), p.Confidence)
	}
	return fmt.Sprintf("%s %s : volume=%.2f ; success=%s ; confidence=%s (%d weeks)",
		p.Time.Format(timeLayout), p.Time.Format("Mon"), p.PredictedVolume,
		formatRate(p.PredictedSuccessRate), p.Confidence, p.WeeksObserved)
}

func formatRate(rate *float64) string {
	if rate == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *rate*100)
}
