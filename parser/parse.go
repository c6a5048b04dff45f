package parser

import (
	"call-forecast/errors"
	"call-forecast/metrics"
	"call-forecast/models"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// Default column names of a call-log export.
const (
	DefaultDateTimeColumn = "Date Time"
	DefaultStatusColumn   = "Call Status"
)

// Columns names the header columns holding the fields the engine reads.
type Columns struct {
	DateTime string
	Status   string
}

// DefaultColumns returns the column names of a standard call-log export.
func DefaultColumns() Columns {
	return Columns{DateTime: DefaultDateTimeColumn, Status: DefaultStatusColumn}
}

// Parse reads a call-log CSV and returns one RawRecord per data row.
// Lines starting with '#' are comments. The first other line is the header;
// column names are matched case-insensitively after trimming. The datetime
// column is required, the status column is optional. Rows shorter than the
// header yield empty fields rather than errors: a record with a bad timestamp
// is dropped later by the aggregator, not here.
func Parse(r io.Reader, columns Columns) ([]models.RawRecord, error) {
	start := time.Now()
	defer func() {
		metrics.ParserDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	if columns.DateTime == "" {
		columns.DateTime = DefaultDateTimeColumn
	}
	if columns.Status == "" {
		columns.Status = DefaultStatusColumn
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var data []models.RawRecord
	dateIdx, statusIdx := -1, -1
	headerSeen := false
	lineNum := 0

	for {
		record, err := reader.Read()
		lineNum++
		if err == io.EOF {
			break
		}
		if err != nil {
			metrics.ParserErrorsTotal.WithLabelValues("csv").Inc()
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}

		// Handle comments
		if len(record) > 0 && strings.HasPrefix(strings.TrimSpace(record[0]), "#") {
			continue
		}

		if !headerSeen {
			dateIdx = columnIndex(record, columns.DateTime)
			statusIdx = columnIndex(record, columns.Status)
			if dateIdx < 0 {
				metrics.ParserErrorsTotal.WithLabelValues("missing_column").Inc()
				return nil, &errors.ParseError{
					Line:   lineNum,
					Record: record,
					Err:    fmt.Errorf("%w: %q", errors.ErrMissingColumn, columns.DateTime),
				}
			}
			headerSeen = true
			continue
		}

		data = append(data, models.RawRecord{
			DateTime: field(record, dateIdx),
			Status:   field(record, statusIdx),
		})
	}

	metrics.ParserRecordsTotal.Add(float64(len(data)))
	return data, nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		// Excel exports prefix the first header cell with a byte order mark.
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if strings.EqualFold(h, strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
