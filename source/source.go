// Package source provides the record sources the forecast engine reads from.
// The engine depends only on RecordSource; backends and their credentials
// stay with the caller.
package source

import (
	"call-forecast/config"
	"call-forecast/errors"
	"call-forecast/models"
	"call-forecast/parser"
	"context"
	"fmt"
	"os"
)

// RecordSource delivers a snapshot of raw call records.
type RecordSource interface {
	Fetch(ctx context.Context) ([]models.RawRecord, error)
}

// Static serves a fixed slice of records.
type Static []models.RawRecord

// Fetch returns a copy of the records so callers cannot mutate the source.
func (s Static) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.RawRecord, len(s))
	copy(out, s)
	return out, nil
}

// CSVSource reads records from a call-log CSV file on every fetch.
type CSVSource struct {
	Path    string
	Columns parser.Columns
}

func (s *CSVSource) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	return parser.Parse(file, s.Columns)
}

// FromConfig builds the source selected by cfg. The returned close function
// releases any underlying connection and is never nil.
func FromConfig(ctx context.Context, cfg config.SourceConfig) (RecordSource, func() error, error) {
	noop := func() error { return nil }
	columns := parser.Columns{DateTime: cfg.DateTimeColumn, Status: cfg.StatusColumn}

	switch cfg.Driver {
	case "", "csv":
		return &CSVSource{Path: cfg.Path, Columns: columns}, noop, nil
	case DriverSQLite, DriverPostgres:
		db, err := OpenSQL(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, noop, err
		}
		return NewSQLSource(db, cfg.Table, columns), db.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: %q", errors.ErrUnknownDriver, cfg.Driver)
	}
}
