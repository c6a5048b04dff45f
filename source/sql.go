package source

import (
	"call-forecast/errors"
	"call-forecast/models"
	"call-forecast/parser"
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// OpenSQL opens and pings a database for one of the supported drivers.
func OpenSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// SQLSource selects the datetime and status columns of a call-log table.
type SQLSource struct {
	db    *sql.DB
	query string
}

// NewSQLSource builds a source over table. Identifiers are quoted, so column
// names with spaces such as "Date Time" work on both sqlite3 and PostgreSQL.
// A missing status column is not supported here; every table must carry one.
func NewSQLSource(db *sql.DB, table string, columns parser.Columns) *SQLSource {
	if columns.DateTime == "" {
		columns.DateTime = parser.DefaultDateTimeColumn
	}
	if columns.Status == "" {
		columns.Status = parser.DefaultStatusColumn
	}
	query := fmt.Sprintf("SELECT %s, %s FROM %s",
		quoteIdent(columns.DateTime), quoteIdent(columns.Status), quoteIdent(table))
	return &SQLSource{db: db, query: query}
}

// Query returns the SELECT statement the source runs.
func (s *SQLSource) Query() string {
	return s.query
}

// Fetch reads every row. NULL values become empty strings, which the
// aggregator treats as unparseable timestamps or non-success statuses.
func (s *SQLSource) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query call logs: %w", err)
	}
	defer rows.Close()

	var records []models.RawRecord
	for rows.Next() {
		var dateTime, status sql.NullString
		if err := rows.Scan(&dateTime, &status); err != nil {
			return nil, fmt.Errorf("scan call log: %w", err)
		}
		records = append(records, models.RawRecord{
			DateTime: dateTime.String,
			Status:   status.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call logs: %w", err)
	}
	return records, nil
}

// quoteIdent quotes a possibly schema-qualified identifier.
func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}
