package errors

import "fmt"

// ParseError wraps a structural CSV error with the line it occurred on.
type ParseError struct {
	Line   int
	Record []string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %v (record: %v)", e.Line, e.Err, e.Record)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Sentinel errors shared across packages. Callers match them with errors.Is.
var (
	ErrEmptyTimestamp       = fmt.Errorf("empty timestamp")
	ErrUnparseableTimestamp = fmt.Errorf("unparseable timestamp")
	ErrNegativeHorizon      = fmt.Errorf("negative forecast horizon")
	ErrMissingColumn        = fmt.Errorf("missing column")
	ErrFetchFailed          = fmt.Errorf("fetch records failed")
	ErrUnknownDriver        = fmt.Errorf("unknown source driver")
	ErrInvalidConfig        = fmt.Errorf("invalid config")
)
