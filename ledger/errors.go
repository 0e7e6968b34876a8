/*
errors.go - Centralized error types for the reporting engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The api package maps these onto HTTP status codes.

ERROR CATEGORIES:
  1. Request errors - bad filters, tokens, ranges (client's fault)
  2. Lookup errors  - unknown report names, missing students
  3. Store errors   - the data source is unreachable

NOTE ON EMPTY RESULTS:
  An empty result set is NOT an error anywhere in this engine. Every
  aggregation is total and reduces empty input to zero values; reports over
  empty periods are valid zero-valued bundles.
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidFilter is returned when a filter carries an enum value
	// outside its allowed set. The request is rejected, not retried.
	ErrInvalidFilter = errors.New("invalid filter value")

	// ErrInvalidPeriodToken is returned for an unrecognized period token.
	ErrInvalidPeriodToken = errors.New("invalid period token")

	// ErrInvalidDateRange is returned when "custom" is requested without
	// both explicit bounds. An inverted range (from > to) is deliberately
	// NOT this error; see ResolvePeriod.
	ErrInvalidDateRange = errors.New("custom period requires explicit from and to dates")

	// ErrUnknownReport is returned for a report name the assembler
	// does not recognize.
	ErrUnknownReport = errors.New("unknown report")

	// ErrUnsupportedFormat is returned for an export format other than
	// csv or json.
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrStudentNotFound is returned when a statement is requested for a
	// student with no invoices and no payments on record.
	ErrStudentNotFound = errors.New("student not found")

	// ErrStoreUnavailable is returned by Reader implementations when the
	// underlying data source cannot be reached. The engine itself never
	// retries; retry policy belongs to the store client.
	ErrStoreUnavailable = errors.New("data store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FilterError reports which filter field carried which bad value.
type FilterError struct {
	Field string
	Value string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid filter: %s=%q not in allowed set", e.Field, e.Value)
}

func (e *FilterError) Unwrap() error { return ErrInvalidFilter }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidFilter) ||
		errors.Is(err, ErrInvalidPeriodToken) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrUnsupportedFormat)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownReport) ||
		errors.Is(err, ErrStudentNotFound)
}
