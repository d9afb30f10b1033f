/*
errors.go - Centralized error types for the funding engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify failures with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Configuration errors - a rate schedule field a formula needs is missing,
     or the band table is malformed. Fatal to the record, never defaulted.
  2. Input-shape errors - a licence detail is malformed (missing space count,
     inverted operating hours). Fatal to the record, collected into the
     result, other records keep going.
  3. Lookup errors - repository misses.

  "No applicable band" is NOT an error: it yields zero staffing for the record.

SEE ALSO:
  - result.go: How record errors end up in a FundingResult
  - engine.go: Per-record error collection
*/
package funding

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingRateField is returned when a rate schedule field needed by a
	// formula is null.
	ErrMissingRateField = errors.New("missing rate schedule field")

	// ErrInvalidBandTable is returned when the group-size band table for a
	// licence type is not ordered or has inverted ranges.
	ErrInvalidBandTable = errors.New("invalid group-size band table")

	// ErrInvalidInput is returned when a licence detail fails shape validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrZeroAvailableHours is returned when the annual available hours per
	// FTE work out to zero or less.
	ErrZeroAvailableHours = errors.New("annual available hours per FTE must be positive")

	// ErrNoLicenceDetails is returned when an application carries no
	// licence details at all.
	ErrNoLicenceDetails = errors.New("no licence details supplied")

	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigError names the rate schedule or band table field that made a
// formula impossible to evaluate.
type ConfigError struct {
	Field string
	Err   error // ErrMissingRateField or ErrInvalidBandTable
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// InputError describes a malformed licence detail.
type InputError struct {
	LicenceDetailID LicenceDetailID
	Field           string
	Reason          string
}

func (e *InputError) Error() string {
	if e.LicenceDetailID == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("licence detail %s: %s: %s", e.LicenceDetailID, e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// RecordError ties a failure to the licence detail it rejected.
type RecordError struct {
	LicenceDetailID LicenceDetailID
	Err             error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s rejected: %v", e.LicenceDetailID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigError returns true if err stems from the rate schedule or band table.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce) ||
		errors.Is(err, ErrMissingRateField) ||
		errors.Is(err, ErrInvalidBandTable)
}

// IsInputError returns true if err stems from malformed caller input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNoLicenceDetails) ||
		errors.Is(err, ErrZeroAvailableHours)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
