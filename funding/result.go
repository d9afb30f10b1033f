/*
result.go - Funding Decision Wrapper

PURPOSE:
  Packages one calculation run: the decision, the envelope amounts, the
  per-record breakdowns, the errors collected along the way and the decision
  trail.

DECISIONS:
  AutoApproved       aggregation completed; errors, if any, belong to
                     rejected records and are attached for review
  InvalidData        no record produced a valid calculation, no licence
                     details were supplied, or facility-level configuration
                     failed; amounts are zero
  NeedsManualReview  reserved for downstream review policy
  Error              reserved for downstream review policy

  The engine constructs only the first two. A result is built exactly once,
  through NewFundingResult or NewInvalidDataResult.
*/
package funding

import (
	"time"

	"github.com/google/uuid"
)

// Decision is the terminal classification of a calculation run.
type Decision string

const (
	DecisionAutoApproved      Decision = "AutoApproved"
	DecisionNeedsManualReview Decision = "NeedsManualReview"
	DecisionInvalidData       Decision = "InvalidData"
	DecisionError             Decision = "Error"
)

func (d Decision) String() string {
	return string(d)
}

// Valid reports whether d is one of the four known decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionAutoApproved, DecisionNeedsManualReview, DecisionInvalidData, DecisionError:
		return true
	}
	return false
}

// RunMeta identifies a calculation run and the inputs it was computed from.
type RunMeta struct {
	RunID          uuid.UUID
	ApplicationID  ApplicationID
	FacilityID     FacilityID
	RateScheduleID RateScheduleID
}

// FundingResult is the immutable outcome of one calculation run.
type FundingResult struct {
	RunMeta
	Decision    Decision
	Amounts     FundingAmounts
	Records     []RecordCost
	Errors      []error
	Trail       []TrailEntry
	CompletedAt time.Time
}

// NewFundingResult builds the success-path result.
func NewFundingResult(meta RunMeta, amounts FundingAmounts, records []RecordCost, errs []error, trail []TrailEntry, completedAt time.Time) *FundingResult {
	return &FundingResult{
		RunMeta:     meta,
		Decision:    DecisionAutoApproved,
		Amounts:     amounts,
		Records:     append([]RecordCost(nil), records...),
		Errors:      append([]error(nil), errs...),
		Trail:       append([]TrailEntry(nil), trail...),
		CompletedAt: completedAt,
	}
}

// NewInvalidDataResult builds the invalid-data result with zeroed amounts.
func NewInvalidDataResult(meta RunMeta, errs []error, trail []TrailEntry, completedAt time.Time) *FundingResult {
	return &FundingResult{
		RunMeta:     meta,
		Decision:    DecisionInvalidData,
		Errors:      append([]error(nil), errs...),
		Trail:       append([]TrailEntry(nil), trail...),
		CompletedAt: completedAt,
	}
}

// HasErrors reports whether any record or facility error was collected.
func (r *FundingResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// ErrorMessages renders the error list for transport.
func (r *FundingResult) ErrorMessages() []string {
	out := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		out[i] = err.Error()
	}
	return out
}
