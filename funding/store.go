/*
store.go - Persistence interfaces for schedules, applications and runs

PURPOSE:
  Defines the boundary between the engine and storage. The engine itself
  never touches a store: callers load a rate schedule and an application,
  build an Input, run the Engine and save the resulting run.

KEY INTERFACES:
  RateScheduleStore: Versioned rate schedules with their band tables
  ApplicationStore:  Materialized application snapshots
  RunStore:          Calculation runs (append-only audit)
  Repository:        All of the above plus Reset

APPEND-ONLY RUNS:
  A run is written once and never updated. Saving a run whose ID already
  exists fails with ErrDuplicateRun. Recalculating an application appends a
  new run.

IMPLEMENTATIONS:
  - funding/store/memory.go: In-memory for testing/dev
  - store/sqlite/sqlite.go: SQLite with embedded migrations
*/
package funding

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrDuplicateRun is returned when a run ID is saved twice.
var ErrDuplicateRun = errors.New("calculation run already recorded")

// =============================================================================
// STORED RECORDS
// =============================================================================

// StoredRateSchedule is a rate schedule with the band table that belongs
// to it.
type StoredRateSchedule struct {
	RateSchedule
	Bands     BandTable
	CreatedAt time.Time
}

// Application is a facility's funding application as materialized from the
// remote record store.
type Application struct {
	ID             ApplicationID
	FacilityID     FacilityID
	FacilityName   string
	RateScheduleID RateScheduleID
	LicenceDetails []LicenceDetail
	Adjustments    []SpaceAllocationAdjustment
	NonHR          NonHRProjections
	CreatedAt      time.Time
}

// Input combines the application with its rate schedule.
func (a Application) Input(schedule StoredRateSchedule) Input {
	return Input{
		ApplicationID:  a.ID,
		FacilityID:     a.FacilityID,
		RateSchedule:   schedule.RateSchedule,
		Bands:          schedule.Bands,
		LicenceDetails: a.LicenceDetails,
		Adjustments:    a.Adjustments,
		NonHR:          a.NonHR,
	}
}

// RunRecord is the persisted form of a FundingResult. Errors are kept as
// their messages.
type RunRecord struct {
	RunMeta
	Decision    Decision
	Amounts     FundingAmounts
	Errors      []string
	Trail       []TrailEntry
	CompletedAt time.Time
}

// GrandTotal is shorthand for Amounts.GrandTotal.Projected.
func (r RunRecord) GrandTotal() decimal.Decimal {
	return r.Amounts.GrandTotal.Projected
}

// NewRunRecord captures a result for storage.
func NewRunRecord(res *FundingResult) RunRecord {
	return RunRecord{
		RunMeta:     res.RunMeta,
		Decision:    res.Decision,
		Amounts:     res.Amounts,
		Errors:      res.ErrorMessages(),
		Trail:       res.Trail,
		CompletedAt: res.CompletedAt,
	}
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// RateScheduleStore persists rate schedules. Saving an existing ID replaces it.
type RateScheduleStore interface {
	SaveRateSchedule(ctx context.Context, rs StoredRateSchedule) error
	// GetRateSchedule returns ErrNotFound when the ID is unknown.
	GetRateSchedule(ctx context.Context, id RateScheduleID) (*StoredRateSchedule, error)
	ListRateSchedules(ctx context.Context) ([]StoredRateSchedule, error)
}

// ApplicationStore persists application snapshots. Saving an existing ID
// replaces it.
type ApplicationStore interface {
	SaveApplication(ctx context.Context, app Application) error
	// GetApplication returns ErrNotFound when the ID is unknown.
	GetApplication(ctx context.Context, id ApplicationID) (*Application, error)
	ListApplications(ctx context.Context) ([]Application, error)
}

// RunStore is the append-only log of calculation runs.
type RunStore interface {
	SaveRun(ctx context.Context, run RunRecord) error
	// ListRuns returns an application's runs, oldest first.
	ListRuns(ctx context.Context, applicationID ApplicationID) ([]RunRecord, error)
}

// Repository is everything the API needs.
type Repository interface {
	RateScheduleStore
	ApplicationStore
	RunStore

	// Reset removes all data. Used by demo scenarios.
	Reset(ctx context.Context) error
}
