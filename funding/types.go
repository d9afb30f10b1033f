/*
Package funding provides the facility funding and staffing calculation engine.

PURPOSE:
  Given a facility's licensed space inventory, its operating-hours profile and
  a versioned rate schedule, the engine computes required staffing (FTEs by
  role), staffing cost, benefits, professional development and parent-fee
  offsets, and rolls them into the funding envelope amounts used to approve a
  facility's operating subsidy.

PIPELINE:
  RateSchedule + GroupSizeBand table      (inputs, never mutated)
        │
        ▼
  BandAllocator     licence detail → applicable bands (greedy or split-room)
        │
        ▼
  Calculator        bands + hours → FTE, wages, benefits, PD, parent fees
        │
        ▼
  Aggregator        per-record costs → FundingAmounts (Projected / PF / Base)
        │
        ▼
  FundingResult     AutoApproved | InvalidData, with errors and trail

KEY CONCEPTS IN THIS FILE (types.go):
  - Role: closed set of staffing roles (ITE, ECE, ECEA, RA)
  - CareType: full-time or part-time schedule, selects parent-fee rates
  - LicenceDetail: one operating configuration of a facility
  - SpaceAllocationAdjustment: split-room override for one band

DESIGN PRINCIPLES:
  1. Immutability: inputs are snapshots, outputs are newly built values
  2. Precision: all arithmetic uses decimal.Decimal, never float64
  3. Auditability: every run produces a reconstructable decision trail

SEE ALSO:
  - rates.go: RateSchedule and its required-field checks
  - bands.go: GroupSizeBand table and licence-type filtering
  - allocator.go: Band Allocator
  - calculator.go: FTE & Cost Calculator
  - amounts.go: Funding Amounts Aggregator
  - result.go: Funding Decision Wrapper
*/
package funding

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ApplicationID string
type FacilityID string
type LicenceDetailID string
type BandID string
type RateScheduleID string

// =============================================================================
// STAFFING ROLES
// =============================================================================

// Role is a staffing role category.
type Role string

const (
	RoleITE  Role = "ite"  // Infant-toddler educator
	RoleECE  Role = "ece"  // Early-childhood educator
	RoleECEA Role = "ecea" // Early-childhood-educator assistant
	RoleRA   Role = "ra"   // Responsible adult
)

// Roles lists every role in reporting order.
var Roles = []Role{RoleITE, RoleECE, RoleECEA, RoleRA}

// RoleValues holds one decimal per role. Used for minimum FTE, raw and
// adjusted FTE and per-role cost.
type RoleValues struct {
	ITE  decimal.Decimal `json:"ite"`
	ECE  decimal.Decimal `json:"ece"`
	ECEA decimal.Decimal `json:"ecea"`
	RA   decimal.Decimal `json:"ra"`
}

// Get returns the value for a role. Unknown roles yield zero.
func (v RoleValues) Get(r Role) decimal.Decimal {
	switch r {
	case RoleITE:
		return v.ITE
	case RoleECE:
		return v.ECE
	case RoleECEA:
		return v.ECEA
	case RoleRA:
		return v.RA
	default:
		return decimal.Zero
	}
}

// Add returns the role-wise sum.
func (v RoleValues) Add(o RoleValues) RoleValues {
	return RoleValues{
		ITE:  v.ITE.Add(o.ITE),
		ECE:  v.ECE.Add(o.ECE),
		ECEA: v.ECEA.Add(o.ECEA),
		RA:   v.RA.Add(o.RA),
	}
}

// Mul scales every role by s.
func (v RoleValues) Mul(s decimal.Decimal) RoleValues {
	return RoleValues{
		ITE:  v.ITE.Mul(s),
		ECE:  v.ECE.Mul(s),
		ECEA: v.ECEA.Mul(s),
		RA:   v.RA.Mul(s),
	}
}

// Total sums all roles.
func (v RoleValues) Total() decimal.Decimal {
	return v.ITE.Add(v.ECE).Add(v.ECEA).Add(v.RA)
}

// =============================================================================
// CARE TYPE
// =============================================================================

// CareType selects which parent-fee rates apply to a licence detail.
type CareType string

const (
	CareFullTime CareType = "full_time"
	CarePartTime CareType = "part_time"
)

// Valid reports whether c is a known care type.
func (c CareType) Valid() bool {
	return c == CareFullTime || c == CarePartTime
}

// =============================================================================
// LICENCE DETAIL - One operating configuration of a facility
// =============================================================================

// LicenceDetail is one row per licence type × care type × seasonal schedule.
//
// Operating hours are expressed in hours since midnight so that 07:30 is 7.5;
// fractional hours are kept exactly.
type LicenceDetail struct {
	ID               LicenceDetailID
	LicenceTypeCode  string
	CareType         CareType
	HoursFrom        decimal.Decimal
	HoursTo          decimal.Decimal
	OperatingDays    []time.Weekday
	WeeksInOperation int

	// OperationalSpaces is nil when the source record did not carry a count.
	OperationalSpaces *int
}

// HoursPerDay returns HoursTo - HoursFrom.
func (d LicenceDetail) HoursPerDay() decimal.Decimal {
	return d.HoursTo.Sub(d.HoursFrom)
}

// DaysPerWeek counts distinct operating weekdays.
func (d LicenceDetail) DaysPerWeek() int {
	seen := make(map[time.Weekday]bool, len(d.OperatingDays))
	for _, day := range d.OperatingDays {
		seen[day] = true
	}
	return len(seen)
}

// Spaces returns the operational space count, or 0 when missing.
func (d LicenceDetail) Spaces() int {
	if d.OperationalSpaces == nil {
		return 0
	}
	return *d.OperationalSpaces
}

// Validate checks the record's shape. Every violation is returned as an
// *InputError.
func (d LicenceDetail) Validate() error {
	switch {
	case d.OperationalSpaces == nil:
		return &InputError{LicenceDetailID: d.ID, Field: "operational_spaces", Reason: "missing"}
	case *d.OperationalSpaces < 0:
		return &InputError{LicenceDetailID: d.ID, Field: "operational_spaces", Reason: "must not be negative"}
	case !d.HoursTo.GreaterThan(d.HoursFrom):
		return &InputError{LicenceDetailID: d.ID, Field: "hours", Reason: "hours_to must be after hours_from"}
	case d.HoursFrom.IsNegative() || d.HoursTo.GreaterThan(decimal.NewFromInt(24)):
		return &InputError{LicenceDetailID: d.ID, Field: "hours", Reason: "outside 00:00-24:00"}
	case d.LicenceTypeCode == "":
		return &InputError{LicenceDetailID: d.ID, Field: "licence_type", Reason: "missing"}
	case !d.CareType.Valid():
		return &InputError{LicenceDetailID: d.ID, Field: "care_type", Reason: "unknown care type " + string(d.CareType)}
	case len(d.OperatingDays) == 0:
		return &InputError{LicenceDetailID: d.ID, Field: "operating_days", Reason: "missing"}
	case d.WeeksInOperation < 1 || d.WeeksInOperation > 53:
		return &InputError{LicenceDetailID: d.ID, Field: "weeks_in_operation", Reason: "must be between 1 and 53"}
	}
	return nil
}

// =============================================================================
// SPACE ALLOCATION ADJUSTMENT - Split-room override
// =============================================================================

// SpaceAllocationAdjustment overrides the greedy allocation for one band of
// one licence detail. The presence of any adjustment for a licence detail
// switches that record to split-room mode.
type SpaceAllocationAdjustment struct {
	LicenceDetailID LicenceDetailID
	BandID          BandID
	AdjustedCount   int
}

// =============================================================================
// NON-HR PROJECTIONS
// =============================================================================

// NonHRProjections are projected envelope amounts entered outside the
// staffing math. They pass through the aggregator unchanged.
type NonHRProjections struct {
	Programming    decimal.Decimal
	Administrative decimal.Decimal
	Operational    decimal.Decimal
	Facility       decimal.Decimal
}

// Validate rejects negative projections.
func (p NonHRProjections) Validate() error {
	for _, f := range []struct {
		name string
		v    decimal.Decimal
	}{
		{"programming", p.Programming},
		{"administrative", p.Administrative},
		{"operational", p.Operational},
		{"facility", p.Facility},
	} {
		if f.v.IsNegative() {
			return &InputError{Field: "non_hr." + f.name, Reason: "must not be negative"}
		}
	}
	return nil
}

// =============================================================================
// INPUT - Everything one calculation run needs
// =============================================================================

// Input is the already-materialized snapshot for one facility application.
type Input struct {
	ApplicationID  ApplicationID
	FacilityID     FacilityID
	RateSchedule   RateSchedule
	Bands          BandTable
	LicenceDetails []LicenceDetail
	Adjustments    []SpaceAllocationAdjustment
	NonHR          NonHRProjections
}

// adjustmentsByDetail groups adjustments by licence detail, preserving
// the last count given for a repeated (detail, band) pair.
func (in Input) adjustmentsByDetail() map[LicenceDetailID]map[BandID]int {
	out := make(map[LicenceDetailID]map[BandID]int)
	for _, a := range in.Adjustments {
		m, ok := out[a.LicenceDetailID]
		if !ok {
			m = make(map[BandID]int)
			out[a.LicenceDetailID] = m
		}
		m[a.BandID] = a.AdjustedCount
	}
	return out
}
