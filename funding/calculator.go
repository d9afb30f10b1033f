/*
calculator.go - FTE & Cost Calculator

PURPOSE:
  Turns one licence detail plus its allocated bands into a cost breakdown.
  Every intermediate quantity is kept on RecordCost so that a reviewer can
  redo the arithmetic by hand from the trail.

FORMULA CHAIN:
   1. AnnualStandardHours        = hoursPerDay × daysPerWeek × weeks
   2. AnnualAvailableHoursPerFTE = expected − (PD + vacation + sick + statutory)
   3. AnnualHoursFTERatio        = max(standard / available, 0.5)
   4. RawFTE[role]               = Σ band.MinFTE[role], once per occurrence
   5. AdjustedFTE[role]          = RawFTE[role] × ratio
   6. CostPerRole[role]          = AdjustedFTE[role] × wage[role]
   7. SupervisorCostPerYear      = ratio_s × distinct bands × differential × standard hours
   8. StaffingCost               = Σ CostPerRole × expected × (1 + markup) + supervisors
   9. Benefits                   = StaffingCost × benefit load
  10. QualityEnhancement         = (StaffingCost + Benefits) × QE factor
  11. HRRenumeration             = StaffingCost + Benefits + QualityEnhancement
  12. PD expenses / dues         = per-FTE amounts × TotalAdjustedFTE
  13. ParentFees                 = min(perDay × days × weeks, perMonth × 12) × spaces

FAILURES:
  - Malformed licence detail      → *InputError (ErrInvalidInput)
  - Null rate schedule field      → joined *ConfigError (ErrMissingRateField)
  - Available hours <= 0          → ErrZeroAvailableHours, never clamped

SEE ALSO:
  - allocator.go: Produces the Allocation consumed here
  - amounts.go: Rolls RecordCost values into FundingAmounts
*/
package funding

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinimumFTERatio is the policy floor for AnnualHoursFTERatio.
var MinimumFTERatio = decimal.RequireFromString("0.5")

// ParentFeeBasis names the billing convention chosen by the min() rule.
type ParentFeeBasis string

const (
	ParentFeePerDay   ParentFeeBasis = "per_day"
	ParentFeePerMonth ParentFeeBasis = "per_month"
)

// =============================================================================
// RECORD COST - Per licence detail breakdown
// =============================================================================

// RecordCost is the full derivation for one licence detail.
type RecordCost struct {
	LicenceDetailID LicenceDetailID
	LicenceType     string
	CareType        CareType
	Spaces          int
	Mode            AllocationMode
	Bands           []BandID

	// Hours
	AnnualStandardHours        decimal.Decimal
	AnnualAvailableHoursPerFTE decimal.Decimal
	AnnualHoursFTERatio        decimal.Decimal

	// Staffing
	RawFTE           RoleValues
	TotalRawFTE      decimal.Decimal
	AdjustedFTE      RoleValues
	TotalAdjustedFTE decimal.Decimal

	// Wages
	CostPerRole           RoleValues
	TotalFTECostPerHour   decimal.Decimal
	RequiredSupervisors   decimal.Decimal
	SupervisorCostPerYear decimal.Decimal
	StaffingCost          decimal.Decimal

	BenefitsCostPerYear    decimal.Decimal
	QualityEnhancementCost decimal.Decimal
	HRRenumeration         decimal.Decimal

	// Professional development
	ProfessionalDevelopmentHoursCost decimal.Decimal
	ProfessionalDevelopmentExpenses  decimal.Decimal
	ProfessionalDues                 decimal.Decimal

	// Parent fees
	ParentFeeBasis           ParentFeeBasis
	AnnualParentFeesPerSpace decimal.Decimal
	ParentFees               decimal.Decimal
}

// =============================================================================
// CALCULATION
// =============================================================================

// CalculateRecord evaluates the formula chain for one licence detail.
//
// The allocation must come from BandAllocator.Allocate over the bands of the
// detail's licence type. The schedule is read, never modified.
func CalculateRecord(detail LicenceDetail, alloc Allocation, schedule RateSchedule) (RecordCost, error) {
	if err := detail.Validate(); err != nil {
		return RecordCost{}, err
	}
	r, err := schedule.resolve(detail.CareType)
	if err != nil {
		return RecordCost{}, err
	}

	rc := RecordCost{
		LicenceDetailID: detail.ID,
		LicenceType:     detail.LicenceTypeCode,
		CareType:        detail.CareType,
		Spaces:          detail.Spaces(),
		Mode:            alloc.Mode,
		Bands:           alloc.BandIDs(),
	}

	days := decimal.NewFromInt(int64(detail.DaysPerWeek()))
	weeks := decimal.NewFromInt(int64(detail.WeeksInOperation))

	// 1-3. Hours and the FTE ratio
	rc.AnnualStandardHours = detail.HoursPerDay().Mul(days).Mul(weeks)
	rc.AnnualAvailableHoursPerFTE = r.expectedAnnualHours.
		Sub(r.pdHours.Add(r.vacationHours).Add(r.sickHours).Add(r.statutoryHours))
	if !rc.AnnualAvailableHoursPerFTE.IsPositive() {
		return RecordCost{}, fmt.Errorf("licence detail %s: %w (got %s)",
			detail.ID, ErrZeroAvailableHours, rc.AnnualAvailableHoursPerFTE)
	}
	rc.AnnualHoursFTERatio = decimal.Max(
		rc.AnnualStandardHours.Div(rc.AnnualAvailableHoursPerFTE),
		MinimumFTERatio,
	)

	// 4-5. FTE per role
	for _, b := range alloc.Bands {
		rc.RawFTE = rc.RawFTE.Add(b.MinFTE)
	}
	rc.TotalRawFTE = rc.RawFTE.Total()
	rc.AdjustedFTE = rc.RawFTE.Mul(rc.AnnualHoursFTERatio)
	rc.TotalAdjustedFTE = rc.TotalRawFTE.Mul(rc.AnnualHoursFTERatio)

	// 6. Hourly cost
	rc.CostPerRole = RoleValues{
		ITE:  rc.AdjustedFTE.ITE.Mul(r.wages.ITE),
		ECE:  rc.AdjustedFTE.ECE.Mul(r.wages.ECE),
		ECEA: rc.AdjustedFTE.ECEA.Mul(r.wages.ECEA),
		RA:   rc.AdjustedFTE.RA.Mul(r.wages.RA),
	}
	rc.TotalFTECostPerHour = rc.CostPerRole.Total()

	// 7. Supervisors scale with hours actually operated
	distinct := decimal.NewFromInt(int64(alloc.DistinctBands()))
	rc.RequiredSupervisors = r.supervisorRatio.Mul(distinct)
	rc.SupervisorCostPerYear = rc.RequiredSupervisors.Mul(r.supervisorDiff).Mul(rc.AnnualStandardHours)

	// 8-11. Remuneration
	markup := decimal.NewFromInt(1).Add(r.wageGridMarkup)
	rc.StaffingCost = rc.TotalFTECostPerHour.Mul(r.expectedAnnualHours).Mul(markup).
		Add(rc.SupervisorCostPerYear)
	rc.BenefitsCostPerYear = rc.StaffingCost.Mul(r.benefitLoad)
	rc.QualityEnhancementCost = rc.StaffingCost.Add(rc.BenefitsCostPerYear).Mul(r.qualityEnhancement)
	rc.HRRenumeration = rc.StaffingCost.Add(rc.BenefitsCostPerYear).Add(rc.QualityEnhancementCost)

	// 12. Professional development
	rc.ProfessionalDevelopmentHoursCost = rc.TotalFTECostPerHour.Mul(r.pdHours).Mul(markup)
	rc.ProfessionalDevelopmentExpenses = r.pdExpensePerFTE.Mul(rc.TotalAdjustedFTE)
	rc.ProfessionalDues = r.duesPerFTE.Mul(rc.TotalAdjustedFTE)

	// 13. Parent fees
	rc.ParentFeeBasis, rc.AnnualParentFeesPerSpace = annualParentFee(r.feePerDay, r.feePerMonth, days, weeks)
	rc.ParentFees = rc.AnnualParentFeesPerSpace.Mul(decimal.NewFromInt(int64(rc.Spaces)))

	return rc, nil
}

// annualParentFee picks the cheaper of the two billing conventions for
// parents. A tie goes to the per-month figure.
func annualParentFee(perDay, perMonth, days, weeks decimal.Decimal) (ParentFeeBasis, decimal.Decimal) {
	byDay := perDay.Mul(days).Mul(weeks)
	byMonth := perMonth.Mul(decimal.NewFromInt(12))
	if byDay.LessThan(byMonth) {
		return ParentFeePerDay, byDay
	}
	return ParentFeePerMonth, byMonth
}
