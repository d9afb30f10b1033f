package funding

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE SCHEDULE - Versioned, immutable per-period configuration
// =============================================================================

// RateSchedule carries wage rates, percentages and hour constants for one
// funding period. Percentages are fractions: 0.18 means 18%.
//
// Every scalar is a decimal.NullDecimal so that a field the source record did
// not carry stays distinguishable from an explicit zero. A formula that needs
// a null field fails its record with a *ConfigError instead of computing a
// plausible-looking wrong number.
type RateSchedule struct {
	ID            RateScheduleID
	Name          string
	EffectiveFrom time.Time

	HourlyWages WageGrid

	AverageBenefitLoadPct       decimal.NullDecimal
	QualityEnhancementFactorPct decimal.NullDecimal
	WageGridMarkupPct           decimal.NullDecimal

	// Hours per FTE per year
	ExpectedAnnualFTEHours       decimal.NullDecimal
	ProfessionalDevelopmentHours decimal.NullDecimal
	VacationHoursPerFTE          decimal.NullDecimal
	SickHoursPerFTE              decimal.NullDecimal
	StatutoryBreakHours          decimal.NullDecimal

	ProfessionalDevelopmentExpenseCaps []ExpenseCap
	StandardDuesPerFTE                 decimal.NullDecimal

	SupervisorRatio            decimal.NullDecimal
	SupervisorRateDifferential decimal.NullDecimal

	ParentFees ParentFeeSchedule

	// Empty means the facility pays no employer health tax.
	HealthTaxBands []EHTBand
}

// WageGrid is the hourly wage per staffing role.
type WageGrid struct {
	ITE  decimal.NullDecimal
	ECE  decimal.NullDecimal
	ECEA decimal.NullDecimal
	RA   decimal.NullDecimal
}

// Rate returns the hourly wage for a role.
func (g WageGrid) Rate(r Role) decimal.NullDecimal {
	switch r {
	case RoleITE:
		return g.ITE
	case RoleECE:
		return g.ECE
	case RoleECEA:
		return g.ECEA
	case RoleRA:
		return g.RA
	default:
		return decimal.NullDecimal{}
	}
}

// ExpenseCap is a per-FTE professional development expense allowance.
type ExpenseCap struct {
	Name   string
	PerFTE decimal.NullDecimal
}

// ParentFeeRate is the fee charged per space under each billing convention.
type ParentFeeRate struct {
	PerDay   decimal.NullDecimal
	PerMonth decimal.NullDecimal
}

// ParentFeeSchedule holds fee rates per care type.
type ParentFeeSchedule struct {
	FullTime ParentFeeRate
	PartTime ParentFeeRate
}

// For returns the rates for a care type.
func (p ParentFeeSchedule) For(c CareType) ParentFeeRate {
	if c == CarePartTime {
		return p.PartTime
	}
	return p.FullTime
}

// EHTBand is one employer health tax bracket. The highest band whose
// threshold is below the wage base applies.
type EHTBand struct {
	Threshold     decimal.Decimal
	RatePct       decimal.Decimal
	ApplyToExcess bool // tax only the part of the wage base above Threshold
}

// Validate checks every field any care type could need.
func (rs RateSchedule) Validate() error {
	var errs []error
	for _, c := range []CareType{CareFullTime, CarePartTime} {
		if _, err := rs.resolve(c); err != nil {
			errs = append(errs, err)
		}
	}
	if err := validateEHT(rs.HealthTaxBands); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// =============================================================================
// RESOLVED RATES - Null-checked view used by the calculator
// =============================================================================

type rates struct {
	wages               RoleValues
	benefitLoad         decimal.Decimal
	qualityEnhancement  decimal.Decimal
	wageGridMarkup      decimal.Decimal
	expectedAnnualHours decimal.Decimal
	pdHours             decimal.Decimal
	vacationHours       decimal.Decimal
	sickHours           decimal.Decimal
	statutoryHours      decimal.Decimal
	pdExpensePerFTE     decimal.Decimal
	duesPerFTE          decimal.Decimal
	supervisorRatio     decimal.Decimal
	supervisorDiff      decimal.Decimal
	feePerDay           decimal.Decimal
	feePerMonth         decimal.Decimal
}

// resolve pulls every field the formulas need for a record of the given
// care type. All missing fields are reported, not just the first.
func (rs RateSchedule) resolve(care CareType) (rates, error) {
	var f fieldReader

	r := rates{
		wages: RoleValues{
			ITE:  f.get("hourly_wages.ite", rs.HourlyWages.ITE),
			ECE:  f.get("hourly_wages.ece", rs.HourlyWages.ECE),
			ECEA: f.get("hourly_wages.ecea", rs.HourlyWages.ECEA),
			RA:   f.get("hourly_wages.ra", rs.HourlyWages.RA),
		},
		benefitLoad:         f.get("average_benefit_load_pct", rs.AverageBenefitLoadPct),
		qualityEnhancement:  f.get("quality_enhancement_factor_pct", rs.QualityEnhancementFactorPct),
		wageGridMarkup:      f.get("wage_grid_markup_pct", rs.WageGridMarkupPct),
		expectedAnnualHours: f.get("expected_annual_fte_hours", rs.ExpectedAnnualFTEHours),
		pdHours:             f.get("professional_development_hours", rs.ProfessionalDevelopmentHours),
		vacationHours:       f.get("vacation_hours_per_fte", rs.VacationHoursPerFTE),
		sickHours:           f.get("sick_hours_per_fte", rs.SickHoursPerFTE),
		statutoryHours:      f.get("statutory_break_hours", rs.StatutoryBreakHours),
		duesPerFTE:          f.get("standard_dues_per_fte", rs.StandardDuesPerFTE),
		supervisorRatio:     f.get("supervisor_ratio", rs.SupervisorRatio),
		supervisorDiff:      f.get("supervisor_rate_differential", rs.SupervisorRateDifferential),
	}

	r.pdExpensePerFTE = decimal.Zero
	for _, c := range rs.ProfessionalDevelopmentExpenseCaps {
		r.pdExpensePerFTE = r.pdExpensePerFTE.Add(f.get("professional_development_expense_caps."+c.Name, c.PerFTE))
	}

	fees := rs.ParentFees.For(care)
	r.feePerDay = f.get("parent_fees."+string(care)+".per_day", fees.PerDay)
	r.feePerMonth = f.get("parent_fees."+string(care)+".per_month", fees.PerMonth)

	if err := f.err(); err != nil {
		return rates{}, err
	}
	return r, nil
}

type fieldReader struct {
	errs []error
}

func (f *fieldReader) get(name string, v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		f.errs = append(f.errs, &ConfigError{Field: name, Err: ErrMissingRateField})
		return decimal.Zero
	}
	return v.Decimal
}

func (f *fieldReader) err() error {
	return errors.Join(f.errs...)
}

// =============================================================================
// EMPLOYER HEALTH TAX
// =============================================================================

func validateEHT(bands []EHTBand) error {
	for i, b := range bands {
		if b.Threshold.IsNegative() || b.RatePct.IsNegative() ||
			(i > 0 && !b.Threshold.GreaterThan(bands[i-1].Threshold)) {
			return &ConfigError{Field: "employer_health_tax", Err: ErrInvalidBandTable}
		}
	}
	return nil
}

// EmployerHealthTax returns the tax owed on a facility's annual wage base.
// Bands must be listed with strictly ascending thresholds.
func (rs RateSchedule) EmployerHealthTax(wageBase decimal.Decimal) (decimal.Decimal, error) {
	if err := validateEHT(rs.HealthTaxBands); err != nil {
		return decimal.Zero, err
	}

	var applicable *EHTBand
	for i := range rs.HealthTaxBands {
		if wageBase.GreaterThan(rs.HealthTaxBands[i].Threshold) {
			applicable = &rs.HealthTaxBands[i]
		}
	}
	if applicable == nil {
		return decimal.Zero, nil
	}
	if applicable.ApplyToExcess {
		return wageBase.Sub(applicable.Threshold).Mul(applicable.RatePct), nil
	}
	return wageBase.Mul(applicable.RatePct), nil
}
