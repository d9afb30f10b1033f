/*
Package factory provides JSON to Go conversion for funding inputs.

PURPOSE:
  Converts JSON rate schedules, band tables and application snapshots into
  funding types, and back. Rate schedules change every funding year; keeping
  them as JSON lets program staff publish a new schedule without a release.

NULL VS ZERO:
  Every rate field decodes into a decimal.NullDecimal. A field that is
  absent or null stays null, and a calculation that needs it fails its record
  with a configuration error. An explicit 0 is a real zero. The factory does
  NOT reject incomplete schedules; that is the engine's call, per record.

JSON SCHEMA (rate schedule):
  {
    "id": "rs-2025",
    "name": "Standard Operating Funding",
    "effective_from": "2025-04-01",
    "hourly_wages": {"ite": "28.50", "ece": "26.00", "ecea": "21.00", "ra": "19.00"},
    "average_benefit_load_pct": "0.18",
    "quality_enhancement_factor_pct": "0.085",
    "wage_grid_markup_pct": "0.04",
    "expected_annual_fte_hours": "1957.5",
    "professional_development_hours": "16",
    "vacation_hours_per_fte": "120",
    "sick_hours_per_fte": "37.5",
    "statutory_break_hours": "75",
    "professional_development_expense_caps": [{"name": "tuition", "per_fte": "250"}],
    "standard_dues_per_fte": "60",
    "supervisor_ratio": "0.25",
    "supervisor_rate_differential": "2.50",
    "parent_fees": {
      "full_time": {"per_day": "10", "per_month": "200"},
      "part_time": {"per_day": "7", "per_month": "140"}
    },
    "employer_health_tax": [{"threshold": "1000000", "rate_pct": "0.0585", "apply_to_excess": true}],
    "bands": [
      {"id": "30M-8", "licence_types": ["GC-30M-SA"], "group_size": 8,
       "min_spaces": 1, "max_spaces": 8, "min_fte": {"ece": "1"}}
    ]
  }

  Numbers may be given as JSON numbers or strings.

SEE ALSO:
  - application.go: Application snapshot JSON
  - run.go: Calculation run JSON used for storage
  - childcare/presets.go: Go-based presets
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/facility-funding/funding"
)

const dateLayout = "2006-01-02"

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RateScheduleJSON is the JSON representation of a rate schedule and its
// band table.
type RateScheduleJSON struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	EffectiveFrom string       `json:"effective_from,omitempty"`
	HourlyWages   WageGridJSON `json:"hourly_wages"`

	AverageBenefitLoadPct       decimal.NullDecimal `json:"average_benefit_load_pct"`
	QualityEnhancementFactorPct decimal.NullDecimal `json:"quality_enhancement_factor_pct"`
	WageGridMarkupPct           decimal.NullDecimal `json:"wage_grid_markup_pct"`

	ExpectedAnnualFTEHours       decimal.NullDecimal `json:"expected_annual_fte_hours"`
	ProfessionalDevelopmentHours decimal.NullDecimal `json:"professional_development_hours"`
	VacationHoursPerFTE          decimal.NullDecimal `json:"vacation_hours_per_fte"`
	SickHoursPerFTE              decimal.NullDecimal `json:"sick_hours_per_fte"`
	StatutoryBreakHours          decimal.NullDecimal `json:"statutory_break_hours"`

	ProfessionalDevelopmentExpenseCaps []ExpenseCapJSON    `json:"professional_development_expense_caps,omitempty"`
	StandardDuesPerFTE                 decimal.NullDecimal `json:"standard_dues_per_fte"`

	SupervisorRatio            decimal.NullDecimal `json:"supervisor_ratio"`
	SupervisorRateDifferential decimal.NullDecimal `json:"supervisor_rate_differential"`

	ParentFees        ParentFeesJSON `json:"parent_fees"`
	EmployerHealthTax []EHTBandJSON  `json:"employer_health_tax,omitempty"`

	Bands []BandJSON `json:"bands,omitempty"`
}

// WageGridJSON is the hourly wage per role.
type WageGridJSON struct {
	ITE  decimal.NullDecimal `json:"ite"`
	ECE  decimal.NullDecimal `json:"ece"`
	ECEA decimal.NullDecimal `json:"ecea"`
	RA   decimal.NullDecimal `json:"ra"`
}

// ExpenseCapJSON is one per-FTE professional development allowance.
type ExpenseCapJSON struct {
	Name   string              `json:"name"`
	PerFTE decimal.NullDecimal `json:"per_fte"`
}

// ParentFeesJSON holds fee rates per care type.
type ParentFeesJSON struct {
	FullTime ParentFeeRateJSON `json:"full_time"`
	PartTime ParentFeeRateJSON `json:"part_time"`
}

// ParentFeeRateJSON is the per-day and per-month fee for one care type.
type ParentFeeRateJSON struct {
	PerDay   decimal.NullDecimal `json:"per_day"`
	PerMonth decimal.NullDecimal `json:"per_month"`
}

// EHTBandJSON is one employer health tax bracket.
type EHTBandJSON struct {
	Threshold     decimal.Decimal `json:"threshold"`
	RatePct       decimal.Decimal `json:"rate_pct"`
	ApplyToExcess bool            `json:"apply_to_excess,omitempty"`
}

// BandJSON is one group-size band.
type BandJSON struct {
	ID           string      `json:"id"`
	LicenceTypes []string    `json:"licence_types"`
	GroupSize    int         `json:"group_size"`
	MinSpaces    int         `json:"min_spaces"`
	MaxSpaces    int         `json:"max_spaces"`
	MinFTE       RoleFTEJSON `json:"min_fte"`
}

// RoleFTEJSON is a per-role FTE requirement. Missing roles are zero.
type RoleFTEJSON struct {
	ITE  decimal.Decimal `json:"ite"`
	ECE  decimal.Decimal `json:"ece"`
	ECEA decimal.Decimal `json:"ecea"`
	RA   decimal.Decimal `json:"ra"`
}

// =============================================================================
// RATE SCHEDULE FACTORY
// =============================================================================

// ScheduleFactory converts JSON rate schedules to funding types.
type ScheduleFactory struct{}

// NewScheduleFactory creates a new schedule factory.
func NewScheduleFactory() *ScheduleFactory {
	return &ScheduleFactory{}
}

// ParseRateSchedule parses a JSON string into a rate schedule with bands.
func (f *ScheduleFactory) ParseRateSchedule(jsonStr string) (*funding.StoredRateSchedule, error) {
	var rj RateScheduleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return nil, fmt.Errorf("failed to parse rate schedule JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// FromJSON converts RateScheduleJSON. The band table and EHT brackets are
// validated here since they are structural; rate fields are not.
func (f *ScheduleFactory) FromJSON(rj RateScheduleJSON) (*funding.StoredRateSchedule, error) {
	if rj.ID == "" {
		return nil, fmt.Errorf("rate schedule id is required")
	}

	rs := funding.RateSchedule{
		ID:   funding.RateScheduleID(rj.ID),
		Name: rj.Name,
		HourlyWages: funding.WageGrid{
			ITE:  rj.HourlyWages.ITE,
			ECE:  rj.HourlyWages.ECE,
			ECEA: rj.HourlyWages.ECEA,
			RA:   rj.HourlyWages.RA,
		},
		AverageBenefitLoadPct:        rj.AverageBenefitLoadPct,
		QualityEnhancementFactorPct:  rj.QualityEnhancementFactorPct,
		WageGridMarkupPct:            rj.WageGridMarkupPct,
		ExpectedAnnualFTEHours:       rj.ExpectedAnnualFTEHours,
		ProfessionalDevelopmentHours: rj.ProfessionalDevelopmentHours,
		VacationHoursPerFTE:          rj.VacationHoursPerFTE,
		SickHoursPerFTE:              rj.SickHoursPerFTE,
		StatutoryBreakHours:          rj.StatutoryBreakHours,
		StandardDuesPerFTE:           rj.StandardDuesPerFTE,
		SupervisorRatio:              rj.SupervisorRatio,
		SupervisorRateDifferential:   rj.SupervisorRateDifferential,
		ParentFees: funding.ParentFeeSchedule{
			FullTime: funding.ParentFeeRate{PerDay: rj.ParentFees.FullTime.PerDay, PerMonth: rj.ParentFees.FullTime.PerMonth},
			PartTime: funding.ParentFeeRate{PerDay: rj.ParentFees.PartTime.PerDay, PerMonth: rj.ParentFees.PartTime.PerMonth},
		},
	}

	if rj.EffectiveFrom != "" {
		t, err := time.Parse(dateLayout, rj.EffectiveFrom)
		if err != nil {
			return nil, fmt.Errorf("invalid effective_from %q: %w", rj.EffectiveFrom, err)
		}
		rs.EffectiveFrom = t
	}

	for _, c := range rj.ProfessionalDevelopmentExpenseCaps {
		rs.ProfessionalDevelopmentExpenseCaps = append(rs.ProfessionalDevelopmentExpenseCaps,
			funding.ExpenseCap{Name: c.Name, PerFTE: c.PerFTE})
	}
	for _, b := range rj.EmployerHealthTax {
		rs.HealthTaxBands = append(rs.HealthTaxBands,
			funding.EHTBand{Threshold: b.Threshold, RatePct: b.RatePct, ApplyToExcess: b.ApplyToExcess})
	}

	bands := parseBands(rj.Bands)
	if err := bands.Validate(); err != nil {
		return nil, fmt.Errorf("rate schedule %s: %w", rj.ID, err)
	}
	if _, err := rs.EmployerHealthTax(decimal.Zero); err != nil {
		return nil, fmt.Errorf("rate schedule %s: %w", rj.ID, err)
	}

	return &funding.StoredRateSchedule{RateSchedule: rs, Bands: bands}, nil
}

// ToJSON converts a stored rate schedule to its JSON form.
func (f *ScheduleFactory) ToJSON(s funding.StoredRateSchedule) RateScheduleJSON {
	rs := s.RateSchedule
	rj := RateScheduleJSON{
		ID:   string(rs.ID),
		Name: rs.Name,
		HourlyWages: WageGridJSON{
			ITE:  rs.HourlyWages.ITE,
			ECE:  rs.HourlyWages.ECE,
			ECEA: rs.HourlyWages.ECEA,
			RA:   rs.HourlyWages.RA,
		},
		AverageBenefitLoadPct:        rs.AverageBenefitLoadPct,
		QualityEnhancementFactorPct:  rs.QualityEnhancementFactorPct,
		WageGridMarkupPct:            rs.WageGridMarkupPct,
		ExpectedAnnualFTEHours:       rs.ExpectedAnnualFTEHours,
		ProfessionalDevelopmentHours: rs.ProfessionalDevelopmentHours,
		VacationHoursPerFTE:          rs.VacationHoursPerFTE,
		SickHoursPerFTE:              rs.SickHoursPerFTE,
		StatutoryBreakHours:          rs.StatutoryBreakHours,
		StandardDuesPerFTE:           rs.StandardDuesPerFTE,
		SupervisorRatio:              rs.SupervisorRatio,
		SupervisorRateDifferential:   rs.SupervisorRateDifferential,
		ParentFees: ParentFeesJSON{
			FullTime: ParentFeeRateJSON{PerDay: rs.ParentFees.FullTime.PerDay, PerMonth: rs.ParentFees.FullTime.PerMonth},
			PartTime: ParentFeeRateJSON{PerDay: rs.ParentFees.PartTime.PerDay, PerMonth: rs.ParentFees.PartTime.PerMonth},
		},
	}
	if !rs.EffectiveFrom.IsZero() {
		rj.EffectiveFrom = rs.EffectiveFrom.Format(dateLayout)
	}
	for _, c := range rs.ProfessionalDevelopmentExpenseCaps {
		rj.ProfessionalDevelopmentExpenseCaps = append(rj.ProfessionalDevelopmentExpenseCaps,
			ExpenseCapJSON{Name: c.Name, PerFTE: c.PerFTE})
	}
	for _, b := range rs.HealthTaxBands {
		rj.EmployerHealthTax = append(rj.EmployerHealthTax,
			EHTBandJSON{Threshold: b.Threshold, RatePct: b.RatePct, ApplyToExcess: b.ApplyToExcess})
	}
	for _, b := range s.Bands {
		rj.Bands = append(rj.Bands, BandJSON{
			ID:           string(b.ID),
			LicenceTypes: b.LicenceTypes,
			GroupSize:    b.GroupSize,
			MinSpaces:    b.MinSpaces,
			MaxSpaces:    b.MaxSpaces,
			MinFTE: RoleFTEJSON{
				ITE:  b.MinFTE.ITE,
				ECE:  b.MinFTE.ECE,
				ECEA: b.MinFTE.ECEA,
				RA:   b.MinFTE.RA,
			},
		})
	}
	return rj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseBands(bj []BandJSON) funding.BandTable {
	table := make(funding.BandTable, 0, len(bj))
	for _, b := range bj {
		table = append(table, funding.GroupSizeBand{
			ID:           funding.BandID(b.ID),
			LicenceTypes: b.LicenceTypes,
			GroupSize:    b.GroupSize,
			MinSpaces:    b.MinSpaces,
			MaxSpaces:    b.MaxSpaces,
			MinFTE: funding.RoleValues{
				ITE:  b.MinFTE.ITE,
				ECE:  b.MinFTE.ECE,
				ECEA: b.MinFTE.ECEA,
				RA:   b.MinFTE.RA,
			},
		})
	}
	return table
}
