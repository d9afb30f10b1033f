/*
amounts.go - Funding Amounts Aggregator

PURPOSE:
  Reduces per-record costs into facility-level envelope amounts. Each
  category carries a Projected amount and a ParentFee (PF) portion; the
  Base amount is always derived as Projected - PF and never stored.

HR CATEGORIES (summed across records):
  WagesPaidTimeOff           = StaffingCost - PD hours cost + QualityEnhancement
  Benefits                   = BenefitsCostPerYear
  ProfessionalDevelopmentHrs = PD hours cost
  ProfessionalDevelopmentExp = PD expenses + professional dues
  EmployerHealthTax          = facility-level tax on Σ(StaffingCost + QE)
  HRTotal                    = sum of the five above

NON-HR CATEGORIES:
  Programming, Administrative, Operational, Facility pass through from the
  application's projections.

PARENT FEES:
  Σ record ParentFees is spread over the leaf categories in proportion to
  each leaf's share of the grand total. The last funded leaf takes the
  remainder, so GrandTotal.PF equals the record total exactly. HRTotal.PF and
  GrandTotal.PF are sums of their leaves, so Base stays additive at every
  level.

SEE ALSO:
  - calculator.go: RecordCost
  - rates.go: EmployerHealthTax
*/
package funding

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ENVELOPE AMOUNT
// =============================================================================

// EnvelopeAmount is the {Projected, PF, Base} triplet for one category.
type EnvelopeAmount struct {
	Projected decimal.Decimal
	ParentFee decimal.Decimal
}

// Base is Projected - ParentFee.
func (e EnvelopeAmount) Base() decimal.Decimal {
	return e.Projected.Sub(e.ParentFee)
}

// Add returns the component-wise sum.
func (e EnvelopeAmount) Add(o EnvelopeAmount) EnvelopeAmount {
	return EnvelopeAmount{
		Projected: e.Projected.Add(o.Projected),
		ParentFee: e.ParentFee.Add(o.ParentFee),
	}
}

// =============================================================================
// CATEGORIES
// =============================================================================

// Category names one envelope line of FundingAmounts.
type Category string

const (
	CategoryHRTotal                           Category = "hr_total"
	CategoryHRWagesPaidTimeOff                Category = "hr_wages_paid_time_off"
	CategoryHRBenefits                        Category = "hr_benefits"
	CategoryHREmployerHealthTax               Category = "hr_employer_health_tax"
	CategoryHRProfessionalDevelopmentHours    Category = "hr_professional_development_hours"
	CategoryHRProfessionalDevelopmentExpenses Category = "hr_professional_development_expenses"
	CategoryNonHRProgramming                  Category = "non_hr_programming"
	CategoryNonHRAdministrative               Category = "non_hr_administrative"
	CategoryNonHROperational                  Category = "non_hr_operational"
	CategoryNonHRFacility                     Category = "non_hr_facility"
	CategoryGrandTotal                        Category = "grand_total"
)

var hrLeaves = []Category{
	CategoryHRWagesPaidTimeOff,
	CategoryHRBenefits,
	CategoryHREmployerHealthTax,
	CategoryHRProfessionalDevelopmentHours,
	CategoryHRProfessionalDevelopmentExpenses,
}

var nonHRLeaves = []Category{
	CategoryNonHRProgramming,
	CategoryNonHRAdministrative,
	CategoryNonHROperational,
	CategoryNonHRFacility,
}

// Categories lists every category in reporting order.
func Categories() []Category {
	out := []Category{CategoryHRTotal}
	out = append(out, hrLeaves...)
	out = append(out, nonHRLeaves...)
	return append(out, CategoryGrandTotal)
}

// =============================================================================
// FUNDING AMOUNTS
// =============================================================================

// FundingAmounts is the facility-level envelope breakdown of one run. The
// zero value is the zeroed amounts of an InvalidData result.
type FundingAmounts struct {
	HRTotal                           EnvelopeAmount
	HRWagesPaidTimeOff                EnvelopeAmount
	HRBenefits                        EnvelopeAmount
	HREmployerHealthTax               EnvelopeAmount
	HRProfessionalDevelopmentHours    EnvelopeAmount
	HRProfessionalDevelopmentExpenses EnvelopeAmount

	NonHRProgramming    EnvelopeAmount
	NonHRAdministrative EnvelopeAmount
	NonHROperational    EnvelopeAmount
	NonHRFacility       EnvelopeAmount

	GrandTotal EnvelopeAmount

	AdjustedFTE decimal.Decimal
}

// Get returns the amount for a category.
func (f FundingAmounts) Get(c Category) EnvelopeAmount {
	if p := f.field(c); p != nil {
		return *p
	}
	return EnvelopeAmount{}
}

func (f *FundingAmounts) field(c Category) *EnvelopeAmount {
	switch c {
	case CategoryHRTotal:
		return &f.HRTotal
	case CategoryHRWagesPaidTimeOff:
		return &f.HRWagesPaidTimeOff
	case CategoryHRBenefits:
		return &f.HRBenefits
	case CategoryHREmployerHealthTax:
		return &f.HREmployerHealthTax
	case CategoryHRProfessionalDevelopmentHours:
		return &f.HRProfessionalDevelopmentHours
	case CategoryHRProfessionalDevelopmentExpenses:
		return &f.HRProfessionalDevelopmentExpenses
	case CategoryNonHRProgramming:
		return &f.NonHRProgramming
	case CategoryNonHRAdministrative:
		return &f.NonHRAdministrative
	case CategoryNonHROperational:
		return &f.NonHROperational
	case CategoryNonHRFacility:
		return &f.NonHRFacility
	case CategoryGrandTotal:
		return &f.GrandTotal
	default:
		return nil
	}
}

// =============================================================================
// AGGREGATION
// =============================================================================

// AggregateSummary carries the facility-level intermediates of Aggregate.
type AggregateSummary struct {
	WageBase          decimal.Decimal
	EmployerHealthTax decimal.Decimal
	TotalParentFees   decimal.Decimal
}

// Aggregate sums per-record costs into FundingAmounts. Records are summed
// commutatively; their order does not affect the result.
func Aggregate(records []RecordCost, nonHR NonHRProjections, schedule RateSchedule) (FundingAmounts, AggregateSummary, error) {
	var (
		f       FundingAmounts
		summary AggregateSummary
	)

	for _, rc := range records {
		f.HRWagesPaidTimeOff.Projected = f.HRWagesPaidTimeOff.Projected.
			Add(rc.StaffingCost.Sub(rc.ProfessionalDevelopmentHoursCost).Add(rc.QualityEnhancementCost))
		f.HRBenefits.Projected = f.HRBenefits.Projected.Add(rc.BenefitsCostPerYear)
		f.HRProfessionalDevelopmentHours.Projected = f.HRProfessionalDevelopmentHours.Projected.
			Add(rc.ProfessionalDevelopmentHoursCost)
		f.HRProfessionalDevelopmentExpenses.Projected = f.HRProfessionalDevelopmentExpenses.Projected.
			Add(rc.ProfessionalDevelopmentExpenses.Add(rc.ProfessionalDues))

		summary.WageBase = summary.WageBase.Add(rc.StaffingCost).Add(rc.QualityEnhancementCost)
		summary.TotalParentFees = summary.TotalParentFees.Add(rc.ParentFees)
		f.AdjustedFTE = f.AdjustedFTE.Add(rc.TotalAdjustedFTE)
	}

	eht, err := schedule.EmployerHealthTax(summary.WageBase)
	if err != nil {
		return FundingAmounts{}, AggregateSummary{}, err
	}
	summary.EmployerHealthTax = eht
	f.HREmployerHealthTax.Projected = eht

	f.NonHRProgramming.Projected = nonHR.Programming
	f.NonHRAdministrative.Projected = nonHR.Administrative
	f.NonHROperational.Projected = nonHR.Operational
	f.NonHRFacility.Projected = nonHR.Facility

	allocateParentFees(&f, summary.TotalParentFees)
	f.rollUp()

	return f, summary, nil
}

// allocateParentFees spreads the PF total over leaf categories by projected
// share. Nothing is allocated when the projected total is not positive.
// The last funded leaf takes the remainder so the shares sum to total.
func allocateParentFees(f *FundingAmounts, total decimal.Decimal) {
	leaves := append(append([]Category{}, hrLeaves...), nonHRLeaves...)

	projected := decimal.Zero
	last := -1
	for i, c := range leaves {
		p := f.Get(c).Projected
		projected = projected.Add(p)
		if !p.IsZero() {
			last = i
		}
	}
	if !projected.IsPositive() || total.IsZero() {
		return
	}

	allocated := decimal.Zero
	for i, c := range leaves[:last+1] {
		p := f.field(c)
		if i == last {
			p.ParentFee = total.Sub(allocated)
			break
		}
		p.ParentFee = total.Mul(p.Projected).Div(projected)
		allocated = allocated.Add(p.ParentFee)
	}
}

// rollUp derives HRTotal and GrandTotal from the leaves.
func (f *FundingAmounts) rollUp() {
	f.HRTotal = EnvelopeAmount{}
	for _, c := range hrLeaves {
		f.HRTotal = f.HRTotal.Add(f.Get(c))
	}
	f.GrandTotal = f.HRTotal
	for _, c := range nonHRLeaves {
		f.GrandTotal = f.GrandTotal.Add(f.Get(c))
	}
}
