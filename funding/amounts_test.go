package funding_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/facility-funding/funding"
)

func TestAggregate_HRCategoryMapping(t *testing.T) {
	// GIVEN: two hand-built records
	records := []funding.RecordCost{
		{
			StaffingCost:                     d("100000"),
			BenefitsCostPerYear:              d("20000"),
			QualityEnhancementCost:           d("12000"),
			ProfessionalDevelopmentHoursCost: d("3000"),
			ProfessionalDevelopmentExpenses:  d("500"),
			ProfessionalDues:                 d("100"),
			ParentFees:                       d("0"),
			TotalAdjustedFTE:                 d("2.5"),
		},
		{
			StaffingCost:                     d("50000"),
			BenefitsCostPerYear:              d("10000"),
			QualityEnhancementCost:           d("6000"),
			ProfessionalDevelopmentHoursCost: d("1000"),
			ProfessionalDevelopmentExpenses:  d("200"),
			ProfessionalDues:                 d("50"),
			ParentFees:                       d("0"),
			TotalAdjustedFTE:                 d("1.25"),
		},
	}
	nonHR := funding.NonHRProjections{
		Programming:    d("1000"),
		Administrative: d("2000"),
		Operational:    d("3000"),
		Facility:       d("4000"),
	}

	// WHEN
	f, summary, err := funding.Aggregate(records, nonHR, testSchedule())
	require.NoError(t, err)

	// THEN: HR leaves
	assertDecimal(t, "164000", f.HRWagesPaidTimeOff.Projected) // 150000 - 4000 + 18000
	assertDecimal(t, "30000", f.HRBenefits.Projected)
	assertDecimal(t, "4000", f.HRProfessionalDevelopmentHours.Projected)
	assertDecimal(t, "850", f.HRProfessionalDevelopmentExpenses.Projected)
	assertDecimal(t, "0", f.HREmployerHealthTax.Projected)
	assertDecimal(t, "198850", f.HRTotal.Projected)

	// THEN: non-HR passes through, grand total sums everything
	assertDecimal(t, "1000", f.NonHRProgramming.Projected)
	assertDecimal(t, "4000", f.NonHRFacility.Projected)
	assertDecimal(t, "208850", f.GrandTotal.Projected)
	assertDecimal(t, "3.75", f.AdjustedFTE)

	assertDecimal(t, "168000", summary.WageBase)
	assert.True(t, f.GrandTotal.ParentFee.IsZero())
}

func TestAggregate_EmployerHealthTaxOnWageBase(t *testing.T) {
	rs := testSchedule()
	rs.HealthTaxBands = []funding.EHTBand{{Threshold: d("100000"), RatePct: d("0.02"), ApplyToExcess: true}}
	records := []funding.RecordCost{{StaffingCost: d("140000"), QualityEnhancementCost: d("10000")}}

	f, summary, err := funding.Aggregate(records, funding.NonHRProjections{}, rs)
	require.NoError(t, err)

	assertDecimal(t, "150000", summary.WageBase)
	assertDecimal(t, "1000", summary.EmployerHealthTax)
	assertDecimal(t, "1000", f.HREmployerHealthTax.Projected)
}

func TestAggregate_ParentFeesAllocatedByShare(t *testing.T) {
	// GIVEN: HR benefits 3000, non-HR facility 1000, parent fees 400
	records := []funding.RecordCost{{BenefitsCostPerYear: d("3000"), ParentFees: d("400")}}
	nonHR := funding.NonHRProjections{Facility: d("1000")}

	f, summary, err := funding.Aggregate(records, nonHR, testSchedule())
	require.NoError(t, err)

	// THEN: 75% / 25% split, rolled up into HR total and grand total
	assertDecimal(t, "400", summary.TotalParentFees)
	assertDecimal(t, "300", f.HRBenefits.ParentFee)
	assertDecimal(t, "100", f.NonHRFacility.ParentFee)
	assertDecimal(t, "300", f.HRTotal.ParentFee)
	assertDecimal(t, "400", f.GrandTotal.ParentFee)
	assertDecimal(t, "3600", f.GrandTotal.Base())
	assertDecimal(t, "900", f.NonHRFacility.Base())
}

func TestAggregate_ParentFeeSharesSumToTotal(t *testing.T) {
	// GIVEN: three equal leaves, so each share is 100/3
	records := []funding.RecordCost{{BenefitsCostPerYear: d("1"), ParentFees: d("100")}}
	nonHR := funding.NonHRProjections{Programming: d("1"), Facility: d("1")}

	f, summary, err := funding.Aggregate(records, nonHR, testSchedule())
	require.NoError(t, err)

	// THEN: no precision is lost between the record total and the envelopes
	assertDecimal(t, "100", summary.TotalParentFees)
	assertDecimal(t, "100", f.GrandTotal.ParentFee)
	sum := f.HRBenefits.ParentFee.Add(f.NonHRProgramming.ParentFee).Add(f.NonHRFacility.ParentFee)
	assertDecimal(t, "100", sum)
	for _, pf := range []decimal.Decimal{f.HRBenefits.ParentFee, f.NonHRProgramming.ParentFee, f.NonHRFacility.ParentFee} {
		assertNear(t, "33.3333333333", pf, "0.0000000001")
	}
	assert.True(t, f.NonHROperational.ParentFee.IsZero())
}

func TestAggregate_ZeroProjectedMeansNoParentFee(t *testing.T) {
	records := []funding.RecordCost{{ParentFees: d("2400")}}

	f, summary, err := funding.Aggregate(records, funding.NonHRProjections{}, testSchedule())
	require.NoError(t, err)

	assertDecimal(t, "2400", summary.TotalParentFees)
	for _, c := range funding.Categories() {
		assert.True(t, f.Get(c).ParentFee.IsZero(), "category %s", c)
	}
}

func TestAggregate_InvalidEHT(t *testing.T) {
	rs := testSchedule()
	rs.HealthTaxBands = []funding.EHTBand{{Threshold: d("-1"), RatePct: d("0.01")}}

	_, _, err := funding.Aggregate([]funding.RecordCost{{StaffingCost: d("1")}}, funding.NonHRProjections{}, rs)

	assert.ErrorIs(t, err, funding.ErrInvalidBandTable)
}

func TestFundingAmounts_Categories(t *testing.T) {
	cats := funding.Categories()
	require.Len(t, cats, 11)
	assert.Equal(t, funding.CategoryHRTotal, cats[0])
	assert.Equal(t, funding.CategoryGrandTotal, cats[len(cats)-1])

	var zero funding.FundingAmounts
	assert.True(t, zero.Get("nope").Projected.IsZero())
}
