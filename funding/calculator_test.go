package funding_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/facility-funding/funding"
)

func allocate(t *testing.T, detail funding.LicenceDetail, adj map[funding.BandID]int) funding.Allocation {
	t.Helper()
	bands, err := testBands().ForLicenceType(detail.LicenceTypeCode)
	require.NoError(t, err)
	return funding.NewBandAllocator().Allocate(bands, detail.Spaces(), adj)
}

// =============================================================================
// SCENARIO: minimal facility
// =============================================================================

func TestCalculateRecord_MinimalFacility(t *testing.T) {
	// GIVEN: 10 spaces, 10h × 5 days × 50 weeks, 1957.5 expected hours
	detail := minimalDetail()
	alloc := allocate(t, detail, nil)
	require.Equal(t, []funding.BandID{"X-12"}, alloc.BandIDs())

	// WHEN
	rc, err := funding.CalculateRecord(detail, alloc, testSchedule())
	require.NoError(t, err)

	// THEN: hours
	assertDecimal(t, "2500", rc.AnnualStandardHours)
	assertDecimal(t, "1957.5", rc.AnnualAvailableHoursPerFTE)
	assertNear(t, "1.2771392", rc.AnnualHoursFTERatio, "0.0000001")

	// THEN: staffing is the band's minimum FTE scaled by the ratio
	assertDecimal(t, "1", rc.RawFTE.ECE)
	assertDecimal(t, "1", rc.RawFTE.ECEA)
	assertDecimal(t, "0", rc.RawFTE.ITE)
	assertDecimal(t, "2", rc.TotalRawFTE)
	assert.True(t, rc.AdjustedFTE.ECE.Equal(rc.AnnualHoursFTERatio))
	assertNear(t, "2.5542784", rc.TotalAdjustedFTE, "0.0000001")

	// THEN: by hand, (25 + 20) × ratio × 1957.5 = 45 × 2500
	assertNear(t, "112500", rc.StaffingCost, "0.01")
	assertNear(t, "22500", rc.BenefitsCostPerYear, "0.01")
	assertNear(t, "13500", rc.QualityEnhancementCost, "0.01")
	assertNear(t, "148500", rc.HRRenumeration, "0.01")
	assertDecimal(t, "0", rc.SupervisorCostPerYear)

	// THEN: 10 × 5 × 50 = 2500 per day vs 200 × 12 = 2400 per month
	assert.Equal(t, funding.ParentFeePerMonth, rc.ParentFeeBasis)
	assertDecimal(t, "2400", rc.AnnualParentFeesPerSpace)
	assertDecimal(t, "24000", rc.ParentFees)
}

func TestCalculateRecord_FractionalHoursPreserved(t *testing.T) {
	// GIVEN: 07:30 to 17:45 is 10.25 hours
	detail := minimalDetail()
	detail.HoursFrom = d("7.5")
	detail.HoursTo = d("17.75")

	rc, err := funding.CalculateRecord(detail, allocate(t, detail, nil), testSchedule())
	require.NoError(t, err)

	assertDecimal(t, "2562.5", rc.AnnualStandardHours)
}

func TestCalculateRecord_RatioFloor(t *testing.T) {
	// GIVEN: 2h × 5 days × 10 weeks = 100 hours, far below half of 1957.5
	detail := minimalDetail()
	detail.HoursFrom = d("9")
	detail.HoursTo = d("11")
	detail.WeeksInOperation = 10

	rc, err := funding.CalculateRecord(detail, allocate(t, detail, nil), testSchedule())
	require.NoError(t, err)

	assert.True(t, rc.AnnualHoursFTERatio.Equal(funding.MinimumFTERatio), "ratio = %s", rc.AnnualHoursFTERatio)
	assertDecimal(t, "1", rc.TotalAdjustedFTE)
}

func TestCalculateRecord_ParentFeeSelection(t *testing.T) {
	tests := []struct {
		name      string
		perDay    string
		perMonth  string
		wantBasis funding.ParentFeeBasis
		wantAnnum string
	}{
		{"per-day cheaper", "9", "200", funding.ParentFeePerDay, "2250"},
		{"per-month cheaper", "10", "200", funding.ParentFeePerMonth, "2400"},
		{"tie goes to per-month", "9.6", "200", funding.ParentFeePerMonth, "2400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule := testSchedule()
			schedule.ParentFees.FullTime = funding.ParentFeeRate{PerDay: nd(tt.perDay), PerMonth: nd(tt.perMonth)}
			detail := minimalDetail()

			rc, err := funding.CalculateRecord(detail, allocate(t, detail, nil), schedule)
			require.NoError(t, err)

			assert.Equal(t, tt.wantBasis, rc.ParentFeeBasis)
			assertDecimal(t, tt.wantAnnum, rc.AnnualParentFeesPerSpace)
			assert.True(t, rc.ParentFees.Equal(d(tt.wantAnnum).Mul(decimal.NewFromInt(10))))
		})
	}
}

func TestCalculateRecord_PartTimeUsesPartTimeFees(t *testing.T) {
	detail := minimalDetail()
	detail.CareType = funding.CarePartTime

	rc, err := funding.CalculateRecord(detail, allocate(t, detail, nil), testSchedule())
	require.NoError(t, err)

	// 6 × 5 × 50 = 1500 vs 120 × 12 = 1440
	assertDecimal(t, "1440", rc.AnnualParentFeesPerSpace)
}

// =============================================================================
// SCENARIO: zero spaces
// =============================================================================

func TestCalculateRecord_ZeroSpaces(t *testing.T) {
	detail := minimalDetail()
	detail.OperationalSpaces = intPtr(0)

	rc, err := funding.CalculateRecord(detail, allocate(t, detail, nil), testSchedule())
	require.NoError(t, err)

	for _, v := range []decimal.Decimal{
		rc.TotalRawFTE, rc.TotalAdjustedFTE, rc.TotalFTECostPerHour,
		rc.SupervisorCostPerYear, rc.StaffingCost, rc.BenefitsCostPerYear,
		rc.QualityEnhancementCost, rc.HRRenumeration,
		rc.ProfessionalDevelopmentExpenses, rc.ProfessionalDues, rc.ParentFees,
	} {
		assert.True(t, v.IsZero(), "expected zero, got %s", v)
	}
}

// =============================================================================
// SUPERVISORS, MARKUP, PROFESSIONAL DEVELOPMENT
// =============================================================================

func TestCalculateRecord_SupervisorsScaleWithDistinctBands(t *testing.T) {
	// GIVEN: split room with two 16-bands and one 8-band → 2 distinct bands
	schedule := testSchedule()
	schedule.SupervisorRatio = nd("0.5")
	schedule.SupervisorRateDifferential = nd("2")

	detail := minimalDetail()
	detail.LicenceTypeCode = "Y"
	alloc := allocate(t, detail, map[funding.BandID]int{"Y-16": 2, "Y-8": 1})

	rc, err := funding.CalculateRecord(detail, alloc, schedule)
	require.NoError(t, err)

	// THEN: 0.5 × 2 distinct = 1 supervisor × $2 × 2500 hours
	assertDecimal(t, "1", rc.RequiredSupervisors)
	assertDecimal(t, "5000", rc.SupervisorCostPerYear)

	// THEN: every occurrence counts toward FTE
	assertDecimal(t, "1", rc.RawFTE.ITE)
	assertDecimal(t, "2", rc.RawFTE.ECE)
	assertDecimal(t, "2", rc.RawFTE.ECEA)
	assertDecimal(t, "5", rc.TotalRawFTE)
}

func TestCalculateRecord_ProfessionalDevelopment(t *testing.T) {
	// GIVEN: the ratio floor makes TotalAdjustedFTE exactly 1
	schedule := testSchedule()
	schedule.ProfessionalDevelopmentHours = nd("57.5")
	schedule.WageGridMarkupPct = nd("0.1")
	schedule.ProfessionalDevelopmentExpenseCaps = []funding.ExpenseCap{
		{Name: "tuition", PerFTE: nd("300")},
		{Name: "travel", PerFTE: nd("200")},
	}
	schedule.StandardDuesPerFTE = nd("75")

	detail := minimalDetail()
	detail.HoursFrom = d("9")
	detail.HoursTo = d("11")
	detail.WeeksInOperation = 10

	rc, err := funding.CalculateRecord(detail, allocate(t, detail, nil), schedule)
	require.NoError(t, err)

	assertDecimal(t, "1900", rc.AnnualAvailableHoursPerFTE)
	assertDecimal(t, "1", rc.TotalAdjustedFTE)
	assertDecimal(t, "500", rc.ProfessionalDevelopmentExpenses)
	assertDecimal(t, "75", rc.ProfessionalDues)

	// cost/hour = 0.5×25 + 0.5×20 = 22.5
	assertDecimal(t, "22.5", rc.TotalFTECostPerHour)
	assertDecimal(t, "1423.125", rc.ProfessionalDevelopmentHoursCost) // 22.5 × 57.5 × 1.1
	assertDecimal(t, "48448.125", rc.StaffingCost)                    // 22.5 × 1957.5 × 1.1
}

// =============================================================================
// FAILURES
// =============================================================================

func TestCalculateRecord_MissingRateField(t *testing.T) {
	schedule := testSchedule()
	schedule.HourlyWages.ECEA = decimal.NullDecimal{}
	schedule.AverageBenefitLoadPct = decimal.NullDecimal{}

	_, err := funding.CalculateRecord(minimalDetail(), allocate(t, minimalDetail(), nil), schedule)

	require.Error(t, err)
	assert.ErrorIs(t, err, funding.ErrMissingRateField)
	assert.True(t, funding.IsConfigError(err))
	assert.Contains(t, err.Error(), "hourly_wages.ecea")
	assert.Contains(t, err.Error(), "average_benefit_load_pct")
}

func TestCalculateRecord_MissingFeeForCareType(t *testing.T) {
	// GIVEN: part-time fees are missing, but the record is full-time
	schedule := testSchedule()
	schedule.ParentFees.PartTime = funding.ParentFeeRate{}

	_, err := funding.CalculateRecord(minimalDetail(), allocate(t, minimalDetail(), nil), schedule)
	require.NoError(t, err)

	// WHEN: the record is part-time
	detail := minimalDetail()
	detail.CareType = funding.CarePartTime
	_, err = funding.CalculateRecord(detail, allocate(t, detail, nil), schedule)

	// THEN
	var ce *funding.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "parent_fees.part_time.per_day", ce.Field)
}

func TestCalculateRecord_ZeroAvailableHours(t *testing.T) {
	schedule := testSchedule()
	schedule.VacationHoursPerFTE = nd("1000")
	schedule.SickHoursPerFTE = nd("957.5")

	_, err := funding.CalculateRecord(minimalDetail(), allocate(t, minimalDetail(), nil), schedule)

	assert.ErrorIs(t, err, funding.ErrZeroAvailableHours)
	assert.True(t, funding.IsInputError(err))
}

func TestCalculateRecord_InvalidShape(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*funding.LicenceDetail)
		field  string
	}{
		{"missing spaces", func(ld *funding.LicenceDetail) { ld.OperationalSpaces = nil }, "operational_spaces"},
		{"negative spaces", func(ld *funding.LicenceDetail) { ld.OperationalSpaces = intPtr(-1) }, "operational_spaces"},
		{"hours inverted", func(ld *funding.LicenceDetail) { ld.HoursTo = ld.HoursFrom }, "hours"},
		{"hours past midnight", func(ld *funding.LicenceDetail) { ld.HoursTo = d("25") }, "hours"},
		{"unknown care type", func(ld *funding.LicenceDetail) { ld.CareType = "overnight" }, "care_type"},
		{"too many weeks", func(ld *funding.LicenceDetail) { ld.WeeksInOperation = 60 }, "weeks_in_operation"},
		{"zero weeks", func(ld *funding.LicenceDetail) { ld.WeeksInOperation = 0 }, "weeks_in_operation"},
		{"no operating days", func(ld *funding.LicenceDetail) { ld.OperatingDays = nil }, "operating_days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail := minimalDetail()
			tt.mutate(&detail)

			_, err := funding.CalculateRecord(detail, funding.Allocation{}, testSchedule())

			var ie *funding.InputError
			require.True(t, errors.As(err, &ie), "got %v", err)
			assert.Equal(t, tt.field, ie.Field)
			assert.ErrorIs(t, err, funding.ErrInvalidInput)
		})
	}
}
