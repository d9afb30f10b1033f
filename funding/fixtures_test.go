package funding_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/facility-funding/funding"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(d(s))
}

func intPtr(n int) *int {
	return &n
}

// assertDecimal compares by value, ignoring exponent differences.
func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, d(expected).Equal(actual), append([]any{"expected %s, got %s", expected, actual.String()}, msgAndArgs...)...)
}

// assertNear compares within an absolute tolerance.
func assertNear(t *testing.T, expected string, actual decimal.Decimal, tolerance string) {
	t.Helper()
	diff := d(expected).Sub(actual).Abs()
	assert.True(t, diff.LessThanOrEqual(d(tolerance)), "expected %s ± %s, got %s", expected, tolerance, actual.String())
}

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// testSchedule has simple round numbers: no PD, vacation, sick or statutory
// hours, no markup, no supervisors.
func testSchedule() funding.RateSchedule {
	return funding.RateSchedule{
		ID:   "rs-test",
		Name: "Test schedule",
		HourlyWages: funding.WageGrid{
			ITE:  nd("30"),
			ECE:  nd("25"),
			ECEA: nd("20"),
			RA:   nd("18"),
		},
		AverageBenefitLoadPct:        nd("0.2"),
		QualityEnhancementFactorPct:  nd("0.1"),
		WageGridMarkupPct:            nd("0"),
		ExpectedAnnualFTEHours:       nd("1957.5"),
		ProfessionalDevelopmentHours: nd("0"),
		VacationHoursPerFTE:          nd("0"),
		SickHoursPerFTE:              nd("0"),
		StatutoryBreakHours:          nd("0"),
		ProfessionalDevelopmentExpenseCaps: []funding.ExpenseCap{
			{Name: "tuition", PerFTE: nd("0")},
		},
		StandardDuesPerFTE:         nd("0"),
		SupervisorRatio:            nd("0"),
		SupervisorRateDifferential: nd("0"),
		ParentFees: funding.ParentFeeSchedule{
			FullTime: funding.ParentFeeRate{PerDay: nd("10"), PerMonth: nd("200")},
			PartTime: funding.ParentFeeRate{PerDay: nd("6"), PerMonth: nd("120")},
		},
	}
}

// testBands: licence type "X" has one band covering 1-12 spaces; licence
// type "Y" has three stacked bands.
func testBands() funding.BandTable {
	return funding.BandTable{
		{ID: "X-12", LicenceTypes: []string{"X"}, GroupSize: 12, MinSpaces: 1, MaxSpaces: 12,
			MinFTE: funding.RoleValues{ECE: d("1"), ECEA: d("1")}},
		{ID: "Y-8", LicenceTypes: []string{"Y"}, GroupSize: 8, MinSpaces: 1, MaxSpaces: 8,
			MinFTE: funding.RoleValues{ITE: d("1")}},
		{ID: "Y-16", LicenceTypes: []string{"Y"}, GroupSize: 16, MinSpaces: 9, MaxSpaces: 16,
			MinFTE: funding.RoleValues{ECE: d("1"), ECEA: d("1")}},
		{ID: "Y-25", LicenceTypes: []string{"Y"}, GroupSize: 25, MinSpaces: 17, MaxSpaces: 25,
			MinFTE: funding.RoleValues{ECE: d("2"), ECEA: d("1")}},
	}
}

// minimalDetail is 10 spaces, 10h/day, 5 days/week, 50 weeks.
func minimalDetail() funding.LicenceDetail {
	return funding.LicenceDetail{
		ID:                "ld-1",
		LicenceTypeCode:   "X",
		CareType:          funding.CareFullTime,
		HoursFrom:         d("7.5"),
		HoursTo:           d("17.5"),
		OperatingDays:     weekdays,
		WeeksInOperation:  50,
		OperationalSpaces: intPtr(10),
	}
}

func minimalInput() funding.Input {
	return funding.Input{
		ApplicationID:  "app-1",
		FacilityID:     "fac-1",
		RateSchedule:   testSchedule(),
		Bands:          testBands(),
		LicenceDetails: []funding.LicenceDetail{minimalDetail()},
	}
}
