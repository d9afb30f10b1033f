/*
presets.go - Pre-built rate schedule and band table

PURPOSE:
  Provides a ready-to-use rate schedule and the standard group-size band
  table for the licence types in types.go. The API seeds these for demo
  scenarios; real deployments load their own through the factory package.

BAND TABLE:
  Bands are listed per licence type in ascending group size. Occasional
  care shares the 30-months-to-school-age bands, and in-home multi-age
  shares the multi-age bands.

  Licence type      Band       Spaces   Minimum FTE
  GC-U36            U36-4      1-4      1 ITE
                    U36-8      5-8      1 ITE, 1 ECE
                    U36-12     9-12     2 ITE, 1 ECE
  GC-30M-SA, OCC    30M-8      1-8      1 ECE
                    30M-16     9-16     1 ECE, 1 ECEA
                    30M-25     17-25    1 ECE, 2 ECEA
  GC-SA             SA-12      1-12     1 RA
                    SA-24      13-24    2 RA
                    SA-30      25-30    1 ECEA, 2 RA
  MULTI-AGE, IHMA   MA-4       1-4      1 ECE
                    MA-8       5-8      1 ECE, 1 ECEA
  PRESCHOOL         PS-10      1-10     1 ECE
                    PS-20      11-20    1 ECE, 1 ECEA
  FAMILY            FAM-7      1-7      1 RA

CUSTOMIZATION:
  These are starting points. Schedules change every funding year; callers
  copy the preset and override the fields that moved.
*/
package childcare

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/facility-funding/funding"
)

func fte(ite, ece, ecea, ra string) funding.RoleValues {
	return funding.RoleValues{
		ITE:  decimal.RequireFromString(ite),
		ECE:  decimal.RequireFromString(ece),
		ECEA: decimal.RequireFromString(ecea),
		RA:   decimal.RequireFromString(ra),
	}
}

func band(id string, groupSize, minSpaces, maxSpaces int, minFTE funding.RoleValues, licenceTypes ...string) funding.GroupSizeBand {
	return funding.GroupSizeBand{
		ID:           funding.BandID(id),
		LicenceTypes: licenceTypes,
		GroupSize:    groupSize,
		MinSpaces:    minSpaces,
		MaxSpaces:    maxSpaces,
		MinFTE:       minFTE,
	}
}

// StandardBandTable returns the group-size bands for every licence type.
func StandardBandTable() funding.BandTable {
	return funding.BandTable{
		band("U36-4", 4, 1, 4, fte("1", "0", "0", "0"), GroupUnder36Months),
		band("U36-8", 8, 5, 8, fte("1", "1", "0", "0"), GroupUnder36Months),
		band("U36-12", 12, 9, 12, fte("2", "1", "0", "0"), GroupUnder36Months),

		band("30M-8", 8, 1, 8, fte("0", "1", "0", "0"), Group30MonthsSchoolAge, Occasional),
		band("30M-16", 16, 9, 16, fte("0", "1", "1", "0"), Group30MonthsSchoolAge, Occasional),
		band("30M-25", 25, 17, 25, fte("0", "1", "2", "0"), Group30MonthsSchoolAge, Occasional),

		band("SA-12", 12, 1, 12, fte("0", "0", "0", "1"), GroupSchoolAge),
		band("SA-24", 24, 13, 24, fte("0", "0", "0", "2"), GroupSchoolAge),
		band("SA-30", 30, 25, 30, fte("0", "0", "1", "2"), GroupSchoolAge),

		band("MA-4", 4, 1, 4, fte("0", "1", "0", "0"), MultiAge, InHomeMultiAge),
		band("MA-8", 8, 5, 8, fte("0", "1", "1", "0"), MultiAge, InHomeMultiAge),

		band("PS-10", 10, 1, 10, fte("0", "1", "0", "0"), Preschool),
		band("PS-20", 20, 11, 20, fte("0", "1", "1", "0"), Preschool),

		band("FAM-7", 7, 1, 7, fte("0", "0", "0", "1"), Family),
	}
}

func pct(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// StandardRateSchedule returns a complete rate schedule with typical
// provincial values.
func StandardRateSchedule(id funding.RateScheduleID, effectiveFrom time.Time) funding.RateSchedule {
	return funding.RateSchedule{
		ID:            id,
		Name:          "Standard Operating Funding",
		EffectiveFrom: effectiveFrom,
		HourlyWages: funding.WageGrid{
			ITE:  pct("28.50"),
			ECE:  pct("26.00"),
			ECEA: pct("21.00"),
			RA:   pct("19.00"),
		},
		AverageBenefitLoadPct:        pct("0.18"),
		QualityEnhancementFactorPct:  pct("0.085"),
		WageGridMarkupPct:            pct("0.04"),
		ExpectedAnnualFTEHours:       pct("1957.5"),
		ProfessionalDevelopmentHours: pct("16"),
		VacationHoursPerFTE:          pct("120"),
		SickHoursPerFTE:              pct("37.5"),
		StatutoryBreakHours:          pct("75"),
		ProfessionalDevelopmentExpenseCaps: []funding.ExpenseCap{
			{Name: "tuition", PerFTE: pct("250")},
			{Name: "travel", PerFTE: pct("100")},
		},
		StandardDuesPerFTE:         pct("60"),
		SupervisorRatio:            pct("0.25"),
		SupervisorRateDifferential: pct("2.50"),
		ParentFees: funding.ParentFeeSchedule{
			FullTime: funding.ParentFeeRate{PerDay: pct("10"), PerMonth: pct("200")},
			PartTime: funding.ParentFeeRate{PerDay: pct("7"), PerMonth: pct("140")},
		},
		HealthTaxBands: []funding.EHTBand{
			{Threshold: decimal.NewFromInt(1_000_000), RatePct: decimal.RequireFromString("0.0585"), ApplyToExcess: true},
			{Threshold: decimal.NewFromInt(1_500_000), RatePct: decimal.RequireFromString("0.0195")},
		},
	}
}

// StandardSchedule bundles StandardRateSchedule with StandardBandTable.
func StandardSchedule(id funding.RateScheduleID, effectiveFrom time.Time) funding.StoredRateSchedule {
	return funding.StoredRateSchedule{
		RateSchedule: StandardRateSchedule(id, effectiveFrom),
		Bands:        StandardBandTable(),
	}
}
