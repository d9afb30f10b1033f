package funding_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/facility-funding/funding"
)

func testEngine(workers int) *funding.Engine {
	e := funding.NewEngine(workers, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.Clock = func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func actions(trail []funding.TrailEntry) []funding.TrailAction {
	out := make([]funding.TrailAction, len(trail))
	for i, e := range trail {
		out[i] = e.Action
	}
	return out
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestEngine_MinimalFacility(t *testing.T) {
	// GIVEN
	in := minimalInput()
	runID := uuid.MustParse("5f0c8f0e-7f7e-4a52-9d0e-2f7b3c1d9a10")
	e := testEngine(1)
	e.NewRunID = func() uuid.UUID { return runID }

	// WHEN
	res, err := e.Calculate(context.Background(), in)
	require.NoError(t, err)

	// THEN
	assert.Equal(t, funding.DecisionAutoApproved, res.Decision)
	assert.Empty(t, res.Errors)
	assert.Equal(t, runID, res.RunID)
	assert.Equal(t, funding.ApplicationID("app-1"), res.ApplicationID)
	assert.Equal(t, funding.RateScheduleID("rs-test"), res.RateScheduleID)
	assert.Equal(t, time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC), res.CompletedAt)
	require.Len(t, res.Records, 1)

	// Staffing 112500 + QE 13500 = 126000 wages, benefits 22500
	assertNear(t, "126000", res.Amounts.HRWagesPaidTimeOff.Projected, "0.01")
	assertNear(t, "22500", res.Amounts.HRBenefits.Projected, "0.01")
	assertNear(t, "148500", res.Amounts.HRTotal.Projected, "0.01")
	assertNear(t, "148500", res.Amounts.GrandTotal.Projected, "0.01")
	assertNear(t, "24000", res.Amounts.GrandTotal.ParentFee, "0.000001")

	assert.Equal(t, []funding.TrailAction{
		funding.ActionInputReceived,
		funding.ActionBandsFiltered,
		funding.ActionAllocationDefault,
		funding.ActionFTEComputed,
		funding.ActionCostComputed,
		funding.ActionEHTComputed,
		funding.ActionParentFeesAllocated,
		funding.ActionDecision,
	}, actions(res.Trail))
	for i, entry := range res.Trail {
		assert.Equal(t, i+1, entry.Seq)
	}
	assert.Equal(t, "X-12", res.Trail[2].Detail)
}

func TestEngine_InvalidData(t *testing.T) {
	// GIVEN: the only licence detail has hoursTo <= hoursFrom
	in := minimalInput()
	in.LicenceDetails[0].HoursTo = in.LicenceDetails[0].HoursFrom

	// WHEN
	res, err := testEngine(2).Calculate(context.Background(), in)
	require.NoError(t, err)

	// THEN
	assert.Equal(t, funding.DecisionInvalidData, res.Decision)
	require.NotEmpty(t, res.Errors)
	assert.ErrorIs(t, res.Errors[0], funding.ErrInvalidInput)
	var re *funding.RecordError
	require.True(t, errors.As(res.Errors[0], &re))
	assert.Equal(t, funding.LicenceDetailID("ld-1"), re.LicenceDetailID)

	assert.Empty(t, res.Records)
	for _, c := range funding.Categories() {
		assert.True(t, res.Amounts.Get(c).Projected.IsZero(), "category %s", c)
		assert.True(t, res.Amounts.Get(c).Base().IsZero(), "category %s", c)
	}
	assert.Equal(t, funding.ActionDecision, res.Trail[len(res.Trail)-1].Action)
	assert.Equal(t, string(funding.DecisionInvalidData), res.Trail[len(res.Trail)-1].Detail)
}

func TestEngine_NoLicenceDetails(t *testing.T) {
	in := minimalInput()
	in.LicenceDetails = nil

	res, err := testEngine(1).Calculate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, funding.DecisionInvalidData, res.Decision)
	assert.ErrorIs(t, res.Errors[0], funding.ErrNoLicenceDetails)
	assert.Equal(t, []funding.TrailAction{funding.ActionInputReceived, funding.ActionDecision}, actions(res.Trail))
}

func TestEngine_IncompleteScheduleIsInvalidData(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*funding.LicenceDetail)
		field  string
	}{
		{"no operating days", func(ld *funding.LicenceDetail) { ld.OperatingDays = nil }, "operating_days"},
		{"zero weeks", func(ld *funding.LicenceDetail) { ld.WeeksInOperation = 0 }, "weeks_in_operation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN: the only licence detail never operates
			in := minimalInput()
			tt.mutate(&in.LicenceDetails[0])

			// WHEN
			res, err := testEngine(1).Calculate(context.Background(), in)
			require.NoError(t, err)

			// THEN: rejected instead of funded on the ratio floor
			assert.Equal(t, funding.DecisionInvalidData, res.Decision)
			assert.Empty(t, res.Records)
			require.Len(t, res.Errors, 1)
			var ie *funding.InputError
			require.True(t, errors.As(res.Errors[0], &ie), "got %v", res.Errors[0])
			assert.Equal(t, tt.field, ie.Field)
			assert.True(t, res.Amounts.GrandTotal.Projected.IsZero())
		})
	}
}

func TestEngine_NegativeNonHR(t *testing.T) {
	in := minimalInput()
	in.NonHR.Operational = d("-5")

	res, err := testEngine(1).Calculate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, funding.DecisionInvalidData, res.Decision)
	assert.True(t, funding.IsInputError(res.Errors[0]))
}

func TestEngine_PartialFailureIsApprovedWithErrors(t *testing.T) {
	// GIVEN: one good record and one missing its space count
	in := minimalInput()
	bad := minimalDetail()
	bad.ID = "ld-bad"
	bad.OperationalSpaces = nil
	in.LicenceDetails = append(in.LicenceDetails, bad)

	// WHEN
	res, err := testEngine(4).Calculate(context.Background(), in)
	require.NoError(t, err)

	// THEN
	assert.Equal(t, funding.DecisionAutoApproved, res.Decision)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "ld-bad")
	assert.Len(t, res.Records, 1)
	assert.Contains(t, actions(res.Trail), funding.ActionRecordRejected)
	assert.Contains(t, actions(res.Trail), funding.ActionDuplicateLicenceType)
}

func TestEngine_ConfigErrorRejectsRecord(t *testing.T) {
	in := minimalInput()
	in.RateSchedule.WageGridMarkupPct.Valid = false

	res, err := testEngine(1).Calculate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, funding.DecisionInvalidData, res.Decision)
	assert.True(t, funding.IsConfigError(res.Errors[0]))
	assert.ErrorIs(t, res.Errors[0], funding.ErrMissingRateField)
}

func TestEngine_AggregationFailureIsInvalidData(t *testing.T) {
	in := minimalInput()
	in.RateSchedule.HealthTaxBands = []funding.EHTBand{
		{Threshold: d("10"), RatePct: d("0.01")},
		{Threshold: d("5"), RatePct: d("0.02")},
	}

	res, err := testEngine(1).Calculate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, funding.DecisionInvalidData, res.Decision)
	assert.ErrorIs(t, res.Errors[len(res.Errors)-1], funding.ErrInvalidBandTable)
}

func TestEngine_ZeroSpacesNoError(t *testing.T) {
	in := minimalInput()
	in.LicenceDetails[0].OperationalSpaces = intPtr(0)

	res, err := testEngine(1).Calculate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, funding.DecisionAutoApproved, res.Decision)
	assert.Empty(t, res.Errors)
	assert.True(t, res.Amounts.AdjustedFTE.IsZero())
	assert.True(t, res.Amounts.GrandTotal.Projected.IsZero())
}

func TestEngine_SplitRoomNeverScans(t *testing.T) {
	// GIVEN: two records, only the first has adjustments
	spy := &spyScanner{}
	e := testEngine(4)
	e.Allocator = &funding.BandAllocator{Scanner: spy}

	in := minimalInput()
	split := minimalDetail()
	split.ID = "ld-split"
	split.LicenceTypeCode = "Y"
	in.LicenceDetails = []funding.LicenceDetail{split, minimalDetail()}
	in.Adjustments = []funding.SpaceAllocationAdjustment{
		{LicenceDetailID: "ld-split", BandID: "Y-16", AdjustedCount: 2},
		{LicenceDetailID: "ld-split", BandID: "X-12", AdjustedCount: 1},
		{LicenceDetailID: "ld-ghost", BandID: "Y-8", AdjustedCount: 1},
	}

	// WHEN
	res, err := e.Calculate(context.Background(), in)
	require.NoError(t, err)

	// THEN: the scan ran once, for the record without adjustments
	assert.Equal(t, int32(1), spy.calls.Load())
	require.Len(t, res.Records, 2)
	assert.Equal(t, funding.AllocationSplitRoom, res.Records[0].Mode)
	assert.Equal(t, []funding.BandID{"Y-16", "Y-16"}, res.Records[0].Bands)
	assert.Equal(t, funding.AllocationDefault, res.Records[1].Mode)

	acts := actions(res.Trail)
	assert.Contains(t, acts, funding.ActionAllocationSplitRoom)
	assert.Contains(t, acts, funding.ActionAdjustmentIgnored)
}

func TestEngine_NegativeAdjustmentRejectsRecord(t *testing.T) {
	in := minimalInput()
	in.Adjustments = []funding.SpaceAllocationAdjustment{{LicenceDetailID: "ld-1", BandID: "X-12", AdjustedCount: -1}}

	res, err := testEngine(1).Calculate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, funding.DecisionInvalidData, res.Decision)
	assert.ErrorIs(t, res.Errors[0], funding.ErrInvalidInput)
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := testEngine(1).Calculate(ctx, minimalInput())

	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// PROPERTIES
// =============================================================================

func multiRecordInput() funding.Input {
	in := minimalInput()
	in.NonHR = funding.NonHRProjections{
		Programming: d("1200"), Administrative: d("3400"), Operational: d("5600"), Facility: d("7800"),
	}
	in.RateSchedule.HealthTaxBands = []funding.EHTBand{{Threshold: d("100000"), RatePct: d("0.0195"), ApplyToExcess: true}}
	for i, spaces := range []int{3, 12, 20, 37} {
		ld := minimalDetail()
		ld.ID = funding.LicenceDetailID("ld-y" + string(rune('a'+i)))
		ld.LicenceTypeCode = "Y"
		ld.OperationalSpaces = intPtr(spaces)
		if i%2 == 1 {
			ld.CareType = funding.CarePartTime
		}
		in.LicenceDetails = append(in.LicenceDetails, ld)
	}
	return in
}

func TestEngine_Idempotent(t *testing.T) {
	in := multiRecordInput()

	first, err := testEngine(1).Calculate(context.Background(), in)
	require.NoError(t, err)
	second, err := testEngine(8).Calculate(context.Background(), in)
	require.NoError(t, err)

	for _, c := range funding.Categories() {
		a, b := first.Amounts.Get(c), second.Amounts.Get(c)
		assert.Equal(t, a.Projected.String(), b.Projected.String(), "projected %s", c)
		assert.Equal(t, a.ParentFee.String(), b.ParentFee.String(), "parent fee %s", c)
	}
	assert.Equal(t, first.Amounts.AdjustedFTE.String(), second.Amounts.AdjustedFTE.String())
	assert.Equal(t, first.Trail, second.Trail, "trail must not depend on worker count")
}

func TestEngine_BaseIsProjectedMinusParentFee(t *testing.T) {
	res, err := testEngine(4).Calculate(context.Background(), multiRecordInput())
	require.NoError(t, err)
	require.Equal(t, funding.DecisionAutoApproved, res.Decision)

	var leafPF = d("0")
	for _, c := range funding.Categories() {
		amt := res.Amounts.Get(c)
		assert.True(t, amt.Base().Equal(amt.Projected.Sub(amt.ParentFee)), "category %s", c)
		if c != funding.CategoryHRTotal && c != funding.CategoryGrandTotal {
			leafPF = leafPF.Add(amt.ParentFee)
		}
	}
	assert.True(t, leafPF.Equal(res.Amounts.GrandTotal.ParentFee))
	assert.False(t, res.Amounts.HREmployerHealthTax.Projected.IsZero())
}

func TestEngine_MonotonicAdjustedFTE(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	e := testEngine(1)

	for iter := 0; iter < 50; iter++ {
		in := minimalInput()
		in.Bands = randomBandTable(rng, "P")
		in.LicenceDetails[0].LicenceTypeCode = "P"
		in.LicenceDetails[0].WeeksInOperation = 1 + rng.Intn(52)

		prev := d("0")
		for spaces := 0; spaces <= 60; spaces += 1 + rng.Intn(3) {
			in.LicenceDetails[0].OperationalSpaces = intPtr(spaces)

			res, err := e.Calculate(context.Background(), in)
			require.NoError(t, err)
			require.Equal(t, funding.DecisionAutoApproved, res.Decision)

			assert.True(t, res.Amounts.AdjustedFTE.GreaterThanOrEqual(prev),
				"iteration %d: %d spaces gave %s FTE, fewer than %s", iter, spaces, res.Amounts.AdjustedFTE, prev)
			prev = res.Amounts.AdjustedFTE
		}
	}
}

func TestDecision(t *testing.T) {
	for _, dec := range []funding.Decision{
		funding.DecisionAutoApproved, funding.DecisionNeedsManualReview,
		funding.DecisionInvalidData, funding.DecisionError,
	} {
		assert.True(t, dec.Valid())
		assert.Equal(t, string(dec), dec.String())
	}
	assert.False(t, funding.Decision("Maybe").Valid())
}
