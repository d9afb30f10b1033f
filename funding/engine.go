/*
engine.go - Calculation run orchestration

PURPOSE:
  Runs the full pipeline for one application: validates the snapshot, fans
  out over licence details, aggregates the surviving records and wraps the
  outcome in a FundingResult.

CONCURRENCY:
  Records are independent given the shared, read-only rate schedule, so they
  are computed in parallel with a bounded worker count. Each worker writes
  only its own slot; the reduction waits for all of them. Trail entries are
  merged in input order, so the trail is identical for any worker count.

ERROR POLICY:
  A failed record is collected as a *RecordError and the run continues.
  The run is InvalidData when:
    - no licence details were supplied
    - non-HR projections are negative
    - every record was rejected
    - facility-level aggregation failed (employer health tax bands)
  Otherwise it is AutoApproved, with any record errors attached.

  The only error Calculate itself returns is context cancellation.
*/
package funding

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is used when Engine.Workers is not positive.
const DefaultWorkers = 4

// Engine computes funding results. The zero value is usable.
type Engine struct {
	Allocator *BandAllocator
	Workers   int
	Logger    *slog.Logger

	// Test hooks
	Clock    func() time.Time
	NewRunID func() uuid.UUID
}

// NewEngine returns an engine with the greedy allocator.
func NewEngine(workers int, logger *slog.Logger) *Engine {
	return &Engine{
		Allocator: NewBandAllocator(),
		Workers:   workers,
		Logger:    logger,
	}
}

type recordOutcome struct {
	cost  *RecordCost
	err   error
	trail trail
}

// Calculate runs one calculation over an already-materialized input.
func (e *Engine) Calculate(ctx context.Context, in Input) (*FundingResult, error) {
	log := e.logger().With("application_id", in.ApplicationID, "facility_id", in.FacilityID)
	meta := RunMeta{
		RunID:          e.runID(),
		ApplicationID:  in.ApplicationID,
		FacilityID:     in.FacilityID,
		RateScheduleID: in.RateSchedule.ID,
	}

	var pre, post trail
	pre.add("", ActionInputReceived, "application snapshot received", map[string]string{
		"licence_details": strconv.Itoa(len(in.LicenceDetails)),
		"adjustments":     strconv.Itoa(len(in.Adjustments)),
		"rate_schedule":   string(in.RateSchedule.ID),
	})

	// 1. Facility-level shape checks
	var facilityErrs []error
	if len(in.LicenceDetails) == 0 {
		facilityErrs = append(facilityErrs, ErrNoLicenceDetails)
	}
	if err := in.NonHR.Validate(); err != nil {
		facilityErrs = append(facilityErrs, err)
	}
	if len(facilityErrs) > 0 {
		return e.invalid(log, meta, facilityErrs, &pre, nil), nil
	}

	noteDuplicates(in.LicenceDetails, &pre)
	adjustments := in.adjustmentsByDetail()
	noteOrphanAdjustments(in.LicenceDetails, adjustments, &pre)

	// 2. Fan out over records
	outcomes := make([]recordOutcome, len(in.LicenceDetails))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i := range in.LicenceDetails {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = e.processRecord(in.LicenceDetails[i], in.Bands, adjustments[in.LicenceDetails[i].ID], in.RateSchedule)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("calculate application %s: %w", in.ApplicationID, err)
	}

	// 3. Fan in, preserving input order
	var (
		records []RecordCost
		errs    []error
		trails  = []*trail{&pre}
	)
	for i := range outcomes {
		o := &outcomes[i]
		trails = append(trails, &o.trail)
		if o.err != nil {
			errs = append(errs, o.err)
			log.Warn("licence detail rejected", "licence_detail_id", in.LicenceDetails[i].ID, "error", o.err)
			continue
		}
		records = append(records, *o.cost)
	}
	if len(records) == 0 {
		return e.invalid(log, meta, errs, trails...), nil
	}

	// 4. Reduce
	amounts, summary, err := Aggregate(records, in.NonHR, in.RateSchedule)
	if err != nil {
		errs = append(errs, err)
		return e.invalid(log, meta, errs, trails...), nil
	}
	post.add("", ActionEHTComputed, "employer health tax on facility wage base", map[string]string{
		"wage_base": decimalString(summary.WageBase, 2),
		"tax":       decimalString(summary.EmployerHealthTax, 2),
	})
	post.add("", ActionParentFeesAllocated, "parent fees spread by projected share", map[string]string{
		"total_parent_fees": decimalString(summary.TotalParentFees, 2),
		"grand_total":       decimalString(amounts.GrandTotal.Projected, 2),
	})
	post.add("", ActionDecision, string(DecisionAutoApproved), map[string]string{
		"records_calculated": strconv.Itoa(len(records)),
		"records_rejected":   strconv.Itoa(len(errs)),
	})
	trails = append(trails, &post)

	result := NewFundingResult(meta, amounts, records, errs, mergeTrails(trails...), e.now())
	log.Info("calculation complete",
		"run_id", meta.RunID,
		"decision", result.Decision,
		"records", len(records),
		"rejected", len(errs),
		"grand_total", amounts.GrandTotal.Projected.StringFixed(2),
	)
	return result, nil
}

// processRecord runs bands → allocation → cost for one licence detail.
// It never panics on bad data; every failure lands in the outcome.
func (e *Engine) processRecord(d LicenceDetail, table BandTable, adj map[BandID]int, schedule RateSchedule) recordOutcome {
	var out recordOutcome
	reject := func(err error) recordOutcome {
		out.err = &RecordError{LicenceDetailID: d.ID, Err: err}
		out.trail.add(d.ID, ActionRecordRejected, err.Error(), nil)
		return out
	}

	if err := d.Validate(); err != nil {
		return reject(err)
	}
	for band, n := range adj {
		if n < 0 {
			return reject(&InputError{
				LicenceDetailID: d.ID,
				Field:           "adjustments." + string(band),
				Reason:          "adjusted count must not be negative",
			})
		}
	}

	bands, err := table.ForLicenceType(d.LicenceTypeCode)
	if err != nil {
		return reject(err)
	}
	out.trail.addf(d.ID, ActionBandsFiltered, map[string]string{
		"licence_type": d.LicenceTypeCode,
		"bands":        strconv.Itoa(len(bands)),
	}, "%d bands mapped to licence type %s", len(bands), d.LicenceTypeCode)

	alloc := e.allocator().Allocate(bands, d.Spaces(), adj)
	action := ActionAllocationDefault
	if alloc.Mode == AllocationSplitRoom {
		action = ActionAllocationSplitRoom
	}
	out.trail.add(d.ID, action, joinBandIDs(alloc.BandIDs()), map[string]string{
		"spaces":         strconv.Itoa(d.Spaces()),
		"occurrences":    strconv.Itoa(len(alloc.Bands)),
		"distinct_bands": strconv.Itoa(alloc.DistinctBands()),
	})
	for _, id := range alloc.IgnoredAdjustments {
		out.trail.addf(d.ID, ActionAdjustmentIgnored, map[string]string{"band_id": string(id)},
			"band %s is not mapped to licence type %s", id, d.LicenceTypeCode)
	}
	if alloc.Unallocated > 0 {
		out.trail.addf(d.ID, ActionSpacesUnallocated, map[string]string{"unallocated": strconv.Itoa(alloc.Unallocated)},
			"%d of %d spaces fit no band", alloc.Unallocated, d.Spaces())
	}

	rc, err := CalculateRecord(d, alloc, schedule)
	if err != nil {
		return reject(err)
	}

	fte := roleFields("raw_", rc.RawFTE)
	for k, v := range roleFields("adjusted_", rc.AdjustedFTE) {
		fte[k] = v
	}
	fte["ratio"] = rc.AnnualHoursFTERatio.String()
	fte["annual_standard_hours"] = rc.AnnualStandardHours.String()
	fte["total_adjusted_fte"] = rc.TotalAdjustedFTE.String()
	out.trail.add(d.ID, ActionFTEComputed, "staffing derived from allocated bands", fte)

	out.trail.add(d.ID, ActionCostComputed, "cost chain evaluated", map[string]string{
		"staffing_cost":    decimalString(rc.StaffingCost, 2),
		"supervisor_cost":  decimalString(rc.SupervisorCostPerYear, 2),
		"benefits":         decimalString(rc.BenefitsCostPerYear, 2),
		"quality":          decimalString(rc.QualityEnhancementCost, 2),
		"hr_renumeration":  decimalString(rc.HRRenumeration, 2),
		"parent_fees":      decimalString(rc.ParentFees, 2),
		"parent_fee_basis": string(rc.ParentFeeBasis),
	})

	out.cost = &rc
	return out
}

func (e *Engine) invalid(log *slog.Logger, meta RunMeta, errs []error, trails ...*trail) *FundingResult {
	var last trail
	last.add("", ActionDecision, string(DecisionInvalidData), map[string]string{
		"errors": strconv.Itoa(len(errs)),
	})
	trails = append(trails, &last)
	log.Warn("calculation produced invalid data", "run_id", meta.RunID, "errors", len(errs))
	return NewInvalidDataResult(meta, errs, mergeTrails(trails...), e.now())
}

// noteDuplicates records licence details sharing a licence type and care
// type. Both rows are still calculated.
func noteDuplicates(details []LicenceDetail, t *trail) {
	type key struct {
		lt   string
		care CareType
	}
	first := make(map[key]LicenceDetailID)
	for _, d := range details {
		k := key{d.LicenceTypeCode, d.CareType}
		if prev, ok := first[k]; ok {
			t.addf(d.ID, ActionDuplicateLicenceType, map[string]string{"first": string(prev)},
				"licence type %s (%s) also on %s", d.LicenceTypeCode, d.CareType, prev)
			continue
		}
		first[k] = d.ID
	}
}

func noteOrphanAdjustments(details []LicenceDetail, adj map[LicenceDetailID]map[BandID]int, t *trail) {
	known := make(map[LicenceDetailID]bool, len(details))
	for _, d := range details {
		known[d.ID] = true
	}
	var orphans []LicenceDetailID
	for id := range adj {
		if !known[id] {
			orphans = append(orphans, id)
		}
	}
	slices.Sort(orphans)
	for _, id := range orphans {
		t.addf(id, ActionAdjustmentIgnored, nil, "adjustments reference unknown licence detail %s", id)
	}
}

func (e *Engine) allocator() *BandAllocator {
	if e.Allocator == nil {
		return NewBandAllocator()
	}
	return e.Allocator
}

func (e *Engine) workers() int {
	if e.Workers <= 0 {
		return DefaultWorkers
	}
	return e.Workers
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}

func (e *Engine) runID() uuid.UUID {
	if e.NewRunID != nil {
		return e.NewRunID()
	}
	return uuid.New()
}
