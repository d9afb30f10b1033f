/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with a rate
	schedule and realistic facility applications, then record a first
	calculation run for each application so the run history is not empty.

AVAILABLE SCENARIOS:

	minimal-facility: One full-time licence, greedy band allocation
	split-room:       Two rooms of one licence type, split-room adjustments
	multi-licence:    Infant, preschool and part-time school-age care plus
	                  non-HR projections

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Save the standard rate schedule from the childcare presets
 3. Save the scenario's applications
 4. Calculate each application and record the run

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "split-room"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add a builder returning the scenario's applications
 3. Add it to the scenarioApplications map

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Calculation handlers reused by the loaders
  - childcare/presets.go: Standard rate schedule and band table
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/facility-funding/childcare"
	"github.com/warp/facility-funding/funding"
)

// StandardScheduleID is the rate schedule every scenario uses.
const StandardScheduleID funding.RateScheduleID = "rs-standard"

var errUnknownScenario = errors.New("unknown scenario")

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "minimal-facility",
		Name:        "Minimal Facility",
		Description: "One full-time 30-months-to-school-age licence with 20 spaces",
	},
	{
		ID:          "split-room",
		Name:        "Split Room",
		Description: "24 spaces operated as two rooms through split-room adjustments",
	},
	{
		ID:          "multi-licence",
		Name:        "Multi-Licence Facility",
		Description: "Infant, preschool and part-time school-age care with non-HR projections",
	},
}

var scenarioApplications = map[string]func() []funding.Application{
	"minimal-facility": minimalFacility,
	"split-room":       splitRoom,
	"multi-licence":    multiLicence,
}

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

func detail(id, licenceType string, care funding.CareType, from, to string, weeks, spaces int) funding.LicenceDetail {
	return funding.LicenceDetail{
		ID:                funding.LicenceDetailID(id),
		LicenceTypeCode:   licenceType,
		CareType:          care,
		HoursFrom:         decimal.RequireFromString(from),
		HoursTo:           decimal.RequireFromString(to),
		OperatingDays:     weekdays,
		WeeksInOperation:  weeks,
		OperationalSpaces: &spaces,
	}
}

func minimalFacility() []funding.Application {
	return []funding.Application{{
		ID:             "app-maple",
		FacilityID:     "fac-maple",
		FacilityName:   "Maple Street Child Care",
		RateScheduleID: StandardScheduleID,
		LicenceDetails: []funding.LicenceDetail{
			detail("ld-maple-30m", childcare.Group30MonthsSchoolAge, funding.CareFullTime, "7.5", "17.5", 50, 20),
		},
	}}
}

func splitRoom() []funding.Application {
	return []funding.Application{{
		ID:             "app-cedar",
		FacilityID:     "fac-cedar",
		FacilityName:   "Cedar Grove Early Learning",
		RateScheduleID: StandardScheduleID,
		LicenceDetails: []funding.LicenceDetail{
			detail("ld-cedar-30m", childcare.Group30MonthsSchoolAge, funding.CareFullTime, "7", "18", 51, 24),
		},
		Adjustments: []funding.SpaceAllocationAdjustment{
			{LicenceDetailID: "ld-cedar-30m", BandID: "30M-8", AdjustedCount: 1},
			{LicenceDetailID: "ld-cedar-30m", BandID: "30M-16", AdjustedCount: 1},
		},
		NonHR: funding.NonHRProjections{
			Facility: decimal.NewFromInt(12000),
		},
	}}
}

func multiLicence() []funding.Application {
	return []funding.Application{{
		ID:             "app-birch",
		FacilityID:     "fac-birch",
		FacilityName:   "Birch Hill Family Centre",
		RateScheduleID: StandardScheduleID,
		LicenceDetails: []funding.LicenceDetail{
			detail("ld-birch-u36", childcare.GroupUnder36Months, funding.CareFullTime, "7.5", "17.5", 50, 12),
			detail("ld-birch-30m", childcare.Group30MonthsSchoolAge, funding.CareFullTime, "7.5", "17.5", 50, 25),
			detail("ld-birch-sa", childcare.GroupSchoolAge, funding.CarePartTime, "15", "18", 40, 24),
		},
		NonHR: funding.NonHRProjections{
			Programming:    decimal.NewFromInt(4500),
			Administrative: decimal.NewFromInt(9000),
			Operational:    decimal.NewFromInt(15000),
			Facility:       decimal.NewFromInt(36000),
		},
	}}
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the last loaded scenario.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": current})
}

// LoadScenario resets the store and loads a scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	runs, err := h.loadScenario(r.Context(), req.ScenarioID)
	if errors.Is(err, errUnknownScenario) {
		h.writeError(w, http.StatusBadRequest, "Unknown scenario", err)
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scenario_id": req.ScenarioID,
		"runs":        dtos,
	})
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to reset", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// loadScenario resets the store, saves the scenario data and records one
// run per application.
func (h *Handler) loadScenario(ctx context.Context, id string) ([]funding.RunRecord, error) {
	build, ok := scenarioApplications[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownScenario, id)
	}

	if err := h.Store.Reset(ctx); err != nil {
		return nil, err
	}

	now := h.now()
	schedule := childcare.StandardSchedule(StandardScheduleID, time.Date(now.Year(), time.April, 1, 0, 0, 0, 0, time.UTC))
	schedule.CreatedAt = now
	if err := h.Store.SaveRateSchedule(ctx, schedule); err != nil {
		return nil, fmt.Errorf("save rate schedule: %w", err)
	}

	var runs []funding.RunRecord
	for _, app := range build() {
		app.CreatedAt = now
		if err := h.Store.SaveApplication(ctx, app); err != nil {
			return nil, fmt.Errorf("save application %s: %w", app.ID, err)
		}

		res, err := h.calculate(ctx, app, schedule)
		if err != nil {
			return nil, fmt.Errorf("calculate %s: %w", app.ID, err)
		}
		run := funding.NewRunRecord(res)
		if err := h.Store.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("record run for %s: %w", app.ID, err)
		}
		runs = append(runs, run)
	}

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
	return runs, nil
}
