package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/facility-funding/funding"
)

// =============================================================================
// RUN JSON - Storage form of a calculation run
// =============================================================================

// RunJSON is the lossless JSON form of a funding.RunRecord. Decimals keep
// full precision; rounding for display happens in the API layer.
type RunJSON struct {
	RunID          string      `json:"run_id"`
	ApplicationID  string      `json:"application_id"`
	FacilityID     string      `json:"facility_id"`
	RateScheduleID string      `json:"rate_schedule_id"`
	Decision       string      `json:"decision"`
	Amounts        AmountsJSON `json:"amounts"`
	Errors         []string    `json:"errors,omitempty"`
	Trail          []TrailJSON `json:"trail,omitempty"`
	CompletedAt    time.Time   `json:"completed_at"`
}

// EnvelopeJSON is one Projected / ParentFee pair.
type EnvelopeJSON struct {
	Projected decimal.Decimal `json:"projected"`
	ParentFee decimal.Decimal `json:"parent_fee"`
}

// AmountsJSON mirrors funding.FundingAmounts.
type AmountsJSON struct {
	HRTotal                           EnvelopeJSON    `json:"hr_total"`
	HRWagesPaidTimeOff                EnvelopeJSON    `json:"hr_wages_paid_time_off"`
	HRBenefits                        EnvelopeJSON    `json:"hr_benefits"`
	HREmployerHealthTax               EnvelopeJSON    `json:"hr_employer_health_tax"`
	HRProfessionalDevelopmentHours    EnvelopeJSON    `json:"hr_professional_development_hours"`
	HRProfessionalDevelopmentExpenses EnvelopeJSON    `json:"hr_professional_development_expenses"`
	NonHRProgramming                  EnvelopeJSON    `json:"non_hr_programming"`
	NonHRAdministrative               EnvelopeJSON    `json:"non_hr_administrative"`
	NonHROperational                  EnvelopeJSON    `json:"non_hr_operational"`
	NonHRFacility                     EnvelopeJSON    `json:"non_hr_facility"`
	GrandTotal                        EnvelopeJSON    `json:"grand_total"`
	AdjustedFTE                       decimal.Decimal `json:"adjusted_fte"`
}

// TrailJSON is one decision trail entry.
type TrailJSON struct {
	Seq             int               `json:"seq"`
	LicenceDetailID string            `json:"licence_detail_id,omitempty"`
	Action          string            `json:"action"`
	Detail          string            `json:"detail,omitempty"`
	Fields          map[string]string `json:"fields,omitempty"`
}

// =============================================================================
// CONVERSION
// =============================================================================

// MarshalRun encodes a run record.
func MarshalRun(r funding.RunRecord) ([]byte, error) {
	return json.Marshal(RunToJSON(r))
}

// UnmarshalRun decodes a run record written by MarshalRun.
func UnmarshalRun(data []byte) (*funding.RunRecord, error) {
	var rj RunJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return nil, fmt.Errorf("failed to parse run JSON: %w", err)
	}
	return RunFromJSON(rj)
}

// RunToJSON converts a run record to its JSON form.
func RunToJSON(r funding.RunRecord) RunJSON {
	rj := RunJSON{
		RunID:          r.RunID.String(),
		ApplicationID:  string(r.ApplicationID),
		FacilityID:     string(r.FacilityID),
		RateScheduleID: string(r.RateScheduleID),
		Decision:       string(r.Decision),
		Amounts:        amountsToJSON(r.Amounts),
		Errors:         r.Errors,
		CompletedAt:    r.CompletedAt.UTC(),
	}
	for _, e := range r.Trail {
		rj.Trail = append(rj.Trail, TrailJSON{
			Seq:             e.Seq,
			LicenceDetailID: string(e.LicenceDetailID),
			Action:          string(e.Action),
			Detail:          e.Detail,
			Fields:          e.Fields,
		})
	}
	return rj
}

// RunFromJSON converts RunJSON back to a run record.
func RunFromJSON(rj RunJSON) (*funding.RunRecord, error) {
	id, err := uuid.Parse(rj.RunID)
	if err != nil {
		return nil, fmt.Errorf("invalid run_id %q: %w", rj.RunID, err)
	}
	decision := funding.Decision(rj.Decision)
	if !decision.Valid() {
		return nil, fmt.Errorf("run %s: unknown decision %q", rj.RunID, rj.Decision)
	}

	r := &funding.RunRecord{
		RunMeta: funding.RunMeta{
			RunID:          id,
			ApplicationID:  funding.ApplicationID(rj.ApplicationID),
			FacilityID:     funding.FacilityID(rj.FacilityID),
			RateScheduleID: funding.RateScheduleID(rj.RateScheduleID),
		},
		Decision:    decision,
		Amounts:     amountsFromJSON(rj.Amounts),
		Errors:      rj.Errors,
		CompletedAt: rj.CompletedAt,
	}
	for _, e := range rj.Trail {
		r.Trail = append(r.Trail, funding.TrailEntry{
			Seq:             e.Seq,
			LicenceDetailID: funding.LicenceDetailID(e.LicenceDetailID),
			Action:          funding.TrailAction(e.Action),
			Detail:          e.Detail,
			Fields:          e.Fields,
		})
	}
	return r, nil
}

func envelopeToJSON(e funding.EnvelopeAmount) EnvelopeJSON {
	return EnvelopeJSON{Projected: e.Projected, ParentFee: e.ParentFee}
}

func envelopeFromJSON(e EnvelopeJSON) funding.EnvelopeAmount {
	return funding.EnvelopeAmount{Projected: e.Projected, ParentFee: e.ParentFee}
}

func amountsToJSON(a funding.FundingAmounts) AmountsJSON {
	return AmountsJSON{
		HRTotal:                           envelopeToJSON(a.HRTotal),
		HRWagesPaidTimeOff:                envelopeToJSON(a.HRWagesPaidTimeOff),
		HRBenefits:                        envelopeToJSON(a.HRBenefits),
		HREmployerHealthTax:               envelopeToJSON(a.HREmployerHealthTax),
		HRProfessionalDevelopmentHours:    envelopeToJSON(a.HRProfessionalDevelopmentHours),
		HRProfessionalDevelopmentExpenses: envelopeToJSON(a.HRProfessionalDevelopmentExpenses),
		NonHRProgramming:                  envelopeToJSON(a.NonHRProgramming),
		NonHRAdministrative:               envelopeToJSON(a.NonHRAdministrative),
		NonHROperational:                  envelopeToJSON(a.NonHROperational),
		NonHRFacility:                     envelopeToJSON(a.NonHRFacility),
		GrandTotal:                        envelopeToJSON(a.GrandTotal),
		AdjustedFTE:                       a.AdjustedFTE,
	}
}

func amountsFromJSON(a AmountsJSON) funding.FundingAmounts {
	return funding.FundingAmounts{
		HRTotal:                           envelopeFromJSON(a.HRTotal),
		HRWagesPaidTimeOff:                envelopeFromJSON(a.HRWagesPaidTimeOff),
		HRBenefits:                        envelopeFromJSON(a.HRBenefits),
		HREmployerHealthTax:               envelopeFromJSON(a.HREmployerHealthTax),
		HRProfessionalDevelopmentHours:    envelopeFromJSON(a.HRProfessionalDevelopmentHours),
		HRProfessionalDevelopmentExpenses: envelopeFromJSON(a.HRProfessionalDevelopmentExpenses),
		NonHRProgramming:                  envelopeFromJSON(a.NonHRProgramming),
		NonHRAdministrative:               envelopeFromJSON(a.NonHRAdministrative),
		NonHROperational:                  envelopeFromJSON(a.NonHROperational),
		NonHRFacility:                     envelopeFromJSON(a.NonHRFacility),
		GrandTotal:                        envelopeFromJSON(a.GrandTotal),
		AdjustedFTE:                       a.AdjustedFTE,
	}
}
