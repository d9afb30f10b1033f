/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Request bodies reuse the
  factory JSON types so that a schedule or application posted to the API has
  exactly the shape that is stored. Responses are rendered for people: money
  is a string with 2 decimals, FTE a string with 4.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Calculation:
    CalculateRequest, ResultDTO, RecordDTO, EnvelopeDTO, TrailDTO

  Runs:
    RunDTO

  Reference data:
    RateScheduleSummaryDTO, ApplicationSummaryDTO
    (licence types are served as childcare.LicenceType)

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

SEE ALSO:
  - handlers.go: Uses these types
  - factory/: RateScheduleJSON and ApplicationJSON
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/facility-funding/factory"
	"github.com/warp/facility-funding/funding"
)

const (
	moneyPlaces = 2
	ftePlaces   = 4
)

func money(d decimal.Decimal) string { return d.StringFixed(moneyPlaces) }
func fte(d decimal.Decimal) string   { return d.StringFixed(ftePlaces) }

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CalculateRequest is the body of POST /api/calculations. When RateSchedule
// is omitted, the application's rate_schedule_id is looked up in the store.
type CalculateRequest struct {
	Application  factory.ApplicationJSON   `json:"application"`
	RateSchedule *factory.RateScheduleJSON `json:"rate_schedule,omitempty"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CALCULATION RESULT
// =============================================================================

// EnvelopeDTO is one funding category.
type EnvelopeDTO struct {
	Projected string `json:"projected"`
	ParentFee string `json:"parent_fee"`
	Base      string `json:"base"`
}

// RoleFTEDTO is a per-role value rendered as FTE.
type RoleFTEDTO struct {
	ITE  string `json:"ite"`
	ECE  string `json:"ece"`
	ECEA string `json:"ecea"`
	RA   string `json:"ra"`
}

// RecordDTO is the breakdown of one licence detail.
type RecordDTO struct {
	LicenceDetailID string   `json:"licence_detail_id"`
	LicenceType     string   `json:"licence_type"`
	CareType        string   `json:"care_type"`
	Spaces          int      `json:"spaces"`
	AllocationMode  string   `json:"allocation_mode"`
	Bands           []string `json:"bands"`

	AnnualStandardHours        string `json:"annual_standard_hours"`
	AnnualAvailableHoursPerFTE string `json:"annual_available_hours_per_fte"`
	AnnualHoursFTERatio        string `json:"annual_hours_fte_ratio"`

	RawFTE           RoleFTEDTO `json:"raw_fte"`
	AdjustedFTE      RoleFTEDTO `json:"adjusted_fte"`
	TotalAdjustedFTE string     `json:"total_adjusted_fte"`

	TotalFTECostPerHour   string `json:"total_fte_cost_per_hour"`
	RequiredSupervisors   string `json:"required_supervisors"`
	SupervisorCostPerYear string `json:"supervisor_cost_per_year"`
	StaffingCost          string `json:"staffing_cost"`
	Benefits              string `json:"benefits"`
	QualityEnhancement    string `json:"quality_enhancement"`
	HRRenumeration        string `json:"hr_renumeration"`

	ProfessionalDevelopmentHoursCost string `json:"professional_development_hours_cost"`
	ProfessionalDevelopmentExpenses  string `json:"professional_development_expenses"`
	ProfessionalDues                 string `json:"professional_dues"`

	ParentFeeBasis string `json:"parent_fee_basis"`
	ParentFees     string `json:"parent_fees"`
}

// TrailDTO is one decision trail entry.
type TrailDTO struct {
	Seq             int               `json:"seq"`
	LicenceDetailID string            `json:"licence_detail_id,omitempty"`
	Action          string            `json:"action"`
	Detail          string            `json:"detail,omitempty"`
	Fields          map[string]string `json:"fields,omitempty"`
}

// RunDTO is a stored calculation run.
type RunDTO struct {
	RunID          string                 `json:"run_id"`
	ApplicationID  string                 `json:"application_id"`
	FacilityID     string                 `json:"facility_id"`
	RateScheduleID string                 `json:"rate_schedule_id"`
	Decision       string                 `json:"decision"`
	Amounts        map[string]EnvelopeDTO `json:"amounts"`
	AdjustedFTE    string                 `json:"adjusted_fte"`
	Errors         []string               `json:"errors"`
	Trail          []TrailDTO             `json:"trail"`
	CompletedAt    string                 `json:"completed_at"`
}

// ResultDTO is a run plus its per-record breakdown.
type ResultDTO struct {
	RunDTO
	Records []RecordDTO `json:"records"`
}

func amountsDTO(a funding.FundingAmounts) map[string]EnvelopeDTO {
	out := make(map[string]EnvelopeDTO, len(funding.Categories()))
	for _, c := range funding.Categories() {
		e := a.Get(c)
		out[string(c)] = EnvelopeDTO{
			Projected: money(e.Projected),
			ParentFee: money(e.ParentFee),
			Base:      money(e.Base()),
		}
	}
	return out
}

func roleFTE(v funding.RoleValues) RoleFTEDTO {
	return RoleFTEDTO{ITE: fte(v.ITE), ECE: fte(v.ECE), ECEA: fte(v.ECEA), RA: fte(v.RA)}
}

func trailDTOs(entries []funding.TrailEntry) []TrailDTO {
	out := make([]TrailDTO, len(entries))
	for i, e := range entries {
		out[i] = TrailDTO{
			Seq:             e.Seq,
			LicenceDetailID: string(e.LicenceDetailID),
			Action:          string(e.Action),
			Detail:          e.Detail,
			Fields:          e.Fields,
		}
	}
	return out
}

func toRunDTO(r funding.RunRecord) RunDTO {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	return RunDTO{
		RunID:          r.RunID.String(),
		ApplicationID:  string(r.ApplicationID),
		FacilityID:     string(r.FacilityID),
		RateScheduleID: string(r.RateScheduleID),
		Decision:       string(r.Decision),
		Amounts:        amountsDTO(r.Amounts),
		AdjustedFTE:    fte(r.Amounts.AdjustedFTE),
		Errors:         errs,
		Trail:          trailDTOs(r.Trail),
		CompletedAt:    r.CompletedAt.UTC().Format(time.RFC3339),
	}
}

func toRecordDTO(rc funding.RecordCost) RecordDTO {
	bands := make([]string, len(rc.Bands))
	for i, b := range rc.Bands {
		bands[i] = string(b)
	}
	return RecordDTO{
		LicenceDetailID:                  string(rc.LicenceDetailID),
		LicenceType:                      rc.LicenceType,
		CareType:                         string(rc.CareType),
		Spaces:                           rc.Spaces,
		AllocationMode:                   string(rc.Mode),
		Bands:                            bands,
		AnnualStandardHours:              rc.AnnualStandardHours.StringFixed(2),
		AnnualAvailableHoursPerFTE:       rc.AnnualAvailableHoursPerFTE.StringFixed(2),
		AnnualHoursFTERatio:              fte(rc.AnnualHoursFTERatio),
		RawFTE:                           roleFTE(rc.RawFTE),
		AdjustedFTE:                      roleFTE(rc.AdjustedFTE),
		TotalAdjustedFTE:                 fte(rc.TotalAdjustedFTE),
		TotalFTECostPerHour:              money(rc.TotalFTECostPerHour),
		RequiredSupervisors:              fte(rc.RequiredSupervisors),
		SupervisorCostPerYear:            money(rc.SupervisorCostPerYear),
		StaffingCost:                     money(rc.StaffingCost),
		Benefits:                         money(rc.BenefitsCostPerYear),
		QualityEnhancement:               money(rc.QualityEnhancementCost),
		HRRenumeration:                   money(rc.HRRenumeration),
		ProfessionalDevelopmentHoursCost: money(rc.ProfessionalDevelopmentHoursCost),
		ProfessionalDevelopmentExpenses:  money(rc.ProfessionalDevelopmentExpenses),
		ProfessionalDues:                 money(rc.ProfessionalDues),
		ParentFeeBasis:                   string(rc.ParentFeeBasis),
		ParentFees:                       money(rc.ParentFees),
	}
}

func toResultDTO(res *funding.FundingResult) ResultDTO {
	records := make([]RecordDTO, len(res.Records))
	for i, rc := range res.Records {
		records[i] = toRecordDTO(rc)
	}
	return ResultDTO{
		RunDTO:  toRunDTO(funding.NewRunRecord(res)),
		Records: records,
	}
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// RateScheduleSummaryDTO lists a schedule without its full configuration.
type RateScheduleSummaryDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	EffectiveFrom string `json:"effective_from,omitempty"`
	Bands         int    `json:"bands"`
	Complete      bool   `json:"complete"`
}

func toScheduleSummary(s funding.StoredRateSchedule) RateScheduleSummaryDTO {
	dto := RateScheduleSummaryDTO{
		ID:       string(s.ID),
		Name:     s.Name,
		Bands:    len(s.Bands),
		Complete: s.Validate() == nil,
	}
	if !s.EffectiveFrom.IsZero() {
		dto.EffectiveFrom = s.EffectiveFrom.Format("2006-01-02")
	}
	return dto
}

// ApplicationSummaryDTO lists an application without its licence details.
type ApplicationSummaryDTO struct {
	ID             string `json:"id"`
	FacilityID     string `json:"facility_id"`
	FacilityName   string `json:"facility_name"`
	RateScheduleID string `json:"rate_schedule_id"`
	LicenceDetails int    `json:"licence_details"`
}

func toApplicationSummary(a funding.Application) ApplicationSummaryDTO {
	return ApplicationSummaryDTO{
		ID:             string(a.ID),
		FacilityID:     string(a.FacilityID),
		FacilityName:   a.FacilityName,
		RateScheduleID: string(a.RateScheduleID),
		LicenceDetails: len(a.LicenceDetails),
	}
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
