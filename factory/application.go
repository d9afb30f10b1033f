package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/facility-funding/funding"
)

// =============================================================================
// APPLICATION JSON
// =============================================================================

// ApplicationJSON is the JSON representation of a materialized application
// snapshot.
//
//	{
//	  "id": "app-1",
//	  "facility_id": "fac-1",
//	  "facility_name": "Maple Street Daycare",
//	  "rate_schedule_id": "rs-2025",
//	  "licence_details": [{
//	    "id": "ld-1", "licence_type": "GC-30M-SA", "care_type": "full_time",
//	    "hours_from": "07:30", "hours_to": "17:30",
//	    "operating_days": ["mon", "tue", "wed", "thu", "fri"],
//	    "weeks_in_operation": 50, "operational_spaces": 20
//	  }],
//	  "adjustments": [{"licence_detail_id": "ld-1", "band_id": "30M-16", "adjusted_count": 1}],
//	  "non_hr": {"programming": "1200", "facility": "8000"}
//	}
type ApplicationJSON struct {
	ID             string              `json:"id"`
	FacilityID     string              `json:"facility_id"`
	FacilityName   string              `json:"facility_name,omitempty"`
	RateScheduleID string              `json:"rate_schedule_id"`
	LicenceDetails []LicenceDetailJSON `json:"licence_details"`
	Adjustments    []AdjustmentJSON    `json:"adjustments,omitempty"`
	NonHR          NonHRJSON           `json:"non_hr"`
}

// LicenceDetailJSON is one operating configuration. Hours are "HH:MM".
type LicenceDetailJSON struct {
	ID                string   `json:"id"`
	LicenceType       string   `json:"licence_type"`
	CareType          string   `json:"care_type"`
	HoursFrom         string   `json:"hours_from"`
	HoursTo           string   `json:"hours_to"`
	OperatingDays     []string `json:"operating_days"`
	WeeksInOperation  int      `json:"weeks_in_operation"`
	OperationalSpaces *int     `json:"operational_spaces"`
}

// AdjustmentJSON is one split-room override.
type AdjustmentJSON struct {
	LicenceDetailID string `json:"licence_detail_id"`
	BandID          string `json:"band_id"`
	AdjustedCount   int    `json:"adjusted_count"`
}

// NonHRJSON holds the non-HR projected amounts. Missing values are zero.
type NonHRJSON struct {
	Programming    decimal.Decimal `json:"programming"`
	Administrative decimal.Decimal `json:"administrative"`
	Operational    decimal.Decimal `json:"operational"`
	Facility       decimal.Decimal `json:"facility"`
}

// =============================================================================
// APPLICATION FACTORY
// =============================================================================

// ApplicationFactory converts JSON application snapshots to funding types.
type ApplicationFactory struct{}

// NewApplicationFactory creates a new application factory.
func NewApplicationFactory() *ApplicationFactory {
	return &ApplicationFactory{}
}

// ParseApplication parses a JSON string into an application.
func (f *ApplicationFactory) ParseApplication(jsonStr string) (*funding.Application, error) {
	var aj ApplicationJSON
	if err := json.Unmarshal([]byte(jsonStr), &aj); err != nil {
		return nil, fmt.Errorf("failed to parse application JSON: %w", err)
	}
	return f.FromJSON(aj)
}

// FromJSON converts ApplicationJSON. Only the encoding is checked here:
// clock strings, weekday names and identifiers. Semantic checks such as
// hours ordering or negative spaces belong to the engine, which rejects
// the offending record and keeps going.
func (f *ApplicationFactory) FromJSON(aj ApplicationJSON) (*funding.Application, error) {
	if aj.ID == "" {
		return nil, fmt.Errorf("application id is required")
	}
	if aj.RateScheduleID == "" {
		return nil, fmt.Errorf("application %s: rate_schedule_id is required", aj.ID)
	}

	app := &funding.Application{
		ID:             funding.ApplicationID(aj.ID),
		FacilityID:     funding.FacilityID(aj.FacilityID),
		FacilityName:   aj.FacilityName,
		RateScheduleID: funding.RateScheduleID(aj.RateScheduleID),
		NonHR: funding.NonHRProjections{
			Programming:    aj.NonHR.Programming,
			Administrative: aj.NonHR.Administrative,
			Operational:    aj.NonHR.Operational,
			Facility:       aj.NonHR.Facility,
		},
	}

	for _, lj := range aj.LicenceDetails {
		ld, err := parseLicenceDetail(lj)
		if err != nil {
			return nil, fmt.Errorf("application %s: %w", aj.ID, err)
		}
		app.LicenceDetails = append(app.LicenceDetails, ld)
	}
	for _, a := range aj.Adjustments {
		app.Adjustments = append(app.Adjustments, funding.SpaceAllocationAdjustment{
			LicenceDetailID: funding.LicenceDetailID(a.LicenceDetailID),
			BandID:          funding.BandID(a.BandID),
			AdjustedCount:   a.AdjustedCount,
		})
	}
	return app, nil
}

// ToJSON converts an application to its JSON form.
func (f *ApplicationFactory) ToJSON(app funding.Application) ApplicationJSON {
	aj := ApplicationJSON{
		ID:             string(app.ID),
		FacilityID:     string(app.FacilityID),
		FacilityName:   app.FacilityName,
		RateScheduleID: string(app.RateScheduleID),
		LicenceDetails: make([]LicenceDetailJSON, 0, len(app.LicenceDetails)),
		NonHR: NonHRJSON{
			Programming:    app.NonHR.Programming,
			Administrative: app.NonHR.Administrative,
			Operational:    app.NonHR.Operational,
			Facility:       app.NonHR.Facility,
		},
	}
	for _, ld := range app.LicenceDetails {
		days := make([]string, 0, len(ld.OperatingDays))
		for _, d := range ld.OperatingDays {
			days = append(days, weekdayCodes[d])
		}
		aj.LicenceDetails = append(aj.LicenceDetails, LicenceDetailJSON{
			ID:                string(ld.ID),
			LicenceType:       ld.LicenceTypeCode,
			CareType:          string(ld.CareType),
			HoursFrom:         formatClock(ld.HoursFrom),
			HoursTo:           formatClock(ld.HoursTo),
			OperatingDays:     days,
			WeeksInOperation:  ld.WeeksInOperation,
			OperationalSpaces: ld.OperationalSpaces,
		})
	}
	for _, a := range app.Adjustments {
		aj.Adjustments = append(aj.Adjustments, AdjustmentJSON{
			LicenceDetailID: string(a.LicenceDetailID),
			BandID:          string(a.BandID),
			AdjustedCount:   a.AdjustedCount,
		})
	}
	return aj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseLicenceDetail(lj LicenceDetailJSON) (funding.LicenceDetail, error) {
	if lj.ID == "" {
		return funding.LicenceDetail{}, fmt.Errorf("licence detail id is required")
	}
	from, err := parseClock(lj.HoursFrom)
	if err != nil {
		return funding.LicenceDetail{}, fmt.Errorf("licence detail %s: hours_from: %w", lj.ID, err)
	}
	to, err := parseClock(lj.HoursTo)
	if err != nil {
		return funding.LicenceDetail{}, fmt.Errorf("licence detail %s: hours_to: %w", lj.ID, err)
	}

	days := make([]time.Weekday, 0, len(lj.OperatingDays))
	for _, s := range lj.OperatingDays {
		d, err := parseWeekday(s)
		if err != nil {
			return funding.LicenceDetail{}, fmt.Errorf("licence detail %s: %w", lj.ID, err)
		}
		days = append(days, d)
	}

	return funding.LicenceDetail{
		ID:                funding.LicenceDetailID(lj.ID),
		LicenceTypeCode:   lj.LicenceType,
		CareType:          funding.CareType(lj.CareType),
		HoursFrom:         from,
		HoursTo:           to,
		OperatingDays:     days,
		WeeksInOperation:  lj.WeeksInOperation,
		OperationalSpaces: lj.OperationalSpaces,
	}, nil
}

var sixty = decimal.NewFromInt(60)

// parseClock converts "HH:MM" into hours since midnight. "24:00" is allowed
// as the end of day.
func parseClock(s string) (decimal.Decimal, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(mm) != 2 || hh == "" || len(hh) > 2 {
		return decimal.Zero, fmt.Errorf("invalid clock %q, expected HH:MM", s)
	}
	h, errH := decimal.NewFromString(hh)
	m, errM := decimal.NewFromString(mm)
	if errH != nil || errM != nil || !h.IsInteger() || !m.IsInteger() {
		return decimal.Zero, fmt.Errorf("invalid clock %q, expected HH:MM", s)
	}
	hours, minutes := h.IntPart(), m.IntPart()
	if hours < 0 || minutes < 0 || minutes > 59 || hours > 24 || (hours == 24 && minutes != 0) {
		return decimal.Zero, fmt.Errorf("clock %q out of range", s)
	}
	return h.Add(m.Div(sixty)), nil
}

// formatClock is the inverse of parseClock. Minutes are rounded to the
// nearest whole minute.
func formatClock(hours decimal.Decimal) string {
	total := hours.Mul(sixty).Round(0).IntPart()
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

var weekdayCodes = map[time.Weekday]string{
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
	time.Sunday:    "sun",
}

// parseWeekday accepts three-letter codes and full English names in any case.
func parseWeekday(s string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for d, code := range weekdayCodes {
		if key == code || key == strings.ToLower(d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
