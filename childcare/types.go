// Package childcare holds the licensing vocabulary and the preset rate
// schedules used by the funding engine for group childcare facilities.
package childcare

import (
	"sort"
	"sync"
)

// =============================================================================
// LICENCE TYPES
// =============================================================================

// LicenceType describes a childcare licence category. Code is the value
// carried on licence details and band mappings.
type LicenceType struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	AgeGroup   string `json:"age_group"`
	MaxGroup   int    `json:"max_group_size"`
	SchoolAged bool   `json:"school_aged"`
	HomeBased  bool   `json:"home_based"`
}

const (
	GroupUnder36Months     = "GC-U36"
	Group30MonthsSchoolAge = "GC-30M-SA"
	GroupSchoolAge         = "GC-SA"
	MultiAge               = "MULTI-AGE"
	Preschool              = "PRESCHOOL"
	Family                 = "FAMILY"
	InHomeMultiAge         = "IN-HOME-MULTI"
	Occasional             = "OCC"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]LicenceType)
)

// Register adds or replaces a licence type.
func Register(lt LicenceType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[lt.Code] = lt
}

// Lookup returns the licence type for a code.
func Lookup(code string) (LicenceType, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	lt, ok := registry[code]
	return lt, ok
}

// LicenceTypes returns every registered licence type ordered by code.
func LicenceTypes() []LicenceType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]LicenceType, 0, len(registry))
	for _, lt := range registry {
		out = append(out, lt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func init() {
	Register(LicenceType{Code: GroupUnder36Months, Name: "Group Child Care (Under 36 Months)", AgeGroup: "0-36 months", MaxGroup: 12})
	Register(LicenceType{Code: Group30MonthsSchoolAge, Name: "Group Child Care (30 Months to School Age)", AgeGroup: "30 months-school age", MaxGroup: 25})
	Register(LicenceType{Code: GroupSchoolAge, Name: "Group Child Care (School Age)", AgeGroup: "school age", MaxGroup: 30, SchoolAged: true})
	Register(LicenceType{Code: MultiAge, Name: "Multi-Age Child Care", AgeGroup: "birth-12 years", MaxGroup: 8})
	Register(LicenceType{Code: Preschool, Name: "Preschool", AgeGroup: "30 months-school age", MaxGroup: 20})
	Register(LicenceType{Code: Family, Name: "Family Child Care", AgeGroup: "birth-12 years", MaxGroup: 7, HomeBased: true})
	Register(LicenceType{Code: InHomeMultiAge, Name: "In-Home Multi-Age Child Care", AgeGroup: "birth-12 years", MaxGroup: 8, HomeBased: true})
	Register(LicenceType{Code: Occasional, Name: "Occasional Child Care", AgeGroup: "18 months+", MaxGroup: 25})
}
