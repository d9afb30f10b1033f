package funding

import (
	"fmt"
	"slices"
	"sort"
)

// =============================================================================
// GROUP-SIZE BAND (CCLR entry)
// =============================================================================

// GroupSizeBand maps a range of licensed spaces to the minimum staffing a
// group of that size requires, for every licence type it lists.
type GroupSizeBand struct {
	ID           BandID
	LicenceTypes []string
	GroupSize    int
	MinSpaces    int
	MaxSpaces    int
	MinFTE       RoleValues
}

// AppliesTo reports whether the band is mapped to a licence type code.
func (b GroupSizeBand) AppliesTo(licenceType string) bool {
	return slices.Contains(b.LicenceTypes, licenceType)
}

// BandTable is the full group-size band list belonging to a rate schedule.
type BandTable []GroupSizeBand

// ForLicenceType returns the bands mapped to a licence type, ordered by
// ascending group size. The filtered list is validated before it is
// returned; an empty list is valid.
func (t BandTable) ForLicenceType(licenceType string) ([]GroupSizeBand, error) {
	var out []GroupSizeBand
	for _, b := range t {
		if b.AppliesTo(licenceType) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].GroupSize != out[j].GroupSize {
			return out[i].GroupSize < out[j].GroupSize
		}
		return out[i].MinSpaces < out[j].MinSpaces
	})
	if err := validateBands(licenceType, out); err != nil {
		return nil, err
	}
	return out, nil
}

// LicenceTypes returns every licence type code mentioned by the table.
func (t BandTable) LicenceTypes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range t {
		for _, lt := range b.LicenceTypes {
			if !seen[lt] {
				seen[lt] = true
				out = append(out, lt)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Validate checks the ordering invariant for every licence type.
func (t BandTable) Validate() error {
	for _, lt := range t.LicenceTypes() {
		if _, err := t.ForLicenceType(lt); err != nil {
			return err
		}
	}
	return nil
}

// validateBands enforces, for bands already sorted by group size:
//   - MinSpaces <= MaxSpaces and MinSpaces >= 0
//   - no negative MinFTE
//   - strictly increasing group size
//   - non-decreasing space ranges
func validateBands(licenceType string, bands []GroupSizeBand) error {
	for i, b := range bands {
		field := fmt.Sprintf("bands[%s/%s]", licenceType, b.ID)
		if b.MinSpaces < 0 || b.MinSpaces > b.MaxSpaces {
			return &ConfigError{Field: field + ".spaces", Err: ErrInvalidBandTable}
		}
		for _, r := range Roles {
			if b.MinFTE.Get(r).IsNegative() {
				return &ConfigError{Field: field + ".min_fte." + string(r), Err: ErrInvalidBandTable}
			}
		}
		if i == 0 {
			continue
		}
		prev := bands[i-1]
		if b.GroupSize == prev.GroupSize {
			return &ConfigError{Field: field + ".group_size", Err: ErrInvalidBandTable}
		}
		if b.MinSpaces < prev.MinSpaces || b.MaxSpaces < prev.MaxSpaces {
			return &ConfigError{Field: field + ".spaces", Err: ErrInvalidBandTable}
		}
	}
	return nil
}
