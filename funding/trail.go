package funding

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DECISION TRAIL - Reconstructable audit log of a calculation run
// =============================================================================

// TrailAction identifies a step taken by the engine.
type TrailAction string

const (
	ActionInputReceived        TrailAction = "input_received"
	ActionBandsFiltered        TrailAction = "bands_filtered"
	ActionAllocationDefault    TrailAction = "allocation_default"
	ActionAllocationSplitRoom  TrailAction = "allocation_split_room"
	ActionAdjustmentIgnored    TrailAction = "adjustment_ignored"
	ActionSpacesUnallocated    TrailAction = "spaces_unallocated"
	ActionDuplicateLicenceType TrailAction = "duplicate_licence_type"
	ActionFTEComputed          TrailAction = "fte_computed"
	ActionCostComputed         TrailAction = "cost_computed"
	ActionRecordRejected       TrailAction = "record_rejected"
	ActionEHTComputed          TrailAction = "eht_computed"
	ActionParentFeesAllocated  TrailAction = "parent_fees_allocated"
	ActionDecision             TrailAction = "decision"
)

// TrailEntry is one step of the decision trail. Facility-level entries have
// an empty LicenceDetailID.
type TrailEntry struct {
	Seq             int
	LicenceDetailID LicenceDetailID
	Action          TrailAction
	Detail          string
	Fields          map[string]string
}

// trail accumulates entries for one record or for the facility level.
// Seq is assigned when trails are merged.
type trail struct {
	entries []TrailEntry
}

func (t *trail) add(id LicenceDetailID, action TrailAction, detail string, fields map[string]string) {
	t.entries = append(t.entries, TrailEntry{
		LicenceDetailID: id,
		Action:          action,
		Detail:          detail,
		Fields:          fields,
	})
}

func (t *trail) addf(id LicenceDetailID, action TrailAction, fields map[string]string, format string, args ...any) {
	t.add(id, action, fmt.Sprintf(format, args...), fields)
}

// mergeTrails concatenates trails in the given order and numbers the result.
func mergeTrails(parts ...*trail) []TrailEntry {
	var out []TrailEntry
	for _, p := range parts {
		if p == nil {
			continue
		}
		out = append(out, p.entries...)
	}
	for i := range out {
		out[i].Seq = i + 1
	}
	return out
}

func roleFields(prefix string, v RoleValues) map[string]string {
	m := make(map[string]string, len(Roles))
	for _, r := range Roles {
		m[prefix+string(r)] = v.Get(r).String()
	}
	return m
}

func joinBandIDs(ids []BandID) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = string(id)
	}
	return strings.Join(s, ",")
}

func decimalString(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
