/*
allocator.go - Band Allocator

PURPOSE:
  Decides which group-size bands account for a licence detail's spaces.
  The result feeds the calculator: every band occurrence adds its minimum
  FTE to the record's raw staffing.

TWO MODES:
  Default (no adjustments):
    Greedy first-fit threshold scan from the smallest group size upward.
    remaining := spaces
    for each band, while remaining > 0:
      remaining > max        → keep band, remaining -= max, continue
      min <= remaining <= max → keep band, stop
      remaining < min        → drop band, continue

  Split room (any adjustment present for the record):
    The scan is never run. Each band with an adjusted count n > 0 is emitted
    n times, in band-table order. Count 0 excludes the band.

EXAMPLE:
  bands: A[1..8], B[9..16], C[17..25]
  spaces 20 → A consumes 8 (12 left), B within range → {A, B}
  spaces 6  → A within range → {A}
  split room {B: 2} → {B, B}

NOT AN ERROR:
  Zero spaces → no bands. Nonzero spaces with no band in range → no bands.
  Both flow into zero staffing; the trail records the unallocated spaces.

SEE ALSO:
  - bands.go: Licence-type filtering that must happen before allocation
  - calculator.go: Consumes the Allocation
*/
package funding

import "slices"

// =============================================================================
// ALLOCATION RESULT
// =============================================================================

// AllocationMode records which allocator path produced an Allocation.
type AllocationMode string

const (
	AllocationDefault   AllocationMode = "default"
	AllocationSplitRoom AllocationMode = "split_room"
)

// Allocation is the ordered list of applicable bands for one licence detail.
// A band appears once per occurrence.
type Allocation struct {
	Mode  AllocationMode
	Bands []GroupSizeBand

	// Spaces the default scan could not place in any band.
	Unallocated int

	// Adjustments that referenced a band outside the licence type's table.
	IgnoredAdjustments []BandID
}

// DistinctBands counts unique band IDs in the allocation.
func (a Allocation) DistinctBands() int {
	seen := make(map[BandID]bool, len(a.Bands))
	for _, b := range a.Bands {
		seen[b.ID] = true
	}
	return len(seen)
}

// BandIDs lists the allocated band IDs in order, repeats included.
func (a Allocation) BandIDs() []BandID {
	ids := make([]BandID, len(a.Bands))
	for i, b := range a.Bands {
		ids[i] = b.ID
	}
	return ids
}

// =============================================================================
// THRESHOLD SCANNER - Default mode
// =============================================================================

// ThresholdScanner runs the default space-threshold scan.
type ThresholdScanner interface {
	// Scan returns the applicable bands and the spaces left unplaced.
	Scan(bands []GroupSizeBand, spaces int) (applicable []GroupSizeBand, unallocated int)
}

// GreedyScanner is the first-fit threshold scan. Bands must be ordered by
// ascending group size.
type GreedyScanner struct{}

func (GreedyScanner) Scan(bands []GroupSizeBand, spaces int) ([]GroupSizeBand, int) {
	var applicable []GroupSizeBand
	remaining := spaces

	for _, b := range bands {
		if remaining <= 0 {
			break
		}
		switch {
		case remaining > b.MaxSpaces:
			applicable = append(applicable, b)
			remaining -= b.MaxSpaces
		case remaining >= b.MinSpaces:
			applicable = append(applicable, b)
			remaining = 0
		default:
			// below this band's minimum: the band does not apply
		}
	}

	if remaining < 0 {
		remaining = 0
	}
	return applicable, remaining
}

// =============================================================================
// BAND ALLOCATOR
// =============================================================================

// BandAllocator chooses between the threshold scan and split-room overrides.
type BandAllocator struct {
	Scanner ThresholdScanner
}

// NewBandAllocator returns an allocator using the greedy scan.
func NewBandAllocator() *BandAllocator {
	return &BandAllocator{Scanner: GreedyScanner{}}
}

// Allocate selects the applicable bands for a licence detail.
//
// bands must already be filtered to the record's licence type and ordered by
// group size (BandTable.ForLicenceType). A nil adjustments map means default
// mode; a non-nil map, even one whose counts are all zero, means split room.
func (a *BandAllocator) Allocate(bands []GroupSizeBand, spaces int, adjustments map[BandID]int) Allocation {
	if adjustments != nil {
		return splitRoom(bands, adjustments)
	}

	scanner := a.Scanner
	if scanner == nil {
		scanner = GreedyScanner{}
	}
	applicable, unallocated := scanner.Scan(bands, spaces)
	return Allocation{
		Mode:        AllocationDefault,
		Bands:       applicable,
		Unallocated: unallocated,
	}
}

func splitRoom(bands []GroupSizeBand, adjustments map[BandID]int) Allocation {
	alloc := Allocation{Mode: AllocationSplitRoom}

	known := make(map[BandID]bool, len(bands))
	for _, b := range bands {
		known[b.ID] = true
		for n := adjustments[b.ID]; n > 0; n-- {
			alloc.Bands = append(alloc.Bands, b)
		}
	}
	for id := range adjustments {
		if !known[id] {
			alloc.IgnoredAdjustments = append(alloc.IgnoredAdjustments, id)
		}
	}
	slices.Sort(alloc.IgnoredAdjustments)
	return alloc
}
