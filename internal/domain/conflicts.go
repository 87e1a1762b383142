package domain

import "time"

// FindConflicts returns the ids of existing blocks that prevent placing the
// candidate. An overlap-exempt candidate conflicts with nothing, and
// overlap-exempt existing blocks never count against a candidate. Holds
// already past their expiry are ignored regardless of whether a sweep has
// physically removed them yet.
func FindConflicts(candidate Block, existing []Block, now time.Time) []string {
	if candidate.AllowOverlap {
		return nil
	}

	var ids []string
	for _, b := range existing {
		if b.ID == candidate.ID {
			continue
		}
		if b.VehicleID != candidate.VehicleID || b.Date != candidate.Date {
			continue
		}
		if b.AllowOverlap {
			continue
		}
		if b.Expired(now) {
			continue
		}
		if candidate.Range.Overlaps(b.Range) {
			ids = append(ids, b.ID)
		}
	}
	return ids
}
