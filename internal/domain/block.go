package domain

import "time"

type BlockState string

const (
	BlockStateHeld      BlockState = "held"
	BlockStateConfirmed BlockState = "confirmed"
)

// Block is a time-ranged claim on a vehicle for one calendar date. A held
// block is provisional and carries an expiry; a confirmed block is a
// committed booking with no expiry. An overlap-exempt block is excluded
// from mutual-exclusion checks in both directions (staggered offset tours).
type Block struct {
	ID           string
	VehicleID    string
	Date         string
	Range        TimeRange
	State        BlockState
	ExpiresAt    time.Time
	AllowOverlap bool
	OwnerRef     string
	CreatedAt    time.Time
}

// Expired reports whether the block is a hold whose TTL has passed.
// Expired holds are logically void even before the sweep removes them.
func (b Block) Expired(now time.Time) bool {
	return b.State == BlockStateHeld && !b.ExpiresAt.After(now)
}
