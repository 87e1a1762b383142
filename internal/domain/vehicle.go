package domain

import "time"

// Vehicle is a schedulable unit of single-occupancy capacity.
type Vehicle struct {
	ID        string
	Name      string
	Plate     string
	CreatedAt time.Time
}
