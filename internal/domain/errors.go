package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRange         = errors.New("invalid time range")
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidID            = errors.New("invalid id")
	ErrRangeConflict        = errors.New("time range conflict")
	ErrHoldExpired          = errors.New("hold expired")
	ErrBlockNotFound        = errors.New("block not found")
	ErrVehicleNotFound      = errors.New("vehicle not found")
	ErrVehicleNameRequired  = errors.New("vehicle name required")
	ErrVehicleAlreadyExists = errors.New("vehicle already exists")
	ErrOwnerRefRequired     = errors.New("owner reference required")
	ErrTimeout              = errors.New("allocation store timed out")
)

// ConflictError reports which existing blocks an attempted allocation
// collided with. It matches ErrRangeConflict under errors.Is.
type ConflictError struct {
	BlockIDs []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time range conflict with blocks [%s]", strings.Join(e.BlockIDs, ", "))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrRangeConflict
}
