package app

import (
	"context"
	"errors"
	"time"

	"github.com/tourbase/fleet-scheduler/internal/clock"
	"github.com/tourbase/fleet-scheduler/internal/domain"
)

// BlockRepository is the allocation store contract. LockVehicleDate must
// serialize all writers touching the same (vehicle, date) pair for the
// remainder of the surrounding transaction.
type BlockRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockVehicleDate(ctx context.Context, vehicleID, date string) error
	ListActive(ctx context.Context, vehicleID, date string, now time.Time) ([]domain.Block, error)
	InsertBlock(ctx context.Context, block domain.Block) error
	GetBlockForUpdate(ctx context.Context, id string) (domain.Block, error)
	ConfirmBlock(ctx context.Context, id string) error
	DeleteHeldBlock(ctx context.Context, id string) (bool, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

type SchedulingService struct {
	repo    BlockRepository
	clock   clock.Clock
	holdTTL time.Duration
}

const defaultHoldTTL = 10 * time.Minute

func NewSchedulingService(repo BlockRepository, clk clock.Clock, opts ...SchedulingOption) *SchedulingService {
	svc := &SchedulingService{
		repo:    repo,
		clock:   clk,
		holdTTL: defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type SchedulingOption func(*SchedulingService)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) SchedulingOption {
	return func(s *SchedulingService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// CheckAvailability reports whether the range is free on the vehicle and
// date, along with the ids of any blocks standing in the way.
func (s *SchedulingService) CheckAvailability(ctx context.Context, vehicleID, date string, rng domain.TimeRange) (bool, []string, error) {
	if vehicleID == "" {
		return false, nil, domain.ErrInvalidID
	}
	if !domain.ValidDate(date) {
		return false, nil, domain.ErrInvalidDate
	}

	now := s.clock.Now()
	existing, err := s.repo.ListActive(ctx, vehicleID, date, now)
	if err != nil {
		return false, nil, translateStoreErr(err)
	}

	candidate := domain.Block{VehicleID: vehicleID, Date: date, Range: rng}
	ids := domain.FindConflicts(candidate, existing, now)
	return len(ids) == 0, ids, nil
}

type CreateHoldInput struct {
	VehicleID   string
	Date        string
	StartMinute int
	EndMinute   int
	OwnerRef    string
}

// CreateHold places a provisional claim on the vehicle. The conflict check
// and the insert run in one transaction under the (vehicle, date) lock, so
// of two concurrent overlapping attempts exactly one wins.
func (s *SchedulingService) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Block, error) {
	rng, err := domain.NewTimeRange(in.StartMinute, in.EndMinute)
	if err != nil {
		return domain.Block{}, err
	}
	if in.VehicleID == "" {
		return domain.Block{}, domain.ErrInvalidID
	}
	if !domain.ValidDate(in.Date) {
		return domain.Block{}, domain.ErrInvalidDate
	}
	if in.OwnerRef == "" {
		return domain.Block{}, domain.ErrOwnerRefRequired
	}

	now := s.clock.Now()
	block := domain.Block{
		ID:        newID(),
		VehicleID: in.VehicleID,
		Date:      in.Date,
		Range:     rng,
		State:     domain.BlockStateHeld,
		ExpiresAt: now.Add(s.holdTTL),
		OwnerRef:  in.OwnerRef,
		CreatedAt: now,
	}

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockVehicleDate(txCtx, in.VehicleID, in.Date); err != nil {
			return err
		}
		existing, err := s.repo.ListActive(txCtx, in.VehicleID, in.Date, now)
		if err != nil {
			return err
		}
		if ids := domain.FindConflicts(block, existing, now); len(ids) > 0 {
			return &domain.ConflictError{BlockIDs: ids}
		}
		return s.repo.InsertBlock(txCtx, block)
	})
	if err != nil {
		return domain.Block{}, translateStoreErr(err)
	}
	return block, nil
}

// ConfirmHold promotes a still-live hold into a confirmed booking, clearing
// its expiry. Confirming an already confirmed block succeeds unchanged. The
// conflict re-check is not reachable under the insert-path lock but is run
// anyway before promotion.
func (s *SchedulingService) ConfirmHold(ctx context.Context, blockID string) (domain.Block, error) {
	now := s.clock.Now()
	var out domain.Block

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		block, err := s.repo.GetBlockForUpdate(txCtx, blockID)
		if err != nil {
			return err
		}
		if block.State == domain.BlockStateConfirmed {
			out = block
			return nil
		}
		if block.Expired(now) {
			return domain.ErrHoldExpired
		}

		if err := s.repo.LockVehicleDate(txCtx, block.VehicleID, block.Date); err != nil {
			return err
		}
		existing, err := s.repo.ListActive(txCtx, block.VehicleID, block.Date, now)
		if err != nil {
			return err
		}
		if ids := domain.FindConflicts(block, existing, now); len(ids) > 0 {
			return &domain.ConflictError{BlockIDs: ids}
		}

		if err := s.repo.ConfirmBlock(txCtx, blockID); err != nil {
			return err
		}
		block.State = domain.BlockStateConfirmed
		block.ExpiresAt = time.Time{}
		out = block
		return nil
	})
	if err != nil {
		return domain.Block{}, translateStoreErr(err)
	}
	return out, nil
}

// ReleaseHold removes the block while it is still held. Releasing a block
// that is gone, expired, or already confirmed is a no-op success.
func (s *SchedulingService) ReleaseHold(ctx context.Context, blockID string) error {
	if _, err := s.repo.DeleteHeldBlock(ctx, blockID); err != nil {
		return translateStoreErr(err)
	}
	return nil
}

type ForceAllocateInput struct {
	VehicleID   string
	Date        string
	StartMinute int
	EndMinute   int
	OwnerRef    string
}

// ForceOverlapAllocate writes a confirmed, overlap-exempt block without
// consulting the conflict detector. It exists for staggered offset tours
// where one vehicle deliberately serves two overlapping windows; callers
// are expected to create such blocks in pairs and to gate access to this
// path behind administrative authorization.
func (s *SchedulingService) ForceOverlapAllocate(ctx context.Context, in ForceAllocateInput) (domain.Block, error) {
	rng, err := domain.NewTimeRange(in.StartMinute, in.EndMinute)
	if err != nil {
		return domain.Block{}, err
	}
	if in.VehicleID == "" {
		return domain.Block{}, domain.ErrInvalidID
	}
	if !domain.ValidDate(in.Date) {
		return domain.Block{}, domain.ErrInvalidDate
	}
	if in.OwnerRef == "" {
		return domain.Block{}, domain.ErrOwnerRefRequired
	}

	now := s.clock.Now()
	block := domain.Block{
		ID:           newID(),
		VehicleID:    in.VehicleID,
		Date:         in.Date,
		Range:        rng,
		State:        domain.BlockStateConfirmed,
		AllowOverlap: true,
		OwnerRef:     in.OwnerRef,
		CreatedAt:    now,
	}

	if err := s.repo.InsertBlock(ctx, block); err != nil {
		return domain.Block{}, translateStoreErr(err)
	}
	return block, nil
}

// SweepExpired physically deletes holds past their TTL and returns how many
// were removed. Availability is unaffected: expired holds are already
// ignored at query time.
func (s *SchedulingService) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.repo.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, translateStoreErr(err)
	}
	return n, nil
}

// translateStoreErr maps a blown context deadline onto the timeout sentinel
// so callers can tell a slow store apart from a taken range.
func translateStoreErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	return err
}
