package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tourbase/fleet-scheduler/internal/app"
	"github.com/tourbase/fleet-scheduler/internal/clock"
	"github.com/tourbase/fleet-scheduler/internal/domain"
	"github.com/tourbase/fleet-scheduler/internal/testutil"
)

const testDate = "2026-03-01"

func TestBlockRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewBlockRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("ListActive excludes expired holds", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		vehicleID := testutil.InsertVehicle(t, ctx, pool, "Sprinter 12")
		now := time.Now().UTC()

		liveID := testutil.InsertBlock(t, ctx, pool, vehicleID, domain.Block{
			Date:  testDate,
			Range: domain.TimeRange{StartMinute: 540, EndMinute: 720},
			State: domain.BlockStateHeld, ExpiresAt: now.Add(5 * time.Minute),
			OwnerRef: "booking-1",
		})
		testutil.InsertBlock(t, ctx, pool, vehicleID, domain.Block{
			Date:  testDate,
			Range: domain.TimeRange{StartMinute: 780, EndMinute: 840},
			State: domain.BlockStateHeld, ExpiresAt: now.Add(-time.Minute),
			OwnerRef: "booking-2",
		})
		confirmedID := testutil.InsertBlock(t, ctx, pool, vehicleID, domain.Block{
			Date:     testDate,
			Range:    domain.TimeRange{StartMinute: 900, EndMinute: 960},
			State:    domain.BlockStateConfirmed,
			OwnerRef: "booking-3",
		})

		blocks, err := repo.ListActive(ctx, vehicleID, testDate, now)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(blocks) != 2 {
			t.Fatalf("expected 2 active blocks, got %d", len(blocks))
		}
		if blocks[0].ID != liveID || blocks[1].ID != confirmedID {
			t.Fatalf("unexpected blocks: %+v", blocks)
		}
		if blocks[0].Date != testDate {
			t.Fatalf("expected date %s, got %s", testDate, blocks[0].Date)
		}
	})

	t.Run("InsertBlock enforces vehicle reference", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()

		block := domain.Block{
			ID:        "5f2b8a1e-0000-4000-8000-000000000001",
			VehicleID: "5f2b8a1e-0000-4000-8000-0000000000ff",
			Date:      testDate,
			Range:     domain.TimeRange{StartMinute: 540, EndMinute: 720},
			State:     domain.BlockStateHeld, ExpiresAt: now.Add(5 * time.Minute),
			OwnerRef:  "booking-1",
			CreatedAt: now,
		}
		if err := repo.InsertBlock(ctx, block); !errors.Is(err, domain.ErrVehicleNotFound) {
			t.Fatalf("expected ErrVehicleNotFound, got %v", err)
		}

		block.VehicleID = "not-a-uuid"
		if err := repo.InsertBlock(ctx, block); !errors.Is(err, domain.ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}

		block.VehicleID = testutil.InsertVehicle(t, ctx, pool, "Sprinter 12")
		if err := repo.InsertBlock(ctx, block); err != nil {
			t.Fatalf("expected insert to succeed, got %v", err)
		}
	})

	t.Run("GetBlockForUpdate and ConfirmBlock", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		vehicleID := testutil.InsertVehicle(t, ctx, pool, "Sprinter 12")
		now := time.Now().UTC()

		blockID := testutil.InsertBlock(t, ctx, pool, vehicleID, domain.Block{
			Date:  testDate,
			Range: domain.TimeRange{StartMinute: 540, EndMinute: 720},
			State: domain.BlockStateHeld, ExpiresAt: now.Add(5 * time.Minute),
			OwnerRef: "booking-1",
		})

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			block, err := repo.GetBlockForUpdate(txCtx, blockID)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if block.State != domain.BlockStateHeld || block.ExpiresAt.IsZero() {
				t.Fatalf("unexpected block: %+v", block)
			}
			return repo.ConfirmBlock(txCtx, blockID)
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		blocks, err := repo.ListActive(ctx, vehicleID, testDate, now)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(blocks) != 1 || blocks[0].State != domain.BlockStateConfirmed || !blocks[0].ExpiresAt.IsZero() {
			t.Fatalf("expected confirmed block without expiry, got %+v", blocks)
		}

		missingID := "00000000-0000-0000-0000-000000000001"
		if _, err := repo.GetBlockForUpdate(ctx, missingID); !errors.Is(err, domain.ErrBlockNotFound) {
			t.Fatalf("expected ErrBlockNotFound, got %v", err)
		}
		if _, err := repo.GetBlockForUpdate(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
		if err := repo.ConfirmBlock(ctx, missingID); !errors.Is(err, domain.ErrBlockNotFound) {
			t.Fatalf("expected ErrBlockNotFound, got %v", err)
		}
	})

	t.Run("DeleteHeldBlock removes only held rows", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		vehicleID := testutil.InsertVehicle(t, ctx, pool, "Sprinter 12")
		now := time.Now().UTC()

		heldID := testutil.InsertBlock(t, ctx, pool, vehicleID, domain.Block{
			Date:  testDate,
			Range: domain.TimeRange{StartMinute: 540, EndMinute: 720},
			State: domain.BlockStateHeld, ExpiresAt: now.Add(5 * time.Minute),
			OwnerRef: "booking-1",
		})
		confirmedID := testutil.InsertBlock(t, ctx, pool, vehicleID, domain.Block{
			Date:     testDate,
			Range:    domain.TimeRange{StartMinute: 780, EndMinute: 840},
			State:    domain.BlockStateConfirmed,
			OwnerRef: "booking-2",
		})

		removed, err := repo.DeleteHeldBlock(ctx, heldID)
		if err != nil || !removed {
			t.Fatalf("expected held block removed, got removed=%v err=%v", removed, err)
		}
		removed, err = repo.DeleteHeldBlock(ctx, heldID)
		if err != nil || removed {
			t.Fatalf("expected second delete to be a no-op, got removed=%v err=%v", removed, err)
		}
		removed, err = repo.DeleteHeldBlock(ctx, confirmedID)
		if err != nil || removed {
			t.Fatalf("expected confirmed block untouched, got removed=%v err=%v", removed, err)
		}
		removed, err = repo.DeleteHeldBlock(ctx, "not-a-uuid")
		if err != nil || removed {
			t.Fatalf("expected malformed id to be a no-op, got removed=%v err=%v", removed, err)
		}
	})

	t.Run("DeleteExpired reclaims only expired holds", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		vehicleID := testutil.InsertVehicle(t, ctx, pool, "Sprinter 12")
		now := time.Now().UTC()

		testutil.InsertBlock(t, ctx, pool, vehicleID, domain.Block{
			Date:  testDate,
			Range: domain.TimeRange{StartMinute: 540, EndMinute: 600},
			State: domain.BlockStateHeld, ExpiresAt: now.Add(-time.Minute),
			OwnerRef: "booking-1",
		})
		testutil.InsertBlock(t, ctx, pool, vehicleID, domain.Block{
			Date:  testDate,
			Range: domain.TimeRange{StartMinute: 600, EndMinute: 660},
			State: domain.BlockStateHeld, ExpiresAt: now.Add(5 * time.Minute),
			OwnerRef: "booking-2",
		})

		count, err := repo.DeleteExpired(ctx, now)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if count != 1 {
			t.Fatalf("expected 1 expired hold removed, got %d", count)
		}
	})

	t.Run("LockVehicleDate requires a transaction", func(t *testing.T) {
		ctx := context.Background()
		if err := repo.LockVehicleDate(ctx, "veh", testDate); err == nil {
			t.Fatalf("expected error outside transaction")
		}
	})
}

func TestConcurrentHoldsAreLinearizable(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewBlockRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	vehicleID := testutil.InsertVehicle(t, ctx, pool, "Sprinter 12")

	svc := app.NewSchedulingService(repo, clock.NewSystem())

	// Two callers race for the identical range; exactly one may win.
	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateHold(ctx, app.CreateHoldInput{
				VehicleID:   vehicleID,
				Date:        testDate,
				StartMinute: 540,
				EndMinute:   600,
				OwnerRef:    "racer",
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, domain.ErrRangeConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}

	// Disjoint ranges racing on the same vehicle and date all succeed.
	testutil.TruncateAll(t, ctx, pool)
	vehicleID = testutil.InsertVehicle(t, ctx, pool, "Sprinter 14")
	var wg2 sync.WaitGroup
	errs2 := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg2.Add(1)
		go func(i int) {
			defer wg2.Done()
			_, errs2[i] = svc.CreateHold(ctx, app.CreateHoldInput{
				VehicleID:   vehicleID,
				Date:        testDate,
				StartMinute: i * 60,
				EndMinute:   i*60 + 60,
				OwnerRef:    "racer",
			})
		}(i)
	}
	wg2.Wait()

	for i, err := range errs2 {
		if err != nil {
			t.Fatalf("expected disjoint hold %d to succeed, got %v", i, err)
		}
	}
}
