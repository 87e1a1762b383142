package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tourbase/fleet-scheduler/internal/domain"
)

type BlockRepository struct {
	pool *pgxpool.Pool
}

func NewBlockRepository(pool *pgxpool.Pool) *BlockRepository {
	return &BlockRepository{pool: pool}
}

func (r *BlockRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// LockVehicleDate takes a transaction-scoped advisory lock on the
// (vehicle, date) pair. Writers for the same pair serialize behind it;
// other vehicles and dates are unaffected. Must run inside WithTx.
func (r *BlockRepository) LockVehicleDate(ctx context.Context, vehicleID, date string) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return errTxRequired
	}
	const stmt = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	if _, err := tx.Exec(ctx, stmt, vehicleID+"@"+date); err != nil {
		return fmt.Errorf("lock vehicle date: %w", err)
	}
	return nil
}

const blockColumns = `id, vehicle_id, date, start_minute, end_minute, state, expires_at, allow_overlap, owner_ref, created_at`

// ListActive returns every block on the vehicle and date that still counts
// toward availability: confirmed blocks, and holds not yet past expiry.
func (r *BlockRepository) ListActive(ctx context.Context, vehicleID, date string, now time.Time) ([]domain.Block, error) {
	query := `
SELECT ` + blockColumns + `
FROM availability_blocks
WHERE vehicle_id = $1 AND date = $2
  AND (state = 'confirmed' OR expires_at > $3)
ORDER BY start_minute ASC`

	rows, err := r.query(ctx, query, vehicleID, date, now)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list active blocks: %w", err)
	}
	defer rows.Close()

	var blocks []domain.Block
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			if isInvalidUUID(err) {
				return nil, domain.ErrInvalidID
			}
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, block)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate blocks: %w", rows.Err())
	}
	return blocks, nil
}

func (r *BlockRepository) InsertBlock(ctx context.Context, block domain.Block) error {
	const stmt = `
INSERT INTO availability_blocks (id, vehicle_id, date, start_minute, end_minute, state, expires_at, allow_overlap, owner_ref, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var expires *time.Time
	if block.State == domain.BlockStateHeld {
		e := block.ExpiresAt
		expires = &e
	}

	_, err := r.exec(ctx, stmt,
		block.ID,
		block.VehicleID,
		block.Date,
		block.Range.StartMinute,
		block.Range.EndMinute,
		block.State,
		expires,
		block.AllowOverlap,
		block.OwnerRef,
		block.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrVehicleNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

func (r *BlockRepository) GetBlockForUpdate(ctx context.Context, id string) (domain.Block, error) {
	query := `
SELECT ` + blockColumns + `
FROM availability_blocks
WHERE id = $1
FOR UPDATE`

	block, err := scanBlock(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Block{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Block{}, domain.ErrBlockNotFound
		}
		return domain.Block{}, fmt.Errorf("get block: %w", err)
	}
	return block, nil
}

// ConfirmBlock promotes a hold in place, clearing its expiry.
func (r *BlockRepository) ConfirmBlock(ctx context.Context, id string) error {
	const stmt = `UPDATE availability_blocks SET state = 'confirmed', expires_at = NULL WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("confirm block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBlockNotFound
	}
	return nil
}

// DeleteHeldBlock removes the block only while it is still in the held
// state, reporting whether a row was deleted. An unknown or malformed id
// deletes nothing and is not an error, which keeps release idempotent.
func (r *BlockRepository) DeleteHeldBlock(ctx context.Context, id string) (bool, error) {
	const stmt = `DELETE FROM availability_blocks WHERE id = $1 AND state = 'held'`

	tag, err := r.exec(ctx, stmt, id)
	if err != nil {
		if isInvalidUUID(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete held block: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteExpired reclaims holds whose expiry has passed.
func (r *BlockRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	const stmt = `DELETE FROM availability_blocks WHERE state = 'held' AND expires_at <= $1`

	tag, err := r.exec(ctx, stmt, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired blocks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanBlock(row pgx.Row) (domain.Block, error) {
	var (
		b       domain.Block
		date    time.Time
		expires *time.Time
		state   string
	)
	err := row.Scan(
		&b.ID,
		&b.VehicleID,
		&date,
		&b.Range.StartMinute,
		&b.Range.EndMinute,
		&state,
		&expires,
		&b.AllowOverlap,
		&b.OwnerRef,
		&b.CreatedAt,
	)
	if err != nil {
		return domain.Block{}, err
	}
	b.Date = date.Format(domain.DateLayout)
	b.State = domain.BlockState(state)
	if expires != nil {
		b.ExpiresAt = expires.UTC()
	}
	return b, nil
}

func (r *BlockRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *BlockRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *BlockRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
