package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tourbase/fleet-scheduler/internal/domain"
)

type VehicleRepository struct {
	pool *pgxpool.Pool
}

func NewVehicleRepository(pool *pgxpool.Pool) *VehicleRepository {
	return &VehicleRepository{pool: pool}
}

func (r *VehicleRepository) CreateVehicle(ctx context.Context, vehicle domain.Vehicle) error {
	const stmt = `
INSERT INTO vehicles (id, name, plate, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4)`

	_, err := r.pool.Exec(ctx, stmt, vehicle.ID, vehicle.Name, vehicle.Plate, vehicle.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVehicleAlreadyExists
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create vehicle: %w", err)
	}
	return nil
}

func (r *VehicleRepository) GetVehicle(ctx context.Context, id string) (domain.Vehicle, error) {
	const query = `
SELECT id, name, COALESCE(plate, ''), created_at
FROM vehicles
WHERE id = $1`

	var v domain.Vehicle
	err := r.pool.QueryRow(ctx, query, id).Scan(&v.ID, &v.Name, &v.Plate, &v.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Vehicle{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Vehicle{}, domain.ErrVehicleNotFound
		}
		return domain.Vehicle{}, fmt.Errorf("get vehicle: %w", err)
	}
	return v, nil
}

func (r *VehicleRepository) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	const query = `
SELECT id, name, COALESCE(plate, ''), created_at
FROM vehicles
ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.Plate, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate vehicles: %w", rows.Err())
	}
	return vehicles, nil
}
