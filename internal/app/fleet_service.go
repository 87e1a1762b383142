package app

import (
	"context"

	"github.com/tourbase/fleet-scheduler/internal/clock"
	"github.com/tourbase/fleet-scheduler/internal/domain"
)

type VehicleRepository interface {
	CreateVehicle(ctx context.Context, vehicle domain.Vehicle) error
	GetVehicle(ctx context.Context, id string) (domain.Vehicle, error)
	ListVehicles(ctx context.Context) ([]domain.Vehicle, error)
}

// FleetService manages the vehicle registry the scheduler allocates against.
type FleetService struct {
	repo  VehicleRepository
	clock clock.Clock
}

func NewFleetService(repo VehicleRepository, clk clock.Clock) *FleetService {
	return &FleetService{
		repo:  repo,
		clock: clk,
	}
}

type CreateVehicleInput struct {
	Name  string
	Plate string
}

func (s *FleetService) CreateVehicle(ctx context.Context, in CreateVehicleInput) (domain.Vehicle, error) {
	if in.Name == "" {
		return domain.Vehicle{}, domain.ErrVehicleNameRequired
	}

	vehicle := domain.Vehicle{
		ID:        newID(),
		Name:      in.Name,
		Plate:     in.Plate,
		CreatedAt: s.clock.Now(),
	}

	if err := s.repo.CreateVehicle(ctx, vehicle); err != nil {
		return domain.Vehicle{}, err
	}
	return vehicle, nil
}

func (s *FleetService) GetVehicle(ctx context.Context, id string) (domain.Vehicle, error) {
	if id == "" {
		return domain.Vehicle{}, domain.ErrInvalidID
	}
	return s.repo.GetVehicle(ctx, id)
}

func (s *FleetService) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	return s.repo.ListVehicles(ctx)
}
