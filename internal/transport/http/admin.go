package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tourbase/fleet-scheduler/internal/app"
	"github.com/tourbase/fleet-scheduler/internal/domain"
)

// FleetAdmin is the minimal interface needed for the vehicle registry
// endpoints.
type FleetAdmin interface {
	CreateVehicle(ctx context.Context, in app.CreateVehicleInput) (domain.Vehicle, error)
	ListVehicles(ctx context.Context) ([]domain.Vehicle, error)
}

// OverlapAllocator is the deliberately separate interface for the
// offset-tour bypass; the consumer hold flow never reaches it.
type OverlapAllocator interface {
	ForceOverlapAllocate(ctx context.Context, in app.ForceAllocateInput) (domain.Block, error)
}

// ExpirySweeper triggers a physical cleanup of expired holds.
type ExpirySweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// HandleAdminVehicles returns an HTTP handler for vehicle creation/listing.
func HandleAdminVehicles(svc FleetAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			vehicles, err := svc.ListVehicles(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]vehicleResponse, 0, len(vehicles))
			for _, v := range vehicles {
				resp = append(resp, newVehicleResponse(v))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req createVehicleRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			vehicle, err := svc.CreateVehicle(r.Context(), app.CreateVehicleInput{
				Name:  req.Name,
				Plate: req.Plate,
			})
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrVehicleNameRequired):
					writeError(w, http.StatusBadRequest, codeVehicleNameRequired, err.Error())
				case errors.Is(err, domain.ErrVehicleAlreadyExists):
					writeError(w, http.StatusConflict, codeVehicleAlreadyExists, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(newVehicleResponse(vehicle))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleForceAllocate returns an HTTP handler for the offset-tour path:
// a confirmed, overlap-exempt block written without conflict detection.
func HandleForceAllocate(svc OverlapAllocator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req forceAllocateRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		start, end, ok := parseRange(w, req.StartTime, req.EndTime)
		if !ok {
			return
		}

		block, err := svc.ForceOverlapAllocate(r.Context(), app.ForceAllocateInput{
			VehicleID:   req.VehicleID,
			Date:        req.Date,
			StartMinute: start,
			EndMinute:   end,
			OwnerRef:    req.OwnerRef,
		})
		if err != nil {
			writeSchedulingError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(newBlockResponse(block))
	}
}

// HandleSweepExpired returns an HTTP handler that removes expired holds.
func HandleSweepExpired(svc ExpirySweeper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		removed, err := svc.SweepExpired(r.Context())
		if err != nil {
			writeSchedulingError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sweepResponse{Removed: removed})
	}
}

type createVehicleRequest struct {
	Name  string `json:"name"`
	Plate string `json:"plate,omitempty"`
}

type vehicleResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Plate     string    `json:"plate,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newVehicleResponse(v domain.Vehicle) vehicleResponse {
	return vehicleResponse{
		ID:        v.ID,
		Name:      v.Name,
		Plate:     v.Plate,
		CreatedAt: v.CreatedAt,
	}
}

type forceAllocateRequest struct {
	VehicleID string `json:"vehicle_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	OwnerRef  string `json:"owner_ref"`
}

type sweepResponse struct {
	Removed int `json:"removed"`
}
