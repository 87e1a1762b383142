package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tourbase/fleet-scheduler/internal/app"
	"github.com/tourbase/fleet-scheduler/internal/domain"
)

// HoldCreator is the minimal interface needed to create a hold.
type HoldCreator interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (domain.Block, error)
}

// HoldLifecycle is the minimal interface needed to confirm or release a hold.
type HoldLifecycle interface {
	ConfirmHold(ctx context.Context, blockID string) (domain.Block, error)
	ReleaseHold(ctx context.Context, blockID string) error
}

// HandleCreateHold returns an HTTP handler for placing a provisional hold.
func HandleCreateHold(svc HoldCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createHoldRequest
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

		block, err := svc.CreateHold(r.Context(), app.CreateHoldInput{
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

// HandleHoldByID returns an HTTP handler for the per-hold routes:
// POST /holds/{id}/confirm and DELETE /holds/{id}.
func HandleHoldByID(svc HoldLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		switch {
		case len(parts) == 3 && parts[0] == "holds" && parts[1] != "" && parts[2] == "confirm":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			confirmHold(w, r, svc, parts[1])
		case len(parts) == 2 && parts[0] == "holds" && parts[1] != "":
			if r.Method != http.MethodDelete {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			releaseHold(w, r, svc, parts[1])
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func confirmHold(w http.ResponseWriter, r *http.Request, svc HoldLifecycle, blockID string) {
	block, err := svc.ConfirmHold(r.Context(), blockID)
	if err != nil {
		writeSchedulingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(newBlockResponse(block))
}

func releaseHold(w http.ResponseWriter, r *http.Request, svc HoldLifecycle, blockID string) {
	if err := svc.ReleaseHold(r.Context(), blockID); err != nil {
		writeSchedulingError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeSchedulingError(w http.ResponseWriter, err error) {
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeConflict(w, err.Error(), conflict.BlockIDs)
	case errors.Is(err, domain.ErrRangeConflict):
		writeConflict(w, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, codeInvalidTimeRange, err.Error())
	case errors.Is(err, domain.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, codeInvalidDate, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrOwnerRefRequired):
		writeError(w, http.StatusBadRequest, codeOwnerRefRequired, err.Error())
	case errors.Is(err, domain.ErrVehicleNotFound):
		writeError(w, http.StatusNotFound, codeVehicleNotFound, err.Error())
	case errors.Is(err, domain.ErrBlockNotFound):
		writeError(w, http.StatusNotFound, codeBlockNotFound, err.Error())
	case errors.Is(err, domain.ErrHoldExpired):
		writeError(w, http.StatusConflict, codeHoldExpired, err.Error())
	case errors.Is(err, domain.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, codeStoreTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func parseRange(w http.ResponseWriter, startTime, endTime string) (start, end int, ok bool) {
	start, err := domain.ParseTimeOfDay(startTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidTimeRange, "invalid start_time, want HH:MM")
		return 0, 0, false
	}
	end, err = domain.ParseTimeOfDay(endTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidTimeRange, "invalid end_time, want HH:MM")
		return 0, 0, false
	}
	return start, end, true
}

type createHoldRequest struct {
	VehicleID string `json:"vehicle_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	OwnerRef  string `json:"owner_ref"`
}

type blockResponse struct {
	ID           string     `json:"id"`
	VehicleID    string     `json:"vehicle_id"`
	Date         string     `json:"date"`
	StartTime    string     `json:"start_time"`
	EndTime      string     `json:"end_time"`
	State        string     `json:"state"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	AllowOverlap bool       `json:"allow_overlap"`
	OwnerRef     string     `json:"owner_ref"`
}

func newBlockResponse(block domain.Block) blockResponse {
	resp := blockResponse{
		ID:           block.ID,
		VehicleID:    block.VehicleID,
		Date:         block.Date,
		StartTime:    domain.FormatTimeOfDay(block.Range.StartMinute),
		EndTime:      domain.FormatTimeOfDay(block.Range.EndMinute),
		State:        string(block.State),
		AllowOverlap: block.AllowOverlap,
		OwnerRef:     block.OwnerRef,
	}
	if !block.ExpiresAt.IsZero() {
		e := block.ExpiresAt
		resp.ExpiresAt = &e
	}
	return resp
}
