package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tourbase/fleet-scheduler/internal/domain"
)

// AvailabilityChecker is the minimal interface needed to query availability.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, vehicleID, date string, rng domain.TimeRange) (bool, []string, error)
}

// HandleCheckAvailability returns an HTTP handler answering whether a
// vehicle is free for a time window:
// GET /availability?vehicle_id=...&date=...&start_time=HH:MM&end_time=HH:MM
func HandleCheckAvailability(svc AvailabilityChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		q := r.URL.Query()
		start, end, ok := parseRange(w, q.Get("start_time"), q.Get("end_time"))
		if !ok {
			return
		}
		rng, err := domain.NewTimeRange(start, end)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTimeRange, err.Error())
			return
		}

		available, conflicting, err := svc.CheckAvailability(r.Context(), q.Get("vehicle_id"), q.Get("date"), rng)
		if err != nil {
			writeSchedulingError(w, err)
			return
		}

		resp := availabilityResponse{
			Available:           available,
			ConflictingBlockIDs: conflicting,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type availabilityResponse struct {
	Available           bool     `json:"available"`
	ConflictingBlockIDs []string `json:"conflicting_block_ids,omitempty"`
}
