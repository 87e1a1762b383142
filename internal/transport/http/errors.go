package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeInvalidTimeRange     = "invalid_time_range"
	codeInvalidDate          = "invalid_date"
	codeInvalidID            = "invalid_id"
	codeOwnerRefRequired     = "owner_ref_required"
	codeVehicleNameRequired  = "vehicle_name_required"
	codeVehicleNotFound      = "vehicle_not_found"
	codeVehicleAlreadyExists = "vehicle_already_exists"
	codeBlockNotFound        = "block_not_found"
	codeHoldExpired          = "hold_expired"
	codeRangeConflict        = "range_conflict"
	codeStoreTimeout         = "store_timeout"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// ConflictingBlockIDs is set on range_conflict responses so callers
	// and admin tooling can see exactly which blocks stood in the way.
	ConflictingBlockIDs []string `json:"conflicting_block_ids,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeConflict(w http.ResponseWriter, msg string, blockIDs []string) {
	writeErrorResponse(w, http.StatusConflict, errorResponse{
		Error:               msg,
		Code:                codeRangeConflict,
		ConflictingBlockIDs: blockIDs,
	})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}
