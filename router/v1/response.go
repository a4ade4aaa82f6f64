package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/selendra/dex-sub001/oracle/types"
)

// Response constants
const (
	StatusAvailable   = "available"
	StatusUnavailable = "unavailable"
)

type (
	// Response is the envelope of every API response. Exactly one of Data
	// and Error is set.
	Response struct {
		Success bool        `json:"success"`
		Data    interface{} `json:"data,omitempty"`
		Error   string      `json:"error,omitempty"`
	}

	// HealthZResponse defines the response type for the healthy API handler.
	HealthZResponse struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}

	// InvalidateResponse defines the response type for the invalidate handler.
	InvalidateResponse struct {
		Pair    types.PairKey `json:"pair"`
		Existed bool          `json:"existed"`
	}

	// SetControllerResponse defines the response type for the set
	// controller handler.
	SetControllerResponse struct {
		types.TxResult
		Controller string `json:"controllerAddress"`
	}

	// SetFeeResponse defines the response type for the set protocol fee
	// handler.
	SetFeeResponse struct {
		types.TxResult
		types.PoolProtocolFee
	}
)

// errorStatuses maps registered errors to HTTP status codes. Anything not
// listed is a 500.
var errorStatuses = []struct {
	err    error
	status int
}{
	{types.ErrMissingParameter, http.StatusBadRequest},
	{types.ErrInvalidPair, http.StatusBadRequest},
	{types.ErrInvalidParameter, http.StatusBadRequest},
	{types.ErrUnauthorized, http.StatusForbidden},
	{types.ErrNotFound, http.StatusNotFound},
	{types.ErrStale, http.StatusNotFound},
	{types.ErrInsufficientObservations, http.StatusConflict},
	{types.ErrChainCallFailed, http.StatusInternalServerError},
}

// StatusFromError returns the HTTP status code for err.
func StatusFromError(err error) int {
	for _, es := range errorStatuses {
		if errors.Is(err, es.err) {
			return es.status
		}
	}
	return http.StatusInternalServerError
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccessResponse(w http.ResponseWriter, data interface{}) {
	respondWithJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, errMsg string) {
	respondWithJSON(w, statusCode, Response{Success: false, Error: errMsg})
}

func writeError(w http.ResponseWriter, err error) {
	writeErrorResponse(w, StatusFromError(err), err.Error())
}
