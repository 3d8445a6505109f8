package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/platform/obs"
	"shuttle-route-service/internal/ports"

	log "github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obs.Logger(r.Context()).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("encode failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeJSON reads exactly one JSON object and rejects unknown fields.
// An empty body is allowed when emptyOK is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, emptyOK bool) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if emptyOK && errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

type infeasibleBody struct {
	Error      string `json:"error"`
	Cause      string `json:"cause"`
	Capacity   int    `json:"capacity,omitempty"`
	Demand     int    `json:"demand,omitempty"`
	Unassigned []int  `json:"unassigned_stop_ids,omitempty"`
}

// writeServiceError maps domain and port errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var capErr *domain.InfeasibleCapacityError
	var nf *domain.NoFeasibleSolutionError
	var exceeded *domain.CapacityExceededError

	switch {
	case errors.As(err, &capErr):
		writeJSON(w, r, http.StatusUnprocessableEntity, infeasibleBody{
			Error: err.Error(), Cause: string(domain.CauseCapacity),
			Capacity: capErr.Capacity, Demand: capErr.Demand,
		})
	case errors.As(err, &nf):
		writeJSON(w, r, http.StatusUnprocessableEntity, infeasibleBody{
			Error: err.Error(), Cause: string(nf.Cause), Unassigned: nf.Unassigned,
		})
	case errors.As(err, &exceeded):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNoPreview),
		errors.Is(err, domain.ErrStalePreview),
		errors.Is(err, domain.ErrEmployeeAssigned):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrEmployeeNotOnRoute), errors.Is(err, ports.ErrNoRoute):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ports.ErrProviderUnavailable):
		obs.Logger(r.Context()).WithError(err).Warn(op + " failed: upstream unavailable")
		writeError(w, r, http.StatusBadGateway, "upstream service unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusGatewayTimeout, "request timed out")
	default:
		obs.Logger(r.Context()).WithError(err).Error(op + " failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
