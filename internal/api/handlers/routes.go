package handlers

import (
	"net/http"
	"shuttle-route-service/internal/api/dto"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/services"
)

// Mutation kinds exposed over HTTP.
var MutationKinds = []string{"relocate", "reorder", "add-employee", "remove-employee"}

type RouteHandler struct {
	Engine *services.RouteEditEngine
}

func decodeMutation(kind string, w http.ResponseWriter, r *http.Request) (services.Mutation, bool) {
	switch kind {
	case "relocate":
		var req dto.RelocateRequest
		if !decodeJSON(w, r, &req, false) {
			return nil, false
		}
		return services.RelocateStop{
			StopIndex: req.StopIndex,
			Location:  domain.Coordinates{Lat: req.Location.Lat, Lng: req.Location.Lng},
		}, true
	case "reorder":
		var req dto.ReorderRequest
		if !decodeJSON(w, r, &req, false) {
			return nil, false
		}
		return services.ReorderFirst{FirstStopIndex: req.FirstStopIndex}, true
	case "add-employee", "remove-employee":
		var req dto.EmployeeEditRequest
		if !decodeJSON(w, r, &req, false) {
			return nil, false
		}
		if req.EmployeeID <= 0 {
			writeError(w, r, http.StatusBadRequest, "employee_id is required")
			return nil, false
		}
		if kind == "add-employee" {
			return services.AddEmployee{EmployeeID: req.EmployeeID}, true
		}
		return services.RemoveEmployee{EmployeeID: req.EmployeeID}, true
	default:
		writeError(w, r, http.StatusNotFound, "unknown edit")
		return nil, false
	}
}

// Propose computes a preview of the edit without storing it.
func (h *RouteHandler) Propose(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := decodeMutation(kind, w, r)
		if !ok {
			return
		}
		p, err := h.Engine.Propose(r.Context(), r.PathValue("id"), r.PathValue("routeID"), m)
		if err != nil {
			writeServiceError(w, r, "propose "+kind, err)
			return
		}
		writeJSON(w, r, http.StatusOK, toPreviewResponse(p))
	}
}

// Apply performs the edit and commits it in one request.
func (h *RouteHandler) Apply(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := decodeMutation(kind, w, r)
		if !ok {
			return
		}
		route, err := h.Engine.Apply(r.Context(), r.PathValue("id"), r.PathValue("routeID"), m)
		if err != nil {
			writeServiceError(w, r, "apply "+kind, err)
			return
		}
		writeJSON(w, r, http.StatusOK, toRouteResponse(route))
	}
}

func (h *RouteHandler) Pending(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Engine.Pending(r.PathValue("id"), r.PathValue("routeID"))
	if !ok {
		writeError(w, r, http.StatusNotFound, domain.ErrNoPreview.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, toPreviewResponse(p))
}

func (h *RouteHandler) Commit(w http.ResponseWriter, r *http.Request) {
	route, err := h.Engine.Commit(r.Context(), r.PathValue("id"), r.PathValue("routeID"))
	if err != nil {
		writeServiceError(w, r, "commit", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toRouteResponse(route))
}

func (h *RouteHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Discard(r.PathValue("id"), r.PathValue("routeID")); err != nil {
		writeServiceError(w, r, "discard", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RouteHandler) Reoptimize(w http.ResponseWriter, r *http.Request) {
	res, err := h.Engine.Reoptimize(r.Context(), r.PathValue("id"), r.PathValue("routeID"))
	if err != nil {
		writeServiceError(w, r, "reoptimize", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.ReoptimizeResponse{
		Delta: toDelta(res.RouteDelta),
		Route: toRouteResponse(res.Route),
	})
}
