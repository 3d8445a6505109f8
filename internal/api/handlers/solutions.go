package handlers

import (
	"net/http"
	"shuttle-route-service/internal/api/dto"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/ports"
	"shuttle-route-service/internal/services"
	"time"
)

// Request defaults and bounds.
const (
	defaultWalkMeters     = 200.0
	minWalkMeters         = 50.0
	maxWalkMeters         = 2000.0
	defaultTravelMinutes  = 65
	minTravelMinutes      = 15
	maxTravelMinutes      = 180
	maxBufferSeats        = 5
	maxTimeLimitSeconds   = 300
	defaultVehiclesOfType = 5
)

type SolutionHandler struct {
	Planner   *services.SolutionPlanner
	Solutions ports.SolutionRepository
	// Vehicle types offered when a request names none.
	VehicleTypes []domain.VehicleType
}

func (h *SolutionHandler) defaultCounts() map[string]int {
	counts := make(map[string]int, len(h.VehicleTypes))
	for _, t := range h.VehicleTypes {
		counts[t.Name] = defaultVehiclesOfType
	}
	return counts
}

func walkDistance(v *float64) (float64, string) {
	if v == nil {
		return defaultWalkMeters, ""
	}
	if *v < minWalkMeters || *v > maxWalkMeters {
		return 0, "max_walking_distance must be between 50 and 2000"
	}
	return *v, ""
}

// Create solves and stores a new solution.
func (h *SolutionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.SolveRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	walk, msg := walkDistance(req.MaxWalkingDistance)
	if msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}

	travel := defaultTravelMinutes
	if req.MaxTravelTime != nil {
		travel = *req.MaxTravelTime
	}
	if travel < minTravelMinutes || travel > maxTravelMinutes {
		writeError(w, r, http.StatusBadRequest, "max_travel_time must be between 15 and 180 minutes")
		return
	}

	if req.BufferSeats < 0 || req.BufferSeats > maxBufferSeats {
		writeError(w, r, http.StatusBadRequest, "buffer_seats must be between 0 and 5")
		return
	}
	if req.TimeLimitSeconds < 0 || req.TimeLimitSeconds > maxTimeLimitSeconds {
		writeError(w, r, http.StatusBadRequest, "time_limit_seconds must be between 0 and 300")
		return
	}
	if req.MinClusterSize < 0 {
		writeError(w, r, http.StatusBadRequest, "min_cluster_size must not be negative")
		return
	}

	priority, err := domain.ParseVehiclePriority(req.VehiclePriority)
	if err != nil {
		writeServiceError(w, r, "solve", err)
		return
	}
	traffic, err := domain.ParseTrafficMode(req.TrafficMode)
	if err != nil {
		writeServiceError(w, r, "solve", err)
		return
	}
	routeType, err := domain.ParseRouteType(req.RouteType)
	if err != nil {
		writeServiceError(w, r, "solve", err)
		return
	}

	counts := req.VehicleCounts
	if len(counts) == 0 {
		counts = h.defaultCounts()
	}

	planReq := services.PlanRequest{
		Name:         req.Name,
		DepotAddress: req.DepotAddress,
		Seed:         req.Seed,
		Params: domain.SolveParams{
			MaxWalkingDistance: walk,
			MinClusterSize:     req.MinClusterSize,
			VehicleCounts:      counts,
			VehiclePriority:    priority,
			MaxTravelTime:      time.Duration(travel) * time.Minute,
			TrafficMode:        traffic,
			BufferSeats:        req.BufferSeats,
			RouteType:          routeType,
			TimeLimit:          time.Duration(req.TimeLimitSeconds) * time.Second,
			ShiftID:            req.ShiftID,
			EmployeeIDs:        req.EmployeeIDs,
		},
	}
	if req.Depot != nil {
		planReq.Depot = &domain.Coordinates{Lat: req.Depot.Lat, Lng: req.Depot.Lng}
	}

	sol, err := h.Planner.Plan(r.Context(), planReq)
	if err != nil {
		writeServiceError(w, r, "solve", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, toSolutionResponse(sol, true))
}

// List returns solution summaries, newest first.
func (h *SolutionHandler) List(w http.ResponseWriter, r *http.Request) {
	sols, err := h.Solutions.ListSolutions(r.Context())
	if err != nil {
		writeServiceError(w, r, "list solutions", err)
		return
	}

	res := dto.ListSolutionResponse{Solutions: make([]dto.SolutionResponse, 0, len(sols))}
	for _, s := range sols {
		res.Solutions = append(res.Solutions, toSolutionResponse(s, false))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *SolutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sol, err := h.Solutions.GetSolution(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, "get solution", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toSolutionResponse(sol, true))
}

func (h *SolutionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Solutions.DeleteSolution(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, "delete solution", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cluster previews the stops for a set of employees without solving.
func (h *SolutionHandler) Cluster(w http.ResponseWriter, r *http.Request) {
	var req dto.ClusterRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	walk, msg := walkDistance(req.MaxWalkingDistance)
	if msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}
	if req.MinClusterSize < 0 {
		writeError(w, r, http.StatusBadRequest, "min_cluster_size must not be negative")
		return
	}

	stops, err := h.Planner.Cluster(r.Context(), services.ClusterRequest{
		MaxWalkingDistance: walk,
		MinClusterSize:     req.MinClusterSize,
		Filter:             ports.EmployeeFilter{IDs: req.EmployeeIDs, ShiftID: req.ShiftID},
	})
	if err != nil {
		writeServiceError(w, r, "cluster", err)
		return
	}

	res := dto.ClusterResponse{Stops: toStopResponses(stops)}
	for _, s := range stops {
		res.Employees += s.EmployeeCount()
	}
	writeJSON(w, r, http.StatusOK, res)
}
