package services

import (
	"context"
	"errors"
	"fmt"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/platform/obs"
	"shuttle-route-service/internal/ports"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// PlanRequest asks for a new solution. Either Depot or DepotAddress is set.
type PlanRequest struct {
	Name         string
	Depot        *domain.Coordinates
	DepotAddress string
	Params       domain.SolveParams
	Seed         int64
}

// ClusterRequest previews the stops a solve would use.
type ClusterRequest struct {
	MaxWalkingDistance float64
	MinClusterSize     int
	Filter             ports.EmployeeFilter
}

type PlannerOptions struct {
	MatrixConcurrency int
	DefaultTimeLimit  time.Duration
	// How many times to grow the fleet after a travel-time infeasibility.
	FleetExpansions int
}

// SolutionPlanner runs a full solve: employees -> stops -> fleet check ->
// cost matrix -> solver -> priced routes -> stored solution.
type SolutionPlanner struct {
	Employees ports.EmployeeRepository
	Solutions ports.SolutionRepository
	Provider  ports.DistanceProvider
	Geocoder  ports.GeocodingProvider
	Fleet     *FleetModel
	Solver    *RouteSolver
	Geometry  *RouteGeometryService
	opts      PlannerOptions

	newID func() string
	now   func() time.Time
}

func NewSolutionPlanner(
	employees ports.EmployeeRepository,
	solutions ports.SolutionRepository,
	provider ports.DistanceProvider,
	geocoder ports.GeocodingProvider,
	fleet *FleetModel,
	solver *RouteSolver,
	opts PlannerOptions,
) *SolutionPlanner {
	if opts.DefaultTimeLimit <= 0 {
		opts.DefaultTimeLimit = 30 * time.Second
	}
	return &SolutionPlanner{
		Employees: employees,
		Solutions: solutions,
		Provider:  provider,
		Geocoder:  geocoder,
		Fleet:     fleet,
		Solver:    solver,
		Geometry:  NewRouteGeometryService(provider),
		opts:      opts,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Cluster returns the stops for the selected employees without solving.
func (p *SolutionPlanner) Cluster(ctx context.Context, req ClusterRequest) (_ []domain.Stop, err error) {
	defer obs.Time(ctx, "planner.Cluster")(&err)

	emps, err := p.Employees.ListEmployees(ctx, req.Filter)
	if err != nil {
		return nil, fmt.Errorf("cluster: list employees: %w", err)
	}
	stops, err := ClusterStops(emps, req.MaxWalkingDistance, req.MinClusterSize)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}
	return stops, nil
}

// Plan computes and stores a new solution. Clustering and fleet errors
// abort before the solver runs.
func (p *SolutionPlanner) Plan(ctx context.Context, req PlanRequest) (_ *domain.Solution, err error) {
	defer obs.Time(ctx, "planner.Plan")(&err)

	params := req.Params
	if params.RouteType == "" {
		params.RouteType = domain.RouteRing
	}
	if params.TrafficMode == "" {
		params.TrafficMode = domain.TrafficNone
	}
	if params.VehiclePriority == "" {
		params.VehiclePriority = domain.PriorityAuto
	}
	if params.MinClusterSize <= 0 {
		params.MinClusterSize = DefaultMinClusterSize
	}
	if params.TimeLimit <= 0 {
		params.TimeLimit = p.opts.DefaultTimeLimit
	}

	depot, err := p.resolveDepot(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	emps, err := p.Employees.ListEmployees(ctx, ports.EmployeeFilter{IDs: params.EmployeeIDs, ShiftID: params.ShiftID})
	if err != nil {
		return nil, fmt.Errorf("plan: list employees: %w", err)
	}

	stops, err := ClusterStops(emps, params.MaxWalkingDistance, params.MinClusterSize)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	check, err := p.Fleet.Validate(stops, params.VehicleCounts, params.BufferSeats)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	if !check.Feasible {
		return nil, fmt.Errorf("plan: %w", &domain.InfeasibleCapacityError{Capacity: check.TotalCapacity, Demand: check.TotalDemand})
	}

	multiplier := params.TrafficMode.Multiplier()
	points := make([]domain.Coordinates, 0, len(stops)+1)
	points = append(points, depot)
	for _, s := range stops {
		points = append(points, s.Location)
	}
	cm, err := BuildCostMatrix(ctx, p.Provider, points, p.opts.MatrixConcurrency, multiplier)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	if cm.Fallbacks > 0 {
		obs.Logger(ctx).WithField("fallbacks", cm.Fallbacks).Warn("cost matrix used straight-line estimates")
	}

	skeletons, counts, err := p.solveWithExpansion(ctx, stops, cm, params, req.Seed)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	params.VehicleCounts = counts

	byID := make(map[int]domain.Stop, len(stops))
	for _, s := range stops {
		byID[s.ID] = s
	}

	now := p.now()
	sol := &domain.Solution{
		ID:        p.newID(),
		Name:      p.solutionName(req.Name, now),
		Depot:     depot,
		Params:    params,
		Routes:    make([]domain.Route, 0, len(skeletons)),
		Status:    domain.StatusFeasible,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, sk := range skeletons {
		seq := make([]domain.Stop, 0, len(sk.StopIDs))
		for _, id := range sk.StopIDs {
			seq = append(seq, byID[id])
		}
		priced, err := p.Geometry.Price(ctx, depot, seq, params.RouteType, multiplier)
		if err != nil {
			return nil, fmt.Errorf("plan: %w", err)
		}

		r := domain.Route{ID: p.newID(), Vehicle: sk.Vehicle, Version: 1}
		ApplyPricing(&r, priced)
		sol.Routes = append(sol.Routes, r)
	}
	sol.Recompute()

	if err := p.Solutions.SaveSolution(ctx, sol); err != nil {
		return nil, fmt.Errorf("plan: save solution: %w", err)
	}

	obs.Logger(ctx).WithFields(log.Fields{
		"solution_id": sol.ID,
		"employees":   len(emps),
		"stops":       len(stops),
		"vehicles":    sol.VehiclesUsed,
		"distance_m":  sol.TotalDistanceMeters,
	}).Info("solution planned")
	return sol, nil
}

// solveWithExpansion retries with a larger fleet while the travel-time
// limit is what blocks a solution.
func (p *SolutionPlanner) solveWithExpansion(
	ctx context.Context,
	stops []domain.Stop,
	cm CostMatrix,
	params domain.SolveParams,
	seed int64,
) ([]RouteSkeleton, map[string]int, error) {
	counts := make(map[string]int, len(params.VehicleCounts))
	for k, v := range params.VehicleCounts {
		counts[k] = v
	}

	for attempt := 0; ; attempt++ {
		vehicles, err := p.Fleet.Vehicles(counts, params.BufferSeats, params.VehiclePriority)
		if err != nil {
			return nil, nil, err
		}

		skeletons, err := p.Solver.Solve(ctx, SolveProblem{
			Stops:         stops,
			Vehicles:      vehicles,
			Durations:     cm.Durations,
			RouteType:     params.RouteType,
			MaxTravelTime: params.MaxTravelTime.Seconds() * params.TrafficMode.Multiplier(),
			TimeLimit:     params.TimeLimit,
			Seed:          seed,
		})
		if err == nil {
			return skeletons, counts, nil
		}

		var nf *domain.NoFeasibleSolutionError
		if !errors.As(err, &nf) || nf.Cause != domain.CauseTravelTime || attempt >= p.opts.FleetExpansions {
			return nil, nil, err
		}

		p.expandFleet(counts, params.VehiclePriority)
		obs.Logger(ctx).WithFields(log.Fields{"attempt": attempt + 1, "counts": counts}).
			Warn("travel-time limit not met, retrying with more vehicles")
	}
}

// expandFleet adds two vehicles of the preferred size, or one of each
// size in auto mode.
func (p *SolutionPlanner) expandFleet(counts map[string]int, priority domain.VehiclePriority) {
	var smallest, largest string
	for name := range counts {
		s, _ := p.Fleet.Seats(name)
		if smallest == "" {
			smallest, largest = name, name
			continue
		}
		if ss, _ := p.Fleet.Seats(smallest); s < ss || (s == ss && name < smallest) {
			smallest = name
		}
		if ls, _ := p.Fleet.Seats(largest); s > ls || (s == ls && name < largest) {
			largest = name
		}
	}
	if smallest == "" {
		return
	}

	switch priority {
	case domain.PrioritySmall:
		counts[smallest] += 2
	case domain.PriorityLarge:
		counts[largest] += 2
	default:
		counts[smallest]++
		if largest != smallest {
			counts[largest]++
		}
	}
}

func (p *SolutionPlanner) resolveDepot(ctx context.Context, req PlanRequest) (domain.Coordinates, error) {
	if req.Depot != nil {
		if !req.Depot.Valid() {
			return domain.Coordinates{}, fmt.Errorf("%w: depot has invalid coordinates", domain.ErrInvalidInput)
		}
		return *req.Depot, nil
	}

	addr := strings.TrimSpace(req.DepotAddress)
	if addr == "" {
		return domain.Coordinates{}, fmt.Errorf("%w: depot or depot address is required", domain.ErrInvalidInput)
	}
	if p.Geocoder == nil {
		return domain.Coordinates{}, fmt.Errorf("%w: depot address given but no geocoder is configured", domain.ErrInvalidInput)
	}
	c, err := p.Geocoder.Geocode(ctx, addr)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode depot: %w", err)
	}
	return c, nil
}

func (p *SolutionPlanner) solutionName(name string, now time.Time) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return "Solution " + now.Format("2006-01-02 15:04")
}
