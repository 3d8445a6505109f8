package services

import (
	"context"
	"errors"
	"fmt"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/platform/metrics"
	"shuttle-route-service/internal/platform/obs"
	"shuttle-route-service/internal/ports"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Distance, duration and load of a route at one point in time.
type RouteMetrics struct {
	DistanceMeters  float64
	DurationSeconds float64
	Passengers      int
	Stops           int
}

func metricsOf(r domain.Route) RouteMetrics {
	return RouteMetrics{
		DistanceMeters:  r.DistanceMeters,
		DurationSeconds: r.DurationSeconds,
		Passengers:      r.Passengers,
		Stops:           len(r.Stops),
	}
}

// Comparison of a route before and after a change.
type RouteDelta struct {
	Old, New             RouteMetrics
	DistanceDelta        float64
	DurationDelta        float64
	DistanceDeltaPercent float64
	DurationDeltaPercent float64
}

func deltaOf(before, after domain.Route) RouteDelta {
	d := RouteDelta{
		Old:           metricsOf(before),
		New:           metricsOf(after),
		DistanceDelta: after.DistanceMeters - before.DistanceMeters,
		DurationDelta: after.DurationSeconds - before.DurationSeconds,
	}
	if before.DistanceMeters > 0 {
		d.DistanceDeltaPercent = d.DistanceDelta / before.DistanceMeters * 100
	}
	if before.DurationSeconds > 0 {
		d.DurationDeltaPercent = d.DurationDelta / before.DurationSeconds * 100
	}
	return d
}

// Preview is a computed but uncommitted edit.
type Preview struct {
	SolutionID string
	RouteID    string
	Kind       string
	RouteDelta
	// The route as it would be stored on commit.
	Route     domain.Route
	Degraded  bool
	CreatedAt time.Time
}

// ReoptimizeResult reports a committed single-route resolve.
type ReoptimizeResult struct {
	RouteDelta
	Route domain.Route
}

type pendingEdit struct {
	preview     Preview
	baseVersion int
	dropAdd     []int64
	dropRemove  []int64
}

type EditOptions struct {
	AttachRadius        float64
	MatrixConcurrency   int
	ReoptimizeTimeLimit time.Duration
}

// RouteEditEngine runs the preview/commit state machine for routes.
//
// Each route is either stable or previewing. Propose computes a new
// geometry without touching stored state; Commit stores it, Discard drops
// it. Only the preview table is guarded here: callers must serialise
// requests for the same route. Edits on different routes are independent.
type RouteEditEngine struct {
	Solutions ports.SolutionRepository
	Employees ports.EmployeeRepository
	Provider  ports.DistanceProvider
	Geometry  *RouteGeometryService
	Solver    *RouteSolver
	opts      EditOptions

	mu      sync.Mutex
	pending map[string]*pendingEdit
	now     func() time.Time
}

func NewRouteEditEngine(
	solutions ports.SolutionRepository,
	employees ports.EmployeeRepository,
	provider ports.DistanceProvider,
	solver *RouteSolver,
	opts EditOptions,
) *RouteEditEngine {
	if opts.AttachRadius <= 0 {
		opts.AttachRadius = DefaultAttachRadius
	}
	if opts.ReoptimizeTimeLimit <= 0 {
		opts.ReoptimizeTimeLimit = 5 * time.Second
	}
	return &RouteEditEngine{
		Solutions: solutions,
		Employees: employees,
		Provider:  provider,
		Geometry:  NewRouteGeometryService(provider),
		Solver:    solver,
		opts:      opts,
		pending:   make(map[string]*pendingEdit),
		now:       time.Now,
	}
}

func pendingKey(solutionID, routeID string) string { return solutionID + "/" + routeID }

func (e *RouteEditEngine) load(ctx context.Context, solutionID, routeID string) (*domain.Solution, int, error) {
	sol, err := e.Solutions.GetSolution(ctx, solutionID)
	if err != nil {
		return nil, 0, err
	}
	idx := sol.RouteIndex(routeID)
	if idx < 0 {
		return nil, 0, fmt.Errorf("route %s: %w", routeID, domain.ErrNotFound)
	}
	return sol, idx, nil
}

// Propose computes the route that m would produce and holds it as the
// route's pending preview, replacing any earlier one. Stored state is not
// modified; on error no preview is recorded.
func (e *RouteEditEngine) Propose(ctx context.Context, solutionID, routeID string, m Mutation) (_ Preview, err error) {
	defer obs.Time(ctx, "edit.Propose")(&err)

	sol, idx, err := e.load(ctx, solutionID, routeID)
	if err != nil {
		return Preview{}, fmt.Errorf("propose %s: %w", m.Kind(), err)
	}

	before := sol.Routes[idx]
	work := before.Clone()
	ed := &edit{
		sol:          sol,
		route:        &work,
		employees:    e.Employees,
		attachRadius: e.opts.AttachRadius,
	}
	if err := m.apply(ctx, ed); err != nil {
		return Preview{}, fmt.Errorf("propose %s: %w", m.Kind(), err)
	}

	if n := work.CountPassengers(); n > work.Vehicle.Capacity {
		return Preview{}, fmt.Errorf("propose %s: %w", m.Kind(), &domain.CapacityExceededError{
			RouteID: work.ID, Capacity: work.Vehicle.Capacity, Passengers: n,
		})
	}

	priced, err := e.Geometry.Price(ctx, sol.Depot, work.Stops, sol.Params.RouteType, sol.Params.TrafficMode.Multiplier())
	if err != nil {
		return Preview{}, fmt.Errorf("propose %s: %w", m.Kind(), err)
	}
	ApplyPricing(&work, priced)
	work.Version = before.Version + 1

	p := Preview{
		SolutionID: solutionID,
		RouteID:    routeID,
		Kind:       m.Kind(),
		RouteDelta: deltaOf(before, work),
		Route:      work,
		Degraded:   work.Degraded,
		CreatedAt:  e.now(),
	}

	e.mu.Lock()
	e.pending[pendingKey(solutionID, routeID)] = &pendingEdit{
		preview:     p,
		baseVersion: before.Version,
		dropAdd:     ed.dropAdd,
		dropRemove:  ed.dropRemove,
	}
	e.mu.Unlock()

	metrics.RouteEdits.WithLabelValues(m.Kind(), "propose").Inc()
	return p, nil
}

// Pending returns the preview held for a route, if any.
func (e *RouteEditEngine) Pending(solutionID, routeID string) (Preview, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pe, ok := e.pending[pendingKey(solutionID, routeID)]
	if !ok {
		return Preview{}, false
	}
	return pe.preview, true
}

// Commit stores the pending preview as the route's new stable state.
// It fails with domain.ErrNoPreview when nothing is pending,
// domain.ErrStalePreview when the stored route changed since the preview and
// domain.ErrEmployeeAssigned when an added employee was committed onto
// another route in the meantime. New stops whose id was taken by another
// route in the meantime are renumbered.
func (e *RouteEditEngine) Commit(ctx context.Context, solutionID, routeID string) (_ domain.Route, err error) {
	defer obs.Time(ctx, "edit.Commit")(&err)

	key := pendingKey(solutionID, routeID)
	e.mu.Lock()
	pe, ok := e.pending[key]
	e.mu.Unlock()
	if !ok {
		return domain.Route{}, fmt.Errorf("commit: %w", domain.ErrNoPreview)
	}

	sol, idx, err := e.load(ctx, solutionID, routeID)
	if err != nil {
		return domain.Route{}, fmt.Errorf("commit: %w", err)
	}
	if sol.Routes[idx].Version != pe.baseVersion {
		e.forget(key, pe)
		return domain.Route{}, fmt.Errorf("commit: %w", domain.ErrStalePreview)
	}
	// Other routes of the solution may have been committed since the preview.
	stored := sol.Routes[idx]
	for _, id := range pe.preview.Route.EmployeeIDs() {
		if stored.StopIndexOf(id) >= 0 {
			continue
		}
		if ri := sol.RouteOf(id); ri >= 0 && ri != idx {
			e.forget(key, pe)
			return domain.Route{}, fmt.Errorf("commit: employee %d on route %s: %w", id, sol.Routes[ri].ID, domain.ErrEmployeeAssigned)
		}
	}

	route := pe.preview.Route.Clone()
	renumberNewStops(sol, idx, &route)
	sol.Routes[idx] = route
	for _, id := range pe.dropRemove {
		sol.Undrop(id)
	}
	for _, id := range pe.dropAdd {
		if !sol.IsDropped(id) {
			sol.Dropped = append(sol.Dropped, id)
		}
	}
	sol.Recompute()
	sol.UpdatedAt = e.now()

	if err := e.Solutions.SaveSolution(ctx, sol); err != nil {
		// preview stays pending so the commit can be retried
		return domain.Route{}, fmt.Errorf("commit: save solution: %w", err)
	}

	e.forget(key, pe)
	metrics.RouteEdits.WithLabelValues(pe.preview.Kind, "commit").Inc()
	obs.Logger(ctx).WithFields(log.Fields{
		"solution_id": solutionID,
		"route_id":    routeID,
		"kind":        pe.preview.Kind,
		"version":     route.Version,
	}).Info("route edit committed")
	return route, nil
}

// renumberNewStops gives stops that are new on route (not on the stored
// route idx) a fresh id when another route now uses the same id.
func renumberNewStops(sol *domain.Solution, idx int, route *domain.Route) {
	taken := make(map[int]bool)
	for i, r := range sol.Routes {
		if i == idx {
			continue
		}
		for _, st := range r.Stops {
			taken[st.ID] = true
		}
	}
	old := make(map[int]bool, len(sol.Routes[idx].Stops))
	for _, st := range sol.Routes[idx].Stops {
		old[st.ID] = true
	}

	next := sol.NextStopID()
	for _, st := range route.Stops {
		if st.ID >= next {
			next = st.ID + 1
		}
	}
	for i := range route.Stops {
		st := &route.Stops[i]
		if old[st.ID] || !taken[st.ID] {
			continue
		}
		st.ID = next
		st.Name = fmt.Sprintf("Stop %d", next)
		next++
	}
}

// forget removes pe if it is still the pending preview under key.
func (e *RouteEditEngine) forget(key string, pe *pendingEdit) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending[key] == pe {
		delete(e.pending, key)
	}
}

// Discard drops the pending preview; the stored route is untouched.
func (e *RouteEditEngine) Discard(solutionID, routeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := pendingKey(solutionID, routeID)
	pe, ok := e.pending[key]
	if !ok {
		return fmt.Errorf("discard: %w", domain.ErrNoPreview)
	}
	delete(e.pending, key)
	metrics.RouteEdits.WithLabelValues(pe.preview.Kind, "discard").Inc()
	return nil
}

// Apply proposes and commits m in one call.
func (e *RouteEditEngine) Apply(ctx context.Context, solutionID, routeID string, m Mutation) (domain.Route, error) {
	if _, err := e.Propose(ctx, solutionID, routeID, m); err != nil {
		return domain.Route{}, err
	}
	return e.Commit(ctx, solutionID, routeID)
}

// Reoptimize re-clusters the route's employees and resolves them for the
// route's vehicle alone. The result is committed immediately and any
// pending preview on the route is dropped. On error nothing changes.
func (e *RouteEditEngine) Reoptimize(ctx context.Context, solutionID, routeID string) (_ ReoptimizeResult, err error) {
	defer obs.Time(ctx, "edit.Reoptimize")(&err)

	if e.Employees == nil || e.Solver == nil {
		return ReoptimizeResult{}, errors.New("reoptimize: engine has no employee repository or solver")
	}

	sol, idx, err := e.load(ctx, solutionID, routeID)
	if err != nil {
		return ReoptimizeResult{}, fmt.Errorf("reoptimize: %w", err)
	}
	before := sol.Routes[idx]
	params := sol.Params

	ids := before.EmployeeIDs()
	var emps []domain.Employee
	if len(ids) > 0 {
		emps, err = e.Employees.ListEmployees(ctx, ports.EmployeeFilter{IDs: ids})
		if err != nil {
			return ReoptimizeResult{}, fmt.Errorf("reoptimize: list employees: %w", err)
		}
	}
	if len(emps) != len(ids) {
		return ReoptimizeResult{}, fmt.Errorf("reoptimize: %w: %d of %d route employees found", domain.ErrNotFound, len(emps), len(ids))
	}

	walk := params.MaxWalkingDistance
	if walk <= 0 {
		walk = maxWalkBound(before.Stops)
	}
	stops, err := ClusterStops(emps, walk, params.MinClusterSize)
	if err != nil {
		return ReoptimizeResult{}, fmt.Errorf("reoptimize: %w", err)
	}

	// Old stop ids on this route are released; new ones must not collide
	// with the other routes.
	others := sol.Clone()
	others.Routes[idx].Stops = nil
	next := others.NextStopID()
	for i := range stops {
		stops[i].ID = next + i
		stops[i].Name = fmt.Sprintf("Stop %d", stops[i].ID)
	}

	multiplier := params.TrafficMode.Multiplier()
	points := make([]domain.Coordinates, 0, len(stops)+1)
	points = append(points, sol.Depot)
	for _, s := range stops {
		points = append(points, s.Location)
	}
	cm, err := BuildCostMatrix(ctx, e.Provider, points, e.opts.MatrixConcurrency, multiplier)
	if err != nil {
		return ReoptimizeResult{}, fmt.Errorf("reoptimize: %w", err)
	}

	limit := params.TimeLimit
	if limit <= 0 || limit > e.opts.ReoptimizeTimeLimit {
		limit = e.opts.ReoptimizeTimeLimit
	}
	skeletons, err := e.Solver.Solve(ctx, SolveProblem{
		Stops:         stops,
		Vehicles:      []domain.Vehicle{before.Vehicle},
		Durations:     cm.Durations,
		RouteType:     params.RouteType,
		MaxTravelTime: params.MaxTravelTime.Seconds() * multiplier,
		TimeLimit:     limit,
	})
	if err != nil {
		return ReoptimizeResult{}, fmt.Errorf("reoptimize: %w", err)
	}

	byID := make(map[int]domain.Stop, len(stops))
	for _, s := range stops {
		byID[s.ID] = s
	}
	ordered := make([]domain.Stop, 0, len(stops))
	for _, sk := range skeletons {
		for _, id := range sk.StopIDs {
			ordered = append(ordered, byID[id])
		}
	}

	priced, err := e.Geometry.Price(ctx, sol.Depot, ordered, params.RouteType, multiplier)
	if err != nil {
		return ReoptimizeResult{}, fmt.Errorf("reoptimize: %w", err)
	}

	after := before.Clone()
	ApplyPricing(&after, priced)
	after.Version = before.Version + 1

	sol.Routes[idx] = after
	sol.Recompute()
	sol.UpdatedAt = e.now()
	if err := e.Solutions.SaveSolution(ctx, sol); err != nil {
		return ReoptimizeResult{}, fmt.Errorf("reoptimize: save solution: %w", err)
	}

	e.mu.Lock()
	delete(e.pending, pendingKey(solutionID, routeID))
	e.mu.Unlock()

	metrics.RouteEdits.WithLabelValues("reoptimize", "commit").Inc()
	return ReoptimizeResult{RouteDelta: deltaOf(before, after), Route: after}, nil
}

func maxWalkBound(stops []domain.Stop) float64 {
	m := 0.0
	for _, s := range stops {
		if s.WalkBound > m {
			m = s.WalkBound
		}
	}
	if m == 0 {
		m = 200
	}
	return m
}
