package services

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/platform/metrics"
	"shuttle-route-service/internal/platform/obs"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// Fixed costs (in cost-seconds) make opening a vehicle expensive, so the
	// solver fills vehicles before adding new ones. Preferred vehicles are
	// cheaper to open.
	PreferredVehicleCost = 100000
	VehicleCost          = 500000

	unassignedPenalty = 1e9
	timeEpsilon       = 1e-6
)

// SolveProblem is one CVRP instance.
type SolveProblem struct {
	Stops    []domain.Stop
	Vehicles []domain.Vehicle
	// Square matrix over depot + stops: index 0 is the depot, index k is
	// Stops[k-1]. Durations are in seconds with traffic already applied.
	Durations [][]float64
	RouteType domain.RouteType
	// Limit on the time between the first and the last stop, in seconds.
	// Zero disables the limit.
	MaxTravelTime float64
	TimeLimit     time.Duration
	// Zero seeds from the clock.
	Seed int64
}

// RouteSkeleton is an unpriced route: a vehicle and its ordered stop IDs.
type RouteSkeleton struct {
	Vehicle domain.Vehicle
	StopIDs []int
}

// Strategy searches an instance for routes. It returns the best plan found
// before the deadline; stops it cannot place are left in plan.unassigned.
type Strategy interface {
	Name() string
	Search(in *instance, deadline time.Time, rng *rand.Rand) plan
}

// RouteSolver validates a problem and runs a search strategy over it.
type RouteSolver struct {
	Strategy Strategy
}

func NewRouteSolver(strategy Strategy) *RouteSolver {
	if strategy == nil {
		strategy = &ALNS{}
	}
	return &RouteSolver{Strategy: strategy}
}

// StrategyByName maps a configured strategy name to its implementation.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "", "alns":
		return &ALNS{}, nil
	case "cheapest_insertion":
		return CheapestInsertion{}, nil
	case "nearest_neighbor":
		return NearestNeighbor{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown solver strategy %q", domain.ErrInvalidInput, name)
	}
}

// Solve assigns every stop to exactly one vehicle. It never returns a
// partial result: either all stops are routed or an
// *domain.InfeasibleCapacityError / *domain.NoFeasibleSolutionError is returned.
// The search is bounded by p.TimeLimit only; ctx is used for logging.
func (s *RouteSolver) Solve(ctx context.Context, p SolveProblem) (_ []RouteSkeleton, err error) {
	defer obs.Time(ctx, "solver.Solve")(&err)

	start := time.Now()
	outcome := "ok"
	defer func() {
		if err != nil {
			outcome = "error"
		}
		metrics.SolverRuns.WithLabelValues(s.Strategy.Name(), outcome).Inc()
		metrics.SolverDuration.WithLabelValues(s.Strategy.Name()).Observe(time.Since(start).Seconds())
	}()

	in, err := newInstance(p)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	if len(p.Stops) == 0 {
		return []RouteSkeleton{}, nil
	}

	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	limit := p.TimeLimit
	if limit <= 0 {
		limit = 30 * time.Second
	}

	best := s.Strategy.Search(in, start.Add(limit), rng)
	if len(best.unassigned) > 0 {
		return nil, fmt.Errorf("solve: %w", in.infeasibility(best.unassigned))
	}

	obs.Logger(ctx).WithFields(log.Fields{
		"strategy": s.Strategy.Name(),
		"stops":    len(p.Stops),
		"vehicles": best.used(),
		"cost":     in.cost(best),
	}).Info("solver finished")

	out := make([]RouteSkeleton, 0, best.used())
	for v, seq := range best.routes {
		if len(seq) == 0 {
			continue
		}
		ids := make([]int, len(seq))
		for k, node := range seq {
			ids[k] = p.Stops[node-1].ID
		}
		out = append(out, RouteSkeleton{Vehicle: p.Vehicles[v], StopIDs: ids})
	}
	return out, nil
}

// instance is the solver's internal view: node 0 is the depot, nodes 1..n
// are stops.
type instance struct {
	dur       [][]float64
	demand    []int
	caps      []int
	fixed     []float64
	stopIDs   []int
	routeType domain.RouteType
	maxTravel float64
}

func newInstance(p SolveProblem) (*instance, error) {
	n := len(p.Stops)
	if len(p.Durations) != n+1 {
		return nil, fmt.Errorf("%w: duration matrix has %d rows, want %d", domain.ErrInvalidInput, len(p.Durations), n+1)
	}
	for i, row := range p.Durations {
		if len(row) != n+1 {
			return nil, fmt.Errorf("%w: duration matrix row %d has %d columns, want %d", domain.ErrInvalidInput, i, len(row), n+1)
		}
	}
	if p.MaxTravelTime < 0 {
		return nil, fmt.Errorf("%w: max travel time must not be negative", domain.ErrInvalidInput)
	}
	rt := p.RouteType
	if rt == "" {
		rt = domain.RouteRing
	}

	in := &instance{
		dur:       p.Durations,
		demand:    make([]int, n+1),
		caps:      make([]int, len(p.Vehicles)),
		fixed:     make([]float64, len(p.Vehicles)),
		stopIDs:   make([]int, n+1),
		routeType: rt,
		maxTravel: p.MaxTravelTime,
	}

	totalDemand := 0
	for k, st := range p.Stops {
		in.demand[k+1] = st.EmployeeCount()
		in.stopIDs[k+1] = st.ID
		totalDemand += st.EmployeeCount()
	}

	totalCap, maxCap := 0, 0
	for v, veh := range p.Vehicles {
		in.caps[v] = veh.Capacity
		totalCap += veh.Capacity
		if veh.Capacity > maxCap {
			maxCap = veh.Capacity
		}
		if veh.Preferred {
			in.fixed[v] = PreferredVehicleCost
		} else {
			in.fixed[v] = VehicleCost
		}
	}

	if totalCap < totalDemand {
		return nil, &domain.InfeasibleCapacityError{Capacity: totalCap, Demand: totalDemand}
	}
	for k, st := range p.Stops {
		if in.demand[k+1] > maxCap {
			return nil, &domain.InfeasibleCapacityError{Capacity: maxCap, Demand: in.demand[k+1], StopID: st.ID}
		}
	}
	return in, nil
}

func (in *instance) nodes() int { return len(in.demand) - 1 }

// routeCost is the travel cost of a sequence for the instance route type.
func (in *instance) routeCost(seq []int) float64 {
	if len(seq) == 0 {
		return 0
	}
	c := 0.0
	if in.routeType.StartsAtDepot() {
		c += in.dur[0][seq[0]]
	}
	for k := 1; k < len(seq); k++ {
		c += in.dur[seq[k-1]][seq[k]]
	}
	if in.routeType.EndsAtDepot() {
		c += in.dur[seq[len(seq)-1]][0]
	}
	return c
}

// span is the travel time between the first and the last stop.
func (in *instance) span(seq []int) float64 {
	t := 0.0
	for k := 1; k < len(seq); k++ {
		t += in.dur[seq[k-1]][seq[k]]
	}
	return t
}

func (in *instance) load(seq []int) int {
	l := 0
	for _, node := range seq {
		l += in.demand[node]
	}
	return l
}

func (in *instance) withinTime(span float64) bool {
	return in.maxTravel <= 0 || span <= in.maxTravel+timeEpsilon
}

func (in *instance) fits(v int, seq []int) bool {
	return in.load(seq) <= in.caps[v] && in.withinTime(in.span(seq))
}

func (in *instance) cost(p plan) float64 {
	c := float64(len(p.unassigned)) * unassignedPenalty
	for v, seq := range p.routes {
		if len(seq) == 0 {
			continue
		}
		c += in.fixed[v] + in.routeCost(seq)
	}
	return c
}

// insertDelta returns the cost and span increase of inserting node u into
// seq before position pos.
func (in *instance) insertDelta(seq []int, pos, u int) (costDelta, spanDelta float64) {
	arc := func(a, b int) float64 {
		if a < 0 || b < 0 {
			return 0
		}
		return in.dur[a][b]
	}

	prevStop, nextStop := -1, -1
	if pos > 0 {
		prevStop = seq[pos-1]
	}
	if pos < len(seq) {
		nextStop = seq[pos]
	}

	prev, next := prevStop, nextStop
	if prev < 0 && in.routeType.StartsAtDepot() {
		prev = 0
	}
	if next < 0 && in.routeType.EndsAtDepot() {
		next = 0
	}

	costDelta = arc(prev, u) + arc(u, next) - arc(prev, next)
	spanDelta = arc(prevStop, u) + arc(u, nextStop) - arc(prevStop, nextStop)
	return costDelta, spanDelta
}

// bestInsertion finds the cheapest feasible position for u on vehicle v.
func (in *instance) bestInsertion(seq []int, v, u int) (pos int, delta float64, ok bool) {
	if in.load(seq)+in.demand[u] > in.caps[v] {
		return 0, 0, false
	}
	span := in.span(seq)
	delta = math.Inf(1)
	for k := 0; k <= len(seq); k++ {
		cd, sd := in.insertDelta(seq, k, u)
		if !in.withinTime(span + sd) {
			continue
		}
		if cd < delta {
			pos, delta, ok = k, cd, true
		}
	}
	if ok && len(seq) == 0 {
		delta += in.fixed[v]
	}
	return pos, delta, ok
}

// infeasibility names why stops could not be placed: when the stops fit by
// capacity alone the travel-time limit is to blame.
func (in *instance) infeasibility(unassigned []int) error {
	ids := make([]int, len(unassigned))
	for k, node := range unassigned {
		ids[k] = in.stopIDs[node]
	}

	relaxed := *in
	relaxed.maxTravel = 0
	trial := cheapestInsertion(&relaxed, emptyPlan(len(in.caps)), allNodes(in.nodes()))
	cause := domain.CauseCapacity
	if len(trial.unassigned) == 0 && in.maxTravel > 0 {
		cause = domain.CauseTravelTime
	}
	return &domain.NoFeasibleSolutionError{Cause: cause, Unassigned: ids}
}

// plan is a candidate solution: one node sequence per vehicle.
type plan struct {
	routes     [][]int
	unassigned []int
}

func emptyPlan(vehicles int) plan {
	return plan{routes: make([][]int, vehicles)}
}

func (p plan) clone() plan {
	out := plan{routes: make([][]int, len(p.routes))}
	for v, seq := range p.routes {
		out.routes[v] = append([]int(nil), seq...)
	}
	out.unassigned = append([]int(nil), p.unassigned...)
	return out
}

func (p plan) used() int {
	n := 0
	for _, seq := range p.routes {
		if len(seq) > 0 {
			n++
		}
	}
	return n
}

func allNodes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func inserted(seq []int, pos, u int) []int {
	out := make([]int, 0, len(seq)+1)
	out = append(out, seq[:pos]...)
	out = append(out, u)
	return append(out, seq[pos:]...)
}

func without(seq []int, pos int) []int {
	out := make([]int, 0, len(seq))
	out = append(out, seq[:pos]...)
	return append(out, seq[pos+1:]...)
}
