package services

import (
	"math"
	"math/rand"
	"time"
)

// CheapestInsertion builds routes by repeatedly committing the globally
// cheapest feasible (stop, vehicle, position) insertion. It is deterministic
// and does no improvement.
type CheapestInsertion struct{}

func (CheapestInsertion) Name() string { return "cheapest_insertion" }

func (CheapestInsertion) Search(in *instance, _ time.Time, _ *rand.Rand) plan {
	return cheapestInsertion(in, emptyPlan(len(in.caps)), allNodes(in.nodes()))
}

// cheapestInsertion inserts nodes into p until none fits anywhere; the rest
// are appended to p.unassigned. Ties go to the lowest node, vehicle and
// position.
func cheapestInsertion(in *instance, p plan, nodes []int) plan {
	pending := append([]int(nil), nodes...)

	for len(pending) > 0 {
		bestK, bestV, bestPos := -1, -1, -1
		bestDelta := math.Inf(1)

		for k, u := range pending {
			for v := range p.routes {
				pos, delta, ok := in.bestInsertion(p.routes[v], v, u)
				if ok && delta < bestDelta {
					bestK, bestV, bestPos, bestDelta = k, v, pos, delta
				}
			}
		}
		if bestK < 0 {
			break
		}

		p.routes[bestV] = inserted(p.routes[bestV], bestPos, pending[bestK])
		pending = without(pending, bestK)
	}

	p.unassigned = append(p.unassigned, pending...)
	return p
}

// regretInsertion inserts the node whose best and second-best vehicle
// options differ most first, so hard-to-place stops are not crowded out.
func regretInsertion(in *instance, p plan, nodes []int) plan {
	pending := append([]int(nil), nodes...)

	for len(pending) > 0 {
		bestK, bestV, bestPos := -1, -1, -1
		bestRegret := math.Inf(-1)
		bestDelta := math.Inf(1)

		for k, u := range pending {
			first, second := math.Inf(1), math.Inf(1)
			fv, fpos := -1, -1
			for v := range p.routes {
				pos, delta, ok := in.bestInsertion(p.routes[v], v, u)
				if !ok {
					continue
				}
				if delta < first {
					second = first
					first, fv, fpos = delta, v, pos
				} else if delta < second {
					second = delta
				}
			}
			if fv < 0 {
				continue
			}
			regret := second - first
			if math.IsInf(second, 1) {
				// only one vehicle can take it
				regret = math.MaxFloat64
			}
			if regret > bestRegret || (regret == bestRegret && first < bestDelta) {
				bestK, bestV, bestPos, bestRegret, bestDelta = k, fv, fpos, regret, first
			}
		}
		if bestK < 0 {
			break
		}

		p.routes[bestV] = inserted(p.routes[bestV], bestPos, pending[bestK])
		pending = without(pending, bestK)
	}

	p.unassigned = append(p.unassigned, pending...)
	return p
}
