package services

import (
	"math"
	"math/rand"
	"time"
)

// NearestNeighbor fills vehicles one at a time with a greedy
// nearest-neighbour walk.
//
// The algorithm minimizes immediate travel duration at each step.
// It does not attempt global route optimization. It is deterministic and
// mostly useful as a baseline for the other strategies.
type NearestNeighbor struct{}

func (NearestNeighbor) Name() string { return "nearest_neighbor" }

func (NearestNeighbor) Search(in *instance, _ time.Time, _ *rand.Rand) plan {
	p := emptyPlan(len(in.caps))
	remaining := make(map[int]struct{}, in.nodes())
	for _, u := range allNodes(in.nodes()) {
		remaining[u] = struct{}{}
	}

	for v := range p.routes {
		if len(remaining) == 0 {
			break
		}

		current := 0
		load, span := 0, 0.0
		for {
			best := -1
			minDuration := math.Inf(1)

			// Select next stop by minimum travel duration (greedy step).
			for u := range remaining {
				if load+in.demand[u] > in.caps[v] {
					continue
				}
				d := in.dur[current][u]
				if current != 0 && !in.withinTime(span+d) {
					continue
				}
				// Tie-breaker keeps the walk deterministic despite map order.
				if d < minDuration || (d == minDuration && u < best) {
					minDuration = d
					best = u
				}
			}
			if best < 0 {
				break
			}

			if current != 0 {
				span += minDuration
			}
			load += in.demand[best]
			p.routes[v] = append(p.routes[v], best)
			delete(remaining, best)
			current = best
		}
	}

	for _, u := range allNodes(in.nodes()) {
		if _, ok := remaining[u]; ok {
			p.unassigned = append(p.unassigned, u)
		}
	}
	return p
}
