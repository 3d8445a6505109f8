package services

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

// ALNS starts from cheapest insertion and improves it with adaptive large
// neighbourhood search: random or related removal, greedy or regret
// reinsertion, then intra-route 2-opt and inter-route relocation, accepted
// by simulated annealing. Operator weights adapt to their success.
//
// It stops at the deadline, after MaxIterations, or after StallIterations
// iterations without a new best.
type ALNS struct {
	MaxIterations   int
	StallIterations int
	// Defaults to 1% of the initial travel cost.
	InitialTemp float64
	Cooling     float64
}

func (a *ALNS) Name() string { return "alns" }

func (a *ALNS) Search(in *instance, deadline time.Time, rng *rand.Rand) plan {
	curr := cheapestInsertion(in, emptyPlan(len(in.caps)), allNodes(in.nodes()))
	curr = localSearch(in, curr)
	best := curr.clone()
	currCost := in.cost(curr)
	bestCost := currCost

	if in.nodes() < 2 {
		return best
	}

	stall := a.StallIterations
	if stall <= 0 {
		stall = 2000
	}
	cool := 0.995
	if a.Cooling > 0 && a.Cooling < 1 {
		cool = a.Cooling
	}
	temp := a.InitialTemp
	if temp <= 0 {
		travel := 0.0
		for _, seq := range curr.routes {
			travel += in.routeCost(seq)
		}
		temp = 0.01*travel + 1
	}

	remW := []float64{1, 1} // random, related
	insW := []float64{1, 1} // greedy, regret

	sinceBest := 0
	for it := 1; time.Now().Before(deadline); it++ {
		if a.MaxIterations > 0 && it > a.MaxIterations {
			break
		}
		if sinceBest >= stall {
			break
		}

		rop := roulette(remW, rng)
		iop := roulette(insW, rng)

		cand := curr.clone()
		k := 1 + rng.Intn(min(4, in.nodes()))
		var removed []int
		if rop == 0 {
			removed = randomRemoval(&cand, k, rng)
		} else {
			removed = relatedRemoval(in, &cand, k, rng)
		}

		pending := append(removed, cand.unassigned...)
		cand.unassigned = nil
		if iop == 0 {
			cand = cheapestInsertion(in, cand, pending)
		} else {
			cand = regretInsertion(in, cand, pending)
		}
		cand = localSearch(in, cand)

		candCost := in.cost(cand)
		delta := candCost - currCost
		if delta < 0 || rng.Float64() < math.Exp(-delta/(temp+1e-9)) {
			curr, currCost = cand, candCost
			if candCost < bestCost-timeEpsilon {
				best, bestCost = cand.clone(), candCost
				remW[rop] += 0.1
				insW[iop] += 0.1
				sinceBest = 0
			} else {
				remW[rop] += 0.01
				insW[iop] += 0.01
				sinceBest++
			}
		} else {
			remW[rop] = math.Max(0.01, remW[rop]*0.999)
			insW[iop] = math.Max(0.01, insW[iop]*0.999)
			sinceBest++
		}
		temp *= cool
	}

	return best
}

func roulette(w []float64, rng *rand.Rand) int {
	total := 0.0
	for _, x := range w {
		total += x
	}
	r := rng.Float64() * total
	for i, x := range w {
		if r < x {
			return i
		}
		r -= x
	}
	return len(w) - 1
}

type nodeRef struct{ v, pos int }

func locate(p *plan) map[int]nodeRef {
	at := make(map[int]nodeRef)
	for v, seq := range p.routes {
		for pos, u := range seq {
			at[u] = nodeRef{v: v, pos: pos}
		}
	}
	return at
}

func removeNodes(p *plan, nodes []int) {
	drop := make(map[int]struct{}, len(nodes))
	for _, u := range nodes {
		drop[u] = struct{}{}
	}
	for v, seq := range p.routes {
		out := seq[:0]
		for _, u := range seq {
			if _, ok := drop[u]; !ok {
				out = append(out, u)
			}
		}
		p.routes[v] = out
	}
}

func randomRemoval(p *plan, k int, rng *rand.Rand) []int {
	var routed []int
	for _, seq := range p.routes {
		routed = append(routed, seq...)
	}
	rng.Shuffle(len(routed), func(i, j int) { routed[i], routed[j] = routed[j], routed[i] })
	if k > len(routed) {
		k = len(routed)
	}
	removed := append([]int(nil), routed[:k]...)
	removeNodes(p, removed)
	return removed
}

// relatedRemoval removes a random seed stop and the stops closest to it by
// travel time.
func relatedRemoval(in *instance, p *plan, k int, rng *rand.Rand) []int {
	at := locate(p)
	if len(at) == 0 {
		return nil
	}
	routed := make([]int, 0, len(at))
	for u := range at {
		routed = append(routed, u)
	}
	sort.Ints(routed)
	seed := routed[rng.Intn(len(routed))]

	sort.SliceStable(routed, func(i, j int) bool {
		di := in.dur[seed][routed[i]] + in.dur[routed[i]][seed]
		dj := in.dur[seed][routed[j]] + in.dur[routed[j]][seed]
		return di < dj
	})
	if k > len(routed) {
		k = len(routed)
	}
	removed := append([]int(nil), routed[:k]...)
	removeNodes(p, removed)
	return removed
}

// localSearch applies 2-opt and relocate until neither improves.
func localSearch(in *instance, p plan) plan {
	for pass := 0; pass < 50; pass++ {
		improved := false
		for v := range p.routes {
			if twoOpt(in, &p, v) {
				improved = true
			}
		}
		if relocate(in, &p) {
			improved = true
		}
		if !improved {
			break
		}
	}
	return p
}

// twoOpt reverses segments of one route while that lowers its cost.
func twoOpt(in *instance, p *plan, v int) bool {
	seq := p.routes[v]
	if len(seq) < 3 {
		return false
	}
	improved := false
	base := in.routeCost(seq)
	for i := 0; i < len(seq)-1; i++ {
		for j := i + 1; j < len(seq); j++ {
			cand := append([]int(nil), seq...)
			for a, b := i, j; a < b; a, b = a+1, b-1 {
				cand[a], cand[b] = cand[b], cand[a]
			}
			c := in.routeCost(cand)
			if c < base-timeEpsilon && in.withinTime(in.span(cand)) {
				seq, base = cand, c
				improved = true
			}
		}
	}
	p.routes[v] = seq
	return improved
}

// relocate moves single stops between routes (or within one) when that
// lowers the total cost, fixed vehicle costs included.
func relocate(in *instance, p *plan) bool {
	improved := false
	for from := range p.routes {
		for pos := 0; pos < len(p.routes[from]); pos++ {
			seq := p.routes[from]
			u := seq[pos]
			rest := without(seq, pos)
			if !in.withinTime(in.span(rest)) {
				continue
			}

			gain := in.routeCost(seq) - in.routeCost(rest)
			if len(rest) == 0 {
				gain += in.fixed[from]
			}

			bestTo, bestPos := -1, -1
			bestDelta := gain - timeEpsilon
			for to := range p.routes {
				target := p.routes[to]
				if to == from {
					target = rest
				}
				tpos, delta, ok := in.bestInsertion(target, to, u)
				if !ok {
					continue
				}
				if to == from && tpos == pos {
					continue
				}
				if delta < bestDelta {
					bestTo, bestPos, bestDelta = to, tpos, delta
				}
			}
			if bestTo < 0 {
				continue
			}

			if bestTo == from {
				p.routes[from] = inserted(rest, bestPos, u)
			} else {
				p.routes[from] = rest
				p.routes[bestTo] = inserted(p.routes[bestTo], bestPos, u)
			}
			improved = true
		}
	}
	return improved
}
