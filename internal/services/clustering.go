package services

import (
	"fmt"
	"shuttle-route-service/internal/domain"
	"sort"
)

const DefaultMinClusterSize = 2

const (
	labelUnvisited = -2
	labelNoise     = -1
)

// ClusterStops groups employees into stops with DBSCAN over great-circle
// distance. Two employees are neighbours when they live within maxWalk meters
// of each other.
//
// Dense clusters whose members drift further than maxWalk from the centroid
// (DBSCAN chains) are trimmed from the far end. Noise and trimmed employees
// then join the nearest dense stop that keeps every member within maxWalk of
// the recomputed centroid, or become singleton stops.
//
// The result depends only on input order and parameters.
func ClusterStops(employees []domain.Employee, maxWalk float64, minClusterSize int) ([]domain.Stop, error) {
	if maxWalk <= 0 {
		return nil, fmt.Errorf("cluster stops: %w: max walking distance must be positive", domain.ErrInvalidInput)
	}
	if minClusterSize <= 0 {
		minClusterSize = DefaultMinClusterSize
	}
	if len(employees) == 0 {
		return []domain.Stop{}, nil
	}

	for _, e := range employees {
		if !e.Home.Valid() {
			return nil, fmt.Errorf("cluster stops: %w: employee %d has invalid coordinates", domain.ErrInvalidInput, e.ID)
		}
	}

	n := len(employees)
	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || employees[i].Home.DistanceTo(employees[j].Home) <= maxWalk {
				neighbors[i] = append(neighbors[i], j)
			}
		}
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = labelUnvisited
	}

	clusterCount := 0
	for i := 0; i < n; i++ {
		if labels[i] != labelUnvisited {
			continue
		}
		if len(neighbors[i]) < minClusterSize {
			labels[i] = labelNoise
			continue
		}

		c := clusterCount
		clusterCount++
		labels[i] = c

		queue := append([]int(nil), neighbors[i]...)
		for q := 0; q < len(queue); q++ {
			j := queue[q]
			if labels[j] == labelNoise {
				// border point
				labels[j] = c
				continue
			}
			if labels[j] != labelUnvisited {
				continue
			}
			labels[j] = c
			if len(neighbors[j]) >= minClusterSize {
				queue = append(queue, neighbors[j]...)
			}
		}
	}

	members := make([][]int, clusterCount)
	var pending []int
	for i, l := range labels {
		if l == labelNoise {
			pending = append(pending, i)
			continue
		}
		members[l] = append(members[l], i)
	}

	homes := func(idx []int) []domain.Coordinates {
		out := make([]domain.Coordinates, len(idx))
		for k, i := range idx {
			out[k] = employees[i].Home
		}
		return out
	}

	// Trim chains until every member is within maxWalk of the mean.
	for c := range members {
		for len(members[c]) > 1 {
			center := domain.Centroid(homes(members[c]))
			far, farDist := -1, -1.0
			for k, i := range members[c] {
				if d := employees[i].Home.DistanceTo(center); d > farDist {
					far, farDist = k, d
				}
			}
			if farDist <= maxWalk {
				break
			}
			pending = append(pending, members[c][far])
			members[c] = append(members[c][:far], members[c][far+1:]...)
		}
	}
	sort.Ints(pending)

	type candidate struct {
		cluster int
		dist    float64
	}

	// Attach each pending employee to the nearest dense stop that can take it.
	var singles []int
	for _, p := range pending {
		home := employees[p].Home

		var cands []candidate
		for c := range members {
			center := domain.Centroid(homes(members[c]))
			if d := home.DistanceTo(center); d <= maxWalk {
				cands = append(cands, candidate{cluster: c, dist: d})
			}
		}
		sort.SliceStable(cands, func(a, b int) bool {
			if cands[a].dist != cands[b].dist {
				return cands[a].dist < cands[b].dist
			}
			return cands[a].cluster < cands[b].cluster
		})

		placed := false
		for _, cand := range cands {
			grown := append(append([]int(nil), members[cand.cluster]...), p)
			if maxDistance(homes(grown), domain.Centroid(homes(grown))) <= maxWalk {
				members[cand.cluster] = grown
				placed = true
				break
			}
		}
		if !placed {
			singles = append(singles, p)
		}
	}

	stops := make([]domain.Stop, 0, len(members)+len(singles))
	for c, idx := range members {
		stops = append(stops, newStop(c+1, employees, idx, maxWalk, false))
	}
	for k, p := range singles {
		stops = append(stops, newStop(len(members)+k+1, employees, []int{p}, maxWalk, true))
	}

	return stops, nil
}

func newStop(id int, employees []domain.Employee, idx []int, maxWalk float64, singleton bool) domain.Stop {
	pts := make([]domain.Coordinates, len(idx))
	ids := make([]int64, len(idx))
	for k, i := range idx {
		pts[k] = employees[i].Home
		ids[k] = employees[i].ID
	}
	center := domain.Centroid(pts)

	return domain.Stop{
		ID:              id,
		Name:            fmt.Sprintf("Stop %d", id),
		Location:        center,
		EmployeeIDs:     ids,
		WalkBound:       maxWalk,
		MaxWalkDistance: maxDistance(pts, center),
		Singleton:       singleton,
	}
}

func maxDistance(points []domain.Coordinates, center domain.Coordinates) float64 {
	m := 0.0
	for _, p := range points {
		if d := p.DistanceTo(center); d > m {
			m = d
		}
	}
	return m
}
