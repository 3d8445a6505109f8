package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/platform/obs"
	"shuttle-route-service/internal/ports"
)

type tableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// GetMatrix retrieves the all-pairs distance and duration table for points
// in one /table request. Pairs OSRM returns null for are marked not OK.
func (o *OSRMDistanceProvider) GetMatrix(
	ctx context.Context,
	points []domain.Coordinates,
) (_ ports.Matrix, err error) {
	defer obs.Time(ctx, "osrm.GetMatrix")(&err)

	n := len(points)
	if n == 0 {
		return ports.Matrix{}, nil
	}
	if n > o.maxTablePoints {
		return nil, fmt.Errorf("get OSRM matrix: %w: %d points exceeds table limit %d", ports.ErrProviderUnavailable, n, o.maxTablePoints)
	}
	for i, p := range points {
		if !p.Valid() {
			return nil, fmt.Errorf("get OSRM matrix: %w: point %d has invalid coordinates", domain.ErrInvalidInput, i)
		}
	}

	endpoint := fmt.Sprintf(
		"%s/table/v1/%s/%s?annotations=distance,duration",
		o.baseURL, o.profile, coordPath(points),
	)

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("get OSRM matrix: %w", classify(err))
	}
	defer resp.Body.Close()

	var tr tableResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("get OSRM matrix: decode response: %w: %v", ports.ErrProviderUnavailable, err)
	}
	if err := codeError(tr.Code, tr.Message); err != nil {
		return nil, fmt.Errorf("get OSRM matrix: %w", err)
	}

	if len(tr.Distances) != n || len(tr.Durations) != n {
		return nil, fmt.Errorf(
			"get OSRM matrix: %w: expected %d rows; got distances=%d durations=%d",
			ports.ErrProviderUnavailable, n, len(tr.Distances), len(tr.Durations),
		)
	}

	out := make(ports.Matrix, n)
	for i := 0; i < n; i++ {
		if len(tr.Distances[i]) != n || len(tr.Durations[i]) != n {
			return nil, fmt.Errorf("get OSRM matrix: %w: row %d has wrong length", ports.ErrProviderUnavailable, i)
		}
		out[i] = make([]ports.MatrixCell, n)
		for j := 0; j < n; j++ {
			meters, seconds := tr.Distances[i][j], tr.Durations[i][j]
			if meters == nil || seconds == nil {
				continue
			}
			out[i][j] = ports.MatrixCell{DistanceMeters: *meters, DurationSeconds: *seconds, OK: true}
		}
	}

	return out, nil
}
