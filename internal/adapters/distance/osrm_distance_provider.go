package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/platform/obs"
	"shuttle-route-service/internal/ports"
	"strconv"
	"strings"
	"time"
)

type OSRMOptions struct {
	Profile       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	// Largest point count sent to /table; bigger matrices are refused so
	// callers fetch legs individually.
	MaxTablePoints int
}

// OSRMDistanceProvider implements DistanceProvider and MatrixProvider
// against an OSRM HTTP server (/route/v1 and /table/v1).
//
// Transport failures and 5xx/429 answers are retried; when retries run out
// the error wraps ports.ErrProviderUnavailable. An OSRM "NoRoute" answer
// maps to ports.ErrNoRoute.
//
// The provider is safe for concurrent use.
type OSRMDistanceProvider struct {
	apiClient
	baseURL        string
	profile        string
	maxTablePoints int
}

func NewOSRMDistanceProvider(baseURL string, opts OSRMOptions) (*OSRMDistanceProvider, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("OSRM base url is empty")
	}
	if opts.Profile == "" {
		opts.Profile = "driving"
	}
	if opts.MaxTablePoints <= 0 {
		opts.MaxTablePoints = 100
	}

	return &OSRMDistanceProvider{
		apiClient:      newAPIClient(opts.Timeout, "", opts.RatePerSecond, opts.Burst),
		baseURL:        baseURL,
		profile:        opts.Profile,
		maxTablePoints: opts.MaxTablePoints,
	}, nil
}

type osrmRouteResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// coordPath renders points as OSRM's "lng,lat;lng,lat" path segment.
func coordPath(points []domain.Coordinates) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = strconv.FormatFloat(p.Lng, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lat, 'f', 6, 64)
	}
	return strings.Join(parts, ";")
}

func (o *OSRMDistanceProvider) GetRoute(
	ctx context.Context,
	from domain.Coordinates,
	to domain.Coordinates,
) (_ ports.Leg, err error) {
	defer obs.Time(ctx, "osrm.GetRoute")(&err)

	if !from.Valid() || !to.Valid() {
		return ports.Leg{}, fmt.Errorf("get OSRM route: %w: invalid coordinates", domain.ErrInvalidInput)
	}

	endpoint := fmt.Sprintf(
		"%s/route/v1/%s/%s?overview=full&geometries=geojson",
		o.baseURL, o.profile, coordPath([]domain.Coordinates{from, to}),
	)

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return ports.Leg{}, fmt.Errorf("get OSRM route: %w", classify(err))
	}
	defer resp.Body.Close()

	var rr osrmRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return ports.Leg{}, fmt.Errorf("get OSRM route: decode response: %w: %v", ports.ErrProviderUnavailable, err)
	}
	if err := codeError(rr.Code, rr.Message); err != nil {
		return ports.Leg{}, fmt.Errorf("get OSRM route: %w", err)
	}
	if len(rr.Routes) == 0 {
		return ports.Leg{}, fmt.Errorf("get OSRM route: %w", ports.ErrNoRoute)
	}

	route := rr.Routes[0]
	line := make([]domain.Coordinates, 0, len(route.Geometry.Coordinates))
	for _, c := range route.Geometry.Coordinates {
		if len(c) < 2 {
			continue
		}
		line = append(line, domain.Coordinates{Lng: c[0], Lat: c[1]})
	}

	return ports.Leg{
		DistanceMeters:  route.Distance,
		DurationSeconds: route.Duration,
		Polyline:        line,
	}, nil
}

// classify maps exhausted transport errors to the provider taxonomy.
// Context errors pass through untouched.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var he *httpStatusError
	if errors.As(err, &he) && he.Code == http.StatusBadRequest {
		var body struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal([]byte(he.Body), &body) == nil {
			if cerr := codeError(body.Code, body.Message); cerr != nil {
				return cerr
			}
		}
	}
	return fmt.Errorf("%w: %v", ports.ErrProviderUnavailable, err)
}

func codeError(code, message string) error {
	switch code {
	case "Ok":
		return nil
	case "NoRoute", "NoSegment", "NoTable":
		return fmt.Errorf("%w: %s %s", ports.ErrNoRoute, code, message)
	default:
		return fmt.Errorf("%w: OSRM code %q: %s", ports.ErrProviderUnavailable, code, message)
	}
}
