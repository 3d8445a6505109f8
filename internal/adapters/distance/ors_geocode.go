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
	"strings"
	"time"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// ORSGeocoder resolves addresses with OpenRouteService (/geocode/search),
// backed by an optional persistent cache.
type ORSGeocoder struct {
	apiClient
	baseURL string
	country string
	cache   ports.GeocodeCache
}

func NewORSGeocoder(apiKey, baseURL, country string, geocodeCache ports.GeocodeCache) (*ORSGeocoder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if baseURL == "" {
		baseURL = "https://api.openrouteservice.org"
	}
	return &ORSGeocoder{
		apiClient: newAPIClient(10*time.Second, apiKey, 0, 1),
		baseURL:   strings.TrimRight(baseURL, "/"),
		country:   country,
		cache:     geocodeCache,
	}, nil
}

// normalize ensures consistent cache keys by collapsing whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (g *ORSGeocoder) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	norm := normalize(address)
	if norm == "" {
		return domain.Coordinates{}, fmt.Errorf("geocode: %w: address must be non-empty", domain.ErrInvalidInput)
	}

	// Resolve coordinates via cache before calling ORS geocoding.
	if g.cache != nil {
		c, ok, err := g.cache.GetGeocode(ctx, norm)
		if err != nil {
			obs.Logger(ctx).WithError(err).Warn("geocode cache read failed")
		} else if ok {
			return c, nil
		}
	}

	endpoint := g.baseURL + "/geocode/search"
	resp, err := g.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := g.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", norm)
		if g.country != "" {
			q.Set("boundary.country", g.country)
		}
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", norm, err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", norm, domain.ErrNotFound)
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return domain.Coordinates{}, fmt.Errorf("invalid coordinate format for %q", norm)
	}

	out := domain.Coordinates{Lng: coords[0], Lat: coords[1]}
	if g.cache != nil {
		if err := g.cache.PutGeocode(ctx, norm, out); err != nil {
			obs.Logger(ctx).WithError(err).Warn("geocode cache write failed")
		}
	}
	return out, nil
}
