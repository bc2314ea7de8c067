package geocode

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
)

// reverseGeocoder is the part of the Maps client used here
type reverseGeocoder interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// GoogleResolver reverse-geocodes points with the Google Maps API
type GoogleResolver struct {
	client  reverseGeocoder
	timeout time.Duration
}

// NewGoogleResolver creates a resolver backed by the Maps geocoding API
func NewGoogleResolver(apiKey string, timeout time.Duration) (*GoogleResolver, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return newGoogleResolver(c, timeout), nil
}

func newGoogleResolver(client reverseGeocoder, timeout time.Duration) *GoogleResolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleResolver{client: client, timeout: timeout}
}

// Resolve returns the state or province containing p
func (g *GoogleResolver) Resolve(ctx context.Context, p spatial.GeoPoint) (jurisdiction.Code, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := &maps.GeocodingRequest{
		LatLng:     &maps.LatLng{Lat: p.Latitude, Lng: p.Longitude},
		ResultType: []string{"administrative_area_level_1"},
	}

	results, err := g.client.ReverseGeocode(ctx, req)
	if err != nil {
		return jurisdiction.Unknown, fmt.Errorf("reverse geocode failed: %w", err)
	}

	for _, r := range results {
		for _, c := range r.AddressComponents {
			if !hasType(c.Types, "administrative_area_level_1") {
				continue
			}
			if code := jurisdiction.Normalize(c.ShortName); code.Valid() {
				return code, nil
			}
			if code := jurisdiction.Normalize(c.LongName); code.Valid() {
				return code, nil
			}
		}
	}

	return jurisdiction.Unknown, ErrNoResult
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
