// README: Google Maps geocoding used by the spot importer for spots without coordinates.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"docent/internal/types"
)

// GeocodeService resolves spot addresses to coordinates.
type GeocodeService struct {
	client *maps.Client
}

// NewGeocodeService creates a GeocodeService with the given API key.
func NewGeocodeService(apiKey string) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client}, nil
}

// Geocode returns the coordinates of the best match for address. Results are
// biased to Taiwan since that is where the guide's spots live.
func (s *GeocodeService) Geocode(ctx context.Context, address string) (types.Point, error) {
	r := &maps.GeocodingRequest{
		Address:  address,
		Language: "zh-TW",
		Region:   "TW",
	}
	results, err := s.client.Geocode(ctx, r)
	if err != nil {
		return types.Point{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("no geocode result for %q", address)
	}

	loc := results[0].Geometry.Location
	p := types.Point{Lat: loc.Lat, Lng: loc.Lng}
	if !p.Valid() {
		return types.Point{}, fmt.Errorf("geocode returned invalid coordinates for %q", address)
	}
	return p, nil
}
