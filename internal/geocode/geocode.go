// Package geocode resolves street addresses to coordinates and caches the answers.
package geocode

import (
	"context"
	"errors"
	"strings"
)

// ErrNoResults is returned when the provider cannot resolve the address.
var ErrNoResults = errors.New("geocode: address not found")

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocoder resolves a free-form address.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinates, error)
}

// FormatAddress joins the listing address parts as "address, city, state zip".
func FormatAddress(address, city, state, zip string) string {
	region := strings.TrimSpace(strings.TrimSpace(state) + " " + strings.TrimSpace(zip))
	var parts []string
	for _, part := range []string{address, city, region} {
		if p := strings.TrimSpace(part); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// cacheKey normalises an address so that case and spacing differences share one entry.
func cacheKey(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}
