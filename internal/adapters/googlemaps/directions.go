// Package googlemaps implements ports.DirectionsProvider with the Google
// Maps Directions web service.
package googlemaps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"github.com/samirrijal/maproute/internal/core/domain"
	"github.com/samirrijal/maproute/internal/core/ports"
)

// Options configures the Directions client.
type Options struct {
	APIKey    string
	BaseURL   string // empty for the public endpoint
	Language  string
	RateLimit int // requests per second, 0 keeps the library default
}

// Directions requests driving routes.
type Directions struct {
	client   *maps.Client
	language string
}

// New creates a Directions client.
func New(opts Options) (*Directions, error) {
	clientOpts := []maps.ClientOption{maps.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, maps.WithBaseURL(opts.BaseURL))
	}
	if opts.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(opts.RateLimit))
	}
	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return &Directions{client: client, language: opts.Language}, nil
}

// Directions returns the first driving route between origin and destination.
// Non-OK statuses are reported in the result, not as errors.
func (d *Directions) Directions(ctx context.Context, origin, destination domain.GeoPoint) (*ports.DirectionsResult, error) {
	req := &maps.DirectionsRequest{
		Origin:      latLng(origin),
		Destination: latLng(destination),
		Mode:        maps.TravelModeDriving,
		Language:    d.language,
	}

	routes, _, err := d.client.Directions(ctx, req)
	if err != nil {
		if status, msg, ok := parseStatusError(err); ok {
			return &ports.DirectionsResult{Status: status, ErrorMessage: msg}, nil
		}
		return nil, err
	}
	if len(routes) == 0 {
		return &ports.DirectionsResult{Status: ports.StatusZeroResults}, nil
	}

	r := routes[0]
	res := &ports.DirectionsResult{
		Status:          ports.StatusOK,
		EncodedPolyline: r.OverviewPolyline.Points,
		Summary:         r.Summary,
	}
	if b := r.Bounds; b.NorthEast != b.SouthWest {
		res.Bounds = &domain.Bounds{
			NorthEast: domain.GeoPoint{Lat: b.NorthEast.Lat, Lng: b.NorthEast.Lng},
			SouthWest: domain.GeoPoint{Lat: b.SouthWest.Lat, Lng: b.SouthWest.Lng},
		}
	}
	for _, leg := range r.Legs {
		if leg == nil {
			continue
		}
		res.Legs = append(res.Legs, ports.DirectionsLeg{
			DistanceMeters:  leg.Meters,
			DurationSeconds: int(leg.Duration.Seconds()),
		})
	}
	return res, nil
}

func latLng(p domain.GeoPoint) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}

// parseStatusError extracts the status from the library's
// "maps: STATUS - message" errors.
func parseStatusError(err error) (status, msg string, ok bool) {
	rest, found := strings.CutPrefix(err.Error(), "maps: ")
	if !found {
		return "", "", false
	}
	status, msg, _ = strings.Cut(rest, " - ")
	if status == "" || strings.ToUpper(status) != status || strings.ContainsAny(status, " :'") {
		return "", "", false
	}
	return status, msg, true
}
