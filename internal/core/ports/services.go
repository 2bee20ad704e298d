package ports

import (
	"context"

	"github.com/samirrijal/maproute/internal/core/domain"
)

// Directions provider statuses the fetcher distinguishes.
const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
)

// DirectionsLeg is the per-leg metadata of a provider route.
type DirectionsLeg struct {
	DistanceMeters  int
	DurationSeconds int
}

// DirectionsResult is the raw, undecoded answer of a directions provider.
// Status carries the provider status code; transport failures are returned
// as errors instead.
type DirectionsResult struct {
	Status          string
	ErrorMessage    string
	EncodedPolyline string
	Bounds          *domain.Bounds
	Legs            []DirectionsLeg
	Summary         string
}

// DirectionsProvider requests driving directions between two points.
type DirectionsProvider interface {
	Directions(ctx context.Context, origin, destination domain.GeoPoint) (*DirectionsResult, error)
}

// Location is a resolved user position.
type Location struct {
	Point          domain.GeoPoint
	AccuracyMeters float64
	City           string
}

// Geolocator resolves a client address to a position.
type Geolocator interface {
	Locate(ctx context.Context, ip string) (*Location, error)
}

// EventPublisher publishes session events to a message broker.
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, event *domain.SessionEvent) error
}

// EventSubscriber subscribes to a single session's events.
// The returned function cancels the subscription.
type EventSubscriber interface {
	SubscribeSession(ctx context.Context, sessionID string, handler func(data []byte)) (func(), error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
