package usecases_test

import (
	"context"
	"errors"
	"sync"

	"googlemaps.github.io/maps"

	"github.com/samirrijal/maproute/internal/core/domain"
	"github.com/samirrijal/maproute/internal/core/ports"
)

// --- Mock DirectionsProvider ---

type mockProvider struct {
	mu           sync.Mutex
	calls        int
	directionsFn func(ctx context.Context, origin, destination domain.GeoPoint) (*ports.DirectionsResult, error)
}

func (m *mockProvider) Directions(ctx context.Context, origin, destination domain.GeoPoint) (*ports.DirectionsResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.directionsFn != nil {
		return m.directionsFn(ctx, origin, destination)
	}
	return okResult(origin, destination), nil
}

func (m *mockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// okResult is a straight two-point route between origin and destination.
func okResult(points ...domain.GeoPoint) *ports.DirectionsResult {
	path := make([]maps.LatLng, len(points))
	for i, p := range points {
		path[i] = maps.LatLng{Lat: p.Lat, Lng: p.Lng}
	}
	return &ports.DirectionsResult{
		Status:          ports.StatusOK,
		EncodedPolyline: maps.Encode(path),
		Legs:            []ports.DirectionsLeg{{DistanceMeters: 1200, DurationSeconds: 180}},
		Summary:         "Gran Vía",
	}
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.SessionEvent
}

func (m *mockPublisher) PublishSessionEvent(ctx context.Context, event *domain.SessionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

func (m *mockPublisher) Count(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// --- Mock Geolocator ---

type mockLocator struct {
	locateFn func(ctx context.Context, ip string) (*ports.Location, error)
}

func (m *mockLocator) Locate(ctx context.Context, ip string) (*ports.Location, error) {
	if m.locateFn != nil {
		return m.locateFn(ctx, ip)
	}
	return nil, domain.ErrLocationUnavailable
}

// --- Blocking EventPublisher ---

// blockingPublisher holds every publish until release is closed or the
// publish context ends, and remembers whether that context had a deadline.
type blockingPublisher struct {
	release chan struct{}
	once    sync.Once
	started chan struct{}

	mu          sync.Mutex
	calls       int
	noDeadlines int
}

func newBlockingPublisher() *blockingPublisher {
	return &blockingPublisher{release: make(chan struct{}), started: make(chan struct{})}
}

func (m *blockingPublisher) PublishSessionEvent(ctx context.Context, event *domain.SessionEvent) error {
	m.mu.Lock()
	m.calls++
	if _, ok := ctx.Deadline(); !ok {
		m.noDeadlines++
	}
	m.mu.Unlock()
	m.once.Do(func() { close(m.started) })

	select {
	case <-m.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *blockingPublisher) Stats() (calls, noDeadlines int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls, m.noDeadlines
}
