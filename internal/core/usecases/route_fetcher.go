package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"googlemaps.github.io/maps"

	"github.com/samirrijal/maproute/internal/core/domain"
	"github.com/samirrijal/maproute/internal/core/ports"
	"github.com/samirrijal/maproute/internal/pkg/geospatial"
	"github.com/samirrijal/maproute/internal/pkg/metrics"
	"github.com/samirrijal/maproute/internal/pkg/telemetry"
)

// Toast messages shown for fetch outcomes.
const (
	MsgFetchingRoutes = "Fetching Routes"
	MsgRouteFound     = "Route found"
	MsgNoDirection    = "No Direction found between the selected points"
	MsgFetchFailed    = "Unable to fetch directions"
	MsgFetchTimeout   = "Directions request timed out"
)

// RouteFetcher requests a driving route from a directions provider and
// turns the raw answer into a display-ready domain.Route.
type RouteFetcher struct {
	provider ports.DirectionsProvider
	cache    ports.CacheService
	timeout  time.Duration
	cacheTTL int
}

// NewRouteFetcher creates a RouteFetcher. cache may be nil; a zero timeout
// leaves the call bounded only by the caller's context.
func NewRouteFetcher(provider ports.DirectionsProvider, cache ports.CacheService, timeout time.Duration, cacheTTLSeconds int) *RouteFetcher {
	return &RouteFetcher{
		provider: provider,
		cache:    cache,
		timeout:  timeout,
		cacheTTL: cacheTTLSeconds,
	}
}

// FetchRoute returns the route from origin to destination. Errors wrap
// domain.ErrNoRoute, domain.ErrTimeout or domain.ErrProvider.
func (f *RouteFetcher) FetchRoute(ctx context.Context, origin, destination domain.GeoPoint) (*domain.Route, error) {
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, telemetry.SpanDirections)
	defer span.End()
	span.SetAttributes(
		attribute.String(telemetry.AttrOrigin, origin.String()),
		attribute.String(telemetry.AttrDestination, destination.String()),
	)

	key := routeCacheKey(origin, destination)
	if route, ok := f.cached(ctx, key); ok {
		span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
		metrics.DirectionsRequests.WithLabelValues("cache_hit").Inc()
		return route, nil
	}

	callCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := f.provider.Directions(callCtx, origin, destination)
	metrics.DirectionsDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			metrics.DirectionsRequests.WithLabelValues("timeout").Inc()
			return nil, fmt.Errorf("%w after %s", domain.ErrTimeout, f.timeout)
		}
		metrics.DirectionsRequests.WithLabelValues("provider_error").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}

	span.SetAttributes(attribute.String(telemetry.AttrStatus, res.Status))
	route, err := decodeDirections(res)
	if err != nil {
		if errors.Is(err, domain.ErrNoRoute) {
			metrics.DirectionsRequests.WithLabelValues("zero_results").Inc()
		} else {
			metrics.DirectionsRequests.WithLabelValues("provider_error").Inc()
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int(telemetry.AttrPointCount, len(route.Path)))
	metrics.DirectionsRequests.WithLabelValues("ok").Inc()
	f.store(ctx, key, route)
	return route, nil
}

func (f *RouteFetcher) cached(ctx context.Context, key string) (*domain.Route, bool) {
	if f.cache == nil {
		return nil, false
	}
	data, err := f.cache.Get(ctx, key)
	if err != nil || data == nil {
		metrics.CacheMisses.WithLabelValues("route").Inc()
		return nil, false
	}
	var route domain.Route
	if err := json.Unmarshal(data, &route); err != nil {
		metrics.CacheMisses.WithLabelValues("route").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("route").Inc()
	return &route, true
}

func (f *RouteFetcher) store(ctx context.Context, key string, route *domain.Route) {
	if f.cache == nil || f.cacheTTL <= 0 {
		return
	}
	if data, err := json.Marshal(route); err == nil {
		_ = f.cache.Set(ctx, key, data, f.cacheTTL)
	}
}

// decodeDirections classifies the provider status and decodes an OK answer.
func decodeDirections(res *ports.DirectionsResult) (*domain.Route, error) {
	switch res.Status {
	case ports.StatusOK:
	case ports.StatusZeroResults:
		return nil, domain.ErrNoRoute
	default:
		if res.ErrorMessage != "" {
			return nil, fmt.Errorf("%w: %s: %s", domain.ErrProvider, res.Status, res.ErrorMessage)
		}
		return nil, fmt.Errorf("%w: status %s", domain.ErrProvider, res.Status)
	}

	latlngs, err := maps.DecodePolyline(res.EncodedPolyline)
	if err != nil {
		return nil, fmt.Errorf("%w: decode polyline: %v", domain.ErrProvider, err)
	}

	path := make([]domain.GeoPoint, len(latlngs))
	lats := make([]float64, len(latlngs))
	lngs := make([]float64, len(latlngs))
	for i, ll := range latlngs {
		path[i] = domain.GeoPoint{Lat: ll.Lat, Lng: ll.Lng}
		lats[i], lngs[i] = ll.Lat, ll.Lng
	}

	route := &domain.Route{
		Path:     path,
		Summary:  res.Summary,
		Polyline: res.EncodedPolyline,
	}
	if res.Bounds != nil {
		route.Bounds = *res.Bounds
	} else if b, ok := domain.BoundsOf(path); ok {
		route.Bounds = b
	}
	for _, leg := range res.Legs {
		route.DistanceMeters += leg.DistanceMeters
		route.DurationSeconds += leg.DurationSeconds
	}
	if route.DistanceMeters == 0 && len(path) > 1 {
		route.DistanceMeters = int(math.Round(geospatial.PathLength(lats, lngs)))
	}
	return route, nil
}

// routeCacheKey rounds both points to 6 decimals (~0.1 m).
func routeCacheKey(origin, destination domain.GeoPoint) string {
	return fmt.Sprintf("route:%.6f,%.6f:%.6f,%.6f", origin.Lat, origin.Lng, destination.Lat, destination.Lng)
}

// ToastMessage returns the user-facing text for a fetch failure.
func ToastMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoRoute):
		return MsgNoDirection
	case errors.Is(err, domain.ErrTimeout):
		return MsgFetchTimeout
	default:
		return MsgFetchFailed
	}
}
