package telemetry

// Span and attribute names used for tracing.
const (
	TracerName = "github.com/samirrijal/maproute"

	// Spans
	SpanDirections = "directions.fetch"
	SpanLocate     = "geolocation.locate"
	SpanFitBounds  = "map.fit_bounds"

	// Attributes
	AttrSessionID   = "session.id"
	AttrOrigin      = "route.origin"
	AttrDestination = "route.destination"
	AttrCacheHit    = "route.cache_hit"
	AttrPointCount  = "route.point_count"
	AttrStatus      = "directions.status"
)
