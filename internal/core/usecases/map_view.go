package usecases

import (
	"context"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/maproute/internal/core/domain"
	"github.com/samirrijal/maproute/internal/core/ports"
	"github.com/samirrijal/maproute/internal/pkg/geospatial"
	"github.com/samirrijal/maproute/internal/pkg/metrics"
	"github.com/samirrijal/maproute/internal/pkg/telemetry"
)

// Map styling.
const (
	OriginMarkerColor      = "#3FB1CE"
	DestinationMarkerColor = "#C90F1F"
	RouteLineColor         = "#888"
	RouteLineWidth         = 8

	RouteSourceID = "route"
	RouteLayerID  = "route"
)

// Geolocation toast texts.
const (
	MsgFindingLocation = "Finding User Location"
	MsgLocationFound   = "User Location Found"
	MsgLocationFailed  = "Unable to Find User Location"
)

// Marker is a pin drawn on the map.
type Marker struct {
	Role  string          `json:"role"` // origin or destination
	Point domain.GeoPoint `json:"point"`
	Color string          `json:"color"`
}

// LineLayer describes how the route line is painted.
type LineLayer struct {
	ID       string  `json:"id"`
	SourceID string  `json:"source_id"`
	Color    string  `json:"color"`
	Width    float64 `json:"width"`
	Join     string  `json:"join"`
	Cap      string  `json:"cap"`
}

// Scene is everything a client needs to render a session's map.
type Scene struct {
	StyleURL   string           `json:"style_url"`
	Camera     domain.Camera    `json:"camera"`
	Markers    []Marker         `json:"markers"`
	RouteLayer *LineLayer       `json:"route_layer,omitempty"`
	Route      *geojson.Feature `json:"route,omitempty"`
	Fetching   bool             `json:"fetching"`
}

// RouteFeature renders a route as a GeoJSON LineString feature.
func RouteFeature(route *domain.Route) *geojson.Feature {
	line := make(orb.LineString, len(route.Path))
	for i, p := range route.Path {
		line[i] = orb.Point{p.Lng, p.Lat}
	}

	f := geojson.NewFeature(line)
	if len(route.Path) > 0 {
		f.BBox = geojson.NewBBox(orb.Bound{
			Min: orb.Point{route.Bounds.SouthWest.Lng, route.Bounds.SouthWest.Lat},
			Max: orb.Point{route.Bounds.NorthEast.Lng, route.Bounds.NorthEast.Lat},
		})
	}
	f.Properties["distance_meters"] = route.DistanceMeters
	f.Properties["duration_seconds"] = route.DurationSeconds
	if route.Summary != "" {
		f.Properties["summary"] = route.Summary
	}
	return f
}

// FitCamera returns the camera that frames box inside a viewport with the
// given padding.
func FitCamera(box domain.Bounds, vp domain.Viewport, pad domain.Padding, maxZoom float64, durationMs int) domain.Camera {
	fit := geospatial.FitBounds(
		box.NorthEast.Lat, box.NorthEast.Lng,
		box.SouthWest.Lat, box.SouthWest.Lng,
		vp.Width, vp.Height,
		geospatial.Padding{Top: pad.Top, Right: pad.Right, Bottom: pad.Bottom, Left: pad.Left},
		maxZoom,
	)
	return domain.Camera{
		Center:     domain.GeoPoint{Lat: fit.CenterLat, Lng: fit.CenterLng},
		Zoom:       fit.Zoom,
		DurationMs: durationMs,
	}
}

// Scene returns the markers, route layer and camera of a session.
func (s *SessionService) Scene(ctx context.Context, id string) (*Scene, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	scene := &Scene{
		StyleURL: s.settings.StyleURL,
		Camera:   sess.camera,
		Markers:  []Marker{},
		Fetching: sess.fetching,
	}
	if o, ok := sess.waypoints.Origin(); ok {
		scene.Markers = append(scene.Markers, Marker{Role: "origin", Point: o, Color: OriginMarkerColor})
	}
	if d, ok := sess.waypoints.Destination(); ok {
		scene.Markers = append(scene.Markers, Marker{Role: "destination", Point: d, Color: DestinationMarkerColor})
	}
	if sess.route != nil {
		scene.Route = RouteFeature(sess.route)
		scene.RouteLayer = &LineLayer{
			ID:       RouteLayerID,
			SourceID: RouteSourceID,
			Color:    RouteLineColor,
			Width:    RouteLineWidth,
			Join:     "round",
			Cap:      "round",
		}
	}
	return scene, nil
}

// RouteFeature returns the session's route as GeoJSON.
func (s *SessionService) RouteFeature(ctx context.Context, id string) (*geojson.Feature, error) {
	route, err := s.Route(ctx, id)
	if err != nil {
		return nil, err
	}
	return RouteFeature(route), nil
}

// FitToBounds moves the camera to frame the current route. The boolean is
// false, and the camera unchanged, when there is no route yet. A nil or
// empty viewport uses the configured default.
func (s *SessionService) FitToBounds(ctx context.Context, id string, vp *domain.Viewport) (domain.Camera, bool, error) {
	_, span := otel.Tracer(telemetry.TracerName).Start(ctx, telemetry.SpanFitBounds)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrSessionID, id))

	sess, err := s.lookup(id)
	if err != nil {
		return domain.Camera{}, false, err
	}
	sess.mu.Lock()
	if sess.route == nil || len(sess.route.Path) == 0 {
		camera := sess.camera
		sess.mu.Unlock()
		return camera, false, nil
	}

	viewport := s.settings.DefaultViewport
	if vp != nil && vp.Width > 0 && vp.Height > 0 {
		viewport = *vp
	}
	sess.camera = FitCamera(sess.route.Bounds, viewport, s.settings.FitPadding, s.settings.MaxZoom, s.settings.FitDurationMs)
	sess.updatedAt = s.now()
	camera := sess.camera
	s.queueStateLocked(sess, sess.snapshotLocked())
	sess.mu.Unlock()

	s.flush(ctx, sess)
	return camera, true, nil
}

// LocateUser resolves the client's position and centers the camera on it.
// A failed lookup is reported through a toast and Located=false, not an error.
// The lookup itself runs without holding the session.
func (s *SessionService) LocateUser(ctx context.Context, id, clientIP string) (*domain.LocateResult, error) {
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, telemetry.SpanLocate)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrSessionID, id))

	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	loadingID := sess.toaster.Show(domain.KindLoading, MsgFindingLocation, "📍")
	sess.mu.Unlock()
	s.flush(ctx, sess)

	var (
		location *ports.Location
		lerr     error
	)
	if s.locator == nil {
		lerr = domain.ErrLocationUnavailable
	} else {
		location, lerr = s.locator.Locate(ctx, clientIP)
	}
	if lerr == nil && location == nil {
		lerr = domain.ErrLocationUnavailable
	}

	sess.mu.Lock()
	sess.toaster.Dismiss(loadingID)
	if lerr != nil {
		slog.Info("user location unavailable", "session_id", id, "error", lerr)
		metrics.GeolocationRequests.WithLabelValues("error").Inc()
		sess.toaster.Show(domain.KindError, MsgLocationFailed, "❌")
		camera := sess.camera
		sess.mu.Unlock()
		s.flush(ctx, sess)
		return &domain.LocateResult{Located: false, Camera: camera}, nil
	}

	zoom := sess.camera.Zoom
	if s.settings.LocateZoom > zoom {
		zoom = s.settings.LocateZoom
	}
	if location.AccuracyMeters > 0 {
		minLat, minLng, maxLat, maxLng := geospatial.BoundingBox(location.Point.Lat, location.Point.Lng, location.AccuracyMeters)
		box := domain.Bounds{
			NorthEast: domain.GeoPoint{Lat: maxLat, Lng: maxLng},
			SouthWest: domain.GeoPoint{Lat: minLat, Lng: minLng},
		}
		zoom = FitCamera(box, s.settings.DefaultViewport, domain.Padding{}, s.settings.MaxZoom, 0).Zoom
	}

	sess.camera = domain.Camera{Center: location.Point, Zoom: zoom, DurationMs: s.settings.FitDurationMs}
	sess.updatedAt = s.now()
	camera := sess.camera
	metrics.GeolocationRequests.WithLabelValues("ok").Inc()
	sess.toaster.Show(domain.KindSuccess, MsgLocationFound, "✅")
	s.queueStateLocked(sess, sess.snapshotLocked())
	sess.mu.Unlock()
	s.flush(ctx, sess)

	point := location.Point
	return &domain.LocateResult{
		Located:        true,
		Point:          &point,
		AccuracyMeters: location.AccuracyMeters,
		Camera:         camera,
	}, nil
}
