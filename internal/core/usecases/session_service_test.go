package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/maproute/internal/core/domain"
	"github.com/samirrijal/maproute/internal/core/ports"
	"github.com/samirrijal/maproute/internal/core/usecases"
)

func newService(t *testing.T, provider ports.DirectionsProvider, locator ports.Geolocator, timeout time.Duration) (*usecases.SessionService, *mockPublisher) {
	t.Helper()
	pub := &mockPublisher{}
	fetcher := usecases.NewRouteFetcher(provider, nil, timeout, 0)
	svc := usecases.NewSessionService(fetcher, locator, pub, usecases.DefaultMapSettings())
	return svc, pub
}

func drain(t *testing.T, svc *usecases.SessionService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

func toastsOf(t *testing.T, svc *usecases.SessionService, id string, kind domain.NotificationKind) []domain.Notification {
	t.Helper()
	all, err := svc.Toasts(context.Background(), id)
	if err != nil {
		t.Fatalf("toasts: %v", err)
	}
	var out []domain.Notification
	for _, n := range all {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func TestSessionService_TwoClicksFetchRoute(t *testing.T) {
	release := make(chan struct{})
	provider := &mockProvider{
		directionsFn: func(ctx context.Context, o, d domain.GeoPoint) (*ports.DirectionsResult, error) {
			<-release
			return okResult(o, barakaldo, d), nil
		},
	}
	svc, pub := newService(t, provider, nil, 5*time.Second)
	ctx := context.Background()
	id := svc.Create(ctx).ID

	snap, err := svc.Click(ctx, id, bilbao)
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if snap.Phase != domain.PhaseOriginSet || snap.Fetching {
		t.Fatalf("after first click: phase=%s fetching=%v", snap.Phase, snap.Fetching)
	}
	if provider.Calls() != 0 {
		t.Fatal("one waypoint must not trigger a fetch")
	}

	snap, err = svc.Click(ctx, id, getxo)
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if snap.Phase != domain.PhaseBothSet || !snap.Fetching {
		t.Fatalf("after second click: phase=%s fetching=%v", snap.Phase, snap.Fetching)
	}
	loading := toastsOf(t, svc, id, domain.KindLoading)
	if len(loading) != 1 || loading[0].Message != usecases.MsgFetchingRoutes {
		t.Fatalf("expected a Fetching Routes toast, got %+v", loading)
	}

	close(release)
	drain(t, svc)

	route, err := svc.Route(ctx, id)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if len(route.Path) != 3 {
		t.Errorf("expected 3 route points, got %d", len(route.Path))
	}
	if n := len(toastsOf(t, svc, id, domain.KindLoading)); n != 0 {
		t.Errorf("loading toast should be dismissed, %d left", n)
	}
	if n := len(toastsOf(t, svc, id, domain.KindError)); n != 0 {
		t.Errorf("expected no error toast, got %d", n)
	}
	if pub.Count(domain.EventRoute) != 1 {
		t.Errorf("expected one route event, got %d", pub.Count(domain.EventRoute))
	}

	snap, _ = svc.Get(ctx, id)
	if snap.Fetching || snap.Route == nil || snap.Route.PointCount != 3 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestSessionService_ThirdClickStartsOver(t *testing.T) {
	svc, _ := newService(t, &mockProvider{}, nil, time.Second)
	ctx := context.Background()
	id := svc.Create(ctx).ID

	svc.Click(ctx, id, bilbao)
	svc.Click(ctx, id, getxo)
	drain(t, svc)

	snap, err := svc.Click(ctx, id, barakaldo)
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if snap.Phase != domain.PhaseOriginSet {
		t.Fatalf("expected origin_set, got %s", snap.Phase)
	}
	if snap.Origin == nil || *snap.Origin != barakaldo || snap.Destination != nil {
		t.Errorf("expected origin=barakaldo and no destination, got %+v / %+v", snap.Origin, snap.Destination)
	}
	if _, err := svc.Route(ctx, id); !errors.Is(err, domain.ErrRouteNotReady) {
		t.Errorf("expected route cleared, got %v", err)
	}
}

func TestSessionService_ZeroResults(t *testing.T) {
	provider := &mockProvider{
		directionsFn: func(ctx context.Context, o, d domain.GeoPoint) (*ports.DirectionsResult, error) {
			return &ports.DirectionsResult{Status: ports.StatusZeroResults}, nil
		},
	}
	svc, _ := newService(t, provider, nil, time.Second)
	ctx := context.Background()
	id := svc.Create(ctx).ID

	svc.Click(ctx, id, bilbao)
	svc.Click(ctx, id, domain.GeoPoint{Lat: 40.7128, Lng: -74.0060})
	drain(t, svc)

	errs := toastsOf(t, svc, id, domain.KindError)
	if len(errs) != 1 || errs[0].Message != usecases.MsgNoDirection {
		t.Fatalf("expected no-direction toast, got %+v", errs)
	}
	if _, err := svc.Route(ctx, id); !errors.Is(err, domain.ErrRouteNotReady) {
		t.Errorf("expected no route, got %v", err)
	}
	snap, _ := svc.Get(ctx, id)
	if snap.Fetching {
		t.Error("fetching should be false after failure")
	}
	if n := len(toastsOf(t, svc, id, domain.KindLoading)); n != 0 {
		t.Errorf("loading toast should be dismissed on failure, %d left", n)
	}
}

func TestSessionService_ProviderErrorToast(t *testing.T) {
	provider := &mockProvider{
		directionsFn: func(ctx context.Context, o, d domain.GeoPoint) (*ports.DirectionsResult, error) {
			return &ports.DirectionsResult{Status: "OVER_QUERY_LIMIT"}, nil
		},
	}
	svc, _ := newService(t, provider, nil, time.Second)
	ctx := context.Background()
	id := svc.Create(ctx).ID

	svc.Click(ctx, id, bilbao)
	svc.Click(ctx, id, getxo)
	drain(t, svc)

	errs := toastsOf(t, svc, id, domain.KindError)
	if len(errs) != 1 || errs[0].Message != usecases.MsgFetchFailed {
		t.Fatalf("expected generic failure toast, got %+v", errs)
	}
}

func TestSessionService_TimeoutToast(t *testing.T) {
	provider := &mockProvider{
		directionsFn: func(ctx context.Context, o, d domain.GeoPoint) (*ports.DirectionsResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	svc, _ := newService(t, provider, nil, 20*time.Millisecond)
	ctx := context.Background()
	id := svc.Create(ctx).ID

	svc.Click(ctx, id, bilbao)
	svc.Click(ctx, id, getxo)
	drain(t, svc)

	errs := toastsOf(t, svc, id, domain.KindError)
	if len(errs) != 1 || errs[0].Message != usecases.MsgFetchTimeout {
		t.Fatalf("expected timeout toast, got %+v", errs)
	}
	snap, _ := svc.Get(ctx, id)
	if snap.Fetching {
		t.Error("fetching should be false after timeout")
	}
}

func TestSessionService_StaleResultDiscarded(t *testing.T) {
	slow := make(chan struct{})
	provider := &mockProvider{
		directionsFn: func(ctx context.Context, o, d domain.GeoPoint) (*ports.DirectionsResult, error) {
			if nearPoint(o, bilbao) {
				// first request: answers late, and with a failure
				<-slow
				return &ports.DirectionsResult{Status: ports.StatusZeroResults}, nil
			}
			return okResult(o, d), nil
		},
	}
	svc, _ := newService(t, provider, nil, 5*time.Second)
	ctx := context.Background()
	id := svc.Create(ctx).ID

	svc.Click(ctx, id, bilbao)
	svc.Click(ctx, id, getxo)
	snap, err := svc.Swap(ctx, id)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if snap.Origin == nil || *snap.Origin != getxo {
		t.Fatalf("expected swapped origin, got %+v", snap.Origin)
	}

	close(slow)
	drain(t, svc)

	route, err := svc.Route(ctx, id)
	if err != nil {
		t.Fatalf("expected the newer route to survive, got %v", err)
	}
	if !nearPoint(route.Path[0], getxo) {
		t.Errorf("route starts at %v, want getxo", route.Path[0])
	}
	if n := len(toastsOf(t, svc, id, domain.KindError)); n != 0 {
		t.Errorf("stale failure must not raise a toast, got %d", n)
	}
	if n := len(toastsOf(t, svc, id, domain.KindLoading)); n != 0 {
		t.Errorf("expected no loading toast, got %d", n)
	}
	if provider.Calls() != 2 {
		t.Errorf("expected 2 provider calls, got %d", provider.Calls())
	}
}

func TestSessionService_SwapAndReset(t *testing.T) {
	svc, _ := newService(t, &mockProvider{}, nil, time.Second)
	ctx := context.Background()
	id := svc.Create(ctx).ID

	before, _ := svc.Click(ctx, id, bilbao)
	after, err := svc.Swap(ctx, id)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if after.Seq != before.Seq || *after.Origin != bilbao {
		t.Error("swap with a single waypoint must be a no-op")
	}

	svc.Click(ctx, id, getxo)
	drain(t, svc)

	snap, err := svc.Reset(ctx, id)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if snap.Phase != domain.PhaseEmpty || snap.Origin != nil || snap.Route != nil {
		t.Errorf("expected empty session after reset, got %+v", snap)
	}
	if snap.Seq <= after.Seq {
		t.Errorf("reset must advance the sequence: %d <= %d", snap.Seq, after.Seq)
	}
}

func TestSessionService_InvalidPointAndUnknownSession(t *testing.T) {
	svc, _ := newService(t, &mockProvider{}, nil, time.Second)
	ctx := context.Background()
	id := svc.Create(ctx).ID

	if _, err := svc.Click(ctx, id, domain.GeoPoint{Lat: 91, Lng: 0}); !errors.Is(err, domain.ErrInvalidPoint) {
		t.Errorf("expected ErrInvalidPoint, got %v", err)
	}
	if _, err := svc.Click(ctx, "missing", bilbao); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, id); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected deleted session to be gone, got %v", err)
	}
}

func TestSessionService_FitToBounds(t *testing.T) {
	svc, _ := newService(t, &mockProvider{}, nil, time.Second)
	ctx := context.Background()
	id := svc.Create(ctx).ID

	cam, ok, err := svc.FitToBounds(ctx, id, nil)
	if err != nil || ok {
		t.Fatalf("expected no fit without a route, got ok=%v err=%v", ok, err)
	}
	if cam.Zoom != svc.Settings().InitialCamera.Zoom {
		t.Error("camera must not move without a route")
	}

	svc.Click(ctx, id, bilbao)
	svc.Click(ctx, id, getxo)
	drain(t, svc)

	cam, ok, err = svc.FitToBounds(ctx, id, &domain.Viewport{Width: 1200, Height: 800})
	if err != nil || !ok {
		t.Fatalf("expected a fit, got ok=%v err=%v", ok, err)
	}
	if cam.DurationMs != 1000 {
		t.Errorf("expected 1000ms animation, got %d", cam.DurationMs)
	}
	if cam.Zoom <= 0 || cam.Zoom > svc.Settings().MaxZoom {
		t.Errorf("zoom out of range: %f", cam.Zoom)
	}
	// the wider left padding pushes the center west of the box middle
	mid := (bilbao.Lng + getxo.Lng) / 2
	if cam.Center.Lng >= mid {
		t.Errorf("expected center west of %f, got %f", mid, cam.Center.Lng)
	}

	scene, err := svc.Scene(ctx, id)
	if err != nil {
		t.Fatalf("scene: %v", err)
	}
	if scene.Camera != cam {
		t.Error("scene should carry the fitted camera")
	}
}

func TestSessionService_Scene(t *testing.T) {
	svc, _ := newService(t, &mockProvider{}, nil, time.Second)
	ctx := context.Background()
	id := svc.Create(ctx).ID

	scene, _ := svc.Scene(ctx, id)
	if len(scene.Markers) != 0 || scene.Route != nil || scene.RouteLayer != nil {
		t.Fatalf("fresh session should have an empty scene, got %+v", scene)
	}

	svc.Click(ctx, id, bilbao)
	svc.Click(ctx, id, getxo)
	drain(t, svc)

	scene, err := svc.Scene(ctx, id)
	if err != nil {
		t.Fatalf("scene: %v", err)
	}
	if len(scene.Markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(scene.Markers))
	}
	if scene.Markers[0].Color != usecases.OriginMarkerColor || scene.Markers[1].Color != usecases.DestinationMarkerColor {
		t.Errorf("unexpected marker colors %+v", scene.Markers)
	}
	if scene.RouteLayer == nil || scene.RouteLayer.Width != 8 || scene.RouteLayer.Color != "#888" {
		t.Errorf("unexpected route layer %+v", scene.RouteLayer)
	}
	if scene.Route == nil || scene.Route.Geometry.GeoJSONType() != "LineString" {
		t.Errorf("expected a LineString feature, got %+v", scene.Route)
	}
}

func TestSessionService_LocateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("unavailable", func(t *testing.T) {
		svc, _ := newService(t, &mockProvider{}, nil, time.Second)
		id := svc.Create(ctx).ID

		res, err := svc.LocateUser(ctx, id, "10.0.0.1")
		if err != nil {
			t.Fatalf("locate: %v", err)
		}
		if res.Located {
			t.Error("expected Located=false")
		}
		errs := toastsOf(t, svc, id, domain.KindError)
		if len(errs) != 1 || errs[0].Message != usecases.MsgLocationFailed {
			t.Errorf("expected failure toast, got %+v", errs)
		}
	})

	t.Run("found", func(t *testing.T) {
		locator := &mockLocator{
			locateFn: func(ctx context.Context, ip string) (*ports.Location, error) {
				return &ports.Location{Point: bilbao, AccuracyMeters: 5000, City: "Bilbao"}, nil
			},
		}
		svc, _ := newService(t, &mockProvider{}, locator, time.Second)
		id := svc.Create(ctx).ID

		res, err := svc.LocateUser(ctx, id, "81.0.0.1")
		if err != nil {
			t.Fatalf("locate: %v", err)
		}
		if !res.Located || res.Camera.Center != bilbao {
			t.Fatalf("expected camera on bilbao, got %+v", res)
		}
		if res.Camera.Zoom <= svc.Settings().InitialCamera.Zoom {
			t.Errorf("expected to zoom in, got %f", res.Camera.Zoom)
		}
		ok := toastsOf(t, svc, id, domain.KindSuccess)
		if len(ok) != 1 || ok[0].Message != usecases.MsgLocationFound {
			t.Errorf("expected found toast, got %+v", ok)
		}
		if n := len(toastsOf(t, svc, id, domain.KindLoading)); n != 0 {
			t.Errorf("loading toast should be dismissed, %d left", n)
		}
	})
}

func TestSessionService_EvictIdle(t *testing.T) {
	svc, _ := newService(t, &mockProvider{}, nil, time.Second)
	ctx := context.Background()
	id := svc.Create(ctx).ID

	if n := svc.EvictIdle(time.Now()); n != 0 {
		t.Fatalf("fresh session evicted")
	}
	if n := svc.EvictIdle(time.Now().Add(time.Hour)); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, err := svc.Get(ctx, id); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected evicted session gone, got %v", err)
	}
}

func TestSessionService_ProviderBoundsKept(t *testing.T) {
	origin := domain.GeoPoint{Lat: 40.0, Lng: -74.0}
	destination := domain.GeoPoint{Lat: 40.1, Lng: -74.1}
	bounds := domain.Bounds{
		NorthEast: domain.GeoPoint{Lat: 40.1, Lng: -74.0},
		SouthWest: domain.GeoPoint{Lat: 40.0, Lng: -74.1},
	}
	provider := &mockProvider{
		directionsFn: func(ctx context.Context, o, d domain.GeoPoint) (*ports.DirectionsResult, error) {
			res := okResult(o, domain.GeoPoint{Lat: 40.05, Lng: -74.05}, d)
			res.Bounds = &bounds
			return res, nil
		},
	}
	svc, _ := newService(t, provider, nil, time.Second)
	ctx := context.Background()
	id := svc.Create(ctx).ID

	svc.Click(ctx, id, origin)
	svc.Click(ctx, id, destination)
	drain(t, svc)

	route, err := svc.Route(ctx, id)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if len(route.Path) != 3 {
		t.Fatalf("expected 3 route points, got %d", len(route.Path))
	}
	if route.Bounds != bounds {
		t.Errorf("expected provider bounds %+v, got %+v", bounds, route.Bounds)
	}
	if n := len(toastsOf(t, svc, id, domain.KindLoading)); n != 0 {
		t.Errorf("loading toast should be dismissed, %d left", n)
	}
	if n := len(toastsOf(t, svc, id, domain.KindError)); n != 0 {
		t.Errorf("expected no error toast, got %d", n)
	}
}

func TestSessionService_ResetThenClicksMatchesFreshSession(t *testing.T) {
	svc, _ := newService(t, &mockProvider{}, nil, time.Second)
	ctx := context.Background()

	fresh := svc.Create(ctx).ID
	svc.Click(ctx, fresh, bilbao)
	svc.Click(ctx, fresh, getxo)

	reused := svc.Create(ctx).ID
	svc.Click(ctx, reused, barakaldo)
	svc.Click(ctx, reused, bilbao)
	drain(t, svc)
	if _, err := svc.Reset(ctx, reused); err != nil {
		t.Fatalf("reset: %v", err)
	}
	svc.Click(ctx, reused, bilbao)
	svc.Click(ctx, reused, getxo)
	drain(t, svc)

	a, _ := svc.Get(ctx, fresh)
	b, _ := svc.Get(ctx, reused)
	if a.Phase != b.Phase || *a.Origin != *b.Origin || *a.Destination != *b.Destination {
		t.Fatalf("waypoints differ: %+v vs %+v", a, b)
	}
	ra, _ := svc.Route(ctx, fresh)
	rb, _ := svc.Route(ctx, reused)
	if len(ra.Path) != len(rb.Path) || ra.Bounds != rb.Bounds {
		t.Errorf("routes differ: %+v vs %+v", ra, rb)
	}
}
