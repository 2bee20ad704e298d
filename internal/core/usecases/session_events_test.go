package usecases_test

import (
	"context"
	"testing"
	"time"

	"github.com/samirrijal/maproute/internal/core/domain"
	"github.com/samirrijal/maproute/internal/core/ports"
	"github.com/samirrijal/maproute/internal/core/usecases"
)

func newServiceWithPublisher(t *testing.T, locator ports.Geolocator, pub ports.EventPublisher, eventTimeout time.Duration) *usecases.SessionService {
	t.Helper()
	settings := usecases.DefaultMapSettings()
	settings.EventTimeout = eventTimeout
	fetcher := usecases.NewRouteFetcher(&mockProvider{}, nil, time.Second, 0)
	return usecases.NewSessionService(fetcher, locator, pub, settings)
}

// within fails the test when fn does not return before d.
func within(t *testing.T, d time.Duration, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s did not return within %s", what, d)
	}
}

func TestSessionService_StalledPublisherDoesNotHoldSession(t *testing.T) {
	pub := newBlockingPublisher()
	svc := newServiceWithPublisher(t, nil, pub, 10*time.Second)
	ctx := context.Background()
	a := svc.Create(ctx).ID

	clicked := make(chan error, 1)
	go func() {
		_, err := svc.Click(ctx, a, bilbao)
		clicked <- err
	}()

	select {
	case <-pub.started:
	case <-time.After(time.Second):
		t.Fatal("click never published")
	}

	within(t, time.Second, "get on the publishing session", func() {
		snap, err := svc.Get(ctx, a)
		if err != nil || snap.Phase != domain.PhaseOriginSet {
			t.Errorf("unexpected snapshot %+v, err %v", snap, err)
		}
	})
	within(t, time.Second, "create and get another session", func() {
		b := svc.Create(ctx).ID
		if _, err := svc.Get(ctx, b); err != nil {
			t.Errorf("get: %v", err)
		}
	})
	within(t, time.Second, "evict idle", func() {
		if n := svc.EvictIdle(time.Now()); n != 0 {
			t.Errorf("expected no evictions, got %d", n)
		}
	})

	close(pub.release)
	if err := <-clicked; err != nil {
		t.Fatalf("click: %v", err)
	}
}

func TestSessionService_PublishBoundedByEventTimeout(t *testing.T) {
	pub := newBlockingPublisher()
	svc := newServiceWithPublisher(t, nil, pub, 50*time.Millisecond)
	ctx := context.Background()
	id := svc.Create(ctx).ID

	within(t, 2*time.Second, "two clicks", func() {
		if _, err := svc.Click(ctx, id, bilbao); err != nil {
			t.Errorf("click: %v", err)
		}
		if _, err := svc.Click(ctx, id, getxo); err != nil {
			t.Errorf("click: %v", err)
		}
	})
	drain(t, svc)

	if _, err := svc.Route(ctx, id); err != nil {
		t.Fatalf("route should be stored even when events cannot be published: %v", err)
	}
	calls, noDeadlines := pub.Stats()
	if calls == 0 {
		t.Fatal("expected publish attempts")
	}
	if noDeadlines != 0 {
		t.Errorf("%d of %d publishes ran without a deadline", noDeadlines, calls)
	}
}

func TestSessionService_LocateDoesNotHoldSession(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	locator := &mockLocator{
		locateFn: func(ctx context.Context, ip string) (*ports.Location, error) {
			close(entered)
			<-release
			return &ports.Location{Point: bilbao}, nil
		},
	}
	svc := newServiceWithPublisher(t, locator, &mockPublisher{}, time.Second)
	ctx := context.Background()
	id := svc.Create(ctx).ID

	located := make(chan *domain.LocateResult, 1)
	go func() {
		res, _ := svc.LocateUser(ctx, id, "81.0.0.1")
		located <- res
	}()
	<-entered

	within(t, time.Second, "click during lookup", func() {
		if _, err := svc.Click(ctx, id, getxo); err != nil {
			t.Errorf("click: %v", err)
		}
	})
	within(t, time.Second, "evict idle during lookup", func() {
		svc.EvictIdle(time.Now())
	})

	close(release)
	res := <-located
	if res == nil || !res.Located || res.Camera.Center != bilbao {
		t.Errorf("expected camera on bilbao, got %+v", res)
	}
	snap, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.Origin == nil || *snap.Origin != getxo {
		t.Errorf("click made during lookup was lost: %+v", snap)
	}
}
