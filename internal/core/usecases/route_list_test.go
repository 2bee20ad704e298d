package usecases_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/samirrijal/maproute/internal/core/usecases"
)

func TestRouteWindow_NonFiniteInputs(t *testing.T) {
	svc, _ := newService(t, &mockProvider{}, nil, time.Second)
	ctx := context.Background()
	id := svc.Create(ctx).ID
	svc.Click(ctx, id, bilbao)
	svc.Click(ctx, id, getxo)
	drain(t, svc)

	win, err := svc.RouteWindow(ctx, id, math.NaN(), math.Inf(1))
	if err != nil {
		t.Fatalf("route window: %v", err)
	}
	if win.ScrollOffset != 0 {
		t.Errorf("expected scroll 0, got %v", win.ScrollOffset)
	}
	if win.Viewport != usecases.MaxListViewport {
		t.Errorf("expected viewport %v, got %v", usecases.MaxListViewport, win.Viewport)
	}

	win, err = svc.RouteWindow(ctx, id, 0, math.NaN())
	if err != nil {
		t.Fatalf("route window: %v", err)
	}
	settings := svc.Settings()
	if want := settings.DefaultViewport.Height - settings.ListChrome; win.Viewport != want {
		t.Errorf("expected default viewport %v, got %v", want, win.Viewport)
	}
	if len(win.Rows) != 2 {
		t.Errorf("expected both route rows, got %d", len(win.Rows))
	}
}
