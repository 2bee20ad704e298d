package usecases

import (
	"context"
	"fmt"
	"math"

	"github.com/samirrijal/maproute/internal/core/domain"
	"github.com/samirrijal/maproute/internal/pkg/virtualizer"
)

// MaxListViewport caps the viewport height of a route window request.
const MaxListViewport = 10000.0

// RowLabel is the text shown for one route point.
func RowLabel(p domain.GeoPoint) string {
	return fmt.Sprintf("%.4f, %.4f", p.Lat, p.Lng)
}

// BuildRouteWindow materializes the rows of path visible in the scroll
// window [scroll, scroll+viewport).
func BuildRouteWindow(list *virtualizer.Virtualizer, path []domain.GeoPoint, scroll, viewport float64) *domain.RouteWindow {
	win := &domain.RouteWindow{
		Count:        list.Count(),
		TotalSize:    list.TotalSize(),
		ScrollOffset: list.ClampScroll(scroll, viewport),
		Viewport:     viewport,
		StartIndex:   -1,
		EndIndex:     -1,
		Rows:         []domain.RouteRow{},
	}
	for _, it := range list.Items(scroll, viewport) {
		if it.Index >= len(path) {
			break
		}
		p := path[it.Index]
		win.Rows = append(win.Rows, domain.RouteRow{
			Index: it.Index,
			Key:   it.Key,
			Start: it.Start,
			Size:  it.Size,
			Lat:   p.Lat,
			Lng:   p.Lng,
			Label: RowLabel(p),
		})
	}
	if n := len(win.Rows); n > 0 {
		win.StartIndex = win.Rows[0].Index
		win.EndIndex = win.Rows[n-1].Index
	}
	return win
}

// RouteWindow returns the visible slice of the session's route point list.
// A non-positive viewport uses the default viewport height minus the list
// chrome, and a viewport taller than MaxListViewport is capped. A scroll
// offset that is not finite counts as zero.
func (s *SessionService) RouteWindow(ctx context.Context, id string, scroll, viewport float64) (*domain.RouteWindow, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.route == nil {
		return nil, domain.ErrRouteNotReady
	}
	if math.IsNaN(scroll) || math.IsInf(scroll, 0) {
		scroll = 0
	}
	if math.IsNaN(viewport) || viewport <= 0 {
		viewport = max(s.settings.DefaultViewport.Height-s.settings.ListChrome, s.settings.RowHeight)
	}
	viewport = min(viewport, MaxListViewport)
	return BuildRouteWindow(sess.list, sess.route.Path, scroll, viewport), nil
}

// MeasureRow records the rendered height of one route row.
func (s *SessionService) MeasureRow(ctx context.Context, id string, index int, size float64) (bool, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.route == nil {
		return false, domain.ErrRouteNotReady
	}
	return sess.list.Measure(index, size), nil
}

// RoutePoints returns up to limit route points starting at offset, plus the
// total point count.
func (s *SessionService) RoutePoints(ctx context.Context, id string, offset, limit int) ([]domain.GeoPoint, int, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, 0, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.route == nil {
		return nil, 0, domain.ErrRouteNotReady
	}

	path := sess.route.Path
	total := len(path)
	offset = min(max(offset, 0), total)
	end := total
	if limit > 0 {
		end = min(offset+limit, total)
	}
	out := make([]domain.GeoPoint, end-offset)
	copy(out, path[offset:end])
	return out, total, nil
}
