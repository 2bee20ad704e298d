package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/maproute/internal/core/domain"
	"github.com/samirrijal/maproute/internal/core/ports"
	"github.com/samirrijal/maproute/internal/pkg/metrics"
	"github.com/samirrijal/maproute/internal/pkg/virtualizer"
)

// MapSettings holds the presentation constants of a map session.
type MapSettings struct {
	StyleURL        string
	InitialCamera   domain.Camera
	DefaultViewport domain.Viewport
	FitPadding      domain.Padding
	FitDurationMs   int
	MaxZoom         float64
	LocateZoom      float64
	RowHeight       float64
	Overscan        int
	ListChrome      float64 // pixels of the viewport not available to the point list
	SessionTTL      time.Duration
	EventTimeout    time.Duration // upper bound for publishing one session event
}

// DefaultMapSettings returns the settings used when nothing is configured.
func DefaultMapSettings() MapSettings {
	return MapSettings{
		StyleURL:        "https://demotiles.maplibre.org/style.json",
		InitialCamera:   domain.Camera{Center: domain.GeoPoint{Lat: 0, Lng: 0}, Zoom: 1},
		DefaultViewport: domain.Viewport{Width: 1280, Height: 800},
		FitPadding:      domain.Padding{Top: 100, Right: 100, Bottom: 0, Left: 300},
		FitDurationMs:   1000,
		MaxZoom:         22,
		LocateZoom:      12,
		RowHeight:       35,
		Overscan:        1,
		ListChrome:      76,
		SessionTTL:      30 * time.Minute,
		EventTimeout:    2 * time.Second,
	}
}

// session is the state of one user's map. All fields but pubMu are guarded
// by mu. pubMu serializes publishing of the outbox and is taken before mu.
type session struct {
	mu    sync.Mutex
	pubMu sync.Mutex

	id        string
	waypoints domain.Waypoints
	route     *domain.Route
	seq       uint64
	fetching  bool
	loadingID string
	camera    domain.Camera
	toaster   *Toaster
	list      *virtualizer.Virtualizer
	outbox    []*domain.SessionEvent
	createdAt time.Time
	updatedAt time.Time
}

func (s *session) snapshotLocked() *domain.SessionSnapshot {
	snap := &domain.SessionSnapshot{
		ID:        s.id,
		Phase:     s.waypoints.Phase(),
		Seq:       s.seq,
		Fetching:  s.fetching,
		Route:     s.route.Summarize(),
		Camera:    s.camera,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
	if o, ok := s.waypoints.Origin(); ok {
		snap.Origin = &o
	}
	if d, ok := s.waypoints.Destination(); ok {
		snap.Destination = &d
	}
	return snap
}

// fetchJob is a directions request tagged with the sequence number it was
// issued under.
type fetchJob struct {
	sess        *session
	seq         uint64
	origin      domain.GeoPoint
	destination domain.GeoPoint
	loadingID   string
}

// SessionService owns every map session: waypoint selection, route
// fetching, camera, toasts and the route point list.
type SessionService struct {
	fetcher   *RouteFetcher
	locator   ports.Geolocator
	publisher ports.EventPublisher
	settings  MapSettings
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
	inflight sync.WaitGroup
}

// NewSessionService creates a new SessionService. locator and publisher may be nil.
func NewSessionService(fetcher *RouteFetcher, locator ports.Geolocator, publisher ports.EventPublisher, settings MapSettings) *SessionService {
	return &SessionService{
		fetcher:   fetcher,
		locator:   locator,
		publisher: publisher,
		settings:  settings,
		now:       time.Now,
		sessions:  make(map[string]*session),
	}
}

// Settings returns the service's map settings.
func (s *SessionService) Settings() MapSettings { return s.settings }

// Create starts a new session in the empty phase.
func (s *SessionService) Create(ctx context.Context) *domain.SessionSnapshot {
	now := s.now()
	sess := &session{
		id:        uuid.NewString(),
		camera:    s.settings.InitialCamera,
		list:      virtualizer.New(0, s.settings.RowHeight, s.settings.Overscan),
		createdAt: now,
		updatedAt: now,
	}
	sess.toaster = NewToaster(sess.id, func(e *domain.SessionEvent) { s.queueLocked(sess, e) }, s.now)
	snap := sess.snapshotLocked()

	s.mu.Lock()
	s.sessions[sess.id] = sess
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	slog.Debug("session created", "session_id", sess.id)
	return snap
}

// Get returns the current snapshot of a session.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.SessionSnapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

// Delete drops a session. Fetches still in flight for it finish and are ignored.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}

// Click records a map click. The first click sets the origin, the second the
// destination and starts a route fetch, and a third starts over with the
// click as the new origin.
func (s *SessionService) Click(ctx context.Context, id string, p domain.GeoPoint) (*domain.SessionSnapshot, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sess.waypoints.Click(p)
	job := s.changedLocked(sess)
	snap := sess.snapshotLocked()
	s.queueStateLocked(sess, snap)
	sess.mu.Unlock()

	s.flush(ctx, sess)
	s.startFetch(ctx, job)
	return snap, nil
}

// Swap exchanges origin and destination and refetches. It does nothing
// unless both are set.
func (s *SessionService) Swap(ctx context.Context, id string) (*domain.SessionSnapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	var job *fetchJob
	swapped := sess.waypoints.Swap()
	if swapped {
		job = s.changedLocked(sess)
	}
	snap := sess.snapshotLocked()
	if swapped {
		s.queueStateLocked(sess, snap)
	}
	sess.mu.Unlock()

	s.flush(ctx, sess)
	s.startFetch(ctx, job)
	return snap, nil
}

// Reset clears both waypoints and the route.
func (s *SessionService) Reset(ctx context.Context, id string) (*domain.SessionSnapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sess.waypoints.Reset()
	s.changedLocked(sess)
	snap := sess.snapshotLocked()
	s.queueStateLocked(sess, snap)
	sess.mu.Unlock()

	s.flush(ctx, sess)
	return snap, nil
}

// changedLocked bumps the sequence after a waypoint change, drops the old
// route and, when both waypoints are set, prepares the fetch for them.
func (s *SessionService) changedLocked(sess *session) *fetchJob {
	sess.seq++
	sess.route = nil
	sess.list.Reset(0)
	sess.updatedAt = s.now()

	if sess.loadingID != "" {
		sess.toaster.Dismiss(sess.loadingID)
		sess.loadingID = ""
	}

	origin, hasOrigin := sess.waypoints.Origin()
	destination, hasDestination := sess.waypoints.Destination()
	if !hasOrigin || !hasDestination {
		sess.fetching = false
		return nil
	}

	sess.fetching = true
	sess.loadingID = sess.toaster.Show(domain.KindLoading, MsgFetchingRoutes, "")
	return &fetchJob{
		sess:        sess,
		seq:         sess.seq,
		origin:      origin,
		destination: destination,
		loadingID:   sess.loadingID,
	}
}

func (s *SessionService) startFetch(ctx context.Context, job *fetchJob) {
	if job == nil {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.runFetch(context.WithoutCancel(ctx), job)
	}()
}

// runFetch performs the request and applies its outcome only if no newer
// waypoint change happened meanwhile.
func (s *SessionService) runFetch(ctx context.Context, job *fetchJob) {
	route, err := s.fetcher.FetchRoute(ctx, job.origin, job.destination)

	sess := job.sess
	sess.mu.Lock()
	s.applyFetchLocked(sess, job, route, err)
	sess.mu.Unlock()

	s.flush(ctx, sess)
}

func (s *SessionService) applyFetchLocked(sess *session, job *fetchJob, route *domain.Route, err error) {
	sess.toaster.Dismiss(job.loadingID)
	if sess.seq != job.seq {
		metrics.StaleFetchesDiscarded.Inc()
		slog.Debug("discarding stale route", "session_id", sess.id, "seq", job.seq, "current_seq", sess.seq)
		return
	}

	sess.fetching = false
	sess.loadingID = ""
	sess.updatedAt = s.now()

	if err != nil {
		slog.Warn("route fetch failed", "session_id", sess.id, "error", err)
		sess.toaster.Show(domain.KindError, ToastMessage(err), "")
		s.queueStateLocked(sess, sess.snapshotLocked())
		return
	}

	sess.route = route
	sess.list.Reset(len(route.Path))
	sess.toaster.Show(domain.KindSuccess, MsgRouteFound, "")
	s.queueLocked(sess, &domain.SessionEvent{Type: domain.EventRoute, SessionID: sess.id, Route: route.Summarize()})
	s.queueStateLocked(sess, sess.snapshotLocked())
}

// Drain waits for in-flight route fetches to finish or ctx to end.
func (s *SessionService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Route returns a copy of the session's current route.
func (s *SessionService) Route(ctx context.Context, id string) (*domain.Route, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.route == nil {
		return nil, domain.ErrRouteNotReady
	}
	r := *sess.route
	r.Path = append([]domain.GeoPoint(nil), sess.route.Path...)
	return &r, nil
}

// Toasts returns the session's visible toasts.
func (s *SessionService) Toasts(ctx context.Context, id string) ([]domain.Notification, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.toaster.Active(), nil
}

// DismissToast removes one toast, or all of them when toastID is empty.
func (s *SessionService) DismissToast(ctx context.Context, id, toastID string) (int, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	sess.mu.Lock()
	n := sess.toaster.Dismiss(toastID)
	if toastID == "" || toastID == sess.loadingID {
		sess.loadingID = ""
	}
	sess.mu.Unlock()

	s.flush(ctx, sess)
	return n, nil
}

// EvictIdle drops sessions untouched for longer than the session TTL and
// returns how many were removed. Sessions busy at the time are skipped and
// looked at again on the next pass.
func (s *SessionService) EvictIdle(now time.Time) int {
	if s.settings.SessionTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.settings.SessionTTL)

	s.mu.RLock()
	candidates := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		candidates = append(candidates, sess)
	}
	s.mu.RUnlock()

	evicted := 0
	for _, sess := range candidates {
		if !sess.mu.TryLock() {
			continue
		}
		// Lock order is sess.mu then s.mu; holding sess.mu keeps updatedAt
		// stable until the entry is gone.
		if sess.updatedAt.Before(cutoff) {
			s.mu.Lock()
			if cur, ok := s.sessions[sess.id]; ok && cur == sess {
				delete(s.sessions, sess.id)
				evicted++
			}
			s.mu.Unlock()
		}
		sess.mu.Unlock()
	}

	s.mu.RLock()
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.RUnlock()
	return evicted
}

// RunJanitor evicts idle sessions every interval until ctx is cancelled.
func (s *SessionService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.EvictIdle(now); n > 0 {
				slog.Info("evicted idle sessions", "count", n)
			}
		}
	}
}

func (s *SessionService) lookup(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *SessionService) queueStateLocked(sess *session, snap *domain.SessionSnapshot) {
	s.queueLocked(sess, &domain.SessionEvent{Type: domain.EventState, SessionID: snap.ID, State: snap})
}

// queueLocked adds an event to the session's outbox. Events leave through
// flush once sess.mu is released.
func (s *SessionService) queueLocked(sess *session, event *domain.SessionEvent) {
	if s.publisher == nil {
		return
	}
	if event.At.IsZero() {
		event.At = s.now()
	}
	sess.outbox = append(sess.outbox, event)
}

// flush publishes the session's queued events in order. Each publish is
// bounded by EventTimeout; on the first failure the rest of the batch is
// dropped so a broken broker costs one timeout per flush.
func (s *SessionService) flush(ctx context.Context, sess *session) {
	if s.publisher == nil {
		return
	}
	sess.pubMu.Lock()
	defer sess.pubMu.Unlock()

	sess.mu.Lock()
	events := sess.outbox
	sess.outbox = nil
	sess.mu.Unlock()

	for i, event := range events {
		pctx, cancel := ctx, context.CancelFunc(func() {})
		if s.settings.EventTimeout > 0 {
			pctx, cancel = context.WithTimeout(ctx, s.settings.EventTimeout)
		}
		err := s.publisher.PublishSessionEvent(pctx, event)
		cancel()
		if err != nil {
			slog.Warn("publish session event",
				"session_id", event.SessionID,
				"type", event.Type,
				"dropped", len(events)-i,
				"error", err,
			)
			return
		}
	}
}
