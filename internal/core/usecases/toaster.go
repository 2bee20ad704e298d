package usecases

import (
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/maproute/internal/core/domain"
	"github.com/samirrijal/maproute/internal/pkg/metrics"
)

// Default toast lifetimes. Loading toasts never expire on their own.
const (
	SuccessToastDuration = 2 * time.Second
	ErrorToastDuration   = 4 * time.Second
	BlankToastDuration   = 4 * time.Second
)

func toastLifetime(kind domain.NotificationKind) time.Duration {
	switch kind {
	case domain.KindSuccess:
		return SuccessToastDuration
	case domain.KindError:
		return ErrorToastDuration
	case domain.KindBlank:
		return BlankToastDuration
	default:
		return 0
	}
}

// Toaster keeps the transient notifications of one session and hands every
// show and dismiss to emit as a session event.
// Callers serialize access (the owning session's mutex).
type Toaster struct {
	sessionID string
	emit      func(*domain.SessionEvent)
	now       func() time.Time
	toasts    []domain.Notification
}

// NewToaster creates a toaster. emit may be nil; now defaults to time.Now.
func NewToaster(sessionID string, emit func(*domain.SessionEvent), now func() time.Time) *Toaster {
	if now == nil {
		now = time.Now
	}
	return &Toaster{sessionID: sessionID, emit: emit, now: now}
}

// Show adds a toast and returns its id. A new loading toast replaces any
// loading toast still visible.
func (t *Toaster) Show(kind domain.NotificationKind, message, icon string) string {
	now := t.now()
	t.prune(now)

	if kind == domain.KindLoading {
		var loading []string
		for _, n := range t.toasts {
			if n.Kind == domain.KindLoading {
				loading = append(loading, n.ID)
			}
		}
		for _, id := range loading {
			t.Dismiss(id)
		}
	}

	n := domain.Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		Icon:      icon,
		CreatedAt: now,
	}
	if d := toastLifetime(kind); d > 0 {
		exp := now.Add(d)
		n.ExpiresAt = &exp
	}
	t.toasts = append(t.toasts, n)
	metrics.ToastsShown.WithLabelValues(string(kind)).Inc()

	t.publish(&domain.SessionEvent{Type: domain.EventToast, Toast: &n})
	return n.ID
}

// Dismiss removes the toast with the given id, or every toast when id is
// empty. It returns how many toasts were removed.
func (t *Toaster) Dismiss(id string) int {
	kept := t.toasts[:0]
	var removed []string
	for _, n := range t.toasts {
		if id == "" || n.ID == id {
			removed = append(removed, n.ID)
			continue
		}
		kept = append(kept, n)
	}
	t.toasts = kept

	for _, rid := range removed {
		t.publish(&domain.SessionEvent{Type: domain.EventDismiss, ToastID: rid})
	}
	return len(removed)
}

// Active returns the toasts still visible, oldest first.
func (t *Toaster) Active() []domain.Notification {
	t.prune(t.now())
	out := make([]domain.Notification, len(t.toasts))
	copy(out, t.toasts)
	return out
}

func (t *Toaster) prune(now time.Time) {
	kept := t.toasts[:0]
	for _, n := range t.toasts {
		if !n.Expired(now) {
			kept = append(kept, n)
		}
	}
	t.toasts = kept
}

func (t *Toaster) publish(event *domain.SessionEvent) {
	if t.emit == nil {
		return
	}
	event.SessionID = t.sessionID
	event.At = t.now()
	t.emit(event)
}
