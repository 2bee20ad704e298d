package domain

import "time"

// NotificationKind selects toast styling and lifetime.
type NotificationKind string

const (
	KindLoading NotificationKind = "loading"
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
	KindBlank   NotificationKind = "blank"
)

// Notification is a transient toast shown to the session's user.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	Icon      string           `json:"icon,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"` // nil for loading toasts
}

// Expired reports whether the toast has auto-expired at now.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !now.Before(*n.ExpiresAt)
}
