package domain

import "time"

// Camera is the map viewport position.
type Camera struct {
	Center     GeoPoint `json:"center"`
	Zoom       float64  `json:"zoom"`
	DurationMs int      `json:"duration_ms"`
}

// Viewport is the map canvas size in CSS pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Padding reserves screen space around a fitted box.
type Padding struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// SessionSnapshot is the read-only view of a map session handed to clients.
type SessionSnapshot struct {
	ID          string        `json:"id"`
	Phase       Phase         `json:"phase"`
	Origin      *GeoPoint     `json:"origin,omitempty"`
	Destination *GeoPoint     `json:"destination,omitempty"`
	Seq         uint64        `json:"seq"`
	Fetching    bool          `json:"fetching"`
	Route       *RouteSummary `json:"route,omitempty"`
	Camera      Camera        `json:"camera"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// LocateResult is the outcome of a user geolocation request.
type LocateResult struct {
	Located        bool      `json:"located"`
	Point          *GeoPoint `json:"point,omitempty"`
	AccuracyMeters float64   `json:"accuracy_meters,omitempty"`
	Camera         Camera    `json:"camera"`
}

// Event types published on a session's stream.
const (
	EventToast   = "toast"
	EventDismiss = "dismiss"
	EventState   = "state"
	EventRoute   = "route"
)

// SessionEvent is the envelope pushed to WebSocket subscribers.
type SessionEvent struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id"`
	Toast     *Notification    `json:"toast,omitempty"`
	ToastID   string           `json:"toast_id,omitempty"`
	State     *SessionSnapshot `json:"state,omitempty"`
	Route     *RouteSummary    `json:"route,omitempty"`
	At        time.Time        `json:"at"`
}
