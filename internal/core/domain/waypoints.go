package domain

// Phase is the click state of a waypoint pair.
type Phase string

const (
	PhaseEmpty     Phase = "empty"
	PhaseOriginSet Phase = "origin_set"
	PhaseBothSet   Phase = "both_set"
)

// Waypoints holds at most two user-selected points.
// A destination is never set without an origin.
type Waypoints struct {
	origin      *GeoPoint
	destination *GeoPoint
}

// Phase returns the current click state.
func (w *Waypoints) Phase() Phase {
	switch {
	case w.origin == nil:
		return PhaseEmpty
	case w.destination == nil:
		return PhaseOriginSet
	default:
		return PhaseBothSet
	}
}

func (w *Waypoints) Origin() (GeoPoint, bool) {
	if w.origin == nil {
		return GeoPoint{}, false
	}
	return *w.origin, true
}

func (w *Waypoints) Destination() (GeoPoint, bool) {
	if w.destination == nil {
		return GeoPoint{}, false
	}
	return *w.destination, true
}

// Ready reports whether both points are set and a route can be requested.
func (w *Waypoints) Ready() bool {
	return w.Phase() == PhaseBothSet
}

func (w *Waypoints) SetOrigin(p GeoPoint) {
	w.origin = &p
}

// SetDestination is a no-op until an origin exists.
func (w *Waypoints) SetDestination(p GeoPoint) {
	if w.origin == nil {
		return
	}
	w.destination = &p
}

// Click applies a map click: empty -> origin, origin -> destination,
// and a click on a full pair starts over with p as the new origin.
func (w *Waypoints) Click(p GeoPoint) Phase {
	switch w.Phase() {
	case PhaseEmpty:
		w.SetOrigin(p)
	case PhaseOriginSet:
		w.SetDestination(p)
	case PhaseBothSet:
		w.Reset()
		w.SetOrigin(p)
	}
	return w.Phase()
}

// Swap exchanges origin and destination. It only acts on a full pair.
func (w *Waypoints) Swap() bool {
	if !w.Ready() {
		return false
	}
	w.origin, w.destination = w.destination, w.origin
	return true
}

func (w *Waypoints) Reset() {
	w.origin = nil
	w.destination = nil
}
