package domain

// Route is the decoded, display-ready result of a directions request.
// It is replaced as a whole whenever the waypoints change.
type Route struct {
	Path            []GeoPoint `json:"path"`
	Bounds          Bounds     `json:"bounds"`
	DistanceMeters  int        `json:"distance_meters"`
	DurationSeconds int        `json:"duration_seconds"`
	Summary         string     `json:"summary,omitempty"`
	Polyline        string     `json:"polyline,omitempty"`
}

// RouteSummary is the route without its point sequence.
type RouteSummary struct {
	PointCount      int    `json:"point_count"`
	Bounds          Bounds `json:"bounds"`
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
	Summary         string `json:"summary,omitempty"`
}

func (r *Route) Summarize() *RouteSummary {
	if r == nil {
		return nil
	}
	return &RouteSummary{
		PointCount:      len(r.Path),
		Bounds:          r.Bounds,
		DistanceMeters:  r.DistanceMeters,
		DurationSeconds: r.DurationSeconds,
		Summary:         r.Summary,
	}
}

// RouteRow is one materialized row of the route point list.
type RouteRow struct {
	Index int     `json:"index"`
	Key   string  `json:"key"`
	Start float64 `json:"start"`
	Size  float64 `json:"size"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
}

// RouteWindow is the visible slice of the route point list.
type RouteWindow struct {
	Count        int        `json:"count"`
	TotalSize    float64    `json:"total_size"`
	ScrollOffset float64    `json:"scroll_offset"`
	Viewport     float64    `json:"viewport"`
	StartIndex   int        `json:"start_index"`
	EndIndex     int        `json:"end_index"`
	Rows         []RouteRow `json:"rows"`
}
