package domain

import "fmt"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate reports ErrInvalidPoint when the coordinate is outside WGS 84 ranges.
func (p GeoPoint) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: lat %.6f out of range", ErrInvalidPoint, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: lng %.6f out of range", ErrInvalidPoint, p.Lng)
	}
	return nil
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}

// Bounds represents a geographic bounding box given by its corners.
type Bounds struct {
	NorthEast GeoPoint `json:"northeast"`
	SouthWest GeoPoint `json:"southwest"`
}

// BoundsOf returns the smallest box containing every point.
// ok is false for an empty path.
func BoundsOf(path []GeoPoint) (b Bounds, ok bool) {
	if len(path) == 0 {
		return Bounds{}, false
	}
	b = Bounds{NorthEast: path[0], SouthWest: path[0]}
	for _, p := range path[1:] {
		b.NorthEast.Lat = max(b.NorthEast.Lat, p.Lat)
		b.NorthEast.Lng = max(b.NorthEast.Lng, p.Lng)
		b.SouthWest.Lat = min(b.SouthWest.Lat, p.Lat)
		b.SouthWest.Lng = min(b.SouthWest.Lng, p.Lng)
	}
	return b, true
}

// Contains reports whether p lies inside the box (edges included).
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
}
