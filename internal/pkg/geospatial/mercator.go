package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// TileSize is the world size in pixels at zoom 0 for vector basemaps.
const TileSize = 512.0

// halfWorld is half the width of the Web Mercator plane in meters.
const halfWorld = orb.EarthRadius * math.Pi

// Padding is screen space, in pixels, kept free around a fitted box.
type Padding struct {
	Top, Right, Bottom, Left float64
}

// Fit is a camera position.
type Fit struct {
	CenterLat float64
	CenterLng float64
	Zoom      float64
}

// ToUnit projects a coordinate onto the unit Web Mercator square, x growing
// east from the antimeridian and y growing south from the top edge.
func ToUnit(lat, lng float64) (x, y float64) {
	m := project.WGS84.ToMercator(orb.Point{lng, lat})
	return (m[0] + halfWorld) / (2 * halfWorld), (halfWorld - m[1]) / (2 * halfWorld)
}

// FromUnit is the inverse of ToUnit.
func FromUnit(x, y float64) (lat, lng float64) {
	g := project.Mercator.ToWGS84(orb.Point{x*2*halfWorld - halfWorld, halfWorld - y*2*halfWorld})
	return g[1], g[0]
}

// LngToX projects a longitude onto the unit square.
func LngToX(lng float64) float64 {
	x, _ := ToUnit(0, lng)
	return x
}

// LatToY projects a latitude onto the unit square. Latitudes beyond the
// Mercator limit are clamped.
func LatToY(lat float64) float64 {
	_, y := ToUnit(lat, 0)
	return y
}

func XToLng(x float64) float64 {
	_, lng := FromUnit(x, 0.5)
	return lng
}

func YToLat(y float64) float64 {
	lat, _ := FromUnit(0.5, y)
	return lat
}

// FitBounds returns the camera that frames the box inside a width x height
// viewport once padding is removed. The box center lands on the center of the
// padded area, not of the whole viewport. When padding leaves no room it is
// ignored. A degenerate box (single point) is shown at maxZoom. A box whose
// east edge is west of its west edge crosses the antimeridian.
func FitBounds(north, east, south, west, width, height float64, pad Padding, maxZoom float64) Fit {
	availW := width - pad.Left - pad.Right
	availH := height - pad.Top - pad.Bottom
	if availW <= 0 || availH <= 0 {
		availW, availH = width, height
		pad = Padding{}
	}

	x0, y0 := ToUnit(north, west)
	x1, y1 := ToUnit(south, east)
	if east < west {
		x1++
	}
	dx := math.Abs(x1-x0) * TileSize
	dy := math.Abs(y1-y0) * TileSize

	zoom := maxZoom
	if dx > 0 || dy > 0 {
		scale := math.Inf(1)
		if dx > 0 {
			scale = availW / dx
		}
		if dy > 0 {
			scale = math.Min(scale, availH/dy)
		}
		zoom = math.Log2(scale)
	}
	zoom = math.Max(0, math.Min(maxZoom, zoom))

	world := TileSize * math.Exp2(zoom)
	cx := (x0+x1)/2*world - (pad.Left-pad.Right)/2
	cy := (y0+y1)/2*world - (pad.Top-pad.Bottom)/2

	ux := math.Mod(cx/world, 1)
	if ux < 0 {
		ux++
	}
	lat, lng := FromUnit(ux, cy/world)
	return Fit{
		CenterLat: lat,
		CenterLng: lng,
		Zoom:      zoom,
	}
}
