package geo

import "math"

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Offset returns p shifted by the given deltas.
func (p Point) Offset(dLat, dLng float64) Point {
	return Point{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
}

// Within reports whether q lies inside the axis-aligned box of half-width eps around p.
func (p Point) Within(q Point, eps float64) bool {
	return math.Abs(p.Lat-q.Lat) <= eps && math.Abs(p.Lng-q.Lng) <= eps
}

// Bounds is a lat/lng rectangle. The zero value is empty.
type Bounds struct {
	SouthWest Point `json:"southWest"`
	NorthEast Point `json:"northEast"`
	set       bool
}

// BoundsOf returns the smallest bounds containing all points.
func BoundsOf(points ...Point) Bounds {
	var b Bounds
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}

// Extend grows the bounds to include p.
func (b Bounds) Extend(p Point) Bounds {
	if !b.set {
		return Bounds{SouthWest: p, NorthEast: p, set: true}
	}
	b.SouthWest.Lat = math.Min(b.SouthWest.Lat, p.Lat)
	b.SouthWest.Lng = math.Min(b.SouthWest.Lng, p.Lng)
	b.NorthEast.Lat = math.Max(b.NorthEast.Lat, p.Lat)
	b.NorthEast.Lng = math.Max(b.NorthEast.Lng, p.Lng)
	return b
}

func (b Bounds) Empty() bool {
	return !b.set
}
