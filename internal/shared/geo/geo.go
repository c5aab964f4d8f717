package geo

import "math"

const earthRadiusM = 6371000.0

// Point is a longitude/latitude pair, ordered the way decoded route
// polylines arrive from the routing provider.
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

type Bounds struct {
	Southwest Point `json:"southwest"`
	Northeast Point `json:"northeast"`
}

type Padding struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// DefaultMinPadding is the edge padding floor applied when fitting a
// route into a map viewport.
const DefaultMinPadding = 24.0

func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	return DistanceM(lat1, lng1, lat2, lng2) / 1000
}

// DistanceM returns the great-circle distance in meters between two
// coordinates.
func DistanceM(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// ComputeBounds returns the bounding box enclosing every coordinate, or
// nil for an empty input.
func ComputeBounds(coords []Point) *Bounds {
	if len(coords) == 0 {
		return nil
	}

	b := Bounds{Southwest: coords[0], Northeast: coords[0]}
	for _, c := range coords[1:] {
		b.Southwest.Lng = math.Min(b.Southwest.Lng, c.Lng)
		b.Southwest.Lat = math.Min(b.Southwest.Lat, c.Lat)
		b.Northeast.Lng = math.Max(b.Northeast.Lng, c.Lng)
		b.Northeast.Lat = math.Max(b.Northeast.Lat, c.Lat)
	}
	return &b
}

// CenterOfBounds is the midpoint of the box corners. Not a geodesic
// centroid, but close enough at city scale.
func CenterOfBounds(b *Bounds) *Point {
	if b == nil {
		return nil
	}
	return &Point{
		Lng: (b.Southwest.Lng + b.Northeast.Lng) / 2,
		Lat: (b.Southwest.Lat + b.Northeast.Lat) / 2,
	}
}

// EnsureMinPadding floors every edge at minimum. A nil padding yields
// all four edges set to minimum.
func EnsureMinPadding(p *Padding, minimum float64) Padding {
	if p == nil {
		return Padding{Top: minimum, Bottom: minimum, Left: minimum, Right: minimum}
	}
	return Padding{
		Top:    math.Max(minimum, p.Top),
		Bottom: math.Max(minimum, p.Bottom),
		Left:   math.Max(minimum, p.Left),
		Right:  math.Max(minimum, p.Right),
	}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
