// Package geo holds the planar geometry used by coverage resolution and hull
// synthesis. Coordinates are WGS84 degrees treated as a flat plane (x = lng,
// y = lat); coverage trades precision for speed, so no projection is applied.
package geo

import (
	"errors"
	"math"
)

var (
	ErrDegenerateRing    = errors.New("polygon needs at least 3 distinct vertices enclosing a non-zero area")
	ErrInvalidCoordinate = errors.New("coordinate out of range")
)

const areaEpsilon = 1e-12

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Ring is a polygon boundary. Closed rings repeat the first vertex at the end.
type Ring []Point

// BBox is an axis-aligned bounding box. Edges are inclusive.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

func EmptyBBox() BBox {
	return BBox{
		MinLat: math.Inf(1),
		MinLng: math.Inf(1),
		MaxLat: math.Inf(-1),
		MaxLng: math.Inf(-1),
	}
}

func (b BBox) IsEmpty() bool {
	return b.MinLat > b.MaxLat || b.MinLng > b.MaxLng
}

func (b BBox) Extend(p Point) BBox {
	b.MinLat = math.Min(b.MinLat, p.Lat)
	b.MinLng = math.Min(b.MinLng, p.Lng)
	b.MaxLat = math.Max(b.MaxLat, p.Lat)
	b.MaxLng = math.Max(b.MaxLng, p.Lng)
	return b
}

func (b BBox) Union(o BBox) BBox {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return BBox{
		MinLat: math.Min(b.MinLat, o.MinLat),
		MinLng: math.Min(b.MinLng, o.MinLng),
		MaxLat: math.Max(b.MaxLat, o.MaxLat),
		MaxLng: math.Max(b.MaxLng, o.MaxLng),
	}
}

func (b BBox) Pad(deg float64) BBox {
	if deg <= 0 || b.IsEmpty() {
		return b
	}
	return BBox{
		MinLat: b.MinLat - deg,
		MinLng: b.MinLng - deg,
		MaxLat: b.MaxLat + deg,
		MaxLng: b.MaxLng + deg,
	}
}

func (b BBox) Overlaps(o BBox) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	return b.MinLng <= o.MaxLng && o.MinLng <= b.MaxLng &&
		b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat
}

func (b BBox) Contains(p Point) bool {
	return p.Lng >= b.MinLng && p.Lng <= b.MaxLng && p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// PointBBox is the box of a single point grown by pad degrees on every side.
func PointBBox(p Point, pad float64) BBox {
	return EmptyBBox().Extend(p).Pad(pad)
}

// NormalizeRing validates a drawn polygon and returns it closed and
// counter-clockwise. Open rings are closed and repeated vertices dropped.
func NormalizeRing(pts []Point) (Ring, error) {
	out := make(Ring, 0, len(pts)+1)
	for _, p := range pts {
		if !p.Valid() {
			return nil, ErrInvalidCoordinate
		}
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}

	if countDistinct(out) < 3 {
		return nil, ErrDegenerateRing
	}

	ring := out.Close()
	if math.Abs(ring.SignedArea()) < areaEpsilon {
		return nil, ErrDegenerateRing
	}
	return ring.CCW(), nil
}

func countDistinct(pts []Point) int {
	seen := make(map[Point]struct{}, len(pts))
	for _, p := range pts {
		seen[p] = struct{}{}
	}
	return len(seen)
}

func (r Ring) IsClosed() bool {
	return len(r) > 1 && r[0] == r[len(r)-1]
}

// Close returns the ring with its first vertex repeated at the end.
func (r Ring) Close() Ring {
	if len(r) == 0 || r.IsClosed() {
		return r
	}
	out := make(Ring, len(r), len(r)+1)
	copy(out, r)
	return append(out, r[0])
}

// Open returns the ring without the closing vertex.
func (r Ring) Open() Ring {
	if r.IsClosed() {
		return r[:len(r)-1]
	}
	return r
}

func (r Ring) BBox() BBox {
	b := EmptyBBox()
	for _, p := range r {
		b = b.Extend(p)
	}
	return b
}

// SignedArea is positive for counter-clockwise rings (shoelace, degrees²).
func (r Ring) SignedArea() float64 {
	pts := r.Open()
	n := len(pts)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += pts[i].Lng*pts[j].Lat - pts[j].Lng*pts[i].Lat
	}
	return sum / 2
}

func (r Ring) Area() float64 {
	return math.Abs(r.SignedArea())
}

// CCW returns a closed ring wound counter-clockwise.
func (r Ring) CCW() Ring {
	closed := r.Close()
	if closed.SignedArea() >= 0 {
		return closed
	}
	out := make(Ring, len(closed))
	for i, p := range closed {
		out[len(closed)-1-i] = p
	}
	return out
}

// ContainsPoint reports whether p is inside the ring or on its boundary.
func (r Ring) ContainsPoint(p Point) bool {
	pts := r.Open()
	n := len(pts)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := pts[j], pts[i]
		if onSegment(a, b, p) {
			return true
		}
		if (b.Lat > p.Lat) != (a.Lat > p.Lat) {
			x := (a.Lng-b.Lng)*(p.Lat-b.Lat)/(a.Lat-b.Lat) + b.Lng
			if p.Lng < x {
				inside = !inside
			}
		}
	}
	return inside
}

func cross(o, a, b Point) float64 {
	return (a.Lng-o.Lng)*(b.Lat-o.Lat) - (a.Lat-o.Lat)*(b.Lng-o.Lng)
}

func orientation(o, a, b Point) int {
	c := cross(o, a, b)
	switch {
	case c > 0:
		return 1
	case c < 0:
		return -1
	}
	return 0
}

func onSegment(a, b, p Point) bool {
	if orientation(a, b, p) != 0 {
		return false
	}
	return p.Lng >= math.Min(a.Lng, b.Lng) && p.Lng <= math.Max(a.Lng, b.Lng) &&
		p.Lat >= math.Min(a.Lat, b.Lat) && p.Lat <= math.Max(a.Lat, b.Lat)
}

// SegmentsIntersect reports whether p1p2 and q1q2 share at least one point.
func SegmentsIntersect(p1, p2, q1, q2 Point) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}
	switch {
	case o1 == 0 && onSegment(p1, p2, q1):
		return true
	case o2 == 0 && onSegment(p1, p2, q2):
		return true
	case o3 == 0 && onSegment(q1, q2, p1):
		return true
	case o4 == 0 && onSegment(q1, q2, p2):
		return true
	}
	return false
}

// Intersects reports whether two rings share any area or boundary point.
func Intersects(a, b Ring) bool {
	if !a.BBox().Overlaps(b.BBox()) {
		return false
	}
	pa, pb := a.Open(), b.Open()
	if len(pa) < 3 || len(pb) < 3 {
		return false
	}
	for _, p := range pa {
		if b.ContainsPoint(p) {
			return true
		}
	}
	for _, p := range pb {
		if a.ContainsPoint(p) {
			return true
		}
	}
	for i := range pa {
		a1, a2 := pa[i], pa[(i+1)%len(pa)]
		for j := range pb {
			if SegmentsIntersect(a1, a2, pb[j], pb[(j+1)%len(pb)]) {
				return true
			}
		}
	}
	return false
}

func dist(a, b Point) float64 {
	return math.Hypot(a.Lng-b.Lng, a.Lat-b.Lat)
}
