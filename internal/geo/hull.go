package geo

import (
	"math"
	"sort"
)

type HullOptions struct {
	// Below this many distinct points only the convex hull is built.
	ConcaveMinPoints int
	// Above this many distinct points the concave pass is skipped.
	ConcaveMaxPoints int
	// Base concavity; larger values dig in less.
	Concavity float64
}

func DefaultHullOptions() HullOptions {
	return HullOptions{
		ConcaveMinPoints: 8,
		ConcaveMaxPoints: 5000,
		Concavity:        2,
	}
}

// concavityFor loosens the threshold as the set grows so the dig-in pass stays
// bounded on large sets.
func (o HullOptions) concavityFor(n int) float64 {
	base := o.Concavity
	if base <= 0 {
		base = 2
	}
	if n <= 25 {
		return base
	}
	return base + math.Log10(float64(n)/25)
}

// Hull algorithm labels reported by HullWithKind.
const (
	KindConvex  = "convex"
	KindConcave = "concave"
)

// Hull returns a closed counter-clockwise ring enclosing every point.
// ok is false when fewer than 3 non-collinear points remain.
func Hull(points []Point, opts HullOptions) (Ring, bool) {
	ring, _, ok := HullWithKind(points, opts)
	return ring, ok
}

// HullWithKind is Hull plus the algorithm that produced the ring. A concave
// attempt that fails falls back to the convex ring and reports KindConvex.
func HullWithKind(points []Point, opts HullOptions) (Ring, string, bool) {
	pts := canonical(points)
	if len(pts) < 3 {
		return nil, "", false
	}

	convex, ok := convexHull(pts)
	if !ok {
		return nil, "", false
	}

	if len(pts) < opts.ConcaveMinPoints || (opts.ConcaveMaxPoints > 0 && len(pts) > opts.ConcaveMaxPoints) {
		return convex.Close(), KindConvex, true
	}

	concave := concaveHull(pts, convex, opts.concavityFor(len(pts)))
	if len(concave) < 3 || !isSimple(concave) || Ring(concave).SignedArea() <= areaEpsilon {
		return convex.Close(), KindConvex, true
	}
	return concave.Close(), KindConcave, true
}

// ConvexHull is the gift-wrapping hull of points, closed and counter-clockwise.
func ConvexHull(points []Point) (Ring, bool) {
	hull, ok := convexHull(canonical(points))
	if !ok {
		return nil, false
	}
	return hull.Close(), true
}

// canonical sorts and dedupes points so every permutation of a set yields the
// same hull.
func canonical(points []Point) []Point {
	pts := make([]Point, 0, len(points))
	for _, p := range points {
		if p.Valid() {
			pts = append(pts, p)
		}
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].Lng != pts[j].Lng {
			return pts[i].Lng < pts[j].Lng
		}
		return pts[i].Lat < pts[j].Lat
	})
	out := pts[:0]
	for i, p := range pts {
		if i > 0 && p == pts[i-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// convexHull expects canonical input. The start vertex is the lowest-x point
// (pts[0]); each step keeps the candidate that leaves every other point on its
// left, preferring the farthest one when collinear.
func convexHull(pts []Point) (Ring, bool) {
	n := len(pts)
	if n < 3 {
		return nil, false
	}

	hull := make(Ring, 0, n)
	cur := 0
	for steps := 0; steps <= n; steps++ {
		hull = append(hull, pts[cur])
		next := (cur + 1) % n
		for i := 0; i < n; i++ {
			if i == cur || i == next {
				continue
			}
			o := orientation(pts[cur], pts[next], pts[i])
			if o < 0 || (o == 0 && dist(pts[cur], pts[i]) > dist(pts[cur], pts[next])) {
				next = i
			}
		}
		cur = next
		if cur == 0 {
			break
		}
	}

	if len(hull) < 3 || math.Abs(hull.SignedArea()) < areaEpsilon {
		return nil, false
	}
	return hull, true
}

// concaveHull digs the convex hull inwards: a long edge a-b is replaced by a-p-b
// when p is the nearest inner point to the edge, the edge is concavity times
// longer than p's distance to its nearer endpoint, and the cut keeps every
// point enclosed without self-intersection.
func concaveHull(pts []Point, convex Ring, concavity float64) Ring {
	hull := make(Ring, len(convex))
	copy(hull, convex)

	onHull := make(map[Point]struct{}, len(hull))
	for _, p := range hull {
		onHull[p] = struct{}{}
	}
	inner := make([]Point, 0, len(pts)-len(hull))
	for _, p := range pts {
		if _, ok := onHull[p]; !ok {
			inner = append(inner, p)
		}
	}
	alive := make([]bool, len(inner))
	for i := range alive {
		alive[i] = true
	}

	const maxPasses = 3
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for i := 0; i < len(hull); {
			a := hull[i]
			b := hull[(i+1)%len(hull)]

			best := nearestInner(inner, alive, a, b)
			if best < 0 {
				i++
				continue
			}
			p := inner[best]
			near := math.Min(dist(p, a), dist(p, b))
			if near == 0 || dist(a, b)/near <= concavity || !canDig(hull, i, p, inner, alive, best) {
				i++
				continue
			}

			hull = append(hull, Point{})
			copy(hull[i+2:], hull[i+1:])
			hull[i+1] = p
			alive[best] = false
			changed = true
		}
		if !changed {
			break
		}
	}
	return hull
}

func nearestInner(inner []Point, alive []bool, a, b Point) int {
	best := -1
	bestD := math.Inf(1)
	for j, p := range inner {
		if !alive[j] {
			continue
		}
		d, within := segmentDistance(p, a, b)
		if !within {
			continue
		}
		if d < bestD {
			bestD = d
			best = j
		}
	}
	return best
}

// segmentDistance is the distance from p to segment ab and whether p projects
// strictly inside the segment.
func segmentDistance(p, a, b Point) (float64, bool) {
	dx, dy := b.Lng-a.Lng, b.Lat-a.Lat
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return dist(p, a), false
	}
	t := ((p.Lng-a.Lng)*dx + (p.Lat-a.Lat)*dy) / l2
	if t <= 0 || t >= 1 {
		return 0, false
	}
	proj := Point{Lng: a.Lng + t*dx, Lat: a.Lat + t*dy}
	return dist(p, proj), true
}

func canDig(hull Ring, i int, p Point, inner []Point, alive []bool, skip int) bool {
	n := len(hull)
	a := hull[i]
	b := hull[(i+1)%n]

	tri := Ring{a, p, b}
	for j, q := range inner {
		if j == skip || !alive[j] {
			continue
		}
		// points left on the new edges stay enclosed; anything else in the cut does not
		if tri.ContainsPoint(q) && !onSegment(a, p, q) && !onSegment(p, b, q) {
			return false
		}
	}
	for k, q := range hull {
		if k == i || k == (i+1)%n {
			continue
		}
		if tri.ContainsPoint(q) {
			return false
		}
	}

	for k := 0; k < n; k++ {
		e1, e2 := hull[k], hull[(k+1)%n]
		if k == i {
			continue
		}
		if e1 != a && e2 != a && SegmentsIntersect(a, p, e1, e2) {
			return false
		}
		if e1 != b && e2 != b && SegmentsIntersect(p, b, e1, e2) {
			return false
		}
	}
	return true
}

// isSimple reports whether no two non-adjacent edges of the open ring touch.
func isSimple(r Ring) bool {
	pts := r.Open()
	n := len(pts)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		a1, a2 := pts[i], pts[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if SegmentsIntersect(a1, a2, pts[j], pts[(j+1)%n]) {
				return false
			}
		}
	}
	return true
}
