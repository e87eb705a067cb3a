package postalcode

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
)

const scanChunk = 1024

// Entry is one postal code's extent in the index.
type Entry struct {
	Code string
	BBox geo.BBox
}

// SpatialIndex answers bbox-overlap queries over the registry. Query returns
// codes in no particular order.
type SpatialIndex interface {
	Insert(e Entry)
	Remove(code string)
	Query(ctx context.Context, b geo.BBox) ([]string, error)
	Len() int
}

func NewIndex(kind string, cellDeg float64) (SpatialIndex, error) {
	switch kind {
	case "", "linear":
		return NewLinearIndex(), nil
	case "grid":
		return NewGridIndex(cellDeg), nil
	}
	return nil, fmt.Errorf("unknown spatial index %q", kind)
}

// ======================================================
// LINEAR
// ======================================================

// LinearIndex scans every entry. Tens of thousands of boxes fit well inside a
// request budget.
type LinearIndex struct {
	mu      sync.RWMutex
	entries []Entry
	pos     map[string]int
}

func NewLinearIndex() *LinearIndex {
	return &LinearIndex{pos: make(map[string]int)}
}

func (ix *LinearIndex) Insert(e Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if i, ok := ix.pos[e.Code]; ok {
		ix.entries[i] = e
		return
	}
	ix.pos[e.Code] = len(ix.entries)
	ix.entries = append(ix.entries, e)
}

func (ix *LinearIndex) Remove(code string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	i, ok := ix.pos[code]
	if !ok {
		return
	}
	last := len(ix.entries) - 1
	if i != last {
		ix.entries[i] = ix.entries[last]
		ix.pos[ix.entries[i].Code] = i
	}
	ix.entries = ix.entries[:last]
	delete(ix.pos, code)
}

func (ix *LinearIndex) Query(ctx context.Context, b geo.BBox) ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []string
	for i, e := range ix.entries {
		if i%scanChunk == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if e.BBox.Overlaps(b) {
			out = append(out, e.Code)
		}
	}
	return out, nil
}

func (ix *LinearIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// ======================================================
// GRID
// ======================================================

type cell struct{ x, y int }

// GridIndex buckets boxes into fixed-size degree cells. A box spanning
// several cells is stored in each of them.
type GridIndex struct {
	mu    sync.RWMutex
	size  float64
	boxes map[string]geo.BBox
	cells map[cell]map[string]struct{}
}

func NewGridIndex(cellDeg float64) *GridIndex {
	if cellDeg <= 0 {
		cellDeg = 0.5
	}
	return &GridIndex{
		size:  cellDeg,
		boxes: make(map[string]geo.BBox),
		cells: make(map[cell]map[string]struct{}),
	}
}

func (g *GridIndex) span(b geo.BBox) (lo, hi cell) {
	lo = cell{int(math.Floor(b.MinLng / g.size)), int(math.Floor(b.MinLat / g.size))}
	hi = cell{int(math.Floor(b.MaxLng / g.size)), int(math.Floor(b.MaxLat / g.size))}
	return lo, hi
}

func (g *GridIndex) Insert(e Entry) {
	if e.BBox.IsEmpty() {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.removeLocked(e.Code)
	g.boxes[e.Code] = e.BBox
	lo, hi := g.span(e.BBox)
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			c := cell{x, y}
			set, ok := g.cells[c]
			if !ok {
				set = make(map[string]struct{})
				g.cells[c] = set
			}
			set[e.Code] = struct{}{}
		}
	}
}

func (g *GridIndex) Remove(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(code)
}

func (g *GridIndex) removeLocked(code string) {
	b, ok := g.boxes[code]
	if !ok {
		return
	}
	lo, hi := g.span(b)
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			c := cell{x, y}
			if set, ok := g.cells[c]; ok {
				delete(set, code)
				if len(set) == 0 {
					delete(g.cells, c)
				}
			}
		}
	}
	delete(g.boxes, code)
}

func (g *GridIndex) Query(ctx context.Context, b geo.BBox) ([]string, error) {
	if b.IsEmpty() {
		return nil, nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	lo, hi := g.span(b)
	cellsWide := float64(hi.x-lo.x+1) * float64(hi.y-lo.y+1)

	var out []string
	// a query covering more cells than there are entries is cheaper as a scan
	if cellsWide > float64(len(g.boxes)) {
		i := 0
		for code, eb := range g.boxes {
			if i%scanChunk == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			i++
			if eb.Overlaps(b) {
				out = append(out, code)
			}
		}
		return out, nil
	}

	seen := make(map[string]struct{})
	for x := lo.x; x <= hi.x; x++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for y := lo.y; y <= hi.y; y++ {
			for code := range g.cells[cell{x, y}] {
				if _, ok := seen[code]; ok {
					continue
				}
				seen[code] = struct{}{}
				if g.boxes[code].Overlaps(b) {
					out = append(out, code)
				}
			}
		}
	}
	return out, nil
}

func (g *GridIndex) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.boxes)
}
