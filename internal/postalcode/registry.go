// Package postalcode holds the postal-code reference dataset in memory, backed
// by a persistent Store and a SpatialIndex over each code's extent.
package postalcode

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
	"github.com/BruksfildServices01/homeservices-coverage/internal/logger"
	"github.com/BruksfildServices01/homeservices-coverage/internal/metrics"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
)

type Store interface {
	All(ctx context.Context) ([]models.PostalCode, error)
	Upsert(ctx context.Context, rows []models.PostalCode) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type Registry struct {
	mu      sync.RWMutex
	entries map[string]models.PostalCode

	index  SpatialIndex
	store  Store
	writer *Writer
	pad    float64
}

// NewRegistry builds an empty registry. pad grows centroid-only boxes by that
// many degrees on each side.
func NewRegistry(store Store, index SpatialIndex, pad float64) *Registry {
	if index == nil {
		index = NewLinearIndex()
	}
	return &Registry{
		entries: make(map[string]models.PostalCode),
		index:   index,
		store:   store,
		pad:     pad,
	}
}

// SetWriter routes geocoded rows through an asynchronous writer instead of
// persisting them inline.
func (r *Registry) SetWriter(w *Writer) {
	r.writer = w
}

// Load replaces the in-memory set with the store's contents and rebuilds
// the index.
func (r *Registry) Load(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}
	rows, err := r.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load postal codes: %w", err)
	}

	r.mu.Lock()
	for code := range r.entries {
		r.index.Remove(code)
	}
	r.entries = make(map[string]models.PostalCode, len(rows))
	for _, row := range rows {
		r.putLocked(row)
	}
	n := len(r.entries)
	r.mu.Unlock()

	metrics.RegistrySize.Set(float64(n))
	logger.L().Info("postal code registry loaded", "codes", n, "indexed", r.index.Len())
	return n, nil
}

func (r *Registry) Get(code string) (models.PostalCode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[code]
	return p, ok
}

// Lookup splits codes into known entries and codes absent from the registry.
// Both outputs follow the input order.
func (r *Registry) Lookup(codes []string) (found []models.PostalCode, missing []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range codes {
		if p, ok := r.entries[c]; ok {
			found = append(found, p)
		} else {
			missing = append(missing, c)
		}
	}
	return found, missing
}

// Query returns the entries whose boxes overlap b, sorted by code.
func (r *Registry) Query(ctx context.Context, b geo.BBox) ([]models.PostalCode, error) {
	codes, err := r.index.Query(ctx, b)
	if err != nil {
		return nil, err
	}
	sort.Strings(codes)

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.PostalCode, 0, len(codes))
	for _, c := range codes {
		if p, ok := r.entries[c]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Upsert persists rows and then publishes them to readers.
func (r *Registry) Upsert(ctx context.Context, rows []models.PostalCode) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n := int64(len(rows))
	if r.store != nil {
		var err error
		if n, err = r.store.Upsert(ctx, rows); err != nil {
			return 0, fmt.Errorf("upsert postal codes: %w", err)
		}
	}
	r.publish(rows)
	return n, nil
}

// AddGeocoded makes enricher results visible immediately; persistence happens
// in the background when a writer is set.
func (r *Registry) AddGeocoded(ctx context.Context, rows []models.PostalCode) {
	if len(rows) == 0 {
		return
	}
	r.publish(rows)

	switch {
	case r.writer != nil:
		r.writer.Enqueue(rows)
	case r.store != nil:
		if _, err := r.store.Upsert(ctx, rows); err != nil {
			logger.L().Warn("persist geocoded postal codes failed", "count", len(rows), "err", err)
		}
	}
}

func (r *Registry) publish(rows []models.PostalCode) {
	r.mu.Lock()
	for _, row := range rows {
		r.putLocked(row)
	}
	n := len(r.entries)
	r.mu.Unlock()
	metrics.RegistrySize.Set(float64(n))
}

func (r *Registry) putLocked(row models.PostalCode) {
	r.entries[row.Code] = row
	r.index.Insert(Entry{Code: row.Code, BBox: r.extent(row)})
}

// extent is the union of the boundary rings, or the padded centroid when no
// boundary is known.
func (r *Registry) extent(p models.PostalCode) geo.BBox {
	if len(p.Boundary) > 0 {
		b := geo.EmptyBBox()
		for _, ring := range p.Boundary {
			b = b.Union(ring.BBox())
		}
		if !b.IsEmpty() {
			return b
		}
	}
	return geo.PointBBox(p.Centroid(), r.pad)
}
