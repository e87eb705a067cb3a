package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
	"github.com/BruksfildServices01/homeservices-coverage/internal/postalcode"
)

type PostalCodeMemoryStore struct {
	mu   sync.RWMutex
	rows map[string]models.PostalCode
}

func NewPostalCodeMemoryStore() *PostalCodeMemoryStore {
	return &PostalCodeMemoryStore{rows: make(map[string]models.PostalCode)}
}

var _ postalcode.Store = (*PostalCodeMemoryStore)(nil)

func (s *PostalCodeMemoryStore) All(ctx context.Context) ([]models.PostalCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PostalCode, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *PostalCodeMemoryStore) Upsert(ctx context.Context, rows []models.PostalCode) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, r := range rows {
		if prev, ok := s.rows[r.Code]; ok {
			r.CreatedAt = prev.CreatedAt
		} else {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
		s.rows[r.Code] = r
	}
	return int64(len(rows)), nil
}

func (s *PostalCodeMemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.rows)), nil
}
