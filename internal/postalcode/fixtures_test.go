package postalcode

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
)

type fakeStore struct {
	mu      sync.Mutex
	rows    map[string]models.PostalCode
	failOn  string
	upserts int
}

func newFakeStore(rows ...models.PostalCode) *fakeStore {
	s := &fakeStore{rows: make(map[string]models.PostalCode)}
	for _, r := range rows {
		s.rows[r.Code] = r
	}
	return s
}

func (s *fakeStore) All(ctx context.Context) ([]models.PostalCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PostalCode, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *fakeStore) Upsert(ctx context.Context, rows []models.PostalCode) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	for _, r := range rows {
		if r.Code == s.failOn {
			return 0, errors.New("connection reset")
		}
	}
	for _, r := range rows {
		s.rows[r.Code] = r
	}
	return int64(len(rows)), nil
}

func (s *fakeStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows)), nil
}

func (s *fakeStore) get(code string) (models.PostalCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[code]
	return r, ok
}

func pc(code, abbr string, lat, lng float64) models.PostalCode {
	return models.PostalCode{Code: code, StateAbbr: abbr, Lat: lat, Lng: lng, Source: models.SourceCentroidOnly}
}
