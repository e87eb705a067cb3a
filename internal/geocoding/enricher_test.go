package geocoding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
	"github.com/BruksfildServices01/homeservices-coverage/internal/postalcode"
)

type stubLookup struct {
	mu       sync.Mutex
	table    map[string]Location
	calls    int
	inFlight int32
	maxSeen  int32
	delay    time.Duration
}

func (s *stubLookup) LookupPostalCode(ctx context.Context, code string) (*Location, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		m := atomic.LoadInt32(&s.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxSeen, m, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	loc, ok := s.table[code]
	if !ok {
		return nil, errors.New("ZERO_RESULTS")
	}
	loc.Code = code
	return &loc, nil
}

func TestEnricher_ResolvesAndDrops(t *testing.T) {
	lookup := &stubLookup{
		table: map[string]Location{
			"75201": {City: "Dallas", StateAbbr: "TX", Lat: 32.79, Lng: -96.80},
			"75202": {City: "Dallas", StateAbbr: "TX", Lat: 32.78, Lng: -96.80},
			"76102": {City: "Fort Worth", StateAbbr: "TX", Lat: 32.75, Lng: -97.33},
			"75299": {Lat: 200, Lng: 0},
		},
		delay: 5 * time.Millisecond,
	}
	reg := postalcode.NewRegistry(nil, nil, 0.01)
	e := NewEnricher(lookup, reg, 3, 0)

	res, err := e.Enrich(context.Background(), []string{"75201", "75202", "99999", "76102", "75299"})
	require.NoError(t, err)

	assert.Len(t, res.Resolved, 3)
	assert.ElementsMatch(t, []string{"99999", "75299"}, res.Dropped)
	assert.Equal(t, 5, lookup.calls)
	assert.LessOrEqual(t, atomic.LoadInt32(&lookup.maxSeen), int32(3))

	p, ok := reg.Get("76102")
	require.True(t, ok)
	assert.Equal(t, models.SourceGeocoded, p.Source)
	assert.Equal(t, "Fort Worth", p.City)
}

func TestEnricher_Disabled(t *testing.T) {
	e := NewEnricher(nil, nil, 3, 0)
	assert.False(t, e.Enabled())

	res, err := e.Enrich(context.Background(), []string{"75201"})
	require.NoError(t, err)
	assert.Empty(t, res.Resolved)
	assert.Equal(t, []string{"75201"}, res.Dropped)
}

func TestEnricher_Cancelled(t *testing.T) {
	lookup := &stubLookup{table: map[string]Location{}}
	e := NewEnricher(lookup, nil, 3, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := e.Enrich(ctx, []string{"75201", "75202"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, res.Dropped, 2)
	assert.Equal(t, 0, lookup.calls)
}
