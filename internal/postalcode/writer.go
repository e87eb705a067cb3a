package postalcode

import (
	"context"
	"sync"
	"time"

	"github.com/BruksfildServices01/homeservices-coverage/internal/logger"
	"github.com/BruksfildServices01/homeservices-coverage/internal/metrics"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
)

// Writer persists registry rows off the request path. When the queue is full
// rows are dropped; they stay in memory and are geocoded again after restart.
type Writer struct {
	store   Store
	queue   chan []models.PostalCode
	done    chan struct{}
	once    sync.Once
	timeout time.Duration
}

func NewWriter(store Store, buffer int) *Writer {
	if buffer <= 0 {
		buffer = 100
	}
	w := &Writer{
		store:   store,
		queue:   make(chan []models.PostalCode, buffer),
		done:    make(chan struct{}),
		timeout: 10 * time.Second,
	}

	go w.worker()
	return w
}

func (w *Writer) worker() {
	defer close(w.done)
	for rows := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		if _, err := w.store.Upsert(ctx, rows); err != nil {
			logger.L().Error("postal code write-behind failed", "count", len(rows), "err", err)
		}
		cancel()
	}
}

func (w *Writer) Enqueue(rows []models.PostalCode) bool {
	select {
	case w.queue <- rows:
		return true
	default:
		metrics.RegistryWriteDropsTotal.Inc()
		logger.L().Warn("postal code write queue full, dropping rows", "count", len(rows))
		return false
	}
}

// Close drains pending writes and stops the worker.
func (w *Writer) Close() {
	w.once.Do(func() {
		close(w.queue)
	})
	<-w.done
}
