package audit

import (
	"context"
	"sync"
	"time"

	"github.com/BruksfildServices01/homeservices-coverage/internal/logger"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
)

// Sink persists audit rows.
type Sink interface {
	AppendAudit(ctx context.Context, entry *models.AuditLog) error
}

// Dispatcher writes audit rows for operations that run outside a coverage
// transaction (worker registration, dataset imports). A full queue drops
// the event rather than failing the request.
type Dispatcher struct {
	sink  Sink
	queue chan *models.AuditLog
	done  chan struct{}
	once  sync.Once
}

func NewDispatcher(sink Sink) *Dispatcher {
	d := &Dispatcher{
		sink:  sink,
		queue: make(chan *models.AuditLog, 100),
		done:  make(chan struct{}),
	}

	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.sink.AppendAudit(ctx, ev); err != nil {
			logger.L().Error("audit write failed", "operation", ev.Operation, "err", err)
		}
		cancel()
	}
}

func (d *Dispatcher) Dispatch(ev *models.AuditLog) {
	select {
	case d.queue <- ev:
	default:
		logger.L().Warn("audit queue full, dropping event", "operation", ev.Operation)
	}
}

// Close flushes queued events.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.queue) })
	<-d.done
}
