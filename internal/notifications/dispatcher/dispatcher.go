// Package dispatcher publishes notification events off the request path.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"bookloans/internal/notifications/events"
	"bookloans/pkg/kafka"
	"bookloans/pkg/logger"
	"bookloans/pkg/metrics"
	"bookloans/pkg/middleware"
)

type Config struct {
	QueueSize      int
	Workers        int
	PublishTimeout time.Duration
}

type envelope struct {
	event         events.Event
	correlationID string
}

// Dispatcher is a bounded queue drained by a fixed set of workers. Enqueueing
// never blocks: when the queue is full the event is dropped and counted.
type Dispatcher struct {
	publisher kafka.Publisher
	queue     chan envelope
	timeout   time.Duration
	log       *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func New(publisher kafka.Publisher, cfg Config, log *logger.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	d := &Dispatcher{
		publisher: publisher,
		queue:     make(chan envelope, cfg.QueueSize),
		timeout:   cfg.PublishTimeout,
		log:       log,
	}

	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

func (d *Dispatcher) NotifyNewBorrowing(ctx context.Context, borrowingID int64, text string) {
	d.enqueue(ctx, events.BorrowingCreated(borrowingID, text))
}

func (d *Dispatcher) NotifyBookReturn(ctx context.Context, borrowingID int64) {
	d.enqueue(ctx, events.BorrowingReturned(borrowingID))
}

func (d *Dispatcher) enqueue(ctx context.Context, e events.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(e, "dispatcher closed")
		return
	}

	select {
	case d.queue <- envelope{event: e, correlationID: middleware.RequestIDFromContext(ctx)}:
		metrics.NotificationsEnqueued.WithLabelValues(e.Type).Inc()
	default:
		d.drop(e, "queue full")
	}
}

func (d *Dispatcher) drop(e events.Event, reason string) {
	metrics.NotificationsDropped.WithLabelValues(e.Type).Inc()
	d.log.Warn("Notification dropped",
		"type", e.Type,
		"borrowing_id", e.BorrowingID,
		"reason", reason,
	)
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for env := range d.queue {
		d.publish(env)
	}
}

func (d *Dispatcher) publish(env envelope) {
	msg, err := env.event.Message(env.correlationID)
	if err != nil {
		d.fail(env.event, err)
		return
	}

	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.publisher.Publish(ctx, msg); err != nil {
		d.fail(env.event, err)
		return
	}

	d.log.Debug("Notification published",
		"type", env.event.Type,
		"borrowing_id", env.event.BorrowingID,
		"event_id", msg.GetEventID(),
	)
}

func (d *Dispatcher) fail(e events.Event, err error) {
	metrics.NotificationPublishFailures.WithLabelValues(e.Type).Inc()
	d.log.Error("Failed to publish notification",
		"type", e.Type,
		"borrowing_id", e.BorrowingID,
		"error", err,
	)
}

// Close stops accepting events and waits for queued ones to be published.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}
