package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/events"
)

// NotificationWorker decouples event publication from notification delivery
// through a buffered queue drained by a single goroutine.
type NotificationWorker struct {
	handle events.EventHandler
	logger *zap.Logger
	queue  chan events.Event

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
}

// NewNotificationWorker builds a worker around handle.
func NewNotificationWorker(handle events.EventHandler, queueSize int, logger *zap.Logger) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &NotificationWorker{
		handle: handle,
		logger: logger,
		queue:  make(chan events.Event, queueSize),
		done:   make(chan struct{}),
	}
}

// Attach subscribes the worker to every published event type.
func (w *NotificationWorker) Attach(dispatcher events.Dispatcher) {
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, w.Enqueue)
	}
}

// Enqueue queues an event without blocking. A full or stopped queue drops the event.
func (w *NotificationWorker) Enqueue(_ context.Context, event events.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.logger.Warn("notification worker stopped; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("resource_id", event.ResourceID))
		return nil
	}
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("resource_id", event.ResourceID))
	}
	return nil
}

// Start launches the consumer goroutine. ctx is passed to every handler call.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	go w.run(ctx)
}

// Stop closes the queue and waits until every queued event has been handled.
func (w *NotificationWorker) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	started := w.started
	w.mu.Unlock()

	if !started {
		return
	}
	<-w.done
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer close(w.done)
	for event := range w.queue {
		if err := w.handle(ctx, event); err != nil {
			w.logger.Error("notification delivery failed",
				zap.String("event_type", string(event.Type)),
				zap.String("resource_id", event.ResourceID),
				zap.Error(err))
		}
	}
}
