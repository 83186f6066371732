package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-advisor/internal/events"
	"github.com/spec-kit/ticket-advisor/internal/service"
)

const (
	defaultQueueSize = 256
	defaultWorkers   = 2
)

// Deliverer sends one event to its destination.
type Deliverer interface {
	Deliver(ctx context.Context, event events.Event) error
}

// NotificationWorker delivers events off the request path.
type NotificationWorker struct {
	queue     chan events.Event
	deliverer Deliverer
	workers   int
	logger    *zap.Logger

	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopped  bool
	stopOnce sync.Once
}

// NewNotificationWorker builds a worker; non-positive sizes use defaults.
func NewNotificationWorker(deliverer Deliverer, queueSize, workers int, logger *zap.Logger) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		queue:     make(chan events.Event, queueSize),
		deliverer: deliverer,
		workers:   workers,
		logger:    logger,
	}
}

// Start launches the delivery goroutines. They exit after Stop drains the queue.
func (w *NotificationWorker) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for event := range w.queue {
				if err := w.deliverer.Deliver(ctx, event); err != nil {
					w.logger.Warn("notification delivery failed",
						zap.String("event_type", string(event.Type)),
						zap.String("ticket_id", event.TicketID),
						zap.Error(err))
				}
			}
		}()
	}
}

// Enqueue queues event without blocking. It returns false when the queue is
// full or the worker is stopped.
func (w *NotificationWorker) Enqueue(event events.Event) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return false
	}
	select {
	case w.queue <- event:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for in-flight deliveries.
func (w *NotificationWorker) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		close(w.queue)
		w.mu.Unlock()
	})
	w.wg.Wait()
}

// StartNotificationWorker registers notification handlers backed by a running worker.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, logger *zap.Logger) *NotificationWorker {
	if notificationService == nil {
		return nil
	}
	w := NewNotificationWorker(notificationService, defaultQueueSize, defaultWorkers, logger)
	w.Start(ctx)
	notificationService.RegisterHandlers(w.Enqueue)
	return w
}
