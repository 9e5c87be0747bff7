package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/siamese/internal/ws"
)

const (
	defaultMaxAttempts = 5
	defaultQueueSize   = 256
)

// Worker delivers published events to an endpoint in the background,
// retrying failed deliveries with exponential backoff. Undelivered events
// are lost on shutdown.
type Worker struct {
	endpoint    Endpoint
	sender      *Sender
	logger      *slog.Logger
	queue       chan job
	maxAttempts int
	backoffBase time.Duration
}

func NewWorker(endpoint Endpoint, maxAttempts int, logger *slog.Logger) *Worker {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	return &Worker{
		endpoint:    endpoint,
		sender:      NewSender(endpoint),
		logger:      logger,
		queue:       make(chan job, defaultQueueSize),
		maxAttempts: maxAttempts,
		backoffBase: time.Second,
	}
}

// Publish queues the event if the endpoint subscribes to its type. It never
// blocks; events are dropped when the queue is full.
func (w *Worker) Publish(classifier string, eventType ws.EventType, data any) {
	if !w.endpoint.wants(eventType) {
		return
	}

	payload, err := json.Marshal(EventPayload{
		Type:       eventType,
		Classifier: classifier,
		Data:       data,
		Timestamp:  time.Now(),
	})
	if err != nil {
		w.logger.Error("failed to marshal webhook event", "event", eventType, "error", err)
		return
	}

	select {
	case w.queue <- job{eventType: eventType, payload: payload}:
	default:
		w.logger.Warn("webhook queue full, event dropped", "event", eventType, "classifier", classifier)
	}
}

func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("webhook worker started", "url", w.endpoint.URL)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("webhook worker stopped")
			return
		case j := <-w.queue:
			w.process(ctx, j)
		}
	}
}

func (w *Worker) process(ctx context.Context, j job) {
	for {
		j.attempts++
		err := w.sender.Send(ctx, j.eventType, j.payload)
		if err == nil {
			w.logger.Debug("webhook delivered", "event", j.eventType, "attempts", j.attempts)
			return
		}

		if j.attempts >= w.maxAttempts {
			w.logger.Warn("webhook delivery failed", "event", j.eventType, "attempts", j.attempts, "error", err)
			return
		}

		delay := w.backoffBase * time.Duration(1<<(j.attempts-1))
		w.logger.Info("webhook delivery scheduled for retry",
			"event", j.eventType,
			"attempts", j.attempts,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}
