package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Recorder accepts activity events from request handlers without blocking
// them. Events flow through an inbox channel into the worker, which persists
// each entry and mirrors it to Kafka when a publisher is configured.
type Recorder struct {
	inbox  chan Event
	logger *slog.Logger
}

const inboxSize = 256

func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{
		inbox:  make(chan Event, inboxSize),
		logger: logger,
	}
}

// Record enqueues an activity event. A full inbox drops the event with a log
// line; activity logging must never stall the request path.
func (r *Recorder) Record(ctx context.Context, adminID *uuid.UUID, activityType, description string) {
	event := Event{
		ID:          uuid.New(),
		AdminID:     adminID,
		Type:        activityType,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	select {
	case r.inbox <- event:
	default:
		r.logger.WarnContext(ctx, "activity inbox full, dropping entry",
			"type", activityType,
		)
	}
}

// Worker consumes recorded events and persists them. Store failures are
// logged per event and do not stop the loop; the Kafka mirror is
// fire-and-forget.
type Worker struct {
	store     Store
	publisher *Publisher
	inbox     <-chan Event
	logger    *slog.Logger
}

func NewWorker(store Store, publisher *Publisher, recorder *Recorder, logger *slog.Logger) *Worker {
	return &Worker{
		store:     store,
		publisher: publisher,
		inbox:     recorder.inbox,
		logger:    logger,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.Error("append activity entry", "error", err, "type", event.Type)
			}
			if w.publisher != nil {
				w.publisher.Publish(ctx, event)
			}
		}
	}
}
