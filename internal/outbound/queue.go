package outbound

import (
	"context"
	"log/slog"
	"time"

	"regportal/internal/platform/metrics"
)

// Channel identifies the delivery channel of a queued message.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Message is one officer-facing notification waiting for delivery.
type Message struct {
	Channel Channel
	To      string
	Subject string
	Body    string
}

// Queue decouples outbound messaging from the request path. Handlers enqueue
// after their transaction commits; the worker owns delivery, retries and
// gives up on its own schedule.
type Queue struct {
	messages chan Message
	logger   *slog.Logger
}

const queueSize = 256

func NewQueue(logger *slog.Logger) *Queue {
	return &Queue{
		messages: make(chan Message, queueSize),
		logger:   logger,
	}
}

// Enqueue never blocks. A full queue drops the message with a log line;
// outbound messaging is fire-and-forget by contract.
func (q *Queue) Enqueue(msg Message) {
	select {
	case q.messages <- msg:
	default:
		q.logger.Warn("outbound queue full, dropping message",
			"channel", string(msg.Channel), "to", msg.To)
	}
}

// Worker delivers queued messages through the gateway with bounded retry and
// exponential backoff. A message that exhausts its attempts is dropped.
type Worker struct {
	queue    *Queue
	gateway  Gateway
	metrics  *metrics.Metrics
	logger   *slog.Logger
	attempts int
	backoff  time.Duration
}

func NewWorker(queue *Queue, gateway Gateway, m *metrics.Metrics, logger *slog.Logger) *Worker {
	return &Worker{
		queue:    queue,
		gateway:  gateway,
		metrics:  m,
		logger:   logger,
		attempts: 3,
		backoff:  500 * time.Millisecond,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-w.queue.messages:
			w.deliver(ctx, msg)
		}
	}
}

func (w *Worker) deliver(ctx context.Context, msg Message) {
	backoff := w.backoff
	for attempt := 1; attempt <= w.attempts; attempt++ {
		err := w.send(ctx, msg)
		if err == nil {
			w.observe(msg.Channel, "ok")
			return
		}
		w.logger.Warn("outbound delivery failed",
			"channel", string(msg.Channel),
			"to", msg.To,
			"attempt", attempt,
			"error", err,
		)
		if attempt == w.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	w.observe(msg.Channel, "dropped")
	w.logger.Error("outbound delivery dropped after retries",
		"channel", string(msg.Channel), "to", msg.To)
}

func (w *Worker) send(ctx context.Context, msg Message) error {
	switch msg.Channel {
	case ChannelSMS:
		return w.gateway.SendSMS(ctx, msg.To, msg.Body)
	default:
		return w.gateway.SendEmail(ctx, msg.To, msg.Subject, msg.Body)
	}
}

func (w *Worker) observe(channel Channel, result string) {
	if w.metrics != nil {
		w.metrics.OutboundMessages.WithLabelValues(string(channel), result).Inc()
	}
}
