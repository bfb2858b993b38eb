package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Topic carries the activity mirror consumed by reporting/compliance jobs.
const Topic = "portal.activity"

// Publisher mirrors persisted activity events to Kafka. Delivery is
// best-effort: produce errors are logged, never surfaced to request paths.
type Publisher struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewPublisher connects to the given brokers and ensures the activity topic
// exists. Returns nil without error when no brokers are configured.
func NewPublisher(ctx context.Context, brokers []string, logger *slog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, err := admin.CreateTopic(ctx, 1, 1, nil, Topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure topic %s: %w", Topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure topic %s: %w", Topic, resp.Err)
	}

	return &Publisher{client: client, logger: logger}, nil
}

type wirePayload struct {
	ID          string `json:"id"`
	AdminID     string `json:"adminId,omitempty"`
	Type        string `json:"type"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
}

// Publish produces the event asynchronously. Errors land in the log.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	payload := wirePayload{
		ID:          event.ID.String(),
		Type:        event.Type,
		Description: event.Description,
		CreatedAt:   event.CreatedAt.Format(time.RFC3339Nano),
	}
	if event.AdminID != nil {
		payload.AdminID = event.AdminID.String()
	}
	value, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("marshal activity payload", "error", err)
		return
	}
	record := &kgo.Record{Topic: Topic, Key: []byte(event.Type), Value: value}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("produce activity event", "error", err, "type", event.Type)
		}
	})
}

// Close flushes pending produces and releases the client.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}
