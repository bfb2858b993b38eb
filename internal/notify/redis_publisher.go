package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// GlobalChannel is the Redis pub/sub channel mirroring unscoped intake
// events. Subscribers (other instances, a persistence sidecar) decide what to
// keep; this process stores nothing.
const GlobalChannel = "notifications:global"

// RedisGlobalPublisher publishes global events over Redis pub/sub.
type RedisGlobalPublisher struct {
	client redis.UniversalClient
}

func NewRedisGlobalPublisher(client redis.UniversalClient) *RedisGlobalPublisher {
	return &RedisGlobalPublisher{client: client}
}

func (p *RedisGlobalPublisher) PublishGlobal(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal global event: %w", err)
	}
	if err := p.client.Publish(ctx, GlobalChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish global event: %w", err)
	}
	return nil
}
