package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Registry is the session-registry capability the core depends on. It is
// independent of transport: the SSE handler is one consumer, tests another.
type Registry interface {
	// Join registers a session on a named channel and returns the stream
	// it will receive events on. The caller must Leave when done.
	Join(channel string, sessionID uuid.UUID, adminName string) <-chan Event
	// Leave removes a session; idempotent.
	Leave(channel string, sessionID uuid.UUID)
	// Broadcast delivers an event to every session currently joined to the
	// channel and reports how many received it. Zero recipients is not an
	// error.
	Broadcast(channel string, event Event) int
	// BroadcastGlobal delivers an event to every connected session on every
	// channel, regardless of membership count.
	BroadcastGlobal(event Event)
	// Members reports the current membership count of a channel.
	Members(channel string) int
}

// sessionBuffer bounds each session's queue; a consumer that falls this far
// behind starts losing events rather than blocking emitters.
const sessionBuffer = 16

type session struct {
	adminName string
	events    chan Event
}

// InMemoryRegistry tracks connected sessions per channel. All methods are
// safe for concurrent use from request handlers.
type InMemoryRegistry struct {
	mu       sync.RWMutex
	channels map[string]map[uuid.UUID]*session
	logger   *slog.Logger
}

func NewInMemoryRegistry(logger *slog.Logger) *InMemoryRegistry {
	return &InMemoryRegistry{
		channels: make(map[string]map[uuid.UUID]*session),
		logger:   logger,
	}
}

func (r *InMemoryRegistry) Join(channel string, sessionID uuid.UUID, adminName string) <-chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channels[channel] == nil {
		r.channels[channel] = make(map[uuid.UUID]*session)
	}
	s := &session{adminName: adminName, events: make(chan Event, sessionBuffer)}
	r.channels[channel][sessionID] = s
	r.logger.Info("session joined channel",
		"channel", channel,
		"session_id", sessionID.String(),
		"admin", adminName,
		"members", len(r.channels[channel]),
	)
	return s.events
}

func (r *InMemoryRegistry) Leave(channel string, sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.channels[channel]
	if !ok {
		return
	}
	if s, ok := members[sessionID]; ok {
		delete(members, sessionID)
		close(s.events)
		r.logger.Info("session left channel",
			"channel", channel,
			"session_id", sessionID.String(),
			"members", len(members),
		)
	}
}

func (r *InMemoryRegistry) Broadcast(channel string, event Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	delivered := 0
	for _, s := range r.channels[channel] {
		if r.deliver(s, event) {
			delivered++
		}
	}
	return delivered
}

func (r *InMemoryRegistry) BroadcastGlobal(event Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, members := range r.channels {
		for _, s := range members {
			r.deliver(s, event)
		}
	}
}

// deliver is non-blocking: a full session buffer drops the event for that
// session only.
func (r *InMemoryRegistry) deliver(s *session, event Event) bool {
	select {
	case s.events <- event:
		return true
	default:
		r.logger.Warn("dropping event for slow session", "type", event.Type, "admin", s.adminName)
		return false
	}
}

// Members reports the current membership count of a channel.
func (r *InMemoryRegistry) Members(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[channel])
}

// GlobalPublisher mirrors global events outside the process, so clients of
// other instances (or a persistence sidecar) can observe intake events even
// when no admin session is connected here.
type GlobalPublisher interface {
	PublishGlobal(ctx context.Context, event Event) error
}
