package notify

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regportal/internal/registry/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBroadcastReachesAllChannelMembers(t *testing.T) {
	r := NewInMemoryRegistry(testLogger())

	a := r.Join(AdminChannel, uuid.New(), "alice")
	b := r.Join(AdminChannel, uuid.New(), "bob")
	other := r.Join("other-room", uuid.New(), "carol")

	delivered := r.Broadcast(AdminChannel, Event{Type: EventNewRegistration})
	assert.Equal(t, 2, delivered)

	for _, ch := range []<-chan Event{a, b} {
		select {
		case event := <-ch:
			assert.Equal(t, EventNewRegistration, event.Type)
		default:
			t.Fatal("expected queued event")
		}
	}
	select {
	case <-other:
		t.Fatal("event leaked outside the channel")
	default:
	}
}

func TestBroadcastWithNoMembersIsNotAnError(t *testing.T) {
	r := NewInMemoryRegistry(testLogger())
	assert.Equal(t, 0, r.Broadcast(AdminChannel, Event{Type: EventStatusChanged}))
}

func TestLeaveClosesStreamAndShrinksChannel(t *testing.T) {
	r := NewInMemoryRegistry(testLogger())
	sessionID := uuid.New()

	events := r.Join(AdminChannel, sessionID, "alice")
	require.Equal(t, 1, r.Members(AdminChannel))

	r.Leave(AdminChannel, sessionID)
	assert.Equal(t, 0, r.Members(AdminChannel))

	_, open := <-events
	assert.False(t, open)

	// Idempotent.
	r.Leave(AdminChannel, sessionID)
}

func TestBroadcastGlobalReachesEveryChannel(t *testing.T) {
	r := NewInMemoryRegistry(testLogger())

	admin := r.Join(AdminChannel, uuid.New(), "alice")
	other := r.Join("other-room", uuid.New(), "bob")

	r.BroadcastGlobal(Event{Type: EventNewRegistrationGlobal})

	for _, ch := range []<-chan Event{admin, other} {
		select {
		case event := <-ch:
			assert.Equal(t, EventNewRegistrationGlobal, event.Type)
		case <-time.After(time.Second):
			t.Fatal("expected global event")
		}
	}
}

func TestSlowSessionDropsInsteadOfBlocking(t *testing.T) {
	r := NewInMemoryRegistry(testLogger())
	events := r.Join(AdminChannel, uuid.New(), "slow")

	for i := 0; i < sessionBuffer+5; i++ {
		r.Broadcast(AdminChannel, Event{Type: EventNewApplication})
	}

	// Only the buffered prefix survives; the emitter never blocked.
	assert.Len(t, events, sessionBuffer)
}

func TestFanoutIntakeEmitsRoomAndGlobalEvents(t *testing.T) {
	logger := testLogger()
	r := NewInMemoryRegistry(logger)
	f := NewFanout(r, nil, nil, logger)

	events := r.Join(AdminChannel, uuid.New(), "alice")

	f.PublishIntake(t.Context(), sampleApplication(), sampleCompany(), sampleOfficer())

	types := make(map[string]int)
	for len(events) > 0 {
		types[(<-events).Type]++
	}
	assert.Equal(t, 1, types[EventNewRegistration])
	assert.Equal(t, 1, types[EventNewApplication])
	assert.Equal(t, 1, types[EventNewRegistrationGlobal])
}

func sampleCompany() *models.Company {
	return &models.Company{ID: uuid.New(), Name: "Acme Oil", Country: "LK"}
}

func sampleOfficer() *models.Officer {
	return &models.Officer{ID: uuid.New(), FullName: "Nimal Perera", Email: "nimal@acme.example"}
}

func sampleApplication() *models.Application {
	return &models.Application{
		ID:                 uuid.New(),
		RegistrationNumber: "CPC/COM/REG/2026/0001",
		StatusID:           models.StatusReceived,
	}
}
