package outbound

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"regportal/internal/outbound/mocks"
)

func newTestWorker(t *testing.T) (*Worker, *mocks.MockGateway) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	gateway := mocks.NewMockGateway(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	w := NewWorker(NewQueue(logger), gateway, nil, logger)
	w.backoff = time.Millisecond
	return w, gateway
}

func TestDeliverRetriesUntilSuccess(t *testing.T) {
	w, gateway := newTestWorker(t)

	gomock.InOrder(
		gateway.EXPECT().SendEmail(gomock.Any(), "a@b.c", "subj", "body").
			Return(errors.New("smtp timeout")),
		gateway.EXPECT().SendEmail(gomock.Any(), "a@b.c", "subj", "body").
			Return(nil),
	)

	w.deliver(context.Background(), Message{
		Channel: ChannelEmail,
		To:      "a@b.c",
		Subject: "subj",
		Body:    "body",
	})
}

func TestDeliverDropsAfterExhaustedAttempts(t *testing.T) {
	w, gateway := newTestWorker(t)

	gateway.EXPECT().SendSMS(gomock.Any(), "0712345678", "code").
		Return(errors.New("gateway down")).
		Times(3)

	// Must return, not spin: the message is dropped after the final attempt.
	w.deliver(context.Background(), Message{
		Channel: ChannelSMS,
		To:      "0712345678",
		Body:    "code",
	})
}

func TestDeliverRoutesByChannel(t *testing.T) {
	w, gateway := newTestWorker(t)

	gateway.EXPECT().SendSMS(gomock.Any(), "0712345678", "ping").Return(nil)
	gateway.EXPECT().SendEmail(gomock.Any(), "a@b.c", "s", "b").Return(nil)

	w.deliver(context.Background(), Message{Channel: ChannelSMS, To: "0712345678", Body: "ping"})
	w.deliver(context.Background(), Message{Channel: ChannelEmail, To: "a@b.c", Subject: "s", Body: "b"})
}

func TestEnqueueNeverBlocksWhenFull(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := NewQueue(logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < queueSize+10; i++ {
			q.Enqueue(Message{Channel: ChannelEmail, To: "a@b.c"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on full queue")
	}
	assert.Len(t, q.messages, queueSize)
}

func TestNormalizeMSISDN(t *testing.T) {
	assert.Equal(t, "94712345678", normalizeMSISDN("0712345678", "94"))
	assert.Equal(t, "94712345678", normalizeMSISDN("94712345678", "94"))
}
