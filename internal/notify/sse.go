package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"regportal/pkg/requestcontext"
)

// SSEHandler exposes the admin channel as a server-sent-events stream.
// Joining is the per-connection opt-in carrying admin identity; closing the
// connection leaves the channel automatically.
type SSEHandler struct {
	registry Registry
	logger   *slog.Logger
}

func NewSSEHandler(registry Registry, logger *slog.Logger) *SSEHandler {
	return &SSEHandler{registry: registry, logger: logger}
}

// Register mounts the event stream. Admin auth middleware is applied by the
// router.
func (h *SSEHandler) Register(r chi.Router) {
	r.Get("/admin/events", h.handleStream)
}

func (h *SSEHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	adminID := requestcontext.AdminID(ctx)
	sessionID := uuid.New()

	events := h.registry.Join(AdminChannel, sessionID, adminID.String())
	defer h.registry.Leave(AdminChannel, sessionID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Confirm the join so clients know the stream is live.
	fmt.Fprintf(w, "event: admin:joined\ndata: {\"sessionId\":%q}\n\n", sessionID.String())
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("marshal sse event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}
