package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"regportal/pkg/requestcontext"
)

// RequestMetadata stamps every request with an ID and a request-scoped time.
// Services read both through pkg/requestcontext, which keeps clocks
// injectable in tests. Stamping the time once per request means every read
// inside one request observes the same clock.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
