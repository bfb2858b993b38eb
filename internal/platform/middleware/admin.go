package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"regportal/pkg/requestcontext"
)

// RequireAdmin gates staff routes. Token issuance lives outside this service;
// we verify the shared bearer token and take the acting administrator's
// identity from the X-Admin-ID header the staff gateway forwards. Transitions
// and activity entries need that identity, so a missing or malformed ID is
// rejected rather than defaulted.
func RequireAdmin(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			// Constant-time comparison to prevent timing attacks.
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "admin token required")
				return
			}

			adminID, err := uuid.Parse(r.Header.Get("X-Admin-ID"))
			if err != nil || adminID == uuid.Nil {
				logger.WarnContext(ctx, "admin identity missing",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "admin identity required")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithAdminID(ctx, adminID)))
		})
	}
}
