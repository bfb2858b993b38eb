package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"regportal/pkg/requestcontext"
)

// OfficerClaims is what the officer-token validator hands back to the
// middleware. Keeping it transport-local avoids importing the jwt package
// from every handler.
type OfficerClaims struct {
	OfficerID          uuid.UUID
	ApplicationID      uuid.UUID
	RegistrationNumber string
}

// OfficerTokenValidator validates an officer bearer token.
type OfficerTokenValidator interface {
	ValidateOfficerToken(tokenString string) (*OfficerClaims, error)
}

// RequireOfficer gates a route on a valid officer session token and injects
// the officer and application identity into the request context.
func RequireOfficer(validator OfficerTokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateOfficerToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithOfficerID(ctx, claims.OfficerID)
			ctx = requestcontext.WithApplicationID(ctx, claims.ApplicationID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
