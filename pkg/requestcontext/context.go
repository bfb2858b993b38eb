// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them, services read them, and tests
// inject them without running the full middleware chain.
package requestcontext

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type (
	requestIDKey   struct{}
	requestTimeKey struct{}
	adminIDKey     struct{}
	officerIDKey   struct{}
	applicationKey struct{}
)

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, sweepers, tests
// that don't care).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Used by the request-time
// middleware and by tests that pin the clock.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// AdminID retrieves the acting administrator's ID, or uuid.Nil if the
// request is not an authenticated staff request.
func AdminID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(adminIDKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// WithAdminID injects the acting administrator's ID into the context.
func WithAdminID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, adminIDKey{}, id)
}

// OfficerID retrieves the authenticated officer's ID, or uuid.Nil.
func OfficerID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(officerIDKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// WithOfficerID injects the authenticated officer's ID into the context.
func WithOfficerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, officerIDKey{}, id)
}

// ApplicationID retrieves the application bound to the officer session.
func ApplicationID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(applicationKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// WithApplicationID injects the session-bound application ID into the context.
func WithApplicationID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, applicationKey{}, id)
}
