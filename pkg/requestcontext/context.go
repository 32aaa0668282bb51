// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by middleware and consumed by services. Keeping this package
// free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	staffID := requestcontext.StaffID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "medledger/pkg/domain"
)

type (
	staffIDKey     struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// StaffID retrieves the authenticated staff member from the context.
// Returns the zero value when not set.
func StaffID(ctx context.Context) id.StaffID {
	if staffID, ok := ctx.Value(staffIDKey{}).(id.StaffID); ok {
		return staffID
	}
	return id.StaffID{}
}

// WithStaffID injects the authenticated staff member into the context.
func WithStaffID(ctx context.Context, staffID id.StaffID) context.Context {
	return context.WithValue(ctx, staffIDKey{}, staffID)
}

// RequestID retrieves the correlation ID assigned by middleware.
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request time when one was injected, falling back to the
// wall clock. Tests pin time with WithTime so timestamp assertions are exact.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request time in the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
