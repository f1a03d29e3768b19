package drinkauth

import (
	"context"

	"github.com/google/uuid"
)

type clientIPContextKey struct{}
type sessionIDContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine records
// it on audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithSessionID attaches a session id to ctx so callers can thread the
// active session through layers without a process-global pointer. The
// Engine never reads an implicit "current session"; helpers exist for
// hosts that want ambient plumbing.
func WithSessionID(ctx context.Context, sessionID uuid.UUID) context.Context {
	return context.WithValue(ctx, sessionIDContextKey{}, sessionID)
}

// SessionIDFromContext returns the session id attached by [WithSessionID],
// or false when none is present.
func SessionIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}

	sessionID, ok := ctx.Value(sessionIDContextKey{}).(uuid.UUID)
	if !ok || sessionID == uuid.Nil {
		return uuid.Nil, false
	}
	return sessionID, true
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
