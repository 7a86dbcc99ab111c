package sessionauth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventJoin            ActivityEventType = "auth.join"
	ActivityEventLoginSuccess    ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure    ActivityEventType = "auth.login.failure"
	ActivityEventSessionRotated  ActivityEventType = "auth.session.rotated"
	ActivityEventSessionRevoked  ActivityEventType = "auth.session.revoked"
	ActivityEventSessionsRevoked ActivityEventType = "auth.sessions.revoked_all"
	ActivityEventSecretRotated   ActivityEventType = "auth.secret.rotated"
)

// ActivityEvent captures audit-friendly information about an authentication
// action.
type ActivityEvent struct {
	EventType   ActivityEventType
	Role        Role
	PrincipalID string
	SessionID   string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
