package sessionauth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type RevokeSessionsMessage struct {
	Role        string `json:"role"`
	PrincipalID string `json:"principal_id"`
	OnResponse  func()
}

func (e RevokeSessionsMessage) Type() string { return "auth.sessions.revoke" }

type sessionRevoker interface {
	RevokeAll(ctx context.Context, principalID string, role Role) error
}

// RevokeSessionsHandler force-terminates every live session a principal
// holds under one role. Used for admin lockouts and credential resets.
type RevokeSessionsHandler struct {
	auther sessionRevoker
}

func NewRevokeSessionsHandler(auther sessionRevoker) *RevokeSessionsHandler {
	return &RevokeSessionsHandler{auther: auther}
}

func (h *RevokeSessionsHandler) Execute(ctx context.Context, event RevokeSessionsMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during session revocation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RevokeSessionsHandler) execute(ctx context.Context, event RevokeSessionsMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	role, ok := ParseRole(event.Role)
	if !ok {
		return goerrors.New("unknown role in revoke message", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"role": event.Role})
	}

	if err := h.auther.RevokeAll(ctx, event.PrincipalID, role); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "session revocation failed")
	}

	if event.OnResponse != nil {
		event.OnResponse()
	}

	return nil
}
