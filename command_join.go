package sessionauth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type JoinMessage struct {
	Role          string `json:"role"`
	Provider      string `json:"provider"`
	ProviderKey   string `json:"provider_key"`
	Secret        string `json:"secret"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Deterministic bool
	OnResponse    func(*Authorized)
}

func (e JoinMessage) Type() string { return "auth.join" }

type JoinHandler struct {
	auther Authenticator
}

func NewJoinHandler(auther Authenticator) *JoinHandler {
	return &JoinHandler{auther: auther}
}

func (h *JoinHandler) Execute(ctx context.Context, event JoinMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during join",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *JoinHandler) execute(ctx context.Context, event JoinMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	role, ok := ParseRole(event.Role)
	if !ok {
		return goerrors.New("unknown role in join message", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"role": event.Role})
	}

	authorized, err := h.auther.Join(ctx, role, JoinInput{
		Provider:        event.Provider,
		ProviderKey:     event.ProviderKey,
		Secret:          event.Secret,
		FirstName:       event.FirstName,
		LastName:        event.LastName,
		Username:        event.Username,
		Email:           event.Email,
		DeterministicID: event.Deterministic,
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "join failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(authorized)
	}

	return nil
}
