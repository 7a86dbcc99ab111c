package sessionauth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Auther is the deduplicated authentication subsystem: one implementation of
// join, login, refresh, and logout parameterized by role instead of one copy
// per role per domain.
type Auther struct {
	repo     RepositoryManager
	tokens   TokenService
	provider *CredentialProvider
	logger   Logger
	activity ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, cfg Config) *Auther {
	tokens := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetIssuer(),
		WithAccessTokenTTL(cfg.GetAccessTokenTTL()),
		WithRefreshTokenTTL(cfg.GetRefreshTokenTTL()),
	)

	return &Auther{
		repo:     repo,
		tokens:   tokens,
		provider: NewCredentialProvider(repo.Credentials(), repo.Principals()),
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
		s.provider = s.provider.WithLogger(logger)
	}
	return s
}

// WithActivitySink sets a sink that receives an audit event for every
// authentication action. A nil sink disables auditing.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithTokenService sets a custom token service, e.g. one with a test clock.
func (s *Auther) WithTokenService(tokens TokenService) *Auther {
	if tokens != nil {
		s.tokens = tokens
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

var _ Authenticator = (*Auther)(nil)

// Join registers a new principal with its first credential and opens the
// initial session. The user row, credential row, and session row commit in
// one transaction.
func (s *Auther) Join(ctx context.Context, role Role, input JoinInput) (*Authorized, error) {
	if !role.IsValid() {
		return nil, goerrors.New("unknown role", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"role": role.String()})
	}

	if input.Provider == "" {
		input.Provider = ProviderLocal
	}

	secretHash := ""
	if input.Provider == ProviderLocal {
		hash, err := HashSecret(input.Secret)
		if err != nil {
			s.logger.Error("Join failed to hash secret", "error", err)
			return nil, err
		}
		secretHash = hash
	} else if input.Secret != "" {
		return nil, goerrors.New("federated credentials must not carry a secret", goerrors.CategoryBadInput)
	}

	var authorized *Authorized
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user := &User{
			Role:      role,
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Username:  usernameFor(input),
			Email:     input.Email,
		}
		if input.DeterministicID {
			if id, err := deterministicUserID(role, input.ProviderKey); err == nil {
				user.ID = id
			}
		}

		user, err := s.repo.Principals().RegisterTx(ctx, tx, user)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}

		cred := &Credential{
			UserID:      user.ID,
			Role:        role,
			Provider:    input.Provider,
			ProviderKey: input.ProviderKey,
			SecretHash:  secretHash,
		}
		if _, err := s.repo.Credentials().RegisterTx(ctx, tx, cred); err != nil {
			return err
		}

		authorized, err = s.openSessionTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Join issued initial session", "role", role, "user", authorized.User.ID)
	s.record(ctx, ActivityEvent{
		EventType:   ActivityEventJoin,
		Role:        role,
		PrincipalID: authorized.User.ID.String(),
		SessionID:   authorized.Session.ID.String(),
	})
	return authorized, nil
}

// Login verifies the presented credentials and opens a new session chain.
func (s *Auther) Login(ctx context.Context, role Role, input LoginInput) (*Authorized, error) {
	if input.Provider == "" {
		input.Provider = ProviderLocal
	}

	user, err := s.provider.Verify(ctx, role, input)
	if err != nil {
		s.logger.Error("Login verify credentials error", "error", err)
		s.record(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Role:      role,
			Metadata: map[string]any{
				"provider":     input.Provider,
				"provider_key": input.ProviderKey,
			},
		})
		return nil, err
	}

	var authorized *Authorized
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		authorized, err = s.openSessionTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEvent{
		EventType:   ActivityEventLoginSuccess,
		Role:        role,
		PrincipalID: user.ID.String(),
		SessionID:   authorized.Session.ID.String(),
	})
	return authorized, nil
}

// Refresh exchanges an active refresh token for a brand-new access/refresh
// pair, rotating the session in the same transaction that validated it.
// A presented token that was already rotated away fails ErrSessionNotFound,
// which is the replay-detection mechanism: refresh tokens are single use.
func (s *Auther) Refresh(ctx context.Context, role Role, refreshToken string) (*Authorized, error) {
	if _, err := s.tokens.VerifyRefresh(refreshToken); err != nil {
		return nil, err
	}

	var authorized *Authorized
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// the lookup is keyed by the caller's role, not the token claim, so
		// a token minted for another role can never resolve a session here
		sess, err := s.repo.Sessions().FindActiveTx(ctx, tx, refreshToken, role)
		if err != nil {
			return err
		}
		if sess == nil {
			return ErrSessionNotFound
		}

		user, err := s.repo.Principals().GetActiveByIDTx(ctx, tx, sess.UserID)
		if err != nil {
			if goerrors.IsNotFound(err) {
				// dead account: terminate the session while we are here
				if revokeErr := s.repo.Sessions().RevokeTx(ctx, tx, sess.ID); revokeErr != nil {
					s.logger.Error("failed to revoke session for deactivated principal", "error", revokeErr)
				}
				return ErrPrincipalDeactivated
			}
			return err
		}

		pair, err := s.tokens.Issue(user.ID.String(), role)
		if err != nil {
			return err
		}

		rotated, err := s.repo.Sessions().RotateTx(
			ctx, tx,
			sess.ID,
			refreshToken,
			pair.Refresh,
			time.Now(),
			pair.RefreshExpiresAt,
		)
		if err != nil {
			return err
		}

		authorized = &Authorized{User: user, Tokens: pair, Session: rotated}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEvent{
		EventType:   ActivityEventSessionRotated,
		Role:        role,
		PrincipalID: authorized.User.ID.String(),
		SessionID:   authorized.Session.ID.String(),
	})
	return authorized, nil
}

// Logout revokes the session bound to the refresh token. Unknown or already
// revoked tokens are a no-op so clients can always log out safely.
func (s *Auther) Logout(ctx context.Context, role Role, refreshToken string) error {
	sess, err := s.repo.Sessions().FindByToken(ctx, refreshToken, role)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	if err := s.repo.Sessions().Revoke(ctx, sess.ID); err != nil {
		return err
	}

	s.record(ctx, ActivityEvent{
		EventType:   ActivityEventSessionRevoked,
		Role:        role,
		PrincipalID: sess.UserID.String(),
		SessionID:   sess.ID.String(),
	})
	return nil
}

// RevokeAll terminates every active session a principal holds under a role.
func (s *Auther) RevokeAll(ctx context.Context, principalID string, role Role) error {
	id, err := uuid.Parse(principalID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid principal id")
	}

	user, err := s.repo.Principals().GetActiveByID(ctx, id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrPrincipalDeactivated
		}
		return err
	}

	if err := s.repo.Sessions().RevokeAllForPrincipal(ctx, user.ID, role); err != nil {
		return err
	}

	s.record(ctx, ActivityEvent{
		EventType:   ActivityEventSessionsRevoked,
		Role:        role,
		PrincipalID: user.ID.String(),
	})
	return nil
}

// ChangeSecret rotates a local credential's secret and revokes every open
// session in the same transaction, forcing re-login everywhere.
func (s *Auther) ChangeSecret(ctx context.Context, role Role, providerKey, oldSecret, newSecret string) error {
	user, err := s.provider.Verify(ctx, role, LoginInput{
		Provider:    ProviderLocal,
		ProviderKey: providerKey,
		Secret:      oldSecret,
	})
	if err != nil {
		return err
	}

	hash, err := HashSecret(newSecret)
	if err != nil {
		return err
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		cred, err := s.repo.Credentials().GetByIdentityTx(ctx, tx, role, ProviderLocal, providerKey)
		if err != nil {
			return err
		}

		if err := s.repo.Credentials().RotateSecretTx(ctx, tx, cred.ID, hash); err != nil {
			return err
		}

		return s.repo.Sessions().RevokeAllForPrincipalTx(ctx, tx, user.ID, role)
	})
	if err != nil {
		return err
	}

	s.record(ctx, ActivityEvent{
		EventType:   ActivityEventSecretRotated,
		Role:        role,
		PrincipalID: user.ID.String(),
	})
	return nil
}

// record emits an audit event. Sink failures are logged but never bubble up
// into the authentication result.
func (s *Auther) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Error("activity record failed", "event", string(event.EventType), "error", err)
	}
}

func (s *Auther) openSessionTx(ctx context.Context, tx bun.IDB, user *User) (*Authorized, error) {
	pair, err := s.tokens.Issue(user.ID.String(), user.Role)
	if err != nil {
		return nil, err
	}

	sess, err := s.repo.Sessions().OpenTx(ctx, tx, &Session{
		UserID:       user.ID,
		Role:         user.Role,
		RefreshToken: pair.Refresh,
		ExpiresAt:    pair.RefreshExpiresAt,
	})
	if err != nil {
		return nil, err
	}

	return &Authorized{User: user, Tokens: pair, Session: sess}, nil
}

func usernameFor(input JoinInput) string {
	if input.Username != "" {
		return input.Username
	}

	key := input.ProviderKey
	if strings.Contains(key, "@") {
		return strings.Split(key, "@")[0]
	}

	return key
}
