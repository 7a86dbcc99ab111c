package sessionauth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Principal is an authenticated actor: an opaque id scoped to a role.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// UUID parses the principal id.
func (p Principal) UUID() (uuid.UUID, error) {
	return uuid.Parse(p.ID)
}

// TokenPair is one issuance of a short-lived access token and a long-lived
// refresh token.
type TokenPair struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Authorized is the result of join, login, and refresh: the principal's
// profile snapshot plus the freshly minted token pair.
type Authorized struct {
	User    *User      `json:"user"`
	Tokens  *TokenPair `json:"tokens"`
	Session *Session   `json:"-"`
}

// Principal returns the authorized actor's identity snapshot.
func (a *Authorized) Principal() Principal {
	if a == nil {
		return Principal{}
	}
	return a.User.Principal()
}

// TokenService mints and verifies signed access/refresh token pairs
type TokenService interface {
	Issue(principalID string, role Role) (*TokenPair, error)
	VerifyAccess(tokenString string) (*TokenClaims, error)
	VerifyRefresh(tokenString string) (*TokenClaims, error)
	SignClaims(claims *TokenClaims) (string, error)
}

// Authenticator holds the operations exposed to request handlers
type Authenticator interface {
	Join(ctx context.Context, role Role, input JoinInput) (*Authorized, error)
	Login(ctx context.Context, role Role, input LoginInput) (*Authorized, error)
	Refresh(ctx context.Context, role Role, refreshToken string) (*Authorized, error)
	Logout(ctx context.Context, role Role, refreshToken string) error
}

// JoinInput carries the registration payload for a new principal.
type JoinInput struct {
	Provider    string
	ProviderKey string
	Secret      string
	FirstName   string
	LastName    string
	Username    string
	Email       string
	// DeterministicID derives the principal id from (role, provider_key)
	// instead of minting a random UUID.
	DeterministicID bool
}

// LoginInput carries the credentials presented at login.
type LoginInput struct {
	Provider    string
	ProviderKey string
	Secret      string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetIssuer() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetTokenLookup() string
	GetAuthScheme() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
