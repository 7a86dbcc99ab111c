package sessionauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind discriminates access from refresh tokens inside the signed
// payload so one kind can never be presented as the other.
type TokenKind string

const (
	// TokenKindAccess marks short-lived request-authorizing tokens
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh marks long-lived, single-use rotation tokens
	TokenKindRefresh TokenKind = "refresh"
)

// AuthClaims represents verified token claims as consumed by middleware and
// handlers.
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	Kind() string
	HasRole(role string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// TokenClaims is the concrete signed payload: {id, type, kind, iat, exp, iss}
// plus a per-issuance nonce on refresh tokens.
type TokenClaims struct {
	jwt.RegisteredClaims
	UID       string    `json:"id,omitempty"`
	TokenRole string    `json:"type,omitempty"`
	TokenKind TokenKind `json:"kind,omitempty"`
	// Nonce makes two refresh tokens minted for the same principal
	// byte-distinct, so the registry's uniqueness constraint never trips on
	// honest reissuance.
	Nonce string `json:"nonce,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*TokenClaims)(nil)

// Subject returns the subject claim
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the principal id
func (c *TokenClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the role tag embedded in the type claim
func (c *TokenClaims) Role() string {
	return c.TokenRole
}

// Kind returns the token kind claim
func (c *TokenClaims) Kind() string {
	return string(c.TokenKind)
}

// HasRole checks the role claim against an exact role tag. Roles are flat
// namespaces: there is no hierarchy to fall back on.
func (c *TokenClaims) HasRole(role string) bool {
	return c.TokenRole == role
}

// PrincipalRole parses the type claim into a Role
func (c *TokenClaims) PrincipalRole() (Role, bool) {
	return ParseRole(c.TokenRole)
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
