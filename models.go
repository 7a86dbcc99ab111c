package sessionauth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// ProviderLocal credentials carry a hashed secret; any other provider
	// identifier names a federated IdP and carries no secret.
	ProviderLocal = "local"
)

// User is the principal-owning record. A user is never physically removed
// while sessions reference it; deactivation is the soft-delete timestamp.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          Role       `bun:"role,notnull" json:"role,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Username      string     `bun:"username,notnull" json:"username,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Principal is the user's identity snapshot as seen by request handlers.
func (u *User) Principal() Principal {
	if u == nil {
		return Principal{}
	}
	return Principal{ID: u.ID.String(), Role: u.Role}
}

// Credential binds a login identity to a user, one row per
// (role, provider, provider_key). SecretHash is set only for the local
// provider; federated rows delegate secret checks to their IdP.
type Credential struct {
	bun.BaseModel  `bun:"table:credentials,alias:cred"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID         uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User           *User      `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	Role           Role       `bun:"role,notnull,unique:credentials_identity" json:"role,omitempty"`
	Provider       string     `bun:"provider,notnull,unique:credentials_identity" json:"provider,omitempty"`
	ProviderKey    string     `bun:"provider_key,notnull,unique:credentials_identity" json:"provider_key,omitempty"`
	SecretHash     string     `bun:"secret_hash" json:"-"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at,nullzero" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IsLocal reports whether the credential carries a hashed secret.
func (c *Credential) IsLocal() bool {
	return c != nil && c.Provider == ProviderLocal
}

// Session is one row per issued refresh token. Rotation overwrites the token
// and timestamp fields in place so the registry holds at most one honorable
// token per chain.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:sess"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Role          Role       `bun:"role,notnull" json:"role,omitempty"`
	RefreshToken  string     `bun:"refresh_token,notnull,unique" json:"-"`
	IssuedAt      time.Time  `bun:"issued_at,notnull" json:"issued_at,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	RevokedAt     *time.Time `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsActive reports whether the session may still be refreshed at the given
// instant: not revoked and not past its expiry window.
func (s *Session) IsActive(now time.Time) bool {
	if s == nil || s.RevokedAt != nil {
		return false
	}
	return s.ExpiresAt.After(now)
}
