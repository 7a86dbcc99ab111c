package sessionauth

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeDuplicateIdentity    = "auth_duplicate_identity"
	TextCodeInvalidCredentials   = "auth_invalid_credentials"
	TextCodeTokenInvalid         = "auth_token_invalid"
	TextCodeTokenExpired         = "auth_token_expired"
	TextCodeIssuerMismatch       = "auth_issuer_mismatch"
	TextCodeSessionNotFound      = "auth_session_not_found_or_revoked"
	TextCodeRoleMismatch         = "auth_role_mismatch"
	TextCodePrincipalDeactivated = "auth_principal_deactivated"
	TextCodeTooManyAttempts      = "auth_too_many_login_attempts"
	TextCodeEmptyPassword        = "auth_empty_password"
)

// ErrDuplicateIdentity is returned when a (role, provider, provider_key)
// triple already exists among non-deleted credentials.
var ErrDuplicateIdentity = goerrors.New("identity already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentity).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentials is returned for any login failure. Unknown identity
// and wrong secret share this value so the response never reveals which
// field was wrong.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenInvalid is returned when a token fails signature or structural
// verification.
var ErrTokenInvalid = goerrors.New("token invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when a token's exp claim has lapsed.
var ErrTokenExpired = goerrors.New("token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrIssuerMismatch is returned when a token carries the wrong iss claim.
var ErrIssuerMismatch = goerrors.New("token issuer mismatch", goerrors.CategoryAuth).
	WithTextCode(TextCodeIssuerMismatch).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionNotFound is returned when a refresh token has no active session:
// never issued, already rotated away, revoked, or presented under the wrong
// role.
var ErrSessionNotFound = goerrors.New("session not found or revoked", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrRoleMismatch is returned when an access token is used outside its
// role's endpoints.
var ErrRoleMismatch = goerrors.New("role mismatch", goerrors.CategoryAuth).
	WithTextCode(TextCodeRoleMismatch).
	WithCode(goerrors.CodeForbidden)

// ErrPrincipalDeactivated is returned when the owning account of a session
// has been soft-deleted.
var ErrPrincipalDeactivated = goerrors.New("principal deactivated", goerrors.CategoryAuth).
	WithTextCode(TextCodePrincipalDeactivated).
	WithCode(goerrors.CodeForbidden)

// ErrTooManyLoginAttempts is returned while a credential is inside its
// failed-attempt cooldown window.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrNoEmptyString is returned when a secret to be hashed is empty.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// HasTextCode reports whether err (or any wrapped error) carries the given
// taxonomy text code. Callers branch on codes, never on message strings.
func HasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == textCode
}

// IsDuplicateIdentity checks for registration conflicts.
func IsDuplicateIdentity(err error) bool {
	return HasTextCode(err, TextCodeDuplicateIdentity)
}

// IsInvalidCredentials checks for login failures.
func IsInvalidCredentials(err error) bool {
	return HasTextCode(err, TextCodeInvalidCredentials)
}

// IsTokenInvalid checks for signature or structural token failures.
func IsTokenInvalid(err error) bool {
	return HasTextCode(err, TextCodeTokenInvalid)
}

// IsTokenExpired checks for lapsed tokens.
func IsTokenExpired(err error) bool {
	return HasTextCode(err, TextCodeTokenExpired)
}

// IsIssuerMismatch checks for wrong-issuer tokens.
func IsIssuerMismatch(err error) bool {
	return HasTextCode(err, TextCodeIssuerMismatch)
}

// IsSessionNotFound checks for refresh attempts against a dead, unknown, or
// already rotated session.
func IsSessionNotFound(err error) bool {
	return HasTextCode(err, TextCodeSessionNotFound)
}

// IsRoleMismatch checks for tokens used outside their role namespace.
func IsRoleMismatch(err error) bool {
	return HasTextCode(err, TextCodeRoleMismatch)
}

// IsPrincipalDeactivated checks for sessions owned by a soft-deleted account.
func IsPrincipalDeactivated(err error) bool {
	return HasTextCode(err, TextCodePrincipalDeactivated)
}
