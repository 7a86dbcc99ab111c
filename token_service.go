package sessionauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTokenTTL bounds how long a revoked principal can keep
	// making requests, since access tokens are never session-checked.
	DefaultAccessTokenTTL = time.Hour
	// DefaultRefreshTokenTTL bounds an idle session's lifetime.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenServiceImpl implements the TokenService interface. The signing key and
// issuer are injected at construction; nothing is read from ambient state.
type TokenServiceImpl struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     Logger
	now        func() time.Time
}

// TokenServiceOption configures a TokenServiceImpl.
type TokenServiceOption func(*TokenServiceImpl)

// WithAccessTokenTTL overrides the access token lifetime.
func WithAccessTokenTTL(ttl time.Duration) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.accessTTL = ttl
	}
}

// WithRefreshTokenTTL overrides the refresh token lifetime.
func WithRefreshTokenTTL(ttl time.Duration) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.refreshTTL = ttl
	}
}

// WithTokenLogger overrides the token service logger.
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithClock overrides the time source, used to exercise expiry boundaries.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, issuer string, opts ...TokenServiceOption) *TokenServiceImpl {
	ts := &TokenServiceImpl{
		signingKey: signingKey,
		issuer:     issuer,
		accessTTL:  DefaultAccessTokenTTL,
		refreshTTL: DefaultRefreshTokenTTL,
		logger:     defLogger{},
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

var _ TokenService = (*TokenServiceImpl)(nil)

// Issue mints a signed access/refresh pair for the principal. The refresh
// token carries a random nonce so two issuances for the same principal are
// never byte-identical.
func (ts *TokenServiceImpl) Issue(principalID string, role Role) (*TokenPair, error) {
	now := ts.now()
	accessExpires := now.Add(ts.accessTTL)
	refreshExpires := now.Add(ts.refreshTTL)

	access, err := ts.SignClaims(ts.claims(principalID, role, TokenKindAccess, now, accessExpires))
	if err != nil {
		return nil, err
	}

	refreshClaims := ts.claims(principalID, role, TokenKindRefresh, now, refreshExpires)
	refreshClaims.Nonce = uuid.NewString()
	refresh, err := ts.SignClaims(refreshClaims)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		Access:           access,
		Refresh:          refresh,
		AccessExpiresAt:  accessExpires,
		RefreshExpiresAt: refreshExpires,
	}, nil
}

func (ts *TokenServiceImpl) claims(principalID string, role Role, kind TokenKind, issuedAt, expiresAt time.Time) *TokenClaims {
	return &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   principalID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:       principalID,
		TokenRole: role.String(),
		TokenKind: kind,
	}
}

// SignClaims signs arbitrary token claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *TokenClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// VerifyAccess parses and validates an access token string.
func (ts *TokenServiceImpl) VerifyAccess(tokenString string) (*TokenClaims, error) {
	return ts.verify(tokenString, TokenKindAccess)
}

// VerifyRefresh parses and validates a refresh token string. Callers must
// still cross-check the registry before honoring the token.
func (ts *TokenServiceImpl) VerifyRefresh(tokenString string) (*TokenClaims, error) {
	return ts.verify(tokenString, TokenKindRefresh)
}

func (ts *TokenServiceImpl) verify(tokenString string, kind TokenKind) (*TokenClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, ErrIssuerMismatch
		default:
			return nil, errors.Wrap(err, ErrTokenInvalid.Category, ErrTokenInvalid.Message).
				WithTextCode(ErrTokenInvalid.TextCode)
		}
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService verify could not decode or validate claims")
		return nil, ErrTokenInvalid
	}

	if claims.TokenKind != kind {
		return nil, errors.New(
			fmt.Sprintf("expected %s token, got %s", kind, claims.TokenKind),
			ErrTokenInvalid.Category,
		).WithTextCode(ErrTokenInvalid.TextCode)
	}

	if _, valid := claims.PrincipalRole(); !valid {
		return nil, errors.New("token carries an unknown role", ErrTokenInvalid.Category).
			WithTextCode(ErrTokenInvalid.TextCode)
	}

	return claims, nil
}
