package sessionauth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/helioslab/sessionauth/middleware/jwtware"
)

// Guard converts bearer access tokens into typed principals. Access tokens
// are verified statelessly: no registry lookup happens on this path, so a
// revoked session's outstanding access tokens simply age out within the
// short access window.
type Guard struct {
	tokens TokenService
	logger Logger
}

// NewGuard returns a new Guard backed by the given token service.
func NewGuard(tokens TokenService) *Guard {
	return &Guard{
		tokens: tokens,
		logger: defLogger{},
	}
}

func (g *Guard) WithLogger(logger Logger) *Guard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Authenticate verifies the access token's signature, expiry, and issuer,
// then resolves it to a Principal. When a required role is given, a token
// minted for any other role fails ErrRoleMismatch even though its signature
// verifies.
func (g *Guard) Authenticate(accessToken string, requiredRole ...Role) (Principal, error) {
	claims, err := g.tokens.VerifyAccess(accessToken)
	if err != nil {
		return Principal{}, err
	}

	role, ok := claims.PrincipalRole()
	if !ok {
		return Principal{}, ErrTokenInvalid
	}

	if len(requiredRole) > 0 && requiredRole[0] != "" && role != requiredRole[0] {
		return Principal{}, ErrRoleMismatch.Clone().WithMetadata(map[string]any{
			"required": requiredRole[0].String(),
			"token":    role.String(),
		})
	}

	return Principal{ID: claims.UserID(), Role: role}, nil
}

// ProtectedRoute builds router middleware that runs the guard on every
// request and stores the verified claims under the configured context key.
func (g *Guard) ProtectedRoute(cfg Config, requiredRole Role, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return jwtware.New(jwtware.Config{
			ErrorHandler: errorHandler,
			SigningKey: jwtware.SigningKey{
				Key:    []byte(cfg.GetSigningKey()),
				JWTAlg: cfg.GetSigningMethod(),
			},
			AuthScheme:     cfg.GetAuthScheme(),
			ContextKey:     cfg.GetContextKey(),
			TokenLookup:    cfg.GetTokenLookup(),
			RequiredRole:   requiredRole.String(),
			TokenValidator: guardValidator{g},
			ContextEnricher: func(c context.Context, claims jwtware.AuthClaims) context.Context {
				return enrichContext(c, claims)
			},
		})(hf)
	}
}

// MakeAuthErrorHandler translates guard failures for client routes. With
// optional auth the request proceeds unauthenticated instead of failing.
func (g *Guard) MakeAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		switch {
		case IsTokenExpired(err):
			richErr = ErrTokenExpired
		case IsRoleMismatch(err):
			richErr = ErrRoleMismatch
		default:
			richErr = errors.Wrap(err, errors.CategoryAuth, "invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			g.logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return ctx.JSON(statusForError(richErr), map[string]string{
			"error": richErr.Message,
		})
	}
}

// guardValidator adapts the Guard to the jwtware TokenValidator interface.
type guardValidator struct {
	guard *Guard
}

func (v guardValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.guard.tokens.VerifyAccess(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func enrichContext(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}

	ctxWithClaims := WithClaimsContext(c, authClaims)

	if role, valid := ParseRole(authClaims.Role()); valid {
		return WithPrincipalContext(ctxWithClaims, Principal{
			ID:   authClaims.UserID(),
			Role: role,
		})
	}

	return ctxWithClaims
}
