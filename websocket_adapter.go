package sessionauth

import (
	"context"

	"github.com/goliatone/go-router"
)

// WSTokenValidator implements go-router's WSTokenValidator interface using
// the TokenService, so WebSocket upgrades verify the same access tokens as
// HTTP routes.
type WSTokenValidator struct {
	tokens TokenService
}

// NewWSTokenValidator creates a WebSocket token validator backed by the
// provided TokenService.
func NewWSTokenValidator(tokens TokenService) *WSTokenValidator {
	return &WSTokenValidator{
		tokens: tokens,
	}
}

// Validate verifies an access token string and returns WebSocket-compatible
// auth claims.
func (w *WSTokenValidator) Validate(tokenString string) (router.WSAuthClaims, error) {
	claims, err := w.tokens.VerifyAccess(tokenString)
	if err != nil {
		return nil, err
	}
	return &WSAuthClaimsAdapter{claims: claims}, nil
}

// WSAuthClaimsAdapter adapts AuthClaims to go-router's WSAuthClaims
// interface. Roles here are a flat, closed set, so the resource-permission
// methods reduce to role checks: administrative roles may mutate, every
// authenticated principal may read.
type WSAuthClaimsAdapter struct {
	claims AuthClaims
}

// Subject returns the subject claim
func (w *WSAuthClaimsAdapter) Subject() string {
	return w.claims.Subject()
}

// UserID returns the principal ID
func (w *WSAuthClaimsAdapter) UserID() string {
	return w.claims.UserID()
}

// Role returns the principal's role
func (w *WSAuthClaimsAdapter) Role() string {
	return w.claims.Role()
}

// CanRead reports whether the principal can read a resource. Any
// authenticated principal can.
func (w *WSAuthClaimsAdapter) CanRead(resource string) bool {
	return w.claims.UserID() != ""
}

// CanEdit reports whether the principal can edit a resource.
func (w *WSAuthClaimsAdapter) CanEdit(resource string) bool {
	return w.isAdministrative()
}

// CanCreate reports whether the principal can create a resource.
func (w *WSAuthClaimsAdapter) CanCreate(resource string) bool {
	return w.isAdministrative()
}

// CanDelete reports whether the principal can delete a resource.
func (w *WSAuthClaimsAdapter) CanDelete(resource string) bool {
	return w.isAdministrative()
}

// HasRole checks whether the principal holds the given role exactly.
func (w *WSAuthClaimsAdapter) HasRole(role string) bool {
	return w.claims.HasRole(role)
}

// IsAtLeast checks role membership. Roles are flat with no ordering, so
// this is an exact match.
func (w *WSAuthClaimsAdapter) IsAtLeast(minRole string) bool {
	return w.claims.HasRole(minRole)
}

func (w *WSAuthClaimsAdapter) isAdministrative() bool {
	switch w.claims.Role() {
	case RoleAdmin.String(), RoleSystemAdmin.String(), RoleOrganizationAdmin.String():
		return true
	}
	return false
}

// NewWSAuthMiddleware creates a fully configured WebSocket authentication
// middleware using the authenticator's TokenService.
func (s *Auther) NewWSAuthMiddleware(config ...router.WSAuthConfig) router.WebSocketMiddleware {
	validator := NewWSTokenValidator(s.tokens)

	var cfg router.WSAuthConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	cfg.TokenValidator = validator

	return router.NewWSAuth(cfg)
}

// WSAuthClaimsFromContext retrieves the auth claims placed in the WebSocket
// context by the middleware. It unwraps the adapter so callers get the
// underlying AuthClaims.
func WSAuthClaimsFromContext(ctx context.Context) (AuthClaims, bool) {
	wsAuthClaims, ok := router.WSAuthClaimsFromContext(ctx)
	if !ok {
		return nil, false
	}

	if adapter, ok := wsAuthClaims.(*WSAuthClaimsAdapter); ok {
		return adapter.claims, true
	}

	return nil, false
}
