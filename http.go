package sessionauth

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteAuthenticator adapts the Authenticator to browser flows: tokens live
// in HTTPOnly cookies instead of the response body, and auth failures
// redirect instead of returning JSON.
type RouteAuthenticator struct {
	auth             Authenticator
	cfg              Config
	rejectedRouteKey string
	loginRoute       string
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:              cfg,
		auth:             auther,
		Logger:           defLogger{},
		rejectedRouteKey: "rejected_route",
		loginRoute:       "/login",
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a *RouteAuthenticator) accessCookieName() string {
	return a.cfg.GetContextKey()
}

func (a *RouteAuthenticator) refreshCookieName() string {
	return a.cfg.GetContextKey() + "_refresh"
}

// Login authenticates the payload and persists the issued pair in cookies.
func (a *RouteAuthenticator) Login(ctx router.Context, role Role, payload LoginRequest) error {
	authorized, err := a.auth.Login(ctx.Context(), role, LoginInput{
		Provider:    payload.Provider,
		ProviderKey: payload.ProviderKey,
		Secret:      payload.Secret,
	})
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return err
	}

	a.setTokenCookies(ctx, authorized.Tokens)
	return nil
}

// Refresh rotates the pair stored in the refresh cookie. A missing cookie is
// treated the same as a revoked session.
func (a *RouteAuthenticator) Refresh(ctx router.Context, role Role) error {
	refreshToken := ctx.Cookies(a.refreshCookieName())
	if refreshToken == "" {
		return ErrSessionNotFound
	}

	authorized, err := a.auth.Refresh(ctx.Context(), role, refreshToken)
	if err != nil {
		a.Logger.Error("Refresh error: %s", err)
		a.clearTokenCookies(ctx)
		return err
	}

	a.setTokenCookies(ctx, authorized.Tokens)
	return nil
}

// Logout revokes the session behind the refresh cookie and clears both
// cookies. Revoking an already revoked or unknown session is a no op.
func (a *RouteAuthenticator) Logout(ctx router.Context, role Role) {
	refreshToken := ctx.Cookies(a.refreshCookieName())
	if refreshToken != "" {
		if err := a.auth.Logout(ctx.Context(), role, refreshToken); err != nil {
			a.Logger.Error("Logout error: %s", err)
		}
	}
	a.clearTokenCookies(ctx)
}

func (a *RouteAuthenticator) GetRedirect(ctx router.Context, def ...string) string {
	r := ctx.Cookies(a.rejectedRouteKey)
	if r == "" && len(def) > 0 {
		return def[0]
	}
	a.cookieDel(ctx, a.rejectedRouteKey)
	return r
}

func (a *RouteAuthenticator) SetRedirect(ctx router.Context) {
	a.Logger.Info("Setting redirect cookie", "key", a.rejectedRouteKey, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     a.rejectedRouteKey,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) setTokenCookies(c router.Context, tokens *TokenPair) {
	c.Cookie(&router.Cookie{
		Name:     a.accessCookieName(),
		Value:    tokens.Access,
		Expires:  tokens.AccessExpiresAt,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})

	c.Cookie(&router.Cookie{
		Name:     a.refreshCookieName(),
		Value:    tokens.Refresh,
		Expires:  tokens.RefreshExpiresAt,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
}

func (a *RouteAuthenticator) clearTokenCookies(c router.Context) {
	a.cookieDel(c, a.accessCookieName())
	a.cookieDel(c, a.refreshCookieName())
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error, redirecting to login",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	a.SetRedirect(c)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect(a.loginRoute, statusCode)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.JSON(statusForError(richErr), router.ViewContext{
			"error": router.ViewContext{
				"message": richErr.Message,
			},
		})
	}
}
