package jwtware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"

	"github.com/helioslab/sessionauth/middleware/jwtware"
)

type stubClaims struct {
	subject string
	role    string
	kind    string
}

func (s stubClaims) Subject() string { return s.subject }
func (s stubClaims) UserID() string  { return s.subject }
func (s stubClaims) Role() string    { return s.role }
func (s stubClaims) Kind() string    { return s.kind }
func (s stubClaims) HasRole(role string) bool {
	return s.role == role
}

type stubValidator struct {
	claims jwtware.AuthClaims
	err    error

	seen string
}

func (s *stubValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	s.seen = tokenString
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func runMiddleware(mw router.MiddlewareFunc, ctx router.Context) error {
	handler := mw(func(c router.Context) error { return nil })
	return handler(ctx)
}

func TestMiddlewareAcceptsHeaderToken(t *testing.T) {
	validator := &stubValidator{
		claims: stubClaims{subject: "u-1", role: "member", kind: "access"},
	}

	mw := jwtware.New(jwtware.Config{
		SigningKey:     jwtware.SigningKey{Key: []byte("test-secret"), JWTAlg: "HS256"},
		TokenValidator: validator,
		ErrorHandler: func(c router.Context, err error) error {
			return err
		},
	})

	ctx := router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer token-abc"
	ctx.On("GetString", "Authorization", "").Return("Bearer token-abc")
	ctx.On("Locals", "user", mock.Anything).Return(nil)

	if err := runMiddleware(mw, ctx); err != nil {
		t.Fatalf("unexpected error for valid token: %v", err)
	}
	if !ctx.NextCalled {
		t.Error("expected Next to be invoked on success")
	}
	if validator.seen != "token-abc" {
		t.Errorf("validator saw %q, want token-abc", validator.seen)
	}
}

func TestMiddlewareMissingToken(t *testing.T) {
	mw := jwtware.New(jwtware.Config{
		SigningKey:     jwtware.SigningKey{Key: []byte("test-secret"), JWTAlg: "HS256"},
		TokenValidator: &stubValidator{claims: stubClaims{}},
		ErrorHandler: func(c router.Context, err error) error {
			return err
		},
	})

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("")

	err := runMiddleware(mw, ctx)
	if err == nil {
		t.Fatal("expected error for missing token, got nil")
	}
	if !strings.Contains(err.Error(), jwtware.ErrJWTMissingOrMalformed.Error()) {
		t.Errorf("expected missing token error, got: %v", err)
	}
}

func TestMiddlewareValidatorRejection(t *testing.T) {
	mw := jwtware.New(jwtware.Config{
		SigningKey:     jwtware.SigningKey{Key: []byte("test-secret"), JWTAlg: "HS256"},
		TokenValidator: &stubValidator{err: errors.New("token is expired")},
		ErrorHandler: func(c router.Context, err error) error {
			return err
		},
	})

	ctx := router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer stale-token"
	ctx.On("GetString", "Authorization", "").Return("Bearer stale-token")

	err := runMiddleware(mw, ctx)
	if err == nil || !strings.Contains(err.Error(), "token is expired") {
		t.Fatalf("expected validator rejection, got: %v", err)
	}
	if ctx.NextCalled {
		t.Error("Next must not run after a rejected token")
	}
}

func TestMiddlewareRequiredRole(t *testing.T) {
	newConfig := func(required string) jwtware.Config {
		return jwtware.Config{
			SigningKey:     jwtware.SigningKey{Key: []byte("test-secret"), JWTAlg: "HS256"},
			TokenValidator: &stubValidator{claims: stubClaims{subject: "u-1", role: "member"}},
			RequiredRole:   required,
			ErrorHandler: func(c router.Context, err error) error {
				return err
			},
		}
	}

	// matching role passes
	ctx := router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer t"
	ctx.On("GetString", "Authorization", "").Return("Bearer tok")
	ctx.On("Locals", "user", mock.Anything).Return(nil)
	if err := runMiddleware(jwtware.New(newConfig("member")), ctx); err != nil {
		t.Fatalf("expected role match to pass, got %v", err)
	}

	// roles are flat, no hierarchy: any other role is denied
	ctx = router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer tok")
	err := runMiddleware(jwtware.New(newConfig("admin")), ctx)
	if err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Fatalf("expected access denied for role mismatch, got: %v", err)
	}
}

func TestMiddlewareFilterSkips(t *testing.T) {
	mw := jwtware.New(jwtware.Config{
		SigningKey:     jwtware.SigningKey{Key: []byte("test-secret"), JWTAlg: "HS256"},
		TokenValidator: &stubValidator{err: errors.New("must not be called")},
		Filter: func(router.Context) bool {
			return true
		},
	})

	ctx := router.NewMockContext()
	if err := runMiddleware(mw, ctx); err != nil {
		t.Fatalf("expected filter to skip validation, got %v", err)
	}
	if !ctx.NextCalled {
		t.Error("expected Next to be invoked when filtered")
	}
}

func TestMiddlewareCookieLookup(t *testing.T) {
	validator := &stubValidator{claims: stubClaims{subject: "u-1", role: "member"}}
	mw := jwtware.New(jwtware.Config{
		SigningKey:     jwtware.SigningKey{Key: []byte("test-secret"), JWTAlg: "HS256"},
		TokenValidator: validator,
		TokenLookup:    "cookie:app_session",
		ErrorHandler: func(c router.Context, err error) error {
			return err
		},
	})

	ctx := router.NewMockContext()
	ctx.CookiesM["app_session"] = "cookie-token"
	ctx.On("Locals", "user", mock.Anything).Return(nil)

	if err := runMiddleware(mw, ctx); err != nil {
		t.Fatalf("unexpected error for cookie token: %v", err)
	}
	if validator.seen != "cookie-token" {
		t.Errorf("validator saw %q, want cookie-token", validator.seen)
	}
}

func TestGetExtractors(t *testing.T) {
	extractors := jwtware.GetExtractors("header:Authorization,query:jwt,param:token,cookie:jwt_cookie")
	if len(extractors) != 4 {
		t.Fatalf("expected 4 extractors, got %d", len(extractors))
	}

	extractors = jwtware.GetExtractors("cookie:session")
	if len(extractors) != 1 {
		t.Fatalf("expected 1 extractor, got %d", len(extractors))
	}
}

func TestGetDefaultConfigRequiresValidator(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic without a TokenValidator")
		}
	}()
	jwtware.GetDefaultConfig(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte("test-secret")},
	})
}

func TestGetDefaultConfigRequiresKeySource(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic without any key source")
		}
	}()
	jwtware.GetDefaultConfig(jwtware.Config{
		TokenValidator: &stubValidator{},
	})
}

func TestGetDefaultConfigBuildsKeyfuncFromJWKSet(t *testing.T) {
	jwksJSON := `{
      "keys": [
        {
          "kty": "oct",
          "kid": "local-jwk",
          "k":   "c2VjcmV0LWtleS1ieXRlcw",
          "alg": "HS256"
        }
      ]
    }`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(jwksJSON))
	}))
	defer ts.Close()

	cfg := jwtware.GetDefaultConfig(jwtware.Config{
		JWKSetURLs:     []string{ts.URL},
		TokenValidator: &stubValidator{},
	})

	if cfg.KeyFunc == nil {
		t.Fatal("expected KeyFunc to be built from the JWK Set URL")
	}
	if cfg.ContextKey != "user" {
		t.Errorf("expected default context key, got %q", cfg.ContextKey)
	}
	if cfg.AuthScheme != "Bearer" {
		t.Errorf("expected default auth scheme, got %q", cfg.AuthScheme)
	}
}
