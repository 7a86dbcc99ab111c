package sessionauth

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

type Middleware interface {
	ProtectedRoute(cfg Config, requiredRole Role, errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

// statusForError maps a classified error to an HTTP status code. Unclassified
// errors collapse to 500 so internals never leak through the API surface.
func statusForError(err error) int {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return router.StatusInternalServerError
	}

	switch rich.Category {
	case goerrors.CategoryAuth:
		if rich.TextCode == TextCodeRoleMismatch || rich.TextCode == TextCodePrincipalDeactivated {
			return router.StatusForbidden
		}
		return router.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return router.StatusForbidden
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return router.StatusBadRequest
	}

	return router.StatusInternalServerError
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field->message map suitable for JSON responses.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["payload"] = err.Error()
	return out
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Post(controller.Routes.Join, controller.JoinPost).
		SetName("auth.join")

	app.
		Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login")

	app.
		Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("auth.refresh")

	app.
		Post(controller.Routes.Logout, controller.LogoutPost).
		SetName("auth.logout")
}

type AuthControllerRoutes struct {
	Join    string
	Login   string
	Refresh string
	Logout  string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Auther       Authenticator
	ErrorHandler router.ErrorHandler
	Routes       *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerAuthenticator(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Join:    "/auth/:role/join",
			Login:   "/auth/:role/login",
			Refresh: "/auth/:role/refresh",
			Logout:  "/auth/:role/logout",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

// JoinRequest payload
type JoinRequest struct {
	Provider    string `form:"provider" json:"provider"`
	ProviderKey string `form:"provider_key" json:"provider_key"`
	Secret      string `form:"secret" json:"secret"`
	FirstName   string `form:"first_name" json:"first_name"`
	LastName    string `form:"last_name" json:"last_name"`
	Username    string `form:"username" json:"username"`
	Email       string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r JoinRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.ProviderKey,
			validation.Required,
			validation.Length(3, 254),
		),
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Secret, validation.Length(0, 100)),
	)
}

func (a *AuthController) JoinPost(ctx router.Context) error {
	role, err := roleFromRoute(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(JoinRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("join parse payload: ", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse join payload"))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("join validate payload: ", "error", err)
		return ctx.JSON(router.StatusBadRequest, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH JOIN =======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	authorized, err := a.Auther.Join(ctx.Context(), role, JoinInput{
		Provider:    payload.Provider,
		ProviderKey: payload.ProviderKey,
		Secret:      payload.Secret,
		FirstName:   payload.FirstName,
		LastName:    payload.LastName,
		Username:    payload.Username,
		Email:       payload.Email,
	})
	if err != nil {
		a.Logger.Error("join error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, authorized)
}

// LoginRequest payload
type LoginRequest struct {
	Provider    string `form:"provider" json:"provider"`
	ProviderKey string `form:"provider_key" json:"provider_key"`
	Secret      string `form:"secret" json:"secret"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.ProviderKey
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.ProviderKey,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	role, err := roleFromRoute(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(LoginRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: ", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse login payload"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	authorized, err := a.Auther.Login(ctx.Context(), role, LoginInput{
		Provider:    payload.Provider,
		ProviderKey: payload.ProviderKey,
		Secret:      payload.Secret,
	})
	if err != nil {
		a.Logger.Error("login error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, authorized)
}

// RefreshRequest payload
type RefreshRequest struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.RefreshToken,
			validation.Required,
		),
	)
}

func (a *AuthController) RefreshPost(ctx router.Context) error {
	role, err := roleFromRoute(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(RefreshRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("refresh parse payload: ", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse refresh payload"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	tokens, err := a.Auther.Refresh(ctx.Context(), role, payload.RefreshToken)
	if err != nil {
		a.Logger.Error("refresh error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, tokens)
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	role, err := roleFromRoute(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(RefreshRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("logout parse payload: ", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse logout payload"))
	}

	if err := a.Auther.Logout(ctx.Context(), role, payload.RefreshToken); err != nil {
		a.Logger.Error("logout error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"revoked": true,
	})
}

func roleFromRoute(ctx router.Context) (Role, error) {
	raw := ctx.Param("role")
	role, ok := ParseRole(raw)
	if !ok {
		return role, goerrors.New("unknown role in route", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{
				"role": raw,
			})
	}
	return role, nil
}

func defaultErrHandler(c router.Context, err error) error {
	status := statusForError(err)

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return c.JSON(status, router.ViewContext{
			"error": router.ViewContext{
				"message":   rich.Message,
				"text_code": rich.TextCode,
			},
		})
	}

	return c.JSON(status, router.ViewContext{
		"error": router.ViewContext{
			"message": "internal error",
		},
	})
}
