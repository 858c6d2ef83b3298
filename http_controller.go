package auth

import (
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// GetRouterSession pulls the decoded session out of the router context
// after the guard middleware has run.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrUnableToFindSession
	}

	claims, ok := raw.(AuthClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToDecodeSession
	}

	return sessionFromAuthClaims(claims)
}

// RegisterAuthRoutes mounts the sign-in flow on the given router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")

	app.Get(controller.Routes.Provider, controller.ProviderRedirect).
		SetName("sign-in.provider")

	app.Get(controller.Routes.Callback, controller.ProviderCallback).
		SetName("sign-in.callback")

	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.get")

	app.Get(controller.Routes.AccessDenied, controller.AccessDeniedShow).
		SetName("access-denied.get")
}

type AuthControllerRoutes struct {
	Login        string
	Provider     string
	Callback     string
	Logout       string
	AccessDenied string
}

type AuthControllerViews struct {
	Login        string
	AccessDenied string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Config       Config
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	Auther       *Auther
	HTTP         *RouteAuthenticator
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:        "/login",
			Provider:     "/auth/:provider",
			Callback:     "/auth/:provider/callback",
			Logout:       "/logout",
			AccessDenied: "/access-denied",
		},
		Views: &AuthControllerViews{
			Login:        "login",
			AccessDenied: "access_denied",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}

	if c.HTTP == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	return c
}

func WithControllerAuther(auther *Auther) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerHTTP(http *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.HTTP = http
		return c
	}
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

// LoginShow renders the sign-in page with the configured provider list.
// With no providers configured the view gets an empty list and shows a
// setup notice instead of sign-in buttons.
func (a *AuthController) LoginShow(ctx router.Context) error {
	providers := a.Auther.Providers().Names()

	return ctx.Render(a.Views.Login, router.ViewContext{
		"providers":      providers,
		"has_providers":  len(providers) > 0,
		"rejected_route": ctx.Cookies(a.Config.GetRejectedRouteKey()),
	})
}

// ProviderRedirect starts the sign-in flow by sending the visitor to the
// identity provider's consent screen.
func (a *AuthController) ProviderRedirect(ctx router.Context) error {
	providerName := ctx.Param("provider", "")

	redirect, err := a.Auther.BeginSignIn(ctx.Context(), providerName, a.HTTP.GetRedirect(ctx, a.Config.GetHomeRoute()))
	if err != nil {
		a.Logger.Error("Sign in begin failed", "provider", providerName, "error", err)
		return ctx.Redirect(a.Config.GetSignInRoute(), router.StatusSeeOther)
	}

	return ctx.Redirect(redirect.URL, router.StatusFound)
}

// ProviderCallback completes the sign-in flow. Any failure collapses to a
// redirect back to the sign-in page; details stay in the server log.
func (a *AuthController) ProviderCallback(ctx router.Context) error {
	providerName := ctx.Param("provider", "")
	code := ctx.Query("code", "")
	state := ctx.Query("state", "")

	result, err := a.Auther.CompleteSignIn(ctx.Context(), providerName, code, state)
	if err != nil {
		a.Logger.Error("Sign in callback failed", "provider", providerName, "error", err)
		return ctx.Redirect(a.Config.GetSignInRoute(), router.StatusSeeOther)
	}

	if a.Debug {
		a.Logger.Debug("Sign in complete", "user", print.MaybePrettyJSON(result.User))
	}

	a.HTTP.StartSession(ctx, result.Token)

	redirect := result.RedirectURL
	if redirect == "" {
		redirect = a.HTTP.GetRedirect(ctx, a.Config.GetHomeRoute())
	}

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

// LogOut clears the session cookie. The token itself stays valid until it
// expires; sign-out is a client-side affair.
func (a *AuthController) LogOut(ctx router.Context) error {
	a.HTTP.EndSession(ctx)
	return ctx.Redirect(a.Config.GetHomeRoute(), router.StatusTemporaryRedirect)
}

// AccessDeniedShow renders the access denied page. The view auto-redirects
// to the home route after the configured delay.
func (a *AuthController) AccessDeniedShow(ctx router.Context) error {
	return ctx.Render(a.Views.AccessDenied, router.ViewContext{
		"home_route":     a.Config.GetHomeRoute(),
		"redirect_delay": int(a.Config.GetAccessDeniedDelay().Seconds()),
	})
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
