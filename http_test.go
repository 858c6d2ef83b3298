package auth_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/armonia-cms/auth"
	"github.com/armonia-cms/auth/middleware/jwtware"
)

func testHTTPConfig() *auth.EnvConfig {
	cfg := testConfig()
	cfg.ContextKey = "user"
	cfg.RejectedRoute = "rejected_route"
	cfg.SignInRoute = "/login"
	cfg.AccessDenied = "/access-denied"
	cfg.HomeRoute = "/"
	return cfg
}

func newTestHTTPAuthenticator(t *testing.T) *auth.RouteAuthenticator {
	t.Helper()
	auther, _ := newTestAuther(t)
	httpAuth, err := auth.NewHTTPAuthenticator(auther, testHTTPConfig())
	require.NoError(t, err)
	return httpAuth
}

func TestAuthErrorHandlerInsufficientRoleGoesToAccessDenied(t *testing.T) {
	httpAuth := newTestHTTPAuthenticator(t)

	ctx := router.NewMockContext()
	ctx.On("OriginalURL").Return("/admin/users").Maybe()
	ctx.On("Redirect", "/access-denied", []int{http.StatusSeeOther}).Return(nil)

	handler := httpAuth.MakeClientRouteAuthErrorHandler(false)

	// The denial the middleware's role check produces for a session that
	// authenticated fine but does not meet the route's minimum role.
	denial := fmt.Errorf("access denied: minimum role '%s' required: %w", auth.RoleAdmin, jwtware.ErrInsufficientRole)

	err := handler(ctx, denial)
	require.NoError(t, err)
	ctx.AssertExpectations(t)
}

func TestAuthErrorHandlerGuardVerdictGoesToAccessDenied(t *testing.T) {
	httpAuth := newTestHTTPAuthenticator(t)

	ctx := router.NewMockContext()
	ctx.On("OriginalURL").Return("/admin/users").Maybe()
	ctx.On("Redirect", "/access-denied", []int{http.StatusSeeOther}).Return(nil)

	handler := httpAuth.MakeClientRouteAuthErrorHandler(false)

	err := handler(ctx, auth.ErrInsufficientRole)
	require.NoError(t, err)
	ctx.AssertExpectations(t)
}

func TestAuthErrorHandlerExpiredTokenGoesToSignIn(t *testing.T) {
	httpAuth := newTestHTTPAuthenticator(t)

	ctx := router.NewMockContext()
	ctx.On("OriginalURL").Return("/posts").Maybe()
	ctx.On("Method").Return("GET")
	ctx.On("Redirect", "/login", []int{http.StatusFound}).Return(nil)

	var cookie *router.Cookie
	ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
		cookie = args.Get(0).(*router.Cookie)
	}).Return(nil)

	handler := httpAuth.MakeClientRouteAuthErrorHandler(false)

	err := handler(ctx, auth.ErrTokenExpired)
	require.NoError(t, err)
	ctx.AssertExpectations(t)

	require.NotNil(t, cookie, "rejected route cookie should be set so sign-in can bounce back")
	assert.Equal(t, "rejected_route", cookie.Name)
	assert.Equal(t, "/posts", cookie.Value)
}

func TestAuthErrorHandlerOptionalProceeds(t *testing.T) {
	httpAuth := newTestHTTPAuthenticator(t)

	ctx := router.NewMockContext()

	handler := httpAuth.MakeClientRouteAuthErrorHandler(true)

	err := handler(ctx, jwtware.ErrJWTMissingOrMalformed)
	require.NoError(t, err)
	assert.True(t, ctx.NextCalled, "optional routes proceed past auth failures")
}

func TestGetRedirect(t *testing.T) {
	httpAuth := newTestHTTPAuthenticator(t)

	t.Run("cookie set", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.CookiesM["rejected_route"] = "/dashboard"

		assert.Equal(t, "/dashboard", httpAuth.GetRedirect(ctx, "/home"))
	})

	t.Run("cookie empty with default", func(t *testing.T) {
		ctx := router.NewMockContext()

		assert.Equal(t, "/home", httpAuth.GetRedirect(ctx, "/home"))
	})

	t.Run("cookie empty without default", func(t *testing.T) {
		ctx := router.NewMockContext()

		assert.Equal(t, "", httpAuth.GetRedirect(ctx))
	})
}
