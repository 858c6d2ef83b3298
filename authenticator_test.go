package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armonia-cms/auth"
	"github.com/armonia-cms/auth/idp"
)

// fakeProvider stands in for an external identity provider and records what
// the flow hands it.
type fakeProvider struct {
	name         string
	profile      *idp.Profile
	exchangeErr  error
	profileErr   error
	gotCode      string
	gotVerifier  string
	gotChallenge string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthCodeURL(state string, opts ...idp.AuthCodeOption) string {
	cfg := idp.ApplyAuthCodeOptions(nil, opts...)
	p.gotChallenge = cfg.CodeChallenge
	return "https://idp.example.com/authorize?state=" + state
}

func (p *fakeProvider) Exchange(ctx context.Context, code string, opts ...idp.ExchangeOption) (*idp.Token, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	cfg := idp.ApplyExchangeOptions(opts...)
	p.gotCode = code
	p.gotVerifier = cfg.CodeVerifier
	return &idp.Token{AccessToken: "access-token", TokenType: "Bearer"}, nil
}

func (p *fakeProvider) FetchProfile(ctx context.Context, token *idp.Token) (*idp.Profile, error) {
	if p.profileErr != nil {
		return nil, p.profileErr
	}
	return p.profile, nil
}

func testConfig() *auth.EnvConfig {
	return &auth.EnvConfig{
		SigningKey:  "authenticator-test-signing-key!!",
		SessionLife: time.Hour,
		Issuer:      "armonia",
		Audience:    []string{"admin"},
		AdminEmail:  "admin@example.com",
	}
}

func testStateManager() *idp.EncryptedStateManager {
	return idp.NewEncryptedStateManager(
		[]byte("0123456789abcdef0123456789abcdef"),
		[]byte("fedcba9876543210fedcba9876543210"),
		10*time.Minute,
	)
}

func newTestAuther(t *testing.T, providers ...idp.Provider) (*auth.Auther, auth.Users) {
	t.Helper()
	directory := setupUsersRepo(t)
	auther := auth.NewAuthenticator(idp.NewRegistry(providers...), directory, testConfig()).
		WithStateManager(testStateManager())
	return auther, directory
}

func TestBeginSignInNoProviders(t *testing.T) {
	auther, _ := newTestAuther(t)

	_, err := auther.BeginSignIn(context.Background(), "google", "/")
	assert.ErrorIs(t, err, auth.ErrNoProviderConfigured)
}

func TestBeginSignInUnknownProvider(t *testing.T) {
	auther, _ := newTestAuther(t, &fakeProvider{name: "google"})

	_, err := auther.BeginSignIn(context.Background(), "facebook", "/")
	assert.Error(t, err)
}

func TestBeginSignIn(t *testing.T) {
	provider := &fakeProvider{name: "google"}
	auther, _ := newTestAuther(t, provider)

	redirect, err := auther.BeginSignIn(context.Background(), "google", "/posts")
	require.NoError(t, err)

	assert.Equal(t, "google", redirect.Provider)
	assert.True(t, strings.HasPrefix(redirect.URL, "https://idp.example.com/authorize?state="))
	require.NotEmpty(t, redirect.State)

	state, err := testStateManager().Decode(redirect.State)
	require.NoError(t, err)
	assert.Equal(t, "google", state.Provider)
	assert.Equal(t, "/posts", state.RedirectURL)
	require.NotEmpty(t, state.CodeVerifier)

	assert.Equal(t, idp.ComputeCodeChallenge(state.CodeVerifier), provider.gotChallenge,
		"authorization request carries the S256 challenge for the state's verifier")
}

func TestCompleteSignInFirstVisit(t *testing.T) {
	provider := &fakeProvider{
		name: "google",
		profile: &idp.Profile{
			Provider:       "google",
			ProviderUserID: "g-123",
			Email:          "Maria@Example.com",
			EmailVerified:  true,
			DisplayName:    "Maria",
		},
	}
	auther, directory := newTestAuther(t, provider)
	ctx := context.Background()

	redirect, err := auther.BeginSignIn(ctx, "google", "/posts")
	require.NoError(t, err)

	result, err := auther.CompleteSignIn(ctx, "google", "the-code", redirect.State)
	require.NoError(t, err)

	assert.Equal(t, "the-code", provider.gotCode)
	assert.NotEmpty(t, provider.gotVerifier, "exchange carries the verifier from the state")

	require.NotNil(t, result.User)
	assert.Equal(t, "maria@example.com", result.User.Email)
	assert.Equal(t, auth.RoleViewer, result.User.Role)
	assert.Equal(t, auth.PromotionNotApplicable, result.Promotion.Outcome)
	assert.Equal(t, "/posts", result.RedirectURL)

	claims, err := auther.TokenService().Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID.String(), claims.UserID())
	assert.Equal(t, "viewer", claims.Role())

	stored, err := directory.FindByEmail(ctx, "maria@example.com")
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, stored.ID)
}

func TestCompleteSignInPromotesAdmin(t *testing.T) {
	provider := &fakeProvider{
		name: "google",
		profile: &idp.Profile{
			Provider:      "google",
			Email:         "Admin@Example.com",
			EmailVerified: true,
			DisplayName:   "The Admin",
		},
	}
	auther, directory := newTestAuther(t, provider)
	ctx := context.Background()

	redirect, err := auther.BeginSignIn(ctx, "google", "")
	require.NoError(t, err)

	result, err := auther.CompleteSignIn(ctx, "google", "the-code", redirect.State)
	require.NoError(t, err)

	assert.Equal(t, auth.PromotionApplied, result.Promotion.Outcome)
	assert.Equal(t, auth.RoleAdmin, result.User.Role)

	claims, err := auther.TokenService().Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role())

	guard := auth.NewGuard(auther.TokenService())
	_, decision, err := guard.Evaluate(result.Token, auth.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	stored, err := directory.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, stored.Role)
}

func TestCompleteSignInUnverifiedAdminEmailStaysViewer(t *testing.T) {
	provider := &fakeProvider{
		name: "google",
		profile: &idp.Profile{
			Provider:      "google",
			Email:         "admin@example.com",
			EmailVerified: false,
			DisplayName:   "Somebody Else",
		},
	}
	auther, directory := newTestAuther(t, provider)
	ctx := context.Background()

	redirect, err := auther.BeginSignIn(ctx, "google", "")
	require.NoError(t, err)

	result, err := auther.CompleteSignIn(ctx, "google", "the-code", redirect.State)
	require.NoError(t, err)

	assert.Equal(t, auth.PromotionNotApplicable, result.Promotion.Outcome)
	assert.Equal(t, auth.RoleViewer, result.User.Role)

	claims, err := auther.TokenService().Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "viewer", claims.Role())

	stored, err := directory.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleViewer, stored.Role)
}

func TestCompleteSignInSecondVisitKeepsRole(t *testing.T) {
	provider := &fakeProvider{
		name: "google",
		profile: &idp.Profile{
			Provider:    "google",
			Email:       "maria@example.com",
			DisplayName: "Maria",
		},
	}
	auther, directory := newTestAuther(t, provider)
	ctx := context.Background()

	redirect, err := auther.BeginSignIn(ctx, "google", "")
	require.NoError(t, err)

	first, err := auther.CompleteSignIn(ctx, "google", "the-code", redirect.State)
	require.NoError(t, err)

	// An operator grants editor between visits.
	_, err = directory.SetRole(ctx, first.User.ID, auth.RoleEditor)
	require.NoError(t, err)

	redirect, err = auther.BeginSignIn(ctx, "google", "")
	require.NoError(t, err)

	second, err := auther.CompleteSignIn(ctx, "google", "the-code", redirect.State)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, auth.RoleEditor, second.User.Role)

	claims, err := auther.TokenService().Validate(second.Token)
	require.NoError(t, err)
	assert.Equal(t, "editor", claims.Role())
}

func TestCompleteSignInStateMismatch(t *testing.T) {
	google := &fakeProvider{name: "google", profile: &idp.Profile{Email: "a@b.c"}}
	github := &fakeProvider{name: "github", profile: &idp.Profile{Email: "a@b.c"}}
	auther, _ := newTestAuther(t, google, github)
	ctx := context.Background()

	redirect, err := auther.BeginSignIn(ctx, "github", "")
	require.NoError(t, err)

	_, err = auther.CompleteSignIn(ctx, "google", "the-code", redirect.State)
	assert.ErrorIs(t, err, idp.ErrInvalidState)
}

func TestCompleteSignInTamperedState(t *testing.T) {
	provider := &fakeProvider{name: "google", profile: &idp.Profile{Email: "a@b.c"}}
	auther, _ := newTestAuther(t, provider)

	_, err := auther.CompleteSignIn(context.Background(), "google", "the-code", "bogus-state")
	assert.Error(t, err)
}

func TestCompleteSignInExchangeFailure(t *testing.T) {
	provider := &fakeProvider{
		name:        "google",
		exchangeErr: assert.AnError,
	}
	auther, _ := newTestAuther(t, provider)
	ctx := context.Background()

	redirect, err := auther.BeginSignIn(ctx, "google", "")
	require.NoError(t, err)

	var events []auth.ActivityEvent
	auther.WithActivitySink(auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		events = append(events, event)
		return nil
	}))

	_, err = auther.CompleteSignIn(ctx, "google", "the-code", redirect.State)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity provider exchange failed")

	require.NotEmpty(t, events)
	assert.Equal(t, auth.ActivityEventSignInFailure, events[0].EventType)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, "exchange", richErr.Metadata["stage"])

	var stage *goerrors.Error
	require.True(t, goerrors.As(richErr.Source, &stage))
	assert.Equal(t, idp.TextCodeExchangeFail, stage.TextCode)

	assert.ErrorIs(t, err, assert.AnError, "original cause stays reachable")
}

func TestCompleteSignInProfileFailure(t *testing.T) {
	provider := &fakeProvider{
		name:       "google",
		profileErr: assert.AnError,
	}
	auther, _ := newTestAuther(t, provider)
	ctx := context.Background()

	redirect, err := auther.BeginSignIn(ctx, "google", "")
	require.NoError(t, err)

	_, err = auther.CompleteSignIn(ctx, "google", "the-code", redirect.State)
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, "profile", richErr.Metadata["stage"])

	var stage *goerrors.Error
	require.True(t, goerrors.As(richErr.Source, &stage))
	assert.Equal(t, idp.TextCodeProfileFail, stage.TextCode)
}

func TestRefreshSession(t *testing.T) {
	provider := &fakeProvider{
		name: "google",
		profile: &idp.Profile{
			Email:       "maria@example.com",
			DisplayName: "Maria",
		},
	}
	auther, _ := newTestAuther(t, provider)
	ctx := context.Background()

	redirect, err := auther.BeginSignIn(ctx, "google", "")
	require.NoError(t, err)

	result, err := auther.CompleteSignIn(ctx, "google", "the-code", redirect.State)
	require.NoError(t, err)

	newName := "Maria Lopez"
	refreshed, err := auther.RefreshSession(result.Token, auth.ClaimsPatch{DisplayName: &newName})
	require.NoError(t, err)

	claims, err := auther.TokenService().Validate(refreshed)
	require.NoError(t, err)
	assert.Equal(t, "viewer", claims.Role())

	original, err := auther.TokenService().Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, original.Expires().Unix(), claims.Expires().Unix())
}

func TestClaimsDecoratorEnrichesToken(t *testing.T) {
	provider := &fakeProvider{
		name:    "google",
		profile: &idp.Profile{Email: "maria@example.com", DisplayName: "Maria"},
	}
	auther, _ := newTestAuther(t, provider)
	ctx := context.Background()

	decorator := auth.ClaimsDecoratorFunc(func(ctx context.Context, identity auth.Identity, claims *auth.JWTClaims) error {
		claims.DisplayName = identity.DisplayName() + " (staff)"
		return nil
	})
	auther.WithClaimsDecorator(decorator)

	redirect, err := auther.BeginSignIn(ctx, "google", "")
	require.NoError(t, err)

	result, err := auther.CompleteSignIn(ctx, "google", "the-code", redirect.State)
	require.NoError(t, err)

	session, err := auther.SessionFromToken(result.Token)
	require.NoError(t, err)

	so, ok := session.(*auth.SessionObject)
	require.True(t, ok)
	assert.Equal(t, "Maria (staff)", so.DisplayName)
}

func TestClaimsDecoratorErrorStopsSignIn(t *testing.T) {
	provider := &fakeProvider{
		name:    "google",
		profile: &idp.Profile{Email: "maria@example.com", DisplayName: "Maria"},
	}
	auther, _ := newTestAuther(t, provider)
	ctx := context.Background()

	auther.WithClaimsDecorator(auth.ClaimsDecoratorFunc(func(ctx context.Context, identity auth.Identity, claims *auth.JWTClaims) error {
		return assert.AnError
	}))

	redirect, err := auther.BeginSignIn(ctx, "google", "")
	require.NoError(t, err)

	_, err = auther.CompleteSignIn(ctx, "google", "the-code", redirect.State)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestClaimsDecoratorImmutableGuard(t *testing.T) {
	provider := &fakeProvider{
		name:    "google",
		profile: &idp.Profile{Email: "maria@example.com", DisplayName: "Maria"},
	}
	auther, _ := newTestAuther(t, provider)
	ctx := context.Background()

	auther.WithClaimsDecorator(auth.ClaimsDecoratorFunc(func(ctx context.Context, identity auth.Identity, claims *auth.JWTClaims) error {
		claims.UserRole = "admin"
		return nil
	}))

	redirect, err := auther.BeginSignIn(ctx, "google", "")
	require.NoError(t, err)

	_, err = auther.CompleteSignIn(ctx, "google", "the-code", redirect.State)
	assert.ErrorIs(t, err, auth.ErrImmutableClaimMutation)
}

func TestSessionFromToken(t *testing.T) {
	provider := &fakeProvider{
		name:    "google",
		profile: &idp.Profile{Email: "maria@example.com", DisplayName: "Maria"},
	}
	auther, _ := newTestAuther(t, provider)
	ctx := context.Background()

	redirect, err := auther.BeginSignIn(ctx, "google", "")
	require.NoError(t, err)

	result, err := auther.CompleteSignIn(ctx, "google", "the-code", redirect.State)
	require.NoError(t, err)

	session, err := auther.SessionFromToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID.String(), session.GetUserID())

	_, err = auther.SessionFromToken("garbage")
	assert.Error(t, err)
}
