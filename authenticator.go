package auth

import (
	"context"
	"time"

	"github.com/armonia-cms/auth/idp"
	"github.com/golang-jwt/jwt/v5"
)

// Auther orchestrates the sign-in flow: provider exchange, directory
// resolution, admin auto-promotion, and claims issuance.
type Auther struct {
	providers       *idp.Registry
	stateManager    idp.StateManager
	directory       Users
	promoter        *Promoter
	tokenService    TokenService
	signingKey      []byte
	sessionLifetime time.Duration
	issuer          string
	audience        []string
	stateTTL        time.Duration
	logger          Logger
	activitySink    ActivitySink
	claimsDecorator ClaimsDecorator
	now             func() time.Time
}

// SignInResult is the outcome of a completed provider flow.
type SignInResult struct {
	Token       string
	User        *User
	Promotion   PromotionResult
	RedirectURL string
}

// NewAuthenticator returns a new Auther wired to an explicit provider
// registry. There is no process-global registry; the caller constructs the
// configuration once at start and passes it here.
func NewAuthenticator(providers *idp.Registry, directory Users, opts Config) *Auther {
	signingKey := []byte(opts.GetSigningKey())
	lifetime := opts.GetSessionLifetime()

	tokenService := NewTokenService(
		signingKey,
		lifetime,
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		providers:       providers,
		directory:       directory,
		promoter:        NewPromoter(directory, opts.GetAdminEmail()),
		tokenService:    tokenService,
		signingKey:      signingKey,
		sessionLifetime: lifetime,
		issuer:          opts.GetIssuer(),
		audience:        opts.GetAudience(),
		stateTTL:        10 * time.Minute,
		logger:          defLogger{},
		activitySink:    noopActivitySink{},
		claimsDecorator: noopClaimsDecorator{},
		now:             time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithStateManager sets the OAuth state codec. Required before BeginSignIn.
func (s *Auther) WithStateManager(sm idp.StateManager) *Auther {
	s.stateManager = sm
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClaimsDecorator configures a ClaimsDecorator for enriching tokens.
func (s *Auther) WithClaimsDecorator(decorator ClaimsDecorator) *Auther {
	s.claimsDecorator = normalizeClaimsDecorator(decorator)
	return s
}

// TokenService returns the TokenService instance used by this Auther.
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Providers returns the configured provider registry.
func (s *Auther) Providers() *idp.Registry {
	return s.providers
}

// BeginSignIn starts the provider flow: encode state with PKCE material and
// return the provider's authorization URL.
func (s *Auther) BeginSignIn(ctx context.Context, providerName, redirectURL string) (*idp.AuthRedirect, error) {
	if s.providers.Empty() {
		s.logger.Warn("SignIn attempted with no configured providers")
		return nil, ErrNoProviderConfigured
	}

	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	if s.stateManager == nil {
		return nil, idp.ErrInvalidState
	}

	codeVerifier, err := idp.GenerateCodeVerifier()
	if err != nil {
		return nil, err
	}

	now := s.now()
	state := &idp.OAuthState{
		Nonce:        idp.GenerateNonce(),
		Provider:     providerName,
		CodeVerifier: codeVerifier,
		RedirectURL:  redirectURL,
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(s.stateTTL).Unix(),
	}

	stateToken, err := s.stateManager.Encode(state)
	if err != nil {
		return nil, err
	}

	challenge := idp.ComputeCodeChallenge(codeVerifier)
	authURL := provider.AuthCodeURL(stateToken, idp.WithPKCE(challenge, "S256"))

	return &idp.AuthRedirect{
		URL:      authURL,
		State:    stateToken,
		Provider: providerName,
	}, nil
}

// CompleteSignIn finishes the provider flow after the callback: verify
// state, exchange the code, fetch the verified profile, resolve the
// directory record, run the promotion rule, and issue a session token.
func (s *Auther) CompleteSignIn(ctx context.Context, providerName, code, stateToken string) (*SignInResult, error) {
	if s.providers.Empty() {
		return nil, ErrNoProviderConfigured
	}

	if s.stateManager == nil {
		return nil, idp.ErrInvalidState
	}

	state, err := s.stateManager.Decode(stateToken)
	if err != nil {
		s.emitSignInFailure(ctx, providerName, "", err)
		return nil, err
	}

	if state.Provider != providerName {
		s.emitSignInFailure(ctx, providerName, "", idp.ErrInvalidState)
		return nil, idp.ErrInvalidState
	}

	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	token, err := provider.Exchange(ctx, code, idp.WithCodeVerifier(state.CodeVerifier))
	if err != nil {
		s.logger.Error("SignIn credential exchange failed", "provider", providerName, "error", err)
		s.emitSignInFailure(ctx, providerName, "", err)
		return nil, wrapIdentityError(err, providerName, "exchange")
	}

	profile, err := provider.FetchProfile(ctx, token)
	if err != nil {
		s.logger.Error("SignIn profile fetch failed", "provider", providerName, "error", err)
		s.emitSignInFailure(ctx, providerName, "", err)
		return nil, wrapIdentityError(err, providerName, "profile")
	}

	user, err := s.directory.GetOrCreate(ctx, &User{
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		Role:        RoleViewer,
	})
	if err != nil {
		s.logger.Error("SignIn directory resolution failed", "email", NormalizeEmail(profile.Email), "error", err)
		s.emitSignInFailure(ctx, providerName, "", err)
		return nil, err
	}

	// Promotion only ever keys off an address the provider has verified; an
	// unverified profile signs in with whatever role the directory holds.
	promotion := PromotionResult{Outcome: PromotionNotApplicable, User: user}
	if profile.EmailVerified {
		promotion = s.applyPromotion(ctx, user, profile.Email, providerName)
		user = promotion.User
	} else {
		s.logger.Info("Skipping promotion check, provider email unverified",
			"provider", providerName,
			"user_id", user.ID.String(),
		)
	}

	signed, err := s.generateJWT(ctx, user)
	if err != nil {
		s.emitSignInFailure(ctx, providerName, user.ID.String(), err)
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventSignInSuccess, ActorRef{Type: "user", ID: user.ID.String()}, user.ID.String(), map[string]any{
		"provider": providerName,
		"role":     string(user.Role),
	})

	return &SignInResult{
		Token:       signed,
		User:        user,
		Promotion:   promotion,
		RedirectURL: state.RedirectURL,
	}, nil
}

// applyPromotion runs the auto-promotion rule and decides what a failed
// write means: sign-in proceeds with the pre-promotion role. Availability
// over strict consistency; the short session lifetime bounds the window.
func (s *Auther) applyPromotion(ctx context.Context, user *User, verifiedEmail, providerName string) PromotionResult {
	result := s.promoter.Apply(ctx, user, verifiedEmail)

	switch result.Outcome {
	case PromotionApplied:
		s.logger.Info("Admin promotion applied", "user_id", user.ID.String())
		s.emitAuthEvent(ctx, ActivityEventPromotion, ActorRef{Type: "system"}, user.ID.String(), map[string]any{
			"provider": providerName,
		})
	case PromotionWriteFailed:
		s.logger.Error("Admin promotion write failed; continuing with prior role",
			"user_id", user.ID.String(),
			"role", string(user.Role),
			"error", result.Err,
		)
		s.emitAuthEvent(ctx, ActivityEventPromotionFailed, ActorRef{Type: "system"}, user.ID.String(), map[string]any{
			"provider": providerName,
			"error":    result.Err.Error(),
		})
	}

	if result.User == nil {
		result.User = user
	}

	return result
}

// SessionFromToken validates a raw token and converts it to a Session.
func (s *Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims", "error", err)
		return nil, err
	}

	return session, nil
}

// RefreshSession re-signs a still-valid token with an allow-listed patch
// applied, used when a signed-in administrator edits their own profile. The
// directory is not consulted and the role claim cannot change.
func (s *Auther) RefreshSession(raw string, patch ClaimsPatch) (string, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		return "", err
	}

	return s.tokenService.Refresh(claims, patch)
}

func (s *Auther) generateJWT(ctx context.Context, user *User) (string, error) {
	claims := s.newJWTClaims(user)
	snapshot := captureImmutableClaims(claims)

	decorator := normalizeClaimsDecorator(s.claimsDecorator)
	if err := decorator.Decorate(ctx, NewIdentityFromUser(user), claims); err != nil {
		s.logger.Error("claims decorator failed", "error", err)
		return "", err
	}

	if err := snapshot.validate(claims); err != nil {
		s.logger.Error("claims decorator mutated immutable claims", "error", err)
		return "", err
	}

	return s.tokenService.SignClaims(claims)
}

func (s *Auther) newJWTClaims(user *User) *JWTClaims {
	now := s.now()

	var aud jwt.ClaimStrings
	if len(s.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(s.audience))
		copy(aud, s.audience)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID.String(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionLifetime)),
		},
		UID:         user.ID.String(),
		UserEmail:   NormalizeEmail(user.Email),
		UserRole:    string(user.Role),
		DisplayName: user.DisplayName,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}

func (s *Auther) emitSignInFailure(ctx context.Context, providerName, userID string, cause error) {
	metadata := map[string]any{
		"provider": providerName,
	}
	if cause != nil {
		metadata["error"] = cause.Error()
	}

	actor := ActorRef{Type: "unknown"}
	if userID != "" {
		actor = ActorRef{Type: "user", ID: userID}
	}

	s.emitAuthEvent(ctx, ActivityEventSignInFailure, actor, userID, metadata)
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}

// wrapIdentityError collapses provider failures (including timeouts) into
// the single identity error users see as a generic retry message, layering
// the stage-specific idp sentinel underneath so callers can tell an
// exchange failure from a profile fetch failure.
func wrapIdentityError(err error, providerName, stage string) error {
	stageErr := idp.ErrExchangeFailed
	if stage == "profile" {
		stageErr = idp.ErrProfileFetchFailed
	}

	clone := ErrIdentityProvider.Clone()
	if clone == nil {
		return ErrIdentityProvider
	}
	clone.Source = idp.WrapProviderError(stageErr, providerName, stage, err)
	return clone.WithMetadata(map[string]any{
		"provider": providerName,
		"stage":    stage,
	})
}
