package auth

// AuthDecision is the transient result of a guard evaluation, kept for
// logging and response shaping. It is never persisted.
type AuthDecision struct {
	Allowed      bool
	Reason       string
	RequiredRole Role
	ActualRole   Role
}

// Decision reasons.
const (
	ReasonAuthorized       = "authorized"
	ReasonMissingToken     = "missing-token"
	ReasonExpiredToken     = "expired-token"
	ReasonMalformedToken   = "malformed-token"
	ReasonInsufficientRole = "insufficient-role"
)

// Guard is the check every protected operation runs first. Each evaluation
// is self-contained: the guard holds no cross-call state, only its
// collaborators.
type Guard struct {
	validator TokenValidator
	logger    Logger
}

// NewGuard builds a guard over a token validator.
func NewGuard(validator TokenValidator) *Guard {
	return &Guard{
		validator: validator,
		logger:    defLogger{},
	}
}

// WithLogger sets the logger used for denial diagnostics.
func (g *Guard) WithLogger(logger Logger) *Guard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Evaluate walks the full state machine for one request: absent or invalid
// token fails with ErrAuthenticationRequired; a valid token whose role does
// not meet requiredRole fails with ErrInsufficientRole. On success the
// session claims are returned for the caller to proceed with. The role
// comparison is Meets; nothing here reimplements it.
func (g *Guard) Evaluate(rawToken string, requiredRole Role) (AuthClaims, AuthDecision, error) {
	if rawToken == "" {
		return nil, AuthDecision{
			Reason:       ReasonMissingToken,
			RequiredRole: requiredRole,
		}, ErrAuthenticationRequired
	}

	claims, err := g.validator.Validate(rawToken)
	if err != nil {
		reason := ReasonMalformedToken
		if IsTokenExpiredError(err) {
			reason = ReasonExpiredToken
		}

		// Expired and malformed collapse to the same caller-visible outcome.
		return nil, AuthDecision{
			Reason:       reason,
			RequiredRole: requiredRole,
		}, ErrAuthenticationRequired
	}

	actual := Role(claims.Role())

	if !Meets(actual, requiredRole) {
		g.logger.Info(
			"access denied",
			"required_role", string(requiredRole),
			"actual_role", string(actual),
			"user_id", claims.UserID(),
		)

		return nil, AuthDecision{
			Reason:       ReasonInsufficientRole,
			RequiredRole: requiredRole,
			ActualRole:   actual,
		}, ErrInsufficientRole
	}

	return claims, AuthDecision{
		Allowed:      true,
		Reason:       ReasonAuthorized,
		RequiredRole: requiredRole,
		ActualRole:   actual,
	}, nil
}
