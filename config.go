package auth

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/kelseyhightower/envconfig"
)

// EnvConfig implements Config from environment variables.
type EnvConfig struct {
	SigningKey     string        `envconfig:"AUTH_SIGNING_KEY" required:"true"`
	SigningMethod  string        `envconfig:"AUTH_SIGNING_METHOD" default:"HS256"`
	ContextKey     string        `envconfig:"AUTH_CONTEXT_KEY" default:"user"`
	SessionLife    time.Duration `envconfig:"AUTH_SESSION_LIFETIME" default:"4h"`
	TokenLookup    string        `envconfig:"AUTH_TOKEN_LOOKUP" default:"cookie:user,header:Authorization"`
	AuthScheme     string        `envconfig:"AUTH_SCHEME" default:"Bearer"`
	Issuer         string        `envconfig:"AUTH_ISSUER" default:"armonia"`
	Audience       []string      `envconfig:"AUTH_AUDIENCE" default:"admin"`
	AdminEmail     string        `envconfig:"AUTH_ADMIN_EMAIL"`
	RejectedRoute  string        `envconfig:"AUTH_REJECTED_ROUTE_KEY" default:"rejected_route"`
	SignInRoute    string        `envconfig:"AUTH_SIGNIN_ROUTE" default:"/login"`
	AccessDenied   string        `envconfig:"AUTH_ACCESS_DENIED_ROUTE" default:"/access-denied"`
	HomeRoute      string        `envconfig:"AUTH_HOME_ROUTE" default:"/"`
	AccessDelay    time.Duration `envconfig:"AUTH_ACCESS_DENIED_DELAY" default:"5s"`
	StateSecret    string        `envconfig:"AUTH_STATE_SECRET"`
	StateTTL       time.Duration `envconfig:"AUTH_STATE_TTL" default:"10m"`
	BaseURL        string        `envconfig:"AUTH_BASE_URL" default:"http://localhost:8080"`
	GoogleClientID string        `envconfig:"AUTH_GOOGLE_CLIENT_ID"`
	GoogleSecret   string        `envconfig:"AUTH_GOOGLE_CLIENT_SECRET"`
	GithubClientID string        `envconfig:"AUTH_GITHUB_CLIENT_ID"`
	GithubSecret   string        `envconfig:"AUTH_GITHUB_CLIENT_SECRET"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate runs validation rules
func (c EnvConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.SigningMethod, validation.Required, validation.In("HS256", "HS384", "HS512")),
		validation.Field(&c.AdminEmail, is.Email),
		validation.Field(&c.BaseURL, is.URL),
	)
}

func (c *EnvConfig) GetSigningKey() string               { return c.SigningKey }
func (c *EnvConfig) GetSigningMethod() string            { return c.SigningMethod }
func (c *EnvConfig) GetContextKey() string               { return c.ContextKey }
func (c *EnvConfig) GetSessionLifetime() time.Duration   { return c.SessionLife }
func (c *EnvConfig) GetTokenLookup() string              { return c.TokenLookup }
func (c *EnvConfig) GetAuthScheme() string               { return c.AuthScheme }
func (c *EnvConfig) GetIssuer() string                   { return c.Issuer }
func (c *EnvConfig) GetAudience() []string               { return c.Audience }
func (c *EnvConfig) GetAdminEmail() string               { return c.AdminEmail }
func (c *EnvConfig) GetRejectedRouteKey() string         { return c.RejectedRoute }
func (c *EnvConfig) GetSignInRoute() string              { return c.SignInRoute }
func (c *EnvConfig) GetAccessDeniedRoute() string        { return c.AccessDenied }
func (c *EnvConfig) GetHomeRoute() string                { return c.HomeRoute }
func (c *EnvConfig) GetAccessDeniedDelay() time.Duration { return c.AccessDelay }

// GetStateSecret falls back to the signing key when no dedicated state
// secret is configured.
func (c *EnvConfig) GetStateSecret() string {
	if c.StateSecret != "" {
		return c.StateSecret
	}
	return c.SigningKey
}

func (c *EnvConfig) GetStateTTL() time.Duration { return c.StateTTL }
func (c *EnvConfig) GetBaseURL() string         { return c.BaseURL }
