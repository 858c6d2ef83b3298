package auth

import (
	"crypto/sha256"

	"github.com/armonia-cms/auth/idp"
	"github.com/armonia-cms/auth/idp/providers/github"
	"github.com/armonia-cms/auth/idp/providers/google"
)

// NewProviderRegistry builds the provider registry from environment
// configuration. Providers with absent credentials are skipped, so an
// unconfigured deployment yields an empty registry and the sign-in page
// shows a setup notice.
func NewProviderRegistry(cfg *EnvConfig) *idp.Registry {
	var providers []idp.Provider

	if cfg.GoogleClientID != "" && cfg.GoogleSecret != "" {
		providers = append(providers, google.New(google.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleSecret,
			CallbackURL:  cfg.BaseURL + "/auth/google/callback",
		}))
	}

	if cfg.GithubClientID != "" && cfg.GithubSecret != "" {
		providers = append(providers, github.New(github.Config{
			ClientID:     cfg.GithubClientID,
			ClientSecret: cfg.GithubSecret,
			CallbackURL:  cfg.BaseURL + "/auth/github/callback",
		}))
	}

	return idp.NewRegistry(providers...)
}

// NewStateManager builds the OAuth state codec from the configured state
// secret. Encryption and signing keys are derived separately so the secret
// can be any length.
func NewStateManager(cfg *EnvConfig) *idp.EncryptedStateManager {
	secret := cfg.GetStateSecret()
	encKey := sha256.Sum256([]byte(secret))
	macKey := sha256.Sum256([]byte(secret + ":hmac"))
	return idp.NewEncryptedStateManager(encKey[:], macKey[:], cfg.GetStateTTL())
}
