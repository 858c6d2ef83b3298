package idp

import "github.com/goliatone/go-errors"

const (
	TextCodeProviderNotFound = "idp_provider_not_found"
	TextCodeInvalidState     = "idp_invalid_state"
	TextCodeStateExpired     = "idp_state_expired"
	TextCodeExchangeFail     = "idp_exchange_failed"
	TextCodeProfileFail      = "idp_profile_failed"
)

// ErrProviderNotFound is returned when a requested provider is not configured.
var ErrProviderNotFound = errors.New("identity provider not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidState is returned when the OAuth state is invalid or tampered.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(errors.CodeBadRequest)

// ErrStateExpired is returned when the OAuth state has expired.
var ErrStateExpired = errors.New("oauth state expired", errors.CategoryBadInput).
	WithTextCode(TextCodeStateExpired).
	WithCode(errors.CodeBadRequest)

// ErrExchangeFailed is returned when a provider token exchange fails.
var ErrExchangeFailed = errors.New("credential exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeExchangeFail).
	WithCode(errors.CodeUnauthorized)

// ErrProfileFetchFailed is returned when fetching the user profile fails.
var ErrProfileFetchFailed = errors.New("failed to fetch user profile", errors.CategoryAuth).
	WithTextCode(TextCodeProfileFail).
	WithCode(errors.CodeUnauthorized)
