package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeIdentityProvider  = "auth_identity_provider_failed"
	TextCodeNoProvider        = "auth_no_provider_configured"
	TextCodeDuplicateEmail    = "auth_duplicate_email"
	TextCodeTokenExpired      = "auth_token_expired"
	TextCodeTokenMalformed    = "auth_token_malformed"
	TextCodeAuthRequired      = "auth_required"
	TextCodeInsufficientRole  = "auth_insufficient_role"
	TextCodeImmutableClaim    = "auth_immutable_claim_mutation"
	TextCodeIdentityNotFound  = "auth_identity_not_found"
	TextCodeSessionUnreadable = "auth_session_unreadable"
)

// ErrIdentityProvider is returned when a provider credential exchange fails
// or times out. Surfaced to users as a generic authentication error.
var ErrIdentityProvider = errors.New("identity provider exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeIdentityProvider).
	WithCode(errors.CodeUnauthorized)

// ErrNoProviderConfigured is returned when no identity provider is available.
var ErrNoProviderConfigured = errors.New("no identity provider configured", errors.CategoryOperation).
	WithTextCode(TextCodeNoProvider).
	WithCode(errors.CodeInternal)

// ErrDuplicateEmail is returned when a directory create races an existing
// record on the same normalized email. Recovered internally via re-read,
// never surfaced to end users.
var ErrDuplicateEmail = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeConflict)

// ErrTokenExpired is returned when a session token is past its expiry.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a session token's structure or
// signature does not verify.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrAuthenticationRequired is the guard's verdict for absent, expired, or
// malformed tokens. Callers redirect to the sign-in entry point.
var ErrAuthenticationRequired = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(TextCodeAuthRequired).
	WithCode(errors.CodeUnauthorized)

// ErrInsufficientRole is the guard's verdict for an authenticated caller
// whose role does not meet the requirement. Callers redirect to the
// access-denied destination.
var ErrInsufficientRole = errors.New("insufficient role", errors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientRole).
	WithCode(errors.CodeForbidden)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrImmutableClaimMutation is returned when a claims extension hook touches
// a registered or identity claim.
var ErrImmutableClaimMutation = errors.New("immutable claim mutated", errors.CategoryInternal).
	WithTextCode(TextCodeImmutableClaim).
	WithCode(errors.CodeInternal)

// ErrUnableToDecodeSession unable to reconstruct a session from token claims
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionUnreadable).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToFindSession no session present in the request context
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionUnreadable).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed token errors
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsDuplicateEmail reports whether err is the directory's unique-email
// conflict, either our sentinel or the raw constraint violation bubbling up
// from the store.
func IsDuplicateEmail(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicateEmail) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "email already registered") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
