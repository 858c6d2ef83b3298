package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger takes a message followed by alternating key-value pairs, the way
// structured loggers do.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Session holds attributes that are part of an auth session
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetEmail() string
	GetRole() Role
	GetIssuer() string
	GetAudience() []string
	GetIssuedAt() *time.Time
	GetExpiration() *time.Time
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Email() string
	DisplayName() string
	Role() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetSessionLifetime() time.Duration
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetAdminEmail() string
	GetRejectedRouteKey() string
	GetSignInRoute() string
	GetAccessDeniedRoute() string
	GetHomeRoute() string
	GetAccessDeniedDelay() time.Duration
}

// TokenService issues, refreshes, and validates session tokens.
type TokenService interface {
	Issue(user *User) (string, error)
	Refresh(claims AuthClaims, patch ClaimsPatch) (string, error)
	Validate(tokenString string) (AuthClaims, error)
	SignClaims(claims *JWTClaims) (string, error)
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println(formatLogLine("[ERR] AUTH", msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println(formatLogLine("[WRN] AUTH", msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println(formatLogLine("[INF] AUTH", msg, args...))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println(formatLogLine("[DBG] AUTH", msg, args...))
}

// formatLogLine renders a message followed by key=value pairs. A trailing
// unpaired argument is appended as-is.
func formatLogLine(prefix, msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(" ")
	b.WriteString(msg)

	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		fmt.Fprintf(&b, " %v", args[len(args)-1])
	}

	return b.String()
}
