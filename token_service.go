package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	sessionLifetime time.Duration
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
	now             func() time.Time
}

// NewTokenService creates a new TokenService instance. The session lifetime
// is the bound on claim staleness: a role revoked mid-session stays
// effective in issued tokens until they expire.
func NewTokenService(signingKey []byte, sessionLifetime time.Duration, issuer string, audience jwt.ClaimStrings, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	if sessionLifetime <= 0 {
		sessionLifetime = 4 * time.Hour
	}
	return &TokenServiceImpl{
		signingKey:      signingKey,
		sessionLifetime: sessionLifetime,
		issuer:          issuer,
		audience:        audience,
		logger:          logger,
		now:             time.Now,
	}
}

// Issue creates a session token from a directory record. The role claim is
// read from the record at issuance; it is never derived from caller input.
func (ts *TokenServiceImpl) Issue(user *User) (string, error) {
	if user == nil {
		return "", errors.New("user must not be nil", errors.CategoryInternal)
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			Audience:  ts.audienceCopy(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.sessionLifetime)),
		},
		UID:         user.ID.String(),
		UserEmail:   NormalizeEmail(user.Email),
		UserRole:    string(user.Role),
		DisplayName: user.DisplayName,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// Refresh re-signs existing claims with an allow-listed patch applied. The
// issued-at and expiry claims are preserved, so a refresh never extends the
// session, and the role claim cannot change through this path. The directory
// is not re-read; that staleness is accepted and bounded by the lifetime.
func (ts *TokenServiceImpl) Refresh(claims AuthClaims, patch ClaimsPatch) (string, error) {
	jwtClaims, ok := claims.(*JWTClaims)
	if !ok || jwtClaims == nil {
		return "", ErrUnableToDecodeSession
	}

	next := *jwtClaims
	snapshot := captureImmutableClaims(&next)

	patch.apply(&next)

	if err := snapshot.validate(&next); err != nil {
		ts.logger.Error("Refresh patch mutated immutable claims", "error", err)
		return "", err
	}

	return ts.SignClaims(&next)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	parserOptions = append(parserOptions, jwt.WithTimeFunc(ts.now))
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrUnableToDecodeSession
}
