package auth

// ClaimsPatch is the allow-list of claim fields a signed-in user may change
// mid-session, used when an administrator edits their own profile. Role is
// not a field here: privilege only travels through the directory-backed
// promotion and role-change paths.
type ClaimsPatch struct {
	Email       *string
	DisplayName *string
}

// IsZero reports whether the patch carries no changes.
func (p ClaimsPatch) IsZero() bool {
	return p.Email == nil && p.DisplayName == nil
}

// apply copies the allowed fields onto a claims value. Registered claims and
// the role claim are untouched.
func (p ClaimsPatch) apply(claims *JWTClaims) {
	if claims == nil {
		return
	}

	if p.Email != nil {
		claims.UserEmail = NormalizeEmail(*p.Email)
	}

	if p.DisplayName != nil {
		claims.DisplayName = *p.DisplayName
	}
}
