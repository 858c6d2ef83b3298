package auth

import (
	"context"
)

// PromotionOutcome is the explicit result of an auto-promotion attempt, so
// callers decide whether degraded continuation is acceptable instead of the
// rule swallowing failures internally.
type PromotionOutcome string

const (
	// PromotionApplied means the record was promoted to admin.
	PromotionApplied PromotionOutcome = "promoted"
	// PromotionAlreadyAdmin means the record already held admin.
	PromotionAlreadyAdmin PromotionOutcome = "already-admin"
	// PromotionNotApplicable means the verified email is not the configured
	// admin address.
	PromotionNotApplicable PromotionOutcome = "not-applicable"
	// PromotionWriteFailed means the directory write failed; Err carries the
	// cause and User holds the pre-promotion record.
	PromotionWriteFailed PromotionOutcome = "write-failed"
)

// PromotionResult carries the outcome, the record to continue with, and the
// write error when the outcome is PromotionWriteFailed.
type PromotionResult struct {
	Outcome PromotionOutcome
	User    *User
	Err     error
}

// Promoted reports whether the record's role changed.
func (r PromotionResult) Promoted() bool {
	return r.Outcome == PromotionApplied
}

// Promoter applies the admin auto-promotion rule: a verified email matching
// the configured admin address escalates the record to admin.
type Promoter struct {
	directory  Users
	adminEmail string
}

// NewPromoter builds a promoter for the configured admin address. An empty
// address disables promotion entirely.
func NewPromoter(directory Users, adminEmail string) *Promoter {
	return &Promoter{
		directory:  directory,
		adminEmail: NormalizeEmail(adminEmail),
	}
}

// Apply runs once per successful authentication, after the record is
// resolved and before claims are issued. Idempotent: an already-admin record
// is untouched. The comparison is case-insensitive on both sides.
func (p *Promoter) Apply(ctx context.Context, user *User, verifiedEmail string) PromotionResult {
	if user == nil {
		return PromotionResult{Outcome: PromotionNotApplicable}
	}

	if p.adminEmail == "" || !EmailEquals(verifiedEmail, p.adminEmail) {
		return PromotionResult{Outcome: PromotionNotApplicable, User: user}
	}

	if user.Role == RoleAdmin {
		return PromotionResult{Outcome: PromotionAlreadyAdmin, User: user}
	}

	updated, err := p.directory.SetRole(ctx, user.ID, RoleAdmin)
	if err != nil {
		return PromotionResult{
			Outcome: PromotionWriteFailed,
			User:    user,
			Err:     err,
		}
	}

	return PromotionResult{Outcome: PromotionApplied, User: updated}
}
