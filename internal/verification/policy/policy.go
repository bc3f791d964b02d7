// Package policy answers "must this user verify, and can they opt out".
// Pure functions of role and the user's stored preference flags; no I/O.
package policy

import (
	id "basera/pkg/domain"
	dErrors "basera/pkg/domain-errors"
)

// Decision is the computed verification requirement for one user. Not
// persisted; recomputed on demand from the user's role and flags.
type Decision struct {
	// VerificationRequired reports whether policy requires this user to
	// verify at all.
	VerificationRequired bool `json:"verification_required"`

	// CanSkip reports whether the user may opt out. Always false for
	// owners.
	CanSkip bool `json:"can_skip"`

	// MustVerify reports whether the requirement is currently in force:
	// required and not skipped.
	MustVerify bool `json:"must_verify"`
}

// Evaluate computes the policy decision for a role and the user's
// skipped/required flags.
//
// Owners must always verify and can never opt out: they hold other
// people's deposits and house keys. Everyone else verifies only when the
// explicit requirement flag is set, and may toggle their skip preference
// at will.
func Evaluate(role id.Role, skipped, explicitRequirement bool) Decision {
	if role == id.RoleOwner {
		// a stale skipped flag never exempts an owner
		return Decision{
			VerificationRequired: true,
			CanSkip:              false,
			MustVerify:           true,
		}
	}

	required := explicitRequirement
	return Decision{
		VerificationRequired: required,
		CanSkip:              !required,
		MustVerify:           required && !skipped,
	}
}

// EnsureSkipAllowed rejects a skip attempt that policy forbids. An owner
// attempting to skip fails loudly rather than silently succeeding.
func EnsureSkipAllowed(role id.Role, skip bool) error {
	if skip && role == id.RoleOwner {
		return dErrors.New(dErrors.CodePolicyViolation, "owners cannot skip identity verification")
	}
	return nil
}
