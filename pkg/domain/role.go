package domain

import "fmt"

// Role is the marketplace role attached to an authenticated principal.
// Verification policy is role-dependent: owners list properties and can
// never opt out of identity verification.
type Role string

const (
	RoleStudent Role = "student"
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
)

// ParseRole validates and returns a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleOwner, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

func (r Role) String() string {
	return string(r)
}

// Permission is a capability carried by a principal, distinct from its role.
// Admin review requires an explicit permission rather than the admin role so
// the capability can be granted and revoked independently.
type Permission string

const (
	// PermVerificationReview allows force-approving, force-rejecting, and
	// resetting verification records.
	PermVerificationReview Permission = "verification:review"
)

// Permissions is the capability set attached to a principal.
type Permissions []Permission

// Has reports whether the set contains the given permission.
func (p Permissions) Has(perm Permission) bool {
	for _, have := range p {
		if have == perm {
			return true
		}
	}
	return false
}
