package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "basera/pkg/domain"
	dErrors "basera/pkg/domain-errors"
)

// Exhaustive over role x skipped x required: the policy engine is pure, so
// every combination is pinned down.
func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		role     id.Role
		skipped  bool
		required bool
		want     Decision
	}{
		{
			name: "student default",
			role: id.RoleStudent,
			want: Decision{VerificationRequired: false, CanSkip: true, MustVerify: false},
		},
		{
			name:    "student skipped",
			role:    id.RoleStudent,
			skipped: true,
			want:    Decision{VerificationRequired: false, CanSkip: true, MustVerify: false},
		},
		{
			name:     "student explicitly required",
			role:     id.RoleStudent,
			required: true,
			want:     Decision{VerificationRequired: true, CanSkip: false, MustVerify: true},
		},
		{
			name:     "student required but skipped earlier",
			role:     id.RoleStudent,
			required: true,
			skipped:  true,
			want:     Decision{VerificationRequired: true, CanSkip: false, MustVerify: false},
		},
		{
			name: "owner default",
			role: id.RoleOwner,
			want: Decision{VerificationRequired: true, CanSkip: false, MustVerify: true},
		},
		{
			name:    "owner with stale skipped flag still must verify",
			role:    id.RoleOwner,
			skipped: true,
			want:    Decision{VerificationRequired: true, CanSkip: false, MustVerify: true},
		},
		{
			name:     "owner regardless of requirement flag",
			role:     id.RoleOwner,
			required: false,
			want:     Decision{VerificationRequired: true, CanSkip: false, MustVerify: true},
		},
		{
			name: "admin default",
			role: id.RoleAdmin,
			want: Decision{VerificationRequired: false, CanSkip: true, MustVerify: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.role, tt.skipped, tt.required)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOwnerCanSkipIsAlwaysFalse(t *testing.T) {
	for _, skipped := range []bool{true, false} {
		for _, required := range []bool{true, false} {
			got := Evaluate(id.RoleOwner, skipped, required)
			assert.False(t, got.CanSkip)
			assert.True(t, got.VerificationRequired)
		}
	}
}

func TestEnsureSkipAllowed(t *testing.T) {
	t.Run("owner skip rejected", func(t *testing.T) {
		err := EnsureSkipAllowed(id.RoleOwner, true)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePolicyViolation))
	})

	t.Run("owner un-skip allowed", func(t *testing.T) {
		assert.NoError(t, EnsureSkipAllowed(id.RoleOwner, false))
	})

	t.Run("student skip allowed", func(t *testing.T) {
		assert.NoError(t, EnsureSkipAllowed(id.RoleStudent, true))
	})
}
