package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("direct code match", func(t *testing.T) {
		err := New(CodePolicyViolation, "owners cannot skip verification")
		assert.True(t, HasCode(err, CodePolicyViolation))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("wrapped cause keeps inner code reachable", func(t *testing.T) {
		inner := New(CodeConflict, "version mismatch")
		outer := Wrap(inner, CodeInternal, "update failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeConflict))
	})

	t.Run("fmt wrapping keeps code reachable", func(t *testing.T) {
		err := fmt.Errorf("submit document: %w", New(CodeValidation, "file too large"))
		assert.True(t, HasCode(err, CodeValidation))
	})

	t.Run("plain error has no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(New(CodeNotFound, "no record")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))

	outer := Wrap(New(CodeConflict, "stale"), CodeUnavailable, "storage")
	assert.Equal(t, CodeUnavailable, CodeOf(outer))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Wrap(cause, CodeUnavailable, "storage adapter failed")

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "storage adapter failed")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "storage adapter failed", err.Message())
}
