// Package store defines the persistence port for verification records.
package store

import (
	"context"

	"basera/internal/verification/models"
	id "basera/pkg/domain"
)

// RecordStore persists verification record aggregates.
//
// Concurrency is optimistic: Update compares the record's Version against
// the stored one and fails with sentinel.ErrConflict on mismatch. Callers
// re-fetch and retry; contention on a single user's record is rare, so
// retries are cheaper than a pessimistic lock.
type RecordStore interface {
	// Find returns the record or sentinel.ErrNotFound. The returned value
	// is the caller's to mutate.
	Find(ctx context.Context, userID id.UserID) (*models.VerificationRecord, error)

	// Create persists a new record at version 1. Returns
	// sentinel.ErrConflict if a record already exists for the user: the
	// caller lost a create race and should re-fetch.
	Create(ctx context.Context, rec *models.VerificationRecord) error

	// Update persists the record if rec.Version still matches the stored
	// version, then increments rec.Version. Returns sentinel.ErrConflict
	// on mismatch without writing anything.
	Update(ctx context.Context, rec *models.VerificationRecord) error
}
