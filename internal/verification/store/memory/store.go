// Package memory provides the in-process RecordStore used by tests and
// development wiring.
package memory

import (
	"context"
	"sync"

	"basera/internal/verification/models"
	id "basera/pkg/domain"
	"basera/pkg/platform/sentinel"
)

// Store keeps records in a map guarded by a RWMutex. Clones on the way in
// and out so callers never share memory with the stored aggregate.
type Store struct {
	mu      sync.RWMutex
	records map[id.UserID]*models.VerificationRecord
}

// New constructs an empty Store.
func New() *Store {
	return &Store{records: make(map[id.UserID]*models.VerificationRecord)}
}

func (s *Store) Find(_ context.Context, userID id.UserID) (*models.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *Store) Create(_ context.Context, rec *models.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.UserID]; ok {
		return sentinel.ErrConflict
	}
	rec.Version = 1
	s.records[rec.UserID] = rec.Clone()
	return nil
}

func (s *Store) Update(_ context.Context, rec *models.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[rec.UserID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != rec.Version {
		return sentinel.ErrConflict
	}
	rec.Version++
	s.records[rec.UserID] = rec.Clone()
	return nil
}
