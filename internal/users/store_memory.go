package users

import (
	"context"
	"sync"

	id "basera/pkg/domain"
	"basera/pkg/platform/sentinel"
)

// InMemoryStore holds users in a map. Development and test backend.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]User
}

// NewInMemoryStore constructs an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[id.UserID]User)}
}

func (s *InMemoryStore) Find(_ context.Context, userID id.UserID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &user, nil
}

func (s *InMemoryStore) Update(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.users[user.ID] = *user
	return nil
}

func (s *InMemoryStore) Create(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return sentinel.ErrConflict
	}
	s.users[user.ID] = *user
	return nil
}
