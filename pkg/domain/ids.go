// Package domain holds shared domain primitives: typed identifiers and
// role/permission types. Typed IDs prevent accidental mixing of user,
// document, and reviewer identifiers at compile time.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// UserID identifies a marketplace user. The user entity itself is owned by
// the accounts system; verification records reference it by this opaque id.
type UserID uuid.UUID

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user id: %w", err)
	}
	return UserID(u), nil
}

func (id UserID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the ID is the zero UUID.
func (id UserID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// DocumentID identifies a single submitted identity document.
type DocumentID uuid.UUID

func (id DocumentID) String() string {
	return uuid.UUID(id).String()
}

func (id DocumentID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// NewDocumentID returns a fresh random DocumentID.
func NewDocumentID() DocumentID {
	return DocumentID(uuid.New())
}

// ReviewerID identifies the admin principal that performed a manual review.
type ReviewerID uuid.UUID

// ParseReviewerID validates and returns a ReviewerID.
func ParseReviewerID(s string) (ReviewerID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ReviewerID{}, fmt.Errorf("invalid reviewer id: %w", err)
	}
	return ReviewerID(u), nil
}

func (id ReviewerID) String() string {
	return uuid.UUID(id).String()
}

func (id ReviewerID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}
