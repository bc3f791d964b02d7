package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "basera/pkg/domain"
	"basera/pkg/platform/sentinel"
	"basera/pkg/requestcontext"
)

// PostgresStore persists users in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE users (
//	    id                    UUID PRIMARY KEY,
//	    role                  TEXT NOT NULL,
//	    email                 TEXT NOT NULL DEFAULT '',
//	    identity_verified     BOOLEAN NOT NULL DEFAULT FALSE,
//	    verification_skipped  BOOLEAN NOT NULL DEFAULT FALSE,
//	    verification_required BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at            TIMESTAMPTZ NOT NULL,
//	    updated_at            TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed user store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Find(ctx context.Context, userID id.UserID) (*User, error) {
	const query = `
		SELECT id, role, email, identity_verified, verification_skipped, verification_required, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var (
		user User
		uid  uuid.UUID
		role string
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(userID)).Scan(
		&uid, &role, &user.Email,
		&user.IdentityVerified, &user.VerificationSkipped, &user.VerificationRequired,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	user.ID = id.UserID(uid)
	user.Role = id.Role(role)
	return &user, nil
}

func (s *PostgresStore) Update(ctx context.Context, user *User) error {
	const query = `
		UPDATE users
		SET role = $2, email = $3, identity_verified = $4,
		    verification_skipped = $5, verification_required = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(user.ID), user.Role.String(), user.Email,
		user.IdentityVerified, user.VerificationSkipped, user.VerificationRequired,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO users (id, role, email, identity_verified, verification_skipped, verification_required, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	now := requestcontext.Now(ctx)
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(user.ID), user.Role.String(), user.Email,
		user.IdentityVerified, user.VerificationSkipped, user.VerificationRequired,
		now, now,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
