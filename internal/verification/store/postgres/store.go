// Package postgres persists verification records in PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"basera/internal/verification/models"
	id "basera/pkg/domain"
	"basera/pkg/platform/sentinel"
)

// Store persists whole record aggregates. Documents, selfie, admin review,
// and history travel as jsonb; scalar columns carry what queries filter on.
//
// Schema:
//
//	CREATE TABLE verification_records (
//	    user_id       UUID PRIMARY KEY,
//	    status        TEXT NOT NULL,
//	    level         TEXT NOT NULL,
//	    documents     JSONB NOT NULL DEFAULT '[]',
//	    selfie        JSONB,
//	    scores        JSONB NOT NULL DEFAULT '{}',
//	    admin_review  JSONB,
//	    history       JSONB NOT NULL DEFAULT '[]',
//	    external_auth BOOLEAN NOT NULL DEFAULT FALSE,
//	    version       BIGINT NOT NULL,
//	    created_at    TIMESTAMPTZ NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL
//	);
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a PostgreSQL-backed record store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Find(ctx context.Context, userID id.UserID) (*models.VerificationRecord, error) {
	const query = `
		SELECT user_id, status, level, documents, selfie, scores, admin_review, history, external_auth, version, created_at, updated_at
		FROM verification_records
		WHERE user_id = $1
	`
	row := s.pool.QueryRow(ctx, query, uuid.UUID(userID))

	var (
		rec         models.VerificationRecord
		uid         uuid.UUID
		status      string
		level       string
		documents   []byte
		selfie      []byte
		scores      []byte
		adminReview []byte
		history     []byte
	)
	err := row.Scan(&uid, &status, &level, &documents, &selfie, &scores, &adminReview, &history,
		&rec.ExternalAuth, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find record: %w", err)
	}

	rec.UserID = id.UserID(uid)
	rec.Status = models.Status(status)
	rec.Level = models.Level(level)
	if err := json.Unmarshal(documents, &rec.Documents); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	if len(selfie) > 0 {
		if err := json.Unmarshal(selfie, &rec.Selfie); err != nil {
			return nil, fmt.Errorf("decode selfie: %w", err)
		}
	}
	if err := json.Unmarshal(scores, &rec.Scores); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	if len(adminReview) > 0 {
		if err := json.Unmarshal(adminReview, &rec.AdminReview); err != nil {
			return nil, fmt.Errorf("decode admin review: %w", err)
		}
	}
	if err := json.Unmarshal(history, &rec.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &rec, nil
}

func (s *Store) Create(ctx context.Context, rec *models.VerificationRecord) error {
	cols, err := encodeColumns(rec)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO verification_records
			(user_id, status, level, documents, selfie, scores, admin_review, history, external_auth, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11)
	`
	_, err = s.pool.Exec(ctx, query,
		uuid.UUID(rec.UserID), string(rec.Status), string(rec.Level),
		cols.documents, cols.selfie, cols.scores, cols.adminReview, cols.history,
		rec.ExternalAuth, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create record: %w", err)
	}
	rec.Version = 1
	return nil
}

func (s *Store) Update(ctx context.Context, rec *models.VerificationRecord) error {
	cols, err := encodeColumns(rec)
	if err != nil {
		return err
	}

	// the version predicate is the optimistic lock: a concurrent writer
	// that committed first makes this a zero-row update
	const query = `
		UPDATE verification_records
		SET status = $2, level = $3, documents = $4, selfie = $5, scores = $6,
		    admin_review = $7, history = $8, external_auth = $9,
		    version = version + 1, updated_at = $10
		WHERE user_id = $1 AND version = $11
	`
	tag, err := s.pool.Exec(ctx, query,
		uuid.UUID(rec.UserID), string(rec.Status), string(rec.Level),
		cols.documents, cols.selfie, cols.scores, cols.adminReview, cols.history,
		rec.ExternalAuth, rec.UpdatedAt, rec.Version,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// distinguish a stale version from a missing row
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM verification_records WHERE user_id = $1)`,
			uuid.UUID(rec.UserID)).Scan(&exists); err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	rec.Version++
	return nil
}

type encodedColumns struct {
	documents   []byte
	selfie      []byte
	scores      []byte
	adminReview []byte
	history     []byte
}

func encodeColumns(rec *models.VerificationRecord) (encodedColumns, error) {
	var cols encodedColumns
	var err error

	documents := rec.Documents
	if documents == nil {
		documents = []models.Document{}
	}
	if cols.documents, err = json.Marshal(documents); err != nil {
		return cols, fmt.Errorf("encode documents: %w", err)
	}
	if rec.Selfie != nil {
		if cols.selfie, err = json.Marshal(rec.Selfie); err != nil {
			return cols, fmt.Errorf("encode selfie: %w", err)
		}
	}
	if cols.scores, err = json.Marshal(rec.Scores); err != nil {
		return cols, fmt.Errorf("encode scores: %w", err)
	}
	if rec.AdminReview != nil {
		if cols.adminReview, err = json.Marshal(rec.AdminReview); err != nil {
			return cols, fmt.Errorf("encode admin review: %w", err)
		}
	}
	history := rec.History
	if history == nil {
		history = []models.HistoryEntry{}
	}
	if cols.history, err = json.Marshal(history); err != nil {
		return cols, fmt.Errorf("encode history: %w", err)
	}
	return cols, nil
}
