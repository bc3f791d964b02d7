package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	id "basera/pkg/domain"
	audit "basera/pkg/platform/audit"

	"github.com/google/uuid"
)

// Store persists audit events in the audit_events table. The table is
// append-only; rows are never updated or deleted by the application.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := audit.AuditEvent(event.Action).Category()

	var details []byte
	if len(event.Details) > 0 {
		var err error
		details, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	var userID *uuid.UUID
	if !event.UserID.IsNil() {
		uid := uuid.UUID(event.UserID)
		userID = &uid
	}

	query := `
		INSERT INTO audit_events (
			id, category, timestamp, user_id, action,
			actor_id, decision, reason, request_id, details
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		string(category),
		event.Timestamp,
		userID,
		event.Action,
		event.ActorID,
		event.Decision,
		event.Reason,
		event.RequestID,
		details,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	query := `
		SELECT timestamp, user_id, action, actor_id, decision, reason, request_id, details
		FROM audit_events
		WHERE user_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			event   audit.Event
			userID  *uuid.UUID
			details []byte
		)

		err := rows.Scan(
			&event.Timestamp,
			&userID,
			&event.Action,
			&event.ActorID,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
			&details,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		if userID != nil {
			event.UserID = id.UserID(*userID)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &event.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
