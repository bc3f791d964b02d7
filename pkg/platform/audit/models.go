// Package audit captures structured, append-only audit events for the
// verification engine. The record's own history answers "what happened to
// this record"; this pipeline answers "what happened across the system",
// for dispute resolution and compliance review.
package audit

import (
	"context"
	"time"

	id "basera/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies and routing: compliance events are
// mirrored to the Kafka topic, operations events stay local.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance:
	// verification outcomes, admin overrides, trust revocations.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and
	// operational visibility. Shorter retention, may be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	UserID    id.UserID
	Action    string
	// ActorID tracks who performed the action when different from UserID,
	// e.g. the reviewer on an admin override.
	ActorID   string
	Decision  string
	Reason    string
	RequestID string
	Details   map[string]string
}

// AuditEvent names one auditable action.
type AuditEvent string

const (
	EventDocumentSubmitted AuditEvent = "document_submitted"
	EventSelfieSubmitted   AuditEvent = "selfie_submitted"
	EventAutoVerified      AuditEvent = "auto_verified"
	EventAdminApproved     AuditEvent = "admin_approved"
	EventAdminRejected     AuditEvent = "admin_rejected"
	EventRecordReset       AuditEvent = "record_reset"
	EventSkipPreferenceSet AuditEvent = "skip_preference_set"
	EventExternalAuthLink  AuditEvent = "external_auth_linked"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventDocumentSubmitted: CategoryOperations,
	EventSelfieSubmitted:   CategoryOperations,
	EventAutoVerified:      CategoryCompliance,
	EventAdminApproved:     CategoryCompliance,
	EventAdminRejected:     CategoryCompliance,
	EventRecordReset:       CategoryCompliance,
	EventSkipPreferenceSet: CategoryOperations,
	EventExternalAuthLink:  CategoryCompliance,
}

// Category returns the event's category, defaulting to operations for
// unknown actions.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}

// Store is an append-only persistence sink for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

// Sink receives a copy of each event. Sinks must not block for long; the
// publisher calls them inline.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
