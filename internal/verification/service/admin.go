package service

import (
	"context"
	"strconv"

	"basera/internal/verification/models"
	id "basera/pkg/domain"
	dErrors "basera/pkg/domain-errors"
	audit "basera/pkg/platform/audit"
	"basera/pkg/requestcontext"
)

// AdminReview applies a manual override: approve forces verified, reject
// forces rejected and revokes the external trust flag, reset clears
// submissions back to pending while keeping the history. Overrides bypass
// the automatic state machine entirely; that is their purpose. Repeat
// approve/reject calls are idempotent apart from reviewer metadata. There
// is nothing to review for a user with no record; that is CodeNotFound.
func (s *Service) AdminReview(ctx context.Context, reviewerID id.ReviewerID, userID id.UserID, action models.ReviewAction, notes string) (*models.VerificationRecord, error) {
	if !requestcontext.Permissions(ctx).Has(id.PermVerificationReview) {
		return nil, dErrors.New(dErrors.CodeForbidden, "verification review permission required")
	}
	if reviewerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "reviewer is required")
	}

	var from models.Status
	rec, err := s.mutateExisting(ctx, userID, func(rec *models.VerificationRecord) error {
		if err := rec.CanReview(action); err != nil {
			return err
		}

		from = rec.Status
		now := requestcontext.Now(ctx)
		entry := models.HistoryEntry{
			Action: string(action),
			Details: map[string]string{
				"reviewer_id": reviewerID.String(),
			},
			PerformedBy: models.Actor{Type: models.ActorAdmin, ID: reviewerID.String()},
			Timestamp:   now,
		}
		if notes != "" {
			entry.Details["notes"] = notes
		}

		switch action {
		case models.ReviewApprove, models.ReviewReject:
			rec.ApplyReview(models.AdminReview{
				ReviewerID: reviewerID,
				Action:     action,
				Notes:      notes,
				ReviewedAt: now,
			})
			entry.Details["overall_score"] = strconv.Itoa(rec.Scores.OverallScore)
		case models.ReviewReset:
			rec.ApplyReset(now)
		default:
			return dErrors.New(dErrors.CodeBadRequest, "unknown review action")
		}

		rec.AppendHistory(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementAdminReview(string(action))
	if from != rec.Status {
		s.metrics.IncrementTransition(string(from), string(rec.Status), "admin")
	}

	switch action {
	case models.ReviewApprove:
		s.setIdentityVerified(ctx, userID, true)
	case models.ReviewReject, models.ReviewReset:
		s.setIdentityVerified(ctx, userID, false)
	}

	s.emitAudit(ctx, audit.Event{
		UserID:   userID,
		ActorID:  reviewerID.String(),
		Action:   auditActionFor(action),
		Decision: string(rec.Status),
		Reason:   notes,
	})

	s.notify(ctx, userID, "verification_reviewed", map[string]string{
		"action": string(action),
		"status": string(rec.Status),
	})

	return rec, nil
}

func auditActionFor(action models.ReviewAction) string {
	switch action {
	case models.ReviewApprove:
		return string(audit.EventAdminApproved)
	case models.ReviewReject:
		return string(audit.EventAdminRejected)
	default:
		return string(audit.EventRecordReset)
	}
}
