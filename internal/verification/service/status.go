package service

import (
	"context"
	"errors"
	"strconv"

	"basera/internal/verification/models"
	"basera/internal/verification/policy"
	"basera/internal/verification/scoring"
	id "basera/pkg/domain"
	dErrors "basera/pkg/domain-errors"
	audit "basera/pkg/platform/audit"
	"basera/pkg/platform/sentinel"
	"basera/pkg/requestcontext"
)

// GetStatus returns the user's verification record. Records are created
// lazily on first submission, so a user who never submitted has none.
func (s *Service) GetStatus(ctx context.Context, userID id.UserID) (*models.VerificationRecord, error) {
	rec, err := s.records.Find(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no verification record for this user")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification record")
	}
	return rec, nil
}

// GetPolicy answers whether the user must verify and whether they may opt
// out, from their role and stored preference flags.
func (s *Service) GetPolicy(ctx context.Context, userID id.UserID) (policy.Decision, error) {
	user, err := s.users.Find(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return policy.Decision{}, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return policy.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return policy.Evaluate(user.Role, user.VerificationSkipped, user.VerificationRequired), nil
}

// SetSkipPreference toggles the user's opt-out flag. Policy-gated: owners
// can never skip. Touches only the User entity, never the record.
func (s *Service) SetSkipPreference(ctx context.Context, userID id.UserID, skip bool) (policy.Decision, error) {
	user, err := s.users.Find(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return policy.Decision{}, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return policy.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if err := policy.EnsureSkipAllowed(user.Role, skip); err != nil {
		return policy.Decision{}, err
	}

	if user.VerificationSkipped != skip {
		user.VerificationSkipped = skip
		user.UpdatedAt = requestcontext.Now(ctx)
		if err := s.users.Update(ctx, user); err != nil {
			return policy.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update skip preference")
		}
	}

	s.emitAudit(ctx, audit.Event{
		UserID: userID,
		Action: string(audit.EventSkipPreferenceSet),
		Details: map[string]string{
			"skipped": strconv.FormatBool(skip),
		},
	})

	return policy.Evaluate(user.Role, user.VerificationSkipped, user.VerificationRequired), nil
}

// RecordExternalAuth marks that the user completed an external
// government-backed authentication (DigiLocker-style). An input to the
// full level; it does not change the overall score.
func (s *Service) RecordExternalAuth(ctx context.Context, userID id.UserID, provider string) (*models.VerificationRecord, error) {
	if provider == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "provider is required")
	}

	var autoVerified bool
	rec, err := s.mutate(ctx, userID, func(rec *models.VerificationRecord) error {
		rec.ExternalAuth = true
		scoring.Recompute(rec)
		rec.AppendHistory(models.HistoryEntry{
			Action: "external_auth_linked",
			Details: map[string]string{
				"provider": provider,
				"level":    string(rec.Level),
			},
			PerformedBy: models.Actor{Type: models.ActorUser, ID: userID.String()},
			Timestamp:   requestcontext.Now(ctx),
		})
		autoVerified = s.maybeAutoVerify(ctx, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.Event{
		UserID: userID,
		Action: string(audit.EventExternalAuthLink),
		Details: map[string]string{
			"provider": provider,
		},
	})
	s.finishAutoVerify(ctx, rec, autoVerified)

	return rec, nil
}
