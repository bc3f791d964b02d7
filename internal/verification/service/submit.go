package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"basera/internal/verification/models"
	"basera/internal/verification/scoring"
	"basera/internal/verification/validator"
	id "basera/pkg/domain"
	dErrors "basera/pkg/domain-errors"
	audit "basera/pkg/platform/audit"
	"basera/pkg/platform/sentinel"
	"basera/pkg/requestcontext"
)

// SubmitDocument ingests one identity document: store the blob, extract and
// validate its fields, then fold the result into the record. A document of
// the same type replaces the previous one entirely. All adapter work
// completes before the record mutation, so an adapter failure leaves the
// record untouched.
func (s *Service) SubmitDocument(ctx context.Context, userID id.UserID, docType models.DocumentType, data []byte, contentType string) (*models.VerificationRecord, error) {
	started := time.Now()

	if err := s.checkUploadAllowed(ctx, userID, len(data)); err != nil {
		return nil, err
	}

	handle, err := s.storeBlob(ctx, data, contentType, userID)
	if err != nil {
		s.metrics.IncrementSubmission("document", "adapter_error")
		return nil, err
	}

	extractStart := time.Now()
	extraction, err := s.ocr.Extract(ctx, handle, docType)
	s.metrics.ObserveAdapterLatency("ocr", time.Since(extractStart))
	if err != nil {
		s.metrics.IncrementSubmission("document", "adapter_error")
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "document text extraction failed")
	}

	extracted := validator.Parse(extraction.Text, extraction.Confidence)
	result := validator.Validate(extracted, docType)

	var (
		replaced     bool
		autoVerified bool
	)
	rec, err := s.mutate(ctx, userID, func(rec *models.VerificationRecord) error {
		if rec.Status.Terminal() {
			return dErrors.New(dErrors.CodeConflict, "verification is finalized; an admin review is required to reopen it")
		}

		now := requestcontext.Now(ctx)
		replaced = rec.PutDocument(models.Document{
			ID:         id.NewDocumentID(),
			Type:       docType,
			FileHandle: handle,
			Extracted:  extracted,
			Verified:   result.IsValid,
			Score:      result.Score,
			UploadedAt: now,
		})
		scoring.Recompute(rec)
		s.transition(rec, models.StatusDocumentUploaded, "upload")

		rec.AppendHistory(models.HistoryEntry{
			Action: "document_submitted",
			Details: map[string]string{
				"document_type":  string(docType),
				"document_score": strconv.Itoa(result.Score),
				"verified":       strconv.FormatBool(result.IsValid),
				"replaced":       strconv.FormatBool(replaced),
				"overall_score":  strconv.Itoa(rec.Scores.OverallScore),
			},
			PerformedBy: models.Actor{Type: models.ActorUser, ID: userID.String()},
			Timestamp:   now,
		})

		autoVerified = s.maybeAutoVerify(ctx, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementSubmission("document", "accepted")
	s.metrics.ObserveSubmitLatency(time.Since(started))

	s.emitAudit(ctx, audit.Event{
		UserID: userID,
		Action: string(audit.EventDocumentSubmitted),
		Details: map[string]string{
			"document_type": string(docType),
			"verified":      strconv.FormatBool(result.IsValid),
		},
	})
	s.finishAutoVerify(ctx, rec, autoVerified)

	return rec, nil
}

// SubmitSelfie ingests the selfie and runs the biometric match against
// every current document image. Requires at least one document so the
// matcher has candidates. The selfie slot is replaced wholesale on
// resubmission.
func (s *Service) SubmitSelfie(ctx context.Context, userID id.UserID, data []byte, contentType string) (*models.VerificationRecord, error) {
	started := time.Now()

	if err := s.checkUploadAllowed(ctx, userID, len(data)); err != nil {
		return nil, err
	}

	current, err := s.records.Find(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "submit at least one document before the selfie")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification record")
	}
	if len(current.Documents) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "submit at least one document before the selfie")
	}
	if current.Status.Terminal() {
		return nil, dErrors.New(dErrors.CodeConflict, "verification is finalized; an admin review is required to reopen it")
	}

	handle, err := s.storeBlob(ctx, data, contentType, userID)
	if err != nil {
		s.metrics.IncrementSubmission("selfie", "adapter_error")
		return nil, err
	}

	matchStart := time.Now()
	match, err := s.faces.Match(ctx, handle, current.DocumentHandles())
	s.metrics.ObserveAdapterLatency("face", time.Since(matchStart))
	if err != nil {
		s.metrics.IncrementSubmission("selfie", "adapter_error")
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "face matching failed")
	}

	var autoVerified bool
	rec, err := s.mutate(ctx, userID, func(rec *models.VerificationRecord) error {
		if rec.Status.Terminal() {
			return dErrors.New(dErrors.CodeConflict, "verification is finalized; an admin review is required to reopen it")
		}
		if len(rec.Documents) == 0 {
			return dErrors.New(dErrors.CodeInvariantViolation, "submit at least one document before the selfie")
		}

		now := requestcontext.Now(ctx)
		matching := models.FaceMatching{
			Similarity: match.Similarity,
			Threshold:  s.cfg.FaceMatchThreshold,
			Matched:    match.Similarity >= s.cfg.FaceMatchThreshold,
		}
		for _, doc := range rec.Documents {
			if doc.FileHandle == match.MatchedWith {
				matching.MatchedWith = doc.Type
				break
			}
		}

		rec.PutSelfie(models.SelfieCapture{
			FileHandle:   handle,
			FaceMatching: matching,
			CapturedAt:   now,
		})
		scoring.Recompute(rec)
		s.transition(rec, models.StatusSelfieUploaded, "upload")
		s.transition(rec, models.StatusProcessing, "upload")

		rec.AppendHistory(models.HistoryEntry{
			Action: "selfie_submitted",
			Details: map[string]string{
				"similarity":    strconv.FormatFloat(match.Similarity, 'f', -1, 64),
				"matched":       strconv.FormatBool(matching.Matched),
				"matched_with":  string(matching.MatchedWith),
				"overall_score": strconv.Itoa(rec.Scores.OverallScore),
			},
			PerformedBy: models.Actor{Type: models.ActorUser, ID: userID.String()},
			Timestamp:   now,
		})

		autoVerified = s.maybeAutoVerify(ctx, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementSubmission("selfie", "accepted")
	s.metrics.ObserveSubmitLatency(time.Since(started))

	s.emitAudit(ctx, audit.Event{
		UserID: userID,
		Action: string(audit.EventSelfieSubmitted),
		Details: map[string]string{
			"matched": strconv.FormatBool(rec.Selfie.FaceMatching.Matched),
		},
	})
	s.finishAutoVerify(ctx, rec, autoVerified)

	return rec, nil
}

func (s *Service) storeBlob(ctx context.Context, data []byte, contentType string, userID id.UserID) (string, error) {
	start := time.Now()
	handle, err := s.blobs.Store(ctx, data, contentType, userID)
	s.metrics.ObserveAdapterLatency("blob", time.Since(start))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "upload storage failed")
	}
	return handle, nil
}

// finishAutoVerify applies the side effects of an automatic verification:
// the external trust flag, the compliance audit event, and the user
// notification.
func (s *Service) finishAutoVerify(ctx context.Context, rec *models.VerificationRecord, fired bool) {
	if !fired {
		return
	}
	s.setIdentityVerified(ctx, rec.UserID, true)
	s.emitAudit(ctx, audit.Event{
		UserID:   rec.UserID,
		Action:   string(audit.EventAutoVerified),
		Decision: string(rec.Status),
		Details: map[string]string{
			"overall_score": strconv.Itoa(rec.Scores.OverallScore),
			"level":         string(rec.Level),
		},
	})
	s.notify(ctx, rec.UserID, "verification_completed", map[string]string{
		"status": string(rec.Status),
		"level":  string(rec.Level),
	})
}
