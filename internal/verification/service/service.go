// Package service orchestrates the verification lifecycle: submissions,
// scoring, status transitions, policy checks, and the admin override path.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"basera/internal/users"
	"basera/internal/verification/adapters"
	verifmetrics "basera/internal/verification/metrics"
	"basera/internal/verification/models"
	"basera/internal/verification/ratelimit"
	"basera/internal/verification/scoring"
	"basera/internal/verification/store"
	id "basera/pkg/domain"
	dErrors "basera/pkg/domain-errors"
	audit "basera/pkg/platform/audit"
	"basera/pkg/platform/sentinel"
	"basera/pkg/requestcontext"
)

// mutateAttempts bounds the optimistic-concurrency retry loop. Contention
// on a single user's record is rare; three attempts is plenty.
const mutateAttempts = 3

// Config carries the tunable verification policy.
type Config struct {
	// AutoVerify enables the automatic transition to verified once the
	// overall score reaches scoring.AutoVerifyThreshold. When disabled,
	// records wait in processing for an admin decision.
	AutoVerify bool

	// MaxUploadBytes caps document and selfie payloads.
	MaxUploadBytes int64

	// FaceMatchThreshold is the minimum similarity for a selfie to count
	// as matched.
	FaceMatchThreshold float64
}

// AuditPublisher is the slice of the audit pipeline the service emits to.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service implements the verification operations.
type Service struct {
	records store.RecordStore
	users   users.Store

	blobs    adapters.BlobStore
	ocr      adapters.TextExtractor
	faces    adapters.FaceMatcher
	notifier adapters.Notifier

	limiter ratelimit.Limiter
	audit   AuditPublisher
	metrics *verifmetrics.Metrics
	logger  *slog.Logger
	cfg     Config
}

type Option func(*Service)

// WithLimiter installs an upload rate limiter. Without one, uploads are
// unthrottled.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithAudit installs the audit publisher. Emit failures are logged, never
// surfaced.
func WithAudit(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

// WithMetrics installs verification metrics. Nil-safe when absent.
func WithMetrics(m *verifmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNotifier installs the outbound notifier. Delivery is best-effort.
func WithNotifier(n adapters.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func New(
	records store.RecordStore,
	userStore users.Store,
	blobs adapters.BlobStore,
	ocr adapters.TextExtractor,
	faces adapters.FaceMatcher,
	logger *slog.Logger,
	cfg Config,
	opts ...Option,
) *Service {
	s := &Service{
		records: records,
		users:   userStore,
		blobs:   blobs,
		ocr:     ocr,
		faces:   faces,
		logger:  logger,
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutate runs fn against the user's record inside the optimistic retry
// loop. The record is created lazily on first mutation. fn sees a record
// it owns and may mutate freely; a version conflict on write re-fetches
// and re-applies fn on fresh state.
func (s *Service) mutate(ctx context.Context, userID id.UserID, fn func(rec *models.VerificationRecord) error) (*models.VerificationRecord, error) {
	return s.mutateRecord(ctx, userID, true, fn)
}

// mutateExisting is mutate without lazy creation: a missing record
// surfaces as CodeNotFound. Records only come into existence through a
// user submission.
func (s *Service) mutateExisting(ctx context.Context, userID id.UserID, fn func(rec *models.VerificationRecord) error) (*models.VerificationRecord, error) {
	return s.mutateRecord(ctx, userID, false, fn)
}

func (s *Service) mutateRecord(ctx context.Context, userID id.UserID, lazyCreate bool, fn func(rec *models.VerificationRecord) error) (*models.VerificationRecord, error) {
	now := requestcontext.Now(ctx)

	for attempt := 0; attempt < mutateAttempts; attempt++ {
		rec, err := s.records.Find(ctx, userID)
		created := false
		switch {
		case err == nil:
		case errors.Is(err, sentinel.ErrNotFound):
			if !lazyCreate {
				return nil, dErrors.New(dErrors.CodeNotFound, "no verification record for this user")
			}
			rec = models.NewRecord(userID, now)
			created = true
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification record")
		}

		if err := fn(rec); err != nil {
			return nil, err
		}
		rec.UpdatedAt = now

		if created {
			err = s.records.Create(ctx, rec)
		} else {
			err = s.records.Update(ctx, rec)
		}
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification record")
		}
		// Lost a concurrent write (or a create race); re-fetch and retry.
		s.metrics.IncrementConflictRetry()
	}

	return nil, dErrors.New(dErrors.CodeConflict, "verification record was modified concurrently; please retry")
}

// transition moves the record's status via the state machine, recording
// the change. No-op when the target equals the current status or the
// transition is not allowed; terminal states are never left automatically.
func (s *Service) transition(rec *models.VerificationRecord, target models.Status, trigger string) {
	if rec.Status == target || !rec.Status.CanTransitionTo(target) {
		return
	}
	from := rec.Status
	rec.Status = target
	s.metrics.IncrementTransition(string(from), string(target), trigger)
}

// maybeAutoVerify promotes the record to verified when every input is in
// and the overall score clears the threshold. Returns true when it fired.
// Only a record in processing qualifies; terminal states are untouchable
// and earlier states are still collecting inputs.
func (s *Service) maybeAutoVerify(ctx context.Context, rec *models.VerificationRecord) bool {
	if !s.cfg.AutoVerify || rec.Status != models.StatusProcessing {
		return false
	}
	if rec.Scores.OverallScore < scoring.AutoVerifyThreshold {
		return false
	}

	s.transition(rec, models.StatusVerified, "auto")
	rec.AppendHistory(models.HistoryEntry{
		Action: "auto_verify",
		Details: map[string]string{
			"overall_score": strconv.Itoa(rec.Scores.OverallScore),
			"level":         string(rec.Level),
		},
		PerformedBy: models.Actor{Type: models.ActorSystem},
		Timestamp:   requestcontext.Now(ctx),
	})
	return true
}

// setIdentityVerified flips the external User trust flag. Failure is
// logged but does not fail the verification operation; the record remains
// the source of truth and the flag converges on the next admin action.
func (s *Service) setIdentityVerified(ctx context.Context, userID id.UserID, verified bool) {
	user, err := s.users.Find(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load user for trust flag update",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return
	}
	if user.IdentityVerified == verified {
		return
	}
	user.IdentityVerified = verified
	user.UpdatedAt = requestcontext.Now(ctx)
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("failed to update identity-verified flag",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
	}
}

// emitAudit publishes an audit event, logging failures. Audit is
// best-effort from the caller's perspective; the record history is the
// authoritative trail.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.Error("failed to emit audit event",
			slog.String("action", event.Action),
			slog.String("error", err.Error()))
	}
}

// notify delivers a best-effort notification; failures are logged only.
func (s *Service) notify(ctx context.Context, userID id.UserID, event string, payload map[string]string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, event, payload); err != nil {
		s.logger.Warn("notification delivery failed",
			slog.String("user_id", userID.String()),
			slog.String("event", event),
			slog.String("error", err.Error()))
	}
}

// checkUploadAllowed enforces the per-user rate limit and the payload cap.
func (s *Service) checkUploadAllowed(ctx context.Context, userID id.UserID, size int) error {
	if s.cfg.MaxUploadBytes > 0 && int64(size) > s.cfg.MaxUploadBytes {
		return dErrors.New(dErrors.CodeValidation, "upload exceeds the maximum allowed size")
	}
	if size == 0 {
		return dErrors.New(dErrors.CodeValidation, "upload is empty")
	}
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, userID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "rate limit check failed")
		}
		if !allowed {
			s.metrics.IncrementRateLimited()
			return dErrors.New(dErrors.CodeRateLimited, "too many uploads; try again later")
		}
	}
	return nil
}
