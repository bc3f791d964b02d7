package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"basera/internal/platform/logger"
	"basera/internal/users"
	"basera/internal/verification/adapters"
	"basera/internal/verification/adapters/mocks"
	"basera/internal/verification/models"
	"basera/internal/verification/store"
	"basera/internal/verification/store/memory"
	id "basera/pkg/domain"
	dErrors "basera/pkg/domain-errors"
	auditpublisher "basera/pkg/platform/audit/publisher"
	auditmemory "basera/pkg/platform/audit/store/memory"
	"basera/pkg/platform/sentinel"
	"basera/pkg/requestcontext"
)

// aadhaarFixture parses to name + number + address (no date of birth):
// a valid document scoring 80.
const aadhaarFixture = "Name: Priya Sharma\nAddress: 22 MG Road, Pune\nAadhaar No: 1234 5678 9012"

// aadhaarFullFixture includes every field and scores 100.
const aadhaarFullFixture = "Name: Priya Sharma\nDOB: 14/02/2001\nAddress: 22 MG Road, Pune\nAadhaar No: 1234 5678 9012"

type fixture struct {
	svc        *Service
	records    *memory.Store
	users      *users.InMemoryStore
	blobs      *adapters.LocalBlobStore
	matcher    *adapters.LocalMatcher
	auditStore *auditmemory.InMemoryStore
	userID     id.UserID
}

func newFixture(t *testing.T, role id.Role) *fixture {
	t.Helper()

	blobs := adapters.NewLocalBlobStore()
	matcher := &adapters.LocalMatcher{Similarity: 90}
	records := memory.New()
	userStore := users.NewInMemoryStore()
	auditStore := auditmemory.NewInMemoryStore()
	pub := auditpublisher.NewPublisher(auditStore)
	t.Cleanup(pub.Close)

	userID := id.UserID(uuid.New())
	require.NoError(t, userStore.Create(context.Background(), &users.User{
		ID:   userID,
		Role: role,
	}))

	svc := New(
		records,
		userStore,
		blobs,
		&adapters.LocalExtractor{Blobs: blobs},
		matcher,
		logger.NewNop(),
		Config{
			AutoVerify:         true,
			MaxUploadBytes:     1 << 20,
			FaceMatchThreshold: 75,
		},
		WithAudit(pub),
	)

	return &fixture{
		svc:        svc,
		records:    records,
		users:      userStore,
		blobs:      blobs,
		matcher:    matcher,
		auditStore: auditStore,
		userID:     userID,
	}
}

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
}

func adminCtx() context.Context {
	return requestcontext.WithPermissions(testCtx(), id.Permissions{id.PermVerificationReview})
}

func TestVerificationLifecycle(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	ctx := testCtx()

	// Fresh student: no record yet, policy does not require verification.
	_, err := f.svc.GetStatus(ctx, f.userID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	decision, err := f.svc.GetPolicy(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, decision.VerificationRequired)
	assert.True(t, decision.CanSkip)
	assert.False(t, decision.MustVerify)

	// Document upload: valid aadhaar scoring 80.
	rec, err := f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFixture), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDocumentUploaded, rec.Status)
	assert.Equal(t, 80, rec.Scores.DocumentScore)
	assert.Equal(t, 48, rec.Scores.OverallScore)
	assert.Equal(t, models.LevelStandard, rec.Level)
	require.Len(t, rec.Documents, 1)
	assert.True(t, rec.Documents[0].Verified)
	require.Len(t, rec.History, 1)
	assert.Equal(t, "document_submitted", rec.History[0].Action)

	// Selfie at similarity 90: overall 84, auto-verified, premium.
	rec, err = f.svc.SubmitSelfie(ctx, f.userID, []byte("selfie-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, rec.Status)
	assert.Equal(t, 90, rec.Scores.FaceMatchScore)
	assert.Equal(t, 84, rec.Scores.OverallScore)
	assert.Equal(t, models.LevelPremium, rec.Level)
	require.NotNil(t, rec.Selfie)
	assert.True(t, rec.Selfie.FaceMatching.Matched)
	assert.Equal(t, models.DocTypeAadhaar, rec.Selfie.FaceMatching.MatchedWith)
	require.Len(t, rec.History, 3)
	assert.Equal(t, "selfie_submitted", rec.History[1].Action)
	assert.Equal(t, "auto_verify", rec.History[2].Action)

	user, err := f.users.Find(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, user.IdentityVerified, "auto-verify should flip the trust flag")

	// Admin rejection revokes trust and appends exactly one entry.
	reviewer := id.ReviewerID(uuid.New())
	rec, err = f.svc.AdminReview(adminCtx(), reviewer, f.userID, models.ReviewReject, "document mismatch")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rec.Status)
	require.Len(t, rec.History, 4)
	assert.Equal(t, "reject", rec.History[3].Action)
	assert.Equal(t, "document mismatch", rec.History[3].Details["notes"])

	user, err = f.users.Find(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, user.IdentityVerified, "rejection must revoke the trust flag")

	// Rejected is terminal for user submissions.
	_, err = f.svc.SubmitDocument(ctx, f.userID, models.DocTypePAN, []byte("Name: P\nPAN: ABCDE1234F"), "text/plain")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestOwnerPolicy(t *testing.T) {
	f := newFixture(t, id.RoleOwner)
	ctx := testCtx()

	decision, err := f.svc.GetPolicy(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, decision.VerificationRequired)
	assert.False(t, decision.CanSkip)
	assert.True(t, decision.MustVerify)

	_, err = f.svc.SetSkipPreference(ctx, f.userID, true)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePolicyViolation))
}

func TestSetSkipPreference_Student(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	ctx := testCtx()

	decision, err := f.svc.SetSkipPreference(ctx, f.userID, true)
	require.NoError(t, err)
	assert.False(t, decision.MustVerify)

	user, err := f.users.Find(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, user.VerificationSkipped)

	// Audit trail records the toggle.
	events, err := f.auditStore.ListByUser(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "skip_preference_set", events[0].Action)
}

func TestSubmitDocument_ReplacesSameType(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	ctx := testCtx()

	_, err := f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFixture), "text/plain")
	require.NoError(t, err)

	rec, err := f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFullFixture), "text/plain")
	require.NoError(t, err)

	require.Len(t, rec.Documents, 1, "same-type upload must replace, not append")
	assert.Equal(t, 100, rec.Documents[0].Score)
	assert.Equal(t, "true", rec.History[1].Details["replaced"])
}

func TestSubmitSelfie_RequiresDocument(t *testing.T) {
	f := newFixture(t, id.RoleStudent)

	_, err := f.svc.SubmitSelfie(testCtx(), f.userID, []byte("selfie"), "image/jpeg")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestSubmitSelfie_BelowThresholdStaysProcessing(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	f.matcher.Similarity = 40
	ctx := testCtx()

	_, err := f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFixture), "text/plain")
	require.NoError(t, err)

	rec, err := f.svc.SubmitSelfie(ctx, f.userID, []byte("selfie"), "image/jpeg")
	require.NoError(t, err)

	// overall = round(80*0.6 + 40*0.4) = 64 < 70: awaiting a decision.
	assert.Equal(t, models.StatusProcessing, rec.Status)
	assert.Equal(t, 64, rec.Scores.OverallScore)
	assert.False(t, rec.Selfie.FaceMatching.Matched)
	assert.Equal(t, models.LevelStandard, rec.Level)
}

func TestAutoVerifyDisabled(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	f.svc.cfg.AutoVerify = false
	ctx := testCtx()

	_, err := f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFixture), "text/plain")
	require.NoError(t, err)

	rec, err := f.svc.SubmitSelfie(ctx, f.userID, []byte("selfie"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, models.StatusProcessing, rec.Status, "auto-verify off: record waits for an admin")
	assert.Equal(t, 84, rec.Scores.OverallScore)
}

func TestExternalAuth_FullLevel(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	ctx := testCtx()

	_, err := f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFullFixture), "text/plain")
	require.NoError(t, err)
	_, err = f.svc.SubmitSelfie(ctx, f.userID, []byte("selfie"), "image/jpeg")
	require.NoError(t, err)

	// overall = round(100*0.6 + 90*0.4) = 96; external auth unlocks full.
	rec, err := f.svc.RecordExternalAuth(ctx, f.userID, "digilocker")
	require.NoError(t, err)
	assert.True(t, rec.ExternalAuth)
	assert.Equal(t, models.LevelFull, rec.Level)
	assert.Equal(t, "external_auth_linked", rec.History[len(rec.History)-1].Action)
}

func TestExternalAuth_NoScoreSoNoTransition(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	f.matcher.Similarity = 40
	ctx := testCtx()

	_, err := f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFixture), "text/plain")
	require.NoError(t, err)
	_, err = f.svc.SubmitSelfie(ctx, f.userID, []byte("selfie"), "image/jpeg")
	require.NoError(t, err)

	// overall = round(80*0.6 + 40*0.4) = 64, below the auto-verify bar.
	// External auth never adds score, so the record must stay processing.
	rec, err := f.svc.RecordExternalAuth(ctx, f.userID, "digilocker")
	require.NoError(t, err)
	assert.True(t, rec.ExternalAuth)
	assert.Equal(t, models.StatusProcessing, rec.Status)
	assert.Equal(t, 64, rec.Scores.OverallScore)
}

func TestAdminReview_RequiresPermission(t *testing.T) {
	f := newFixture(t, id.RoleStudent)

	_, err := f.svc.SubmitDocument(testCtx(), f.userID, models.DocTypeAadhaar, []byte(aadhaarFixture), "image/jpeg")
	require.NoError(t, err)

	_, err = f.svc.AdminReview(testCtx(), id.ReviewerID(uuid.New()), f.userID, models.ReviewApprove, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestAdminReview_NoRecordIsNotFound(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	ctx := adminCtx()

	for _, action := range []models.ReviewAction{models.ReviewApprove, models.ReviewReject, models.ReviewReset} {
		_, err := f.svc.AdminReview(ctx, id.ReviewerID(uuid.New()), f.userID, action, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound), "action %s", action)
	}

	// No record may come into existence as a side effect of the review.
	_, err := f.records.Find(context.Background(), f.userID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestAdminReview_ApproveIdempotent(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	ctx := adminCtx()
	reviewer := id.ReviewerID(uuid.New())

	_, err := f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFixture), "image/jpeg")
	require.NoError(t, err)

	first, err := f.svc.AdminReview(ctx, reviewer, f.userID, models.ReviewApprove, "manual check ok")
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, first.Status)

	second, err := f.svc.AdminReview(ctx, reviewer, f.userID, models.ReviewApprove, "still ok")
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Scores.OverallScore, second.Scores.OverallScore)
	assert.Equal(t, "still ok", second.AdminReview.Notes)

	user, err := f.users.Find(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, user.IdentityVerified)
}

func TestAdminReview_ResetKeepsHistory(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	ctx := testCtx()

	_, err := f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFixture), "text/plain")
	require.NoError(t, err)

	rec, err := f.svc.AdminReview(adminCtx(), id.ReviewerID(uuid.New()), f.userID, models.ReviewReset, "user request")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, rec.Status)
	assert.Equal(t, models.LevelBasic, rec.Level)
	assert.Empty(t, rec.Documents)
	assert.Nil(t, rec.Selfie)
	assert.Equal(t, models.Scores{}, rec.Scores)
	require.Len(t, rec.History, 2, "reset appends, never erases")
	assert.Equal(t, "reset", rec.History[1].Action)

	// The record is usable again after the reset.
	rec, err = f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFixture), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDocumentUploaded, rec.Status)
}

func TestSubmitDocument_AdapterFailureLeavesRecordUntouched(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	ctx := testCtx()

	_, err := f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFixture), "text/plain")
	require.NoError(t, err)
	before, err := f.records.Find(ctx, f.userID)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	ocr := mocks.NewMockTextExtractor(ctrl)
	ocr.EXPECT().
		Extract(gomock.Any(), gomock.Any(), models.DocTypePAN).
		Return(adapters.Extraction{}, errors.New("ocr unavailable"))
	f.svc.ocr = ocr

	_, err = f.svc.SubmitDocument(ctx, f.userID, models.DocTypePAN, []byte("Name: P\nPAN: ABCDE1234F"), "text/plain")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))

	after, err := f.records.Find(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version, "failed adapter call must not write")
	assert.Len(t, after.Documents, 1)
	assert.Len(t, after.History, 1)
}

func TestSubmitDocument_RejectsOversizedUpload(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	f.svc.cfg.MaxUploadBytes = 8

	_, err := f.svc.SubmitDocument(testCtx(), f.userID, models.DocTypeAadhaar, []byte(aadhaarFixture), "text/plain")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

type rateLimitDenyAll struct{}

func (rateLimitDenyAll) Allow(context.Context, id.UserID) (bool, error) { return false, nil }

func TestSubmitDocument_RateLimited(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	f.svc.limiter = rateLimitDenyAll{}

	_, err := f.svc.SubmitDocument(testCtx(), f.userID, models.DocTypeAadhaar, []byte(aadhaarFixture), "text/plain")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))
}

// conflictOnceStore injects a single version conflict to exercise the
// retry loop.
type conflictOnceStore struct {
	store.RecordStore
	fired bool
}

func (s *conflictOnceStore) Update(ctx context.Context, rec *models.VerificationRecord) error {
	if !s.fired {
		s.fired = true
		return sentinel.ErrConflict
	}
	return s.RecordStore.Update(ctx, rec)
}

func TestMutate_RetriesOnConflict(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	ctx := testCtx()

	_, err := f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFixture), "text/plain")
	require.NoError(t, err)

	wrapped := &conflictOnceStore{RecordStore: f.records}
	f.svc.records = wrapped

	rec, err := f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFullFixture), "text/plain")
	require.NoError(t, err, "a single conflict should be retried transparently")
	assert.True(t, wrapped.fired)
	assert.Equal(t, 100, rec.Scores.DocumentScore)
}

type conflictAlwaysStore struct {
	store.RecordStore
}

func (s *conflictAlwaysStore) Update(context.Context, *models.VerificationRecord) error {
	return sentinel.ErrConflict
}

func TestMutate_GivesUpAfterRetries(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	ctx := testCtx()

	_, err := f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFixture), "text/plain")
	require.NoError(t, err)

	f.svc.records = &conflictAlwaysStore{RecordStore: f.records}

	_, err = f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFullFixture), "text/plain")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestAuditTrail_SubmissionAndReview(t *testing.T) {
	f := newFixture(t, id.RoleStudent)
	ctx := testCtx()

	_, err := f.svc.SubmitDocument(ctx, f.userID, models.DocTypeAadhaar, []byte(aadhaarFixture), "text/plain")
	require.NoError(t, err)
	_, err = f.svc.SubmitSelfie(ctx, f.userID, []byte("selfie"), "image/jpeg")
	require.NoError(t, err)
	_, err = f.svc.AdminReview(adminCtx(), id.ReviewerID(uuid.New()), f.userID, models.ReviewReject, "mismatch")
	require.NoError(t, err)

	events, err := f.auditStore.ListByUser(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "document_submitted", events[0].Action)
	assert.Equal(t, "selfie_submitted", events[1].Action)
	assert.Equal(t, "auto_verified", events[2].Action)
	assert.Equal(t, "admin_rejected", events[3].Action)
	assert.Equal(t, "mismatch", events[3].Reason)
}
