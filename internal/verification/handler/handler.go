// Package handler exposes the verification engine over HTTP.
package handler

import (
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"basera/internal/verification/models"
	"basera/internal/verification/policy"
	id "basera/pkg/domain"
	dErrors "basera/pkg/domain-errors"
	"basera/pkg/platform/httputil"
	"basera/pkg/requestcontext"
)

// Service defines the verification operations the handler exposes.
type Service interface {
	GetStatus(ctx context.Context, userID id.UserID) (*models.VerificationRecord, error)
	GetPolicy(ctx context.Context, userID id.UserID) (policy.Decision, error)
	SubmitDocument(ctx context.Context, userID id.UserID, docType models.DocumentType, data []byte, contentType string) (*models.VerificationRecord, error)
	SubmitSelfie(ctx context.Context, userID id.UserID, data []byte, contentType string) (*models.VerificationRecord, error)
	SetSkipPreference(ctx context.Context, userID id.UserID, skip bool) (policy.Decision, error)
	AdminReview(ctx context.Context, reviewerID id.ReviewerID, userID id.UserID, action models.ReviewAction, notes string) (*models.VerificationRecord, error)
	RecordExternalAuth(ctx context.Context, userID id.UserID, provider string) (*models.VerificationRecord, error)
}

// Handler wires verification endpoints to the service.
type Handler struct {
	service        Service
	logger         *slog.Logger
	maxUploadBytes int64
}

// New constructs a verification handler.
func New(service Service, logger *slog.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// Register mounts user-facing endpoints. The router must already enforce
// authentication.
func (h *Handler) Register(r chi.Router) {
	r.Get("/verification/status", h.HandleGetStatus)
	r.Get("/verification/policy", h.HandleGetPolicy)
	r.Post("/verification/documents", h.HandleSubmitDocument)
	r.Post("/verification/selfie", h.HandleSubmitSelfie)
	r.Put("/verification/skip", h.HandleSetSkip)
	r.Post("/verification/external-auth", h.HandleExternalAuth)
}

// RegisterAdmin mounts manual-review endpoints. The router must enforce
// the review permission on top of authentication.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/verification/{userID}/review", h.HandleAdminReview)
	r.Post("/admin/verification/{userID}/reset", h.HandleAdminReset)
}

// HandleGetStatus handles GET /verification/status.
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.principal(w, ctx)
	if !ok {
		return
	}

	rec, err := h.service.GetStatus(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleGetPolicy handles GET /verification/policy.
func (h *Handler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.principal(w, ctx)
	if !ok {
		return
	}

	decision, err := h.service.GetPolicy(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDecision(decision))
}

// HandleSubmitDocument handles POST /verification/documents. Multipart
// form: "file" is the document image, "type" names the document type.
func (h *Handler) HandleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, ok := h.principal(w, ctx)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+4096)

	docType, err := models.ParseDocumentType(r.FormValue("type"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "type must be one of aadhaar, pan, driving_license, passport, voter_id"))
		return
	}

	data, contentType, ok := h.readUpload(w, r, "file")
	if !ok {
		return
	}

	rec, err := h.service.SubmitDocument(ctx, userID, docType, data, contentType)
	if err != nil {
		h.logger.ErrorContext(ctx, "document submission failed",
			"request_id", requestID,
			"user_id", userID,
			"document_type", docType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document submitted",
		"request_id", requestID,
		"user_id", userID,
		"document_type", docType,
		"status", rec.Status,
		"overall_score", rec.Scores.OverallScore,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(rec))
}

// HandleSubmitSelfie handles POST /verification/selfie. Multipart form:
// "file" is the selfie image.
func (h *Handler) HandleSubmitSelfie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, ok := h.principal(w, ctx)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+4096)

	data, contentType, ok := h.readUpload(w, r, "file")
	if !ok {
		return
	}

	rec, err := h.service.SubmitSelfie(ctx, userID, data, contentType)
	if err != nil {
		h.logger.ErrorContext(ctx, "selfie submission failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "selfie submitted",
		"request_id", requestID,
		"user_id", userID,
		"status", rec.Status,
		"overall_score", rec.Scores.OverallScore,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(rec))
}

// HandleSetSkip handles PUT /verification/skip.
func (h *Handler) HandleSetSkip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, ok := h.principal(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[SkipRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	decision, err := h.service.SetSkipPreference(ctx, userID, *req.Skip)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDecision(decision))
}

// HandleExternalAuth handles POST /verification/external-auth.
func (h *Handler) HandleExternalAuth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, ok := h.principal(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ExternalAuthRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.RecordExternalAuth(ctx, userID, req.Provider)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleAdminReview handles POST /admin/verification/{userID}/review.
func (h *Handler) HandleAdminReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	reviewerID, ok := h.reviewer(w, ctx)
	if !ok {
		return
	}

	subjectID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "userID must be a valid UUID"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.AdminReview(ctx, reviewerID, subjectID, req.ParsedAction(), req.Notes)
	if err != nil {
		h.logger.ErrorContext(ctx, "admin review failed",
			"request_id", requestID,
			"reviewer_id", reviewerID,
			"subject_id", subjectID,
			"action", req.Action,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "admin review applied",
		"request_id", requestID,
		"reviewer_id", reviewerID,
		"subject_id", subjectID,
		"action", req.Action,
		"status", rec.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleAdminReset handles POST /admin/verification/{userID}/reset.
func (h *Handler) HandleAdminReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	reviewerID, ok := h.reviewer(w, ctx)
	if !ok {
		return
	}

	subjectID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "userID must be a valid UUID"))
		return
	}

	rec, err := h.service.AdminReview(ctx, reviewerID, subjectID, models.ReviewReset, "")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification record reset",
		"request_id", requestID,
		"reviewer_id", reviewerID,
		"subject_id", subjectID,
	)
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

func (h *Handler) principal(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) reviewer(w http.ResponseWriter, ctx context.Context) (id.ReviewerID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.ReviewerID{}, false
	}
	return id.ReviewerID(userID), true
}

// readUpload extracts the named multipart file, enforcing the size cap
// before buffering. Callers wrap the body in MaxBytesReader first.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, string, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "multipart file field "+field+" is required"))
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read upload"))
		return nil, "", false
	}
	if int64(len(data)) > h.maxUploadBytes {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "upload exceeds the maximum allowed size"))
		return nil, "", false
	}

	return data, uploadContentType(header), true
}

func uploadContentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
