// Package models holds the verification record aggregate and its
// supporting value types.
package models

import (
	"fmt"
	"time"

	id "basera/pkg/domain"
	dErrors "basera/pkg/domain-errors"
)

// DocumentType enumerates the identity documents the marketplace accepts.
type DocumentType string

const (
	DocTypeAadhaar        DocumentType = "aadhaar"
	DocTypePAN            DocumentType = "pan"
	DocTypeDrivingLicense DocumentType = "driving_license"
	DocTypePassport       DocumentType = "passport"
	DocTypeVoterID        DocumentType = "voter_id"
)

// ParseDocumentType validates and returns a DocumentType.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(s) {
	case DocTypeAadhaar, DocTypePAN, DocTypeDrivingLicense, DocTypePassport, DocTypeVoterID:
		return DocumentType(s), nil
	}
	return "", fmt.Errorf("unknown document type: %q", s)
}

// ExtractedData is the best-effort structured result of OCR on a document
// image. Fields may be partially populated.
type ExtractedData struct {
	Name           string  `json:"name,omitempty"`
	DocumentNumber string  `json:"document_number,omitempty"`
	DateOfBirth    string  `json:"date_of_birth,omitempty"`
	Address        string  `json:"address,omitempty"`
	Confidence     float64 `json:"confidence"`
}

// Document is a single submitted identity document. A later upload of the
// same type supersedes it entirely; documents are never merged.
type Document struct {
	ID         id.DocumentID `json:"id"`
	Type       DocumentType  `json:"type"`
	FileHandle string        `json:"file_handle"`
	Extracted  ExtractedData `json:"extracted_data"`
	Verified   bool          `json:"verified"`
	Score      int           `json:"score"`
	UploadedAt time.Time     `json:"uploaded_at"`
}

// FaceMatching is the outcome of matching a selfie against the submitted
// documents.
type FaceMatching struct {
	Similarity  float64      `json:"similarity"`
	Threshold   float64      `json:"threshold"`
	Matched     bool         `json:"matched"`
	MatchedWith DocumentType `json:"matched_with,omitempty"`
}

// SelfieCapture is the single-slot selfie record; a later upload fully
// replaces it.
type SelfieCapture struct {
	FileHandle   string       `json:"file_handle"`
	FaceMatching FaceMatching `json:"face_matching"`
	CapturedAt   time.Time    `json:"captured_at"`
}

// Scores are derived trust values, each 0-100, recomputed on every
// mutation. OverallScore is always a deterministic function of the other
// two and is never stored independently of its inputs.
type Scores struct {
	DocumentScore  int `json:"document_score"`
	FaceMatchScore int `json:"face_match_score"`
	OverallScore   int `json:"overall_score"`
}

// ActorType classifies who performed a state-affecting action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
	ActorAdmin  ActorType = "admin"
)

// Actor identifies the performer of a history entry.
type Actor struct {
	Type ActorType `json:"type"`
	ID   string    `json:"id,omitempty"`
}

// HistoryEntry is one immutable audit record. Details carry a snapshot of
// the inputs that caused the action (document type, scores, reviewer id) so
// an investigator can reconstruct why a transition happened, not just what
// it produced.
type HistoryEntry struct {
	Action      string            `json:"action"`
	Details     map[string]string `json:"details,omitempty"`
	PerformedBy Actor             `json:"performed_by"`
	Timestamp   time.Time         `json:"timestamp"`
}

// ReviewAction is a manual admin override action.
type ReviewAction string

const (
	ReviewApprove ReviewAction = "approve"
	ReviewReject  ReviewAction = "reject"
	ReviewReset   ReviewAction = "reset"
)

// ParseReviewAction validates and returns a ReviewAction.
func ParseReviewAction(s string) (ReviewAction, error) {
	switch ReviewAction(s) {
	case ReviewApprove, ReviewReject, ReviewReset:
		return ReviewAction(s), nil
	}
	return "", fmt.Errorf("unknown review action: %q", s)
}

// AdminReview records the most recent manual override.
type AdminReview struct {
	ReviewerID id.ReviewerID `json:"reviewer_id"`
	Action     ReviewAction  `json:"action"`
	Notes      string        `json:"notes,omitempty"`
	ReviewedAt time.Time     `json:"reviewed_at"`
}

// VerificationRecord is the aggregate root: the single source of truth for
// a user's verification state.
//
// Invariants:
//   - At most one current document per type (replace, never merge)
//   - Selfie is single-slot (latest wins)
//   - History is append-only; entries are never removed or reordered
//   - Scores.OverallScore is always derived from the other two scores
//   - Status=verified implies OverallScore >= the auto-verify threshold OR
//     an admin approval is recorded
//   - Version increments on every persisted mutation (optimistic locking)
//
// Created lazily on first submission; never deleted by the user. An admin
// reset clears submissions and scores but keeps the history.
type VerificationRecord struct {
	UserID       id.UserID      `json:"user_id"`
	Status       Status         `json:"status"`
	Level        Level          `json:"level"`
	Documents    []Document     `json:"documents"`
	Selfie       *SelfieCapture `json:"selfie,omitempty"`
	Scores       Scores         `json:"scores"`
	AdminReview  *AdminReview   `json:"admin_review,omitempty"`
	History      []HistoryEntry `json:"history"`
	ExternalAuth bool           `json:"external_auth"`
	Version      int64          `json:"version"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewRecord constructs a fresh pending record for a user.
func NewRecord(userID id.UserID, now time.Time) *VerificationRecord {
	return &VerificationRecord{
		UserID:    userID,
		Status:    StatusPending,
		Level:     LevelBasic,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PutDocument adds a document, replacing any prior document of the same
// type. Reports whether a document was replaced.
func (r *VerificationRecord) PutDocument(doc Document) bool {
	for i, existing := range r.Documents {
		if existing.Type == doc.Type {
			r.Documents[i] = doc
			return true
		}
	}
	r.Documents = append(r.Documents, doc)
	return false
}

// PutSelfie replaces the selfie slot.
func (r *VerificationRecord) PutSelfie(s SelfieCapture) {
	r.Selfie = &s
}

// DocumentByType returns the current document of the given type, if any.
func (r *VerificationRecord) DocumentByType(t DocumentType) (Document, bool) {
	for _, doc := range r.Documents {
		if doc.Type == t {
			return doc, true
		}
	}
	return Document{}, false
}

// DocumentHandles returns the file handles of all current documents, in
// submission order. Used as face-match candidates.
func (r *VerificationRecord) DocumentHandles() []string {
	handles := make([]string, 0, len(r.Documents))
	for _, doc := range r.Documents {
		handles = append(handles, doc.FileHandle)
	}
	return handles
}

// HasVerifiedDocument reports whether at least one current document passed
// validation.
func (r *VerificationRecord) HasVerifiedDocument() bool {
	for _, doc := range r.Documents {
		if doc.Verified {
			return true
		}
	}
	return false
}

// AppendHistory appends an immutable entry. History only ever grows.
func (r *VerificationRecord) AppendHistory(entry HistoryEntry) {
	r.History = append(r.History, entry)
}

// CanReview checks that a manual review action is applicable. Approve and
// reject are always applicable (that is the point of an override); reset
// requires something to reset.
func (r *VerificationRecord) CanReview(action ReviewAction) error {
	if action == ReviewReset && len(r.Documents) == 0 && r.Selfie == nil && r.Status == StatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "record has nothing to reset")
	}
	return nil
}

// ApplyReview applies an admin override. Approve forces verified and reject
// forces rejected regardless of computed score; both are terminal-idempotent
// (a repeat call only refreshes reviewer metadata).
func (r *VerificationRecord) ApplyReview(review AdminReview) {
	r.AdminReview = &review
	switch review.Action {
	case ReviewApprove:
		r.Status = StatusVerified
	case ReviewReject:
		r.Status = StatusRejected
	}
	r.UpdatedAt = review.ReviewedAt
}

// ApplyReset clears submissions, scores, and review metadata, returning the
// record to pending. History is retained: the reset itself becomes another
// entry, it does not erase the past.
func (r *VerificationRecord) ApplyReset(now time.Time) {
	r.Documents = nil
	r.Selfie = nil
	r.Scores = Scores{}
	r.AdminReview = nil
	r.ExternalAuth = false
	r.Status = StatusPending
	r.Level = LevelBasic
	r.UpdatedAt = now
}

// Clone returns a deep copy. Memory stores hand out clones so callers can
// mutate freely before writing back.
func (r *VerificationRecord) Clone() *VerificationRecord {
	out := *r
	out.Documents = make([]Document, len(r.Documents))
	copy(out.Documents, r.Documents)
	if r.Selfie != nil {
		selfie := *r.Selfie
		out.Selfie = &selfie
	}
	if r.AdminReview != nil {
		review := *r.AdminReview
		out.AdminReview = &review
	}
	out.History = make([]HistoryEntry, len(r.History))
	for i, entry := range r.History {
		out.History[i] = entry
		if entry.Details != nil {
			details := make(map[string]string, len(entry.Details))
			for k, v := range entry.Details {
				details[k] = v
			}
			out.History[i].Details = details
		}
	}
	return &out
}
