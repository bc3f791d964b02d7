package handler

import (
	"time"

	"basera/internal/verification/models"
	"basera/internal/verification/policy"
)

// RecordResponse is the HTTP view of a verification record. File handles
// and extracted document fields stay server-side; clients see types,
// scores, and outcomes.
type RecordResponse struct {
	UserID       string             `json:"user_id"`
	Status       string             `json:"status"`
	Level        string             `json:"level"`
	Documents    []DocumentResponse `json:"documents"`
	Selfie       *SelfieResponse    `json:"selfie,omitempty"`
	Scores       ScoresResponse     `json:"scores"`
	AdminReview  *ReviewResponse    `json:"admin_review,omitempty"`
	History      []HistoryResponse  `json:"history"`
	ExternalAuth bool               `json:"external_auth"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type DocumentResponse struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Verified   bool      `json:"verified"`
	Score      int       `json:"score"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type SelfieResponse struct {
	Similarity  float64   `json:"similarity"`
	Matched     bool      `json:"matched"`
	MatchedWith string    `json:"matched_with,omitempty"`
	CapturedAt  time.Time `json:"captured_at"`
}

type ScoresResponse struct {
	DocumentScore  int `json:"document_score"`
	FaceMatchScore int `json:"face_match_score"`
	OverallScore   int `json:"overall_score"`
}

type ReviewResponse struct {
	Action     string    `json:"action"`
	Notes      string    `json:"notes,omitempty"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

type HistoryResponse struct {
	Action      string            `json:"action"`
	Details     map[string]string `json:"details,omitempty"`
	PerformedBy string            `json:"performed_by"`
	Timestamp   time.Time         `json:"timestamp"`
}

// PolicyResponse is the HTTP view of a policy decision.
type PolicyResponse struct {
	VerificationRequired bool `json:"verification_required"`
	CanSkip              bool `json:"can_skip"`
	MustVerify           bool `json:"must_verify"`
}

// FromRecord converts a record aggregate to its HTTP response.
func FromRecord(rec *models.VerificationRecord) *RecordResponse {
	resp := &RecordResponse{
		UserID:       rec.UserID.String(),
		Status:       string(rec.Status),
		Level:        string(rec.Level),
		Documents:    make([]DocumentResponse, 0, len(rec.Documents)),
		Scores:       ScoresResponse(rec.Scores),
		History:      make([]HistoryResponse, 0, len(rec.History)),
		ExternalAuth: rec.ExternalAuth,
		UpdatedAt:    rec.UpdatedAt,
	}
	for _, doc := range rec.Documents {
		resp.Documents = append(resp.Documents, DocumentResponse{
			ID:         doc.ID.String(),
			Type:       string(doc.Type),
			Verified:   doc.Verified,
			Score:      doc.Score,
			UploadedAt: doc.UploadedAt,
		})
	}
	if rec.Selfie != nil {
		resp.Selfie = &SelfieResponse{
			Similarity:  rec.Selfie.FaceMatching.Similarity,
			Matched:     rec.Selfie.FaceMatching.Matched,
			MatchedWith: string(rec.Selfie.FaceMatching.MatchedWith),
			CapturedAt:  rec.Selfie.CapturedAt,
		}
	}
	if rec.AdminReview != nil {
		resp.AdminReview = &ReviewResponse{
			Action:     string(rec.AdminReview.Action),
			Notes:      rec.AdminReview.Notes,
			ReviewedAt: rec.AdminReview.ReviewedAt,
		}
	}
	for _, entry := range rec.History {
		resp.History = append(resp.History, HistoryResponse{
			Action:      entry.Action,
			Details:     entry.Details,
			PerformedBy: string(entry.PerformedBy.Type),
			Timestamp:   entry.Timestamp,
		})
	}
	return resp
}

// FromDecision converts a policy decision to its HTTP response.
func FromDecision(d policy.Decision) *PolicyResponse {
	return &PolicyResponse{
		VerificationRequired: d.VerificationRequired,
		CanSkip:              d.CanSkip,
		MustVerify:           d.MustVerify,
	}
}
