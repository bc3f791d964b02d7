// Package adapters declares the contracts for the external collaborators
// the verification engine consumes: blob storage, OCR text extraction,
// biometric face matching, and outbound notification.
//
// The engine validates and stores the results of these calls, never their
// mechanics. All adapter failures are recoverable: the calling operation
// fails for that request and the record keeps its prior consistent state.
package adapters

import (
	"context"

	"basera/internal/verification/models"
	id "basera/pkg/domain"
)

// Extraction is the OCR result for a stored document image.
type Extraction struct {
	Text       string
	Confidence float64
}

// MatchResult is the face-match outcome. MatchedWith is the file handle of
// the best-matching candidate document.
type MatchResult struct {
	Similarity  float64
	MatchedWith string
}

// BlobStore persists uploaded binaries and returns a stable opaque handle.
type BlobStore interface {
	Store(ctx context.Context, data []byte, contentType string, ownerID id.UserID) (string, error)
}

// TextExtractor runs OCR over a stored document image.
type TextExtractor interface {
	Extract(ctx context.Context, handle string, declaredType models.DocumentType) (Extraction, error)
}

// FaceMatcher compares a selfie against candidate document images.
type FaceMatcher interface {
	Match(ctx context.Context, selfieHandle string, candidateHandles []string) (MatchResult, error)
}

// Notifier delivers a best-effort notification. Failures are logged by the
// caller and never propagated; delivery retry is the notifier's own
// concern.
type Notifier interface {
	Notify(ctx context.Context, userID id.UserID, event string, payload map[string]string) error
}
