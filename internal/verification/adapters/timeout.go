package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"basera/internal/verification/models"
	id "basera/pkg/domain"
	"basera/pkg/platform/sentinel"
)

// Timeout decorators. The upstream adapters specify no deadline of their
// own, so each call gets one here. No internal retry: callers retry with
// backoff so the state machine stays free of I/O retry concerns.
// A blown deadline comes back wrapping sentinel.ErrUnavailable.

func unavailable(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return err
}

// BlobStoreWithTimeout bounds every Store call.
func BlobStoreWithTimeout(inner BlobStore, d time.Duration) BlobStore {
	return &timeoutBlobStore{inner: inner, timeout: d}
}

type timeoutBlobStore struct {
	inner   BlobStore
	timeout time.Duration
}

func (s *timeoutBlobStore) Store(ctx context.Context, data []byte, contentType string, ownerID id.UserID) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	handle, err := s.inner.Store(ctx, data, contentType, ownerID)
	return handle, unavailable(err)
}

// ExtractorWithTimeout bounds every Extract call.
func ExtractorWithTimeout(inner TextExtractor, d time.Duration) TextExtractor {
	return &timeoutExtractor{inner: inner, timeout: d}
}

type timeoutExtractor struct {
	inner   TextExtractor
	timeout time.Duration
}

func (e *timeoutExtractor) Extract(ctx context.Context, handle string, declaredType models.DocumentType) (Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	extraction, err := e.inner.Extract(ctx, handle, declaredType)
	return extraction, unavailable(err)
}

// MatcherWithTimeout bounds every Match call.
func MatcherWithTimeout(inner FaceMatcher, d time.Duration) FaceMatcher {
	return &timeoutMatcher{inner: inner, timeout: d}
}

type timeoutMatcher struct {
	inner   FaceMatcher
	timeout time.Duration
}

func (m *timeoutMatcher) Match(ctx context.Context, selfieHandle string, candidateHandles []string) (MatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	res, err := m.inner.Match(ctx, selfieHandle, candidateHandles)
	return res, unavailable(err)
}
