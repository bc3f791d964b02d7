package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"basera/internal/verification/models"
	id "basera/pkg/domain"
)

// Local adapter implementations for development wiring. They keep blobs in
// memory and produce deterministic OCR/face-match results so the full
// pipeline runs without external services.

// LocalBlobStore keeps uploaded bytes in memory, keyed by a generated
// handle.
type LocalBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewLocalBlobStore constructs an empty LocalBlobStore.
func NewLocalBlobStore() *LocalBlobStore {
	return &LocalBlobStore{blobs: make(map[string][]byte)}
}

func (s *LocalBlobStore) Store(_ context.Context, data []byte, _ string, ownerID id.UserID) (string, error) {
	handle := fmt.Sprintf("blob://%s/%s", ownerID, uuid.New())
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[handle] = stored
	return handle, nil
}

// Get returns stored bytes by handle. Used by the local extractor.
func (s *LocalBlobStore) Get(handle string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[handle]
	return data, ok
}

// LocalExtractor treats the stored blob bytes as the OCR text itself.
// Useful for exercising the parser end to end with plain-text fixtures.
type LocalExtractor struct {
	Blobs *LocalBlobStore
}

func (e *LocalExtractor) Extract(_ context.Context, handle string, _ models.DocumentType) (Extraction, error) {
	data, ok := e.Blobs.Get(handle)
	if !ok {
		return Extraction{}, fmt.Errorf("unknown blob handle %q", handle)
	}
	return Extraction{Text: string(data), Confidence: 0.9}, nil
}

// LocalMatcher reports a fixed similarity against the first candidate.
type LocalMatcher struct {
	Similarity float64
}

func (m *LocalMatcher) Match(_ context.Context, _ string, candidateHandles []string) (MatchResult, error) {
	if len(candidateHandles) == 0 {
		return MatchResult{}, fmt.Errorf("no candidate documents")
	}
	return MatchResult{Similarity: m.Similarity, MatchedWith: candidateHandles[0]}, nil
}

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, userID id.UserID, event string, payload map[string]string) error {
	n.Logger.InfoContext(ctx, "notification",
		"user_id", userID,
		"event", event,
		"payload", payload,
	)
	return nil
}
