package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	dErrors "basera/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("validation error includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeValidation, "document type is required"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "validation_error" {
			t.Fatalf("expected error code validation_error, got %q", body["error"])
		}
		if body["error_description"] != "document type is required" {
			t.Fatalf("unexpected description %q", body["error_description"])
		}
	})

	t.Run("wrapped error keeps message without cause", func(t *testing.T) {
		w := httptest.NewRecorder()
		cause := fmt.Errorf("pq: connection refused")
		WriteError(w, dErrors.Wrap(cause, dErrors.CodeUnavailable, "storage adapter failed"))

		if w.Code != http.StatusBadGateway {
			t.Fatalf("expected status %d, got %d", http.StatusBadGateway, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error_description"] != "storage adapter failed" {
			t.Fatalf("cause should not leak, got %q", body["error_description"])
		}
	})

	t.Run("status mapping", func(t *testing.T) {
		cases := map[dErrors.Code]int{
			dErrors.CodePolicyViolation:    http.StatusForbidden,
			dErrors.CodeUnauthorized:       http.StatusUnauthorized,
			dErrors.CodeNotFound:           http.StatusNotFound,
			dErrors.CodeConflict:           http.StatusConflict,
			dErrors.CodeRateLimited:        http.StatusTooManyRequests,
			dErrors.CodeInvariantViolation: http.StatusConflict,
		}
		for code, want := range cases {
			w := httptest.NewRecorder()
			WriteError(w, dErrors.New(code, "x"))
			if w.Code != want {
				t.Fatalf("code %s: expected status %d, got %d", code, want, w.Code)
			}
		}
	})
}
