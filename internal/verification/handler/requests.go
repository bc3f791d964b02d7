package handler

import (
	"strings"

	"basera/internal/verification/models"
	dErrors "basera/pkg/domain-errors"
)

// SkipRequest is the HTTP request body for PUT /verification/skip.
type SkipRequest struct {
	Skip *bool `json:"skip"`
}

// Validate implements the Validatable interface for
// httputil.DecodeAndPrepare.
func (r *SkipRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Skip == nil {
		return dErrors.New(dErrors.CodeValidation, "skip is required")
	}
	return nil
}

// ExternalAuthRequest is the HTTP request body for
// POST /verification/external-auth.
type ExternalAuthRequest struct {
	Provider string `json:"provider"`
}

func (r *ExternalAuthRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Provider = strings.TrimSpace(r.Provider)
	if r.Provider == "" {
		return dErrors.New(dErrors.CodeValidation, "provider is required")
	}
	if len(r.Provider) > 64 {
		return dErrors.New(dErrors.CodeValidation, "provider must be at most 64 characters")
	}
	return nil
}

// ReviewRequest is the HTTP request body for
// POST /admin/verification/{userID}/review.
type ReviewRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`

	parsedAction models.ReviewAction
}

func (r *ReviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Action = strings.TrimSpace(r.Action)
	if r.Action == "" {
		return dErrors.New(dErrors.CodeValidation, "action is required")
	}
	action, err := models.ParseReviewAction(r.Action)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "action must be approve, reject, or reset")
	}
	if len(r.Notes) > 2000 {
		return dErrors.New(dErrors.CodeValidation, "notes must be at most 2000 characters")
	}
	r.parsedAction = action
	return nil
}

// ParsedAction returns the validated review action.
func (r *ReviewRequest) ParsedAction() models.ReviewAction {
	return r.parsedAction
}
