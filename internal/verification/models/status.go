package models

// Status is the authoritative verification state of a user's record.
//
// Flow: pending → document_uploaded → selfie_uploaded → processing →
// {verified | rejected}. The two terminal states are re-enterable only
// through an admin review, which may also force a terminal state back to
// itself with updated review metadata.
type Status string

const (
	StatusPending          Status = "pending"
	StatusDocumentUploaded Status = "document_uploaded"
	StatusSelfieUploaded   Status = "selfie_uploaded"
	StatusProcessing       Status = "processing"
	StatusVerified         Status = "verified"
	StatusRejected         Status = "rejected"
)

// Terminal reports whether the status can only change via admin review.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// CanTransitionTo reports whether an automatic (non-admin) transition to the
// target status is allowed. Admin review bypasses this check.
func (s Status) CanTransitionTo(target Status) bool {
	if s.Terminal() {
		return false
	}
	switch target {
	case StatusDocumentUploaded:
		return s == StatusPending || s == StatusDocumentUploaded
	case StatusSelfieUploaded:
		return s == StatusPending || s == StatusDocumentUploaded || s == StatusSelfieUploaded
	case StatusProcessing:
		return s == StatusSelfieUploaded || s == StatusProcessing
	case StatusVerified:
		return true
	default:
		return false
	}
}

// Level is the discrete trust tier derived from which verification steps
// succeeded. It is recomputed on every mutation and can move down as well
// as up; it is never set directly by a client.
type Level string

const (
	LevelBasic    Level = "basic"
	LevelStandard Level = "standard"
	LevelPremium  Level = "premium"
	LevelFull     Level = "full"
)
