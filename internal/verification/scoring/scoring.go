// Package scoring combines document and face-match signals into the overall
// trust score and verification level. Pure domain logic: no I/O, no side
// effects, never errors. Missing inputs score zero so the state machine
// always has well-defined values to transition on.
package scoring

import (
	"math"

	"basera/internal/verification/models"
)

// Score weights and thresholds. Behavior-preserving named constants so the
// blend is discoverable and testable in isolation.
const (
	// DocumentWeight and FaceMatchWeight blend the two component scores
	// into the overall score.
	DocumentWeight  = 0.6
	FaceMatchWeight = 0.4

	// AutoVerifyThreshold is the overall score at which a record is
	// verified automatically, with no admin step. See config.Verification
	// for the flag gating that behavior.
	AutoVerifyThreshold = 70

	// FullLevelThreshold is the overall score required (together with
	// external authentication) for the full level.
	FullLevelThreshold = 85
)

// Overall blends the component scores. Both inputs and the result are
// 0-100.
func Overall(documentScore, faceMatchScore int) int {
	return int(math.Round(float64(documentScore)*DocumentWeight + float64(faceMatchScore)*FaceMatchWeight))
}

// Recompute derives Scores and Level from the record's current documents
// and selfie. Idempotent; recomputes downward as well as upward, so an
// invalidated document lowers the level on the next pass.
func Recompute(rec *models.VerificationRecord) {
	rec.Scores = models.Scores{
		DocumentScore:  documentScore(rec),
		FaceMatchScore: faceMatchScore(rec),
	}
	rec.Scores.OverallScore = Overall(rec.Scores.DocumentScore, rec.Scores.FaceMatchScore)
	rec.Level = deriveLevel(rec)
}

// documentScore is the best single document's validity score. Uploading
// extra unrelated document types never lowers the score.
func documentScore(rec *models.VerificationRecord) int {
	best := 0
	for _, doc := range rec.Documents {
		if doc.Score > best {
			best = doc.Score
		}
	}
	return best
}

func faceMatchScore(rec *models.VerificationRecord) int {
	if rec.Selfie == nil {
		return 0
	}
	score := int(math.Round(rec.Selfie.FaceMatching.Similarity))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// deriveLevel evaluates levels in priority order; the highest qualifying
// level wins.
func deriveLevel(rec *models.VerificationRecord) models.Level {
	switch {
	case rec.ExternalAuth && rec.Scores.OverallScore >= FullLevelThreshold:
		return models.LevelFull
	case rec.Selfie != nil && rec.Selfie.FaceMatching.Matched:
		return models.LevelPremium
	case rec.HasVerifiedDocument():
		return models.LevelStandard
	default:
		return models.LevelBasic
	}
}
