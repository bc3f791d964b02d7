// Package validator parses OCR output into structured document fields and
// scores each document's validity.
package validator

import (
	"regexp"
	"strings"

	"basera/internal/verification/models"
)

// Field presence weights. Name, number, and date of birth carry most of the
// score; the per-type format check carries the rest.
const (
	nameWeight    = 25
	numberWeight  = 20
	dobWeight     = 20
	addressWeight = 10
	formatWeight  = 25

	// minConfidence gates validity: below it the extraction is too noisy
	// to trust, whatever the field score says.
	minConfidence = 0.4
)

// Result is the validation outcome. Score is a continuous 0-100 signal;
// IsValid is an independent hard gate. A document can score high and still
// fail the gate (bad format), or pass the gate with minor field gaps.
type Result struct {
	IsValid bool
	Score   int
}

// Document number formats per type. Aadhaar is the 12-digit national ID;
// PAN is the 10-character tax ID (AAAAA9999A); the others follow their
// usual issuing formats loosely enough to survive OCR spacing noise.
var numberFormats = map[models.DocumentType]*regexp.Regexp{
	models.DocTypeAadhaar:        regexp.MustCompile(`^\d{12}$`),
	models.DocTypePAN:            regexp.MustCompile(`^[A-Z]{5}\d{4}[A-Z]$`),
	models.DocTypePassport:       regexp.MustCompile(`^[A-Z]\d{7}$`),
	models.DocTypeDrivingLicense: regexp.MustCompile(`^[A-Z]{2}\d{13}$`),
	models.DocTypeVoterID:        regexp.MustCompile(`^[A-Z]{3}\d{7}$`),
}

// field labels accepted in OCR text, lowercased
var fieldLabels = map[string][]string{
	"name":    {"name"},
	"number":  {"document number", "document no", "aadhaar number", "aadhaar no", "pan", "passport no", "passport number", "dl no", "license no", "licence no", "epic no", "number", "no"},
	"dob":     {"date of birth", "dob", "birth date", "year of birth"},
	"address": {"address", "addr"},
}

// Parse extracts structured fields from OCR text. Best-effort: lines are
// matched as "label: value" pairs; a bare 12-digit group anywhere in the
// text is picked up as a fallback document number since Aadhaar cards print
// the number without a label.
func Parse(text string, confidence float64) models.ExtractedData {
	data := models.ExtractedData{Confidence: confidence}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		label, value, ok := splitLabel(line)
		if !ok {
			continue
		}
		switch fieldFor(label) {
		case "name":
			if data.Name == "" {
				data.Name = value
			}
		case "number":
			if data.DocumentNumber == "" {
				data.DocumentNumber = normalizeNumber(value)
			}
		case "dob":
			if data.DateOfBirth == "" {
				data.DateOfBirth = value
			}
		case "address":
			if data.Address == "" {
				data.Address = value
			}
		}
	}

	if data.DocumentNumber == "" {
		data.DocumentNumber = bareNumber(text)
	}
	return data
}

var bareAadhaarPattern = regexp.MustCompile(`\b\d{4}[ -]?\d{4}[ -]?\d{4}\b`)

func bareNumber(text string) string {
	match := bareAadhaarPattern.FindString(text)
	if match == "" {
		return ""
	}
	return normalizeNumber(match)
}

func splitLabel(line string) (label, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	label = strings.ToLower(strings.TrimSpace(line[:idx]))
	value = strings.TrimSpace(line[idx+1:])
	if value == "" {
		return "", "", false
	}
	return label, value, true
}

func fieldFor(label string) string {
	for field, labels := range fieldLabels {
		for _, l := range labels {
			if label == l {
				return field
			}
		}
	}
	return ""
}

// normalizeNumber strips the spacing and dashes OCR keeps from the card
// layout and uppercases alphanumeric IDs.
func normalizeNumber(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.ToUpper(s)
}

// Validate scores the extracted data for the declared document type.
//
// The score accumulates field presence plus the format check. The validity
// gate requires a name, a well-formed document number, and a usable
// extraction confidence; date of birth and address gaps reduce the score
// but do not fail the gate.
func Validate(data models.ExtractedData, docType models.DocumentType) Result {
	score := 0
	if data.Name != "" {
		score += nameWeight
	}
	if data.DocumentNumber != "" {
		score += numberWeight
	}
	if data.DateOfBirth != "" {
		score += dobWeight
	}
	if data.Address != "" {
		score += addressWeight
	}

	formatOK := false
	if pattern, known := numberFormats[docType]; known && data.DocumentNumber != "" {
		formatOK = pattern.MatchString(data.DocumentNumber)
	}
	if formatOK {
		score += formatWeight
	}

	isValid := data.Name != "" &&
		data.DocumentNumber != "" &&
		formatOK &&
		data.Confidence >= minConfidence

	return Result{IsValid: isValid, Score: score}
}
