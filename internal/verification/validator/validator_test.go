package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"basera/internal/verification/models"
)

func TestParse(t *testing.T) {
	t.Run("labeled fields", func(t *testing.T) {
		text := "Name: Priya Sharma\nDOB: 14/02/2001\nAddress: 22 MG Road, Pune\nAadhaar No: 1234 5678 9012"
		data := Parse(text, 0.95)

		assert.Equal(t, "Priya Sharma", data.Name)
		assert.Equal(t, "14/02/2001", data.DateOfBirth)
		assert.Equal(t, "22 MG Road, Pune", data.Address)
		assert.Equal(t, "123456789012", data.DocumentNumber)
		assert.Equal(t, 0.95, data.Confidence)
	})

	t.Run("bare aadhaar number without label", func(t *testing.T) {
		data := Parse("Priya Sharma\n4321 8765 2109\nGovernment of India", 0.8)
		assert.Equal(t, "432187652109", data.DocumentNumber)
	})

	t.Run("pan number uppercased", func(t *testing.T) {
		data := Parse("Name: Priya Sharma\nPAN: abcde1234f", 0.9)
		assert.Equal(t, "ABCDE1234F", data.DocumentNumber)
	})

	t.Run("first occurrence wins", func(t *testing.T) {
		data := Parse("Name: First\nName: Second", 0.9)
		assert.Equal(t, "First", data.Name)
	})

	t.Run("garbage yields empty fields", func(t *testing.T) {
		data := Parse("~~~ unreadable scan ~~~", 0.1)
		assert.Empty(t, data.Name)
		assert.Empty(t, data.DocumentNumber)
	})
}

func TestValidateScoring(t *testing.T) {
	full := models.ExtractedData{
		Name:           "Priya Sharma",
		DocumentNumber: "123456789012",
		DateOfBirth:    "14/02/2001",
		Address:        "22 MG Road, Pune",
		Confidence:     0.95,
	}

	t.Run("all fields and valid format", func(t *testing.T) {
		res := Validate(full, models.DocTypeAadhaar)
		assert.Equal(t, 100, res.Score)
		assert.True(t, res.IsValid)
	})

	t.Run("missing dob is a minor gap", func(t *testing.T) {
		data := full
		data.DateOfBirth = ""
		res := Validate(data, models.DocTypeAadhaar)
		assert.Equal(t, 80, res.Score)
		assert.True(t, res.IsValid, "dob gap lowers score but not validity")
	})

	t.Run("high score can still fail the gate", func(t *testing.T) {
		data := full
		data.DocumentNumber = "12345678" // wrong length for aadhaar
		res := Validate(data, models.DocTypeAadhaar)
		assert.Equal(t, 75, res.Score, "presence points stand, format points lost")
		assert.False(t, res.IsValid)
	})

	t.Run("low confidence fails the gate", func(t *testing.T) {
		data := full
		data.Confidence = 0.2
		res := Validate(data, models.DocTypeAadhaar)
		assert.Equal(t, 100, res.Score)
		assert.False(t, res.IsValid)
	})

	t.Run("missing name fails the gate", func(t *testing.T) {
		data := full
		data.Name = ""
		res := Validate(data, models.DocTypeAadhaar)
		assert.Equal(t, 75, res.Score)
		assert.False(t, res.IsValid)
	})

	t.Run("empty extraction scores zero", func(t *testing.T) {
		res := Validate(models.ExtractedData{Confidence: 0.9}, models.DocTypeAadhaar)
		assert.Zero(t, res.Score)
		assert.False(t, res.IsValid)
	})
}

func TestValidateFormats(t *testing.T) {
	cases := []struct {
		docType models.DocumentType
		number  string
		ok      bool
	}{
		{models.DocTypeAadhaar, "123456789012", true},
		{models.DocTypeAadhaar, "1234567890", false},
		{models.DocTypeAadhaar, "ABCD56789012", false},
		{models.DocTypePAN, "ABCDE1234F", true},
		{models.DocTypePAN, "ABC1234567", false},
		{models.DocTypePassport, "A1234567", true},
		{models.DocTypePassport, "AB123456", false},
		{models.DocTypeDrivingLicense, "MH1420110062821", true},
		{models.DocTypeDrivingLicense, "1420110062821", false},
		{models.DocTypeVoterID, "ABC1234567", true},
		{models.DocTypeVoterID, "AB12345678", false},
	}

	for _, tc := range cases {
		t.Run(string(tc.docType)+"/"+tc.number, func(t *testing.T) {
			data := models.ExtractedData{
				Name:           "Priya Sharma",
				DocumentNumber: tc.number,
				Confidence:     0.9,
			}
			res := Validate(data, tc.docType)
			assert.Equal(t, tc.ok, res.IsValid)
		})
	}
}
