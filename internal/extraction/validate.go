package extraction

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"idscan/internal/models"
)

// Confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

const lowConfidenceThreshold = 0.5

var (
	nameCharsRe = regexp.MustCompile(`^[A-Za-z\s\-'.]+$`)
	isoDateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	usDateRe    = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
)

var genders = map[string]bool{"Male": true, "Female": true, "Other": true}

// FieldValidation is the verdict on a single extracted field.
type FieldValidation struct {
	IsValid         bool     `json:"isValid"`
	Issues          []string `json:"issues"`
	Warnings        []string `json:"warnings,omitempty"`
	ConfidenceLevel string   `json:"confidenceLevel"`
}

// Validator checks field shapes. Now is the reference clock for date checks.
type Validator struct {
	Now func() time.Time
}

// ValidateField validates against the wall clock.
func ValidateField(field string, value *string, confidence float64) FieldValidation {
	return Validator{}.ValidateField(field, value, confidence)
}

// ClassifyConfidence maps a score onto high/medium/low.
func ClassifyConfidence(c float64) string {
	switch {
	case c >= 0.8:
		return ConfidenceHigh
	case c >= lowConfidenceThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ValidateField checks one field's shape. An absent value is only invalid for
// core fields.
func (v Validator) ValidateField(field string, value *string, confidence float64) FieldValidation {
	out := FieldValidation{
		IsValid:         true,
		Issues:          []string{},
		ConfidenceLevel: ClassifyConfidence(confidence),
	}

	s := strings.TrimSpace(models.Deref(value))
	if s == "" {
		if isCore(field) {
			out.IsValid = false
			out.Issues = append(out.Issues, fmt.Sprintf("%s is missing", FieldLabel(field)))
		}
		return out
	}

	fail := func(msg string) {
		out.IsValid = false
		out.Issues = append(out.Issues, msg)
	}

	switch field {
	case models.FieldFullName:
		if n := len([]rune(s)); n < 2 || n > 100 {
			fail("Full name must be between 2 and 100 characters")
		}
		if !nameCharsRe.MatchString(s) {
			out.Warnings = append(out.Warnings, "Full name contains unusual characters")
		}
	case models.FieldIDNumber:
		if n := len([]rune(s)); n < 6 || n > 20 {
			fail("ID number must be between 6 and 20 characters")
		}
	case models.FieldDateOfBirth:
		for _, issue := range v.dateIssues(s) {
			fail(issue)
		}
	case models.FieldGender:
		if !genders[s] {
			fail("Gender must be Male, Female or Other")
		}
	case models.FieldAddress:
		if n := len([]rune(s)); n < 10 || n > 500 {
			fail("Address must be between 10 and 500 characters")
		}
	}
	return out
}

func (v Validator) dateIssues(s string) []string {
	var (
		t   time.Time
		err error
	)
	switch {
	case isoDateRe.MatchString(s):
		t, err = time.Parse("2006-01-02", s)
	case usDateRe.MatchString(s):
		t, err = time.Parse("1/2/2006", s)
	default:
		return []string{"Date of birth must be YYYY-MM-DD or M/D/YYYY"}
	}
	if err != nil {
		return []string{"Date of birth is not a valid date"}
	}

	var issues []string
	if t.After(v.now()) {
		issues = append(issues, "Date of birth cannot be in the future")
	}
	if t.Year() < 1900 {
		issues = append(issues, "Date of birth year must be 1900 or later")
	}
	return issues
}

func (v Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// FieldLabel is the human-readable name of a wire field.
func FieldLabel(field string) string {
	switch field {
	case models.FieldFullName:
		return "Full name"
	case models.FieldIDNumber:
		return "ID number"
	case models.FieldDateOfBirth:
		return "Date of birth"
	case models.FieldGender:
		return "Gender"
	case models.FieldAddress:
		return "Address"
	}
	return field
}

func isCore(field string) bool {
	for _, f := range models.CoreFields {
		if f == field {
			return true
		}
	}
	return false
}
