package extraction

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idscan/internal/models"
)

var testValidator = Validator{Now: func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }}

func result(conf float64, values map[string]string, fieldConf float64) models.ExtractionResult {
	r := models.ExtractionResult{Confidence: conf}
	for name, v := range values {
		r.Fields.Set(name, models.ExtractedField{Value: models.Str(v), Confidence: fieldConf})
	}
	r.SyncTopLevel()
	return r
}

func goodValues() map[string]string {
	return map[string]string{
		models.FieldFullName:    "Ana Lima",
		models.FieldIDNumber:    "X1234567",
		models.FieldDateOfBirth: "1999-02-03",
		models.FieldGender:      "Female",
		models.FieldAddress:     "12 Long Road, Springfield",
	}
}

func TestAssess_Valid(t *testing.T) {
	q := testValidator.Assess(result(0.85, goodValues(), 0.9))
	assert.True(t, q.IsValid)
	assert.Empty(t, q.MissingFields)
	assert.Empty(t, q.FormatIssues)
	assert.Empty(t, q.ConfidenceIssues)
	assert.Empty(t, q.Summary())
	assert.Equal(t, ConfidenceHigh, q.Fields[models.FieldFullName].ConfidenceLevel)
}

func TestAssess_FutureDateIsFormatIssue(t *testing.T) {
	v := goodValues()
	v[models.FieldDateOfBirth] = "2099-01-01"
	q := testValidator.Assess(result(0.95, v, 0.95))

	assert.False(t, q.IsValid)
	assert.Contains(t, q.FormatIssues, "Date of birth cannot be in the future")
}

func TestAssess_MissingIDNumber(t *testing.T) {
	v := goodValues()
	delete(v, models.FieldIDNumber)
	q := testValidator.Assess(result(0.9, v, 0.9))

	assert.False(t, q.IsValid)
	assert.Equal(t, []string{models.FieldIDNumber}, q.MissingFields)
	assert.Contains(t, q.Summary(), "Missing required fields: ID number")
}

func TestAssess_LowConfidence(t *testing.T) {
	q := testValidator.Assess(result(0.35, goodValues(), 0.4))
	assert.True(t, q.IsValid, "field confidence alone does not invalidate")
	assert.Len(t, q.ConfidenceIssues, len(models.AllFields))
	assert.Contains(t, q.ConfidenceIssues, "Full name has low confidence (40%)")

	q = testValidator.Assess(result(0.2, goodValues(), 0.9))
	assert.False(t, q.IsValid)
	assert.Contains(t, q.Summary(), "Overall extraction confidence is too low")
}

func TestAssess_NameCharsetIsWarningOnly(t *testing.T) {
	v := goodValues()
	v[models.FieldFullName] = "Ana Lima 3rd"
	q := testValidator.Assess(result(0.9, v, 0.9))

	assert.True(t, q.IsValid)
	assert.Contains(t, q.Warnings, "Full name contains unusual characters")
	assert.True(t, strings.HasPrefix(q.Summary(), "Please review"))
}

func TestValidateField_Rules(t *testing.T) {
	tests := []struct {
		field string
		value string
		valid bool
	}{
		{models.FieldFullName, "A", false},
		{models.FieldFullName, "O'Neil-Smith Jr.", true},
		{models.FieldIDNumber, "12345", false},
		{models.FieldIDNumber, "123456", true},
		{models.FieldIDNumber, strings.Repeat("9", 21), false},
		{models.FieldDateOfBirth, "1999-02-03", true},
		{models.FieldDateOfBirth, "2/3/1999", true},
		{models.FieldDateOfBirth, "03.02.1999", false},
		{models.FieldDateOfBirth, "1899-12-31", false},
		{models.FieldDateOfBirth, "1999-02-30", false},
		{models.FieldGender, "Other", true},
		{models.FieldGender, "Not specified", false},
		{models.FieldAddress, "Short St", false},
		{models.FieldAddress, "12 Long Road, Springfield", true},
	}
	for _, tt := range tests {
		t.Run(tt.field+"/"+tt.value, func(t *testing.T) {
			got := testValidator.ValidateField(tt.field, models.Str(tt.value), 0.9)
			assert.Equal(t, tt.valid, got.IsValid, got.Issues)
		})
	}
}

func TestValidateField_AbsentValues(t *testing.T) {
	got := testValidator.ValidateField(models.FieldGender, nil, 0)
	assert.True(t, got.IsValid)

	got = testValidator.ValidateField(models.FieldIDNumber, nil, 0)
	assert.False(t, got.IsValid)
	assert.Equal(t, []string{"ID number is missing"}, got.Issues)
}

func TestValidateField_Idempotent(t *testing.T) {
	v := models.Str("2099-01-01")
	first := testValidator.ValidateField(models.FieldDateOfBirth, v, 0.55)
	second := testValidator.ValidateField(models.FieldDateOfBirth, v, 0.55)
	require.Equal(t, first, second)
	assert.Equal(t, ConfidenceMedium, first.ConfidenceLevel)
}

func TestClassifyConfidence(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, ClassifyConfidence(0.8))
	assert.Equal(t, ConfidenceMedium, ClassifyConfidence(0.5))
	assert.Equal(t, ConfidenceLow, ClassifyConfidence(0.49))
}
