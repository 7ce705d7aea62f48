package extraction

import (
	"fmt"
	"math"
	"strings"

	"idscan/internal/models"
)

const minOverallConfidence = 0.3

// Quality is an advisory judgment over an ExtractionResult. It never blocks
// the caller from continuing with manual correction.
type Quality struct {
	IsValid          bool                       `json:"isValid"`
	MissingFields    []string                   `json:"missingFields"`
	ConfidenceIssues []string                   `json:"confidenceIssues"`
	FormatIssues     []string                   `json:"formatIssues"`
	Warnings         []string                   `json:"warnings,omitempty"`
	Fields           map[string]FieldValidation `json:"fields"`
}

// AssessQuality runs the assessor against the wall clock.
func AssessQuality(r models.ExtractionResult) Quality {
	return Validator{}.Assess(r)
}

// Assess validates every field of r and derives the overall verdict.
func (v Validator) Assess(r models.ExtractionResult) Quality {
	q := Quality{
		MissingFields:    []string{},
		ConfidenceIssues: []string{},
		FormatIssues:     []string{},
		Fields:           make(map[string]FieldValidation, len(models.AllFields)),
	}

	for _, name := range models.AllFields {
		f, _ := r.Fields.Get(name)
		fv := v.ValidateField(name, f.Value, f.Confidence)
		q.Fields[name] = fv

		if strings.TrimSpace(models.Deref(f.Value)) == "" {
			if isCore(name) {
				q.MissingFields = append(q.MissingFields, name)
			}
			continue
		}
		q.FormatIssues = append(q.FormatIssues, fv.Issues...)
		q.Warnings = append(q.Warnings, fv.Warnings...)
		if f.Confidence < lowConfidenceThreshold {
			q.ConfidenceIssues = append(q.ConfidenceIssues,
				fmt.Sprintf("%s has low confidence (%d%%)", FieldLabel(name), int(math.Round(f.Confidence*100))))
		}
	}

	q.IsValid = len(q.MissingFields) == 0 && len(q.FormatIssues) == 0 && r.Confidence >= minOverallConfidence
	return q
}

// Summary renders the issues as a bullet list. It is empty when there is
// nothing to warn about.
func (q Quality) Summary() string {
	var lines []string
	if len(q.MissingFields) > 0 {
		labels := make([]string, len(q.MissingFields))
		for i, f := range q.MissingFields {
			labels[i] = FieldLabel(f)
		}
		lines = append(lines, "Missing required fields: "+strings.Join(labels, ", "))
	}
	lines = append(lines, q.FormatIssues...)
	lines = append(lines, q.ConfidenceIssues...)
	lines = append(lines, q.Warnings...)
	if len(lines) == 0 {
		if q.IsValid {
			return ""
		}
		lines = append(lines, "Overall extraction confidence is too low")
	}

	var b strings.Builder
	b.WriteString("Please review the extracted information:")
	for _, l := range lines {
		b.WriteString("\n• ")
		b.WriteString(l)
	}
	return b.String()
}
