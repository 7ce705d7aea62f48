package extraction

import (
	"math"
	"regexp"
	"strings"

	"idscan/internal/models"
)

const fallbackNote = "Used fallback extraction due to JSON parsing issues"

var (
	fallbackNameRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`)
	fallbackIDRe   = regexp.MustCompile(`(?i)\b(?:ID|Passport|No\.?|Number)\s*[:#]?\s*([A-Z0-9\-]{6,20})\b`)

	// tried in order, first match wins
	fallbackDateRes = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{1,2}[/\-]\d{1,2}[/\-]\d{4})\b`),
		regexp.MustCompile(`\b(\d{4}[/\-]\d{1,2}[/\-]\d{1,2})\b`),
		regexp.MustCompile(`(?i)\b(?:DOB|Birth|Born)\s*[:#]?\s*(\d{1,2}[/\-]\d{1,2}[/\-]\d{4})\b`),
	}

	fallbackMaleRe   = regexp.MustCompile(`(?i)\b(?:Male|M|Mr\.?)\b`)
	fallbackFemaleRe = regexp.MustCompile(`(?i)\b(?:Female|F|Ms\.?|Mrs\.?)\b`)

	fallbackAddressRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d+\s+[A-Za-z\s,]+(?:Street|St|Road|Rd|Avenue|Ave|Drive|Dr|Lane|Ln|Court|Ct|Place|Pl|Circle|Cir|Boulevard|Blvd)\b[\s,]*[A-Za-z\s]*[,]*\s*[A-Z]{2}\s*\d{5}`),
		regexp.MustCompile(`(?i)\b\d+\s+[A-Za-z\s,]+(?:Street|St|Road|Rd|Avenue|Ave|Drive|Dr|Lane|Ln)\b`),
	}
)

// Accumulator bonuses and the per-field confidences reported for a match.
const (
	fallbackBase = 0.3
	fallbackCap  = 0.9
)

var fallbackRules = map[string]struct{ bonus, field float64 }{
	models.FieldFullName:    {0.2, 0.7},
	models.FieldIDNumber:    {0.2, 0.8},
	models.FieldDateOfBirth: {0.1, 0.6},
	models.FieldGender:      {0.1, 0.9},
	models.FieldAddress:     {0.1, 0.5},
}

// FallbackMatch is the raw outcome of pattern matching over free text.
type FallbackMatch struct {
	Values     map[string]string
	Confidence float64
}

// MatchPatterns scans text for name, ID, date of birth, gender and address.
// It does not depend on any model response.
func MatchPatterns(text string) FallbackMatch {
	m := FallbackMatch{Values: map[string]string{}, Confidence: fallbackBase}
	hit := func(field, value string) {
		m.Values[field] = value
		m.Confidence += fallbackRules[field].bonus
	}

	if s := fallbackNameRe.FindString(text); s != "" {
		hit(models.FieldFullName, s)
	}
	// a document number has at least one digit; this also skips JSON keys
	for _, sm := range fallbackIDRe.FindAllStringSubmatch(text, -1) {
		if strings.ContainsAny(sm[1], "0123456789") {
			hit(models.FieldIDNumber, sm[1])
			break
		}
	}
	for _, re := range fallbackDateRes {
		if sm := re.FindStringSubmatch(text); sm != nil {
			hit(models.FieldDateOfBirth, sm[1])
			break
		}
	}
	switch {
	case fallbackMaleRe.MatchString(text):
		hit(models.FieldGender, "Male")
	case fallbackFemaleRe.MatchString(text):
		hit(models.FieldGender, "Female")
	}
	for _, re := range fallbackAddressRes {
		if s := re.FindString(text); s != "" {
			hit(models.FieldAddress, s)
			break
		}
	}

	m.Confidence = math.Min(fallbackCap, m.Confidence)
	return m
}

// ExtractWithFallback builds a result envelope from pattern matching alone.
func ExtractWithFallback(text string) models.ExtractionResult {
	m := MatchPatterns(text)
	r := models.ExtractionResult{
		Confidence: m.Confidence,
		RawText:    text,
		Note:       fallbackNote,
	}
	for _, name := range models.AllFields {
		f := models.ExtractedField{}
		if v, ok := m.Values[name]; ok {
			f = models.ExtractedField{Value: models.Str(v), Confidence: fallbackRules[name].field}
		}
		r.Fields.Set(name, f)
	}
	r.SyncTopLevel()
	return r
}

// valuesFallback runs pattern matching over the string values of a decoded
// object that lacked every core field. Keys never reach the patterns.
func valuesFallback(p ModelPayload, rawText string) models.ExtractionResult {
	var values []string
	for _, name := range models.AllFields {
		if v, ok := p.Values[name]; ok {
			values = append(values, v)
		}
	}
	r := ExtractWithFallback(strings.Join(values, "\n"))
	r.RawText = rawText
	return r
}
