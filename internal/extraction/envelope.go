package extraction

import (
	"regexp"

	"idscan/internal/models"
)

const (
	failedImageNote = "Failed to process image with AI"
	pdfSetupNote    = "PDF processing requires additional setup. For best results, please use image files."
	pdfOCRNote      = "Extracted from PDF text with pattern matching; please review all fields."

	failedConfidence      = 0.1
	placeholderConfidence = 0.2
	placeholderNameConf   = 0.5
)

// Per-field confidences for a structured model response.
var structuredConfidence = map[string]float64{
	models.FieldFullName:    0.9,
	models.FieldIDNumber:    0.95,
	models.FieldDateOfBirth: 0.8,
	models.FieldGender:      0.85,
	models.FieldAddress:     0.7,
}

var fileExtRe = regexp.MustCompile(`\.[^/.]+$`)

func emptyFields() models.Fields {
	var f models.Fields
	for _, name := range models.AllFields {
		f.Set(name, models.ExtractedField{})
	}
	return f
}

// failedEnvelope is returned whenever the image path cannot produce data.
func failedEnvelope() models.ExtractionResult {
	r := models.ExtractionResult{
		Confidence: failedConfidence,
		Fields:     emptyFields(),
		Note:       failedImageNote,
	}
	r.SyncTopLevel()
	return r
}

// structuredResult wraps an accepted model payload.
func structuredResult(p ModelPayload, rawText string) models.ExtractionResult {
	r := models.ExtractionResult{RawText: rawText}
	sum := 0.0
	for _, name := range models.AllFields {
		f := models.ExtractedField{}
		if v, ok := p.Values[name]; ok {
			f = models.ExtractedField{Value: models.Str(v), Confidence: structuredConfidence[name]}
		}
		sum += f.Confidence
		r.Fields.Set(name, f)
	}
	r.SyncTopLevel()

	if p.Confidence != nil && *p.Confidence >= 0 && *p.Confidence <= 1 {
		r.Confidence = *p.Confidence
	} else {
		r.Confidence = sum / float64(len(models.AllFields))
	}
	return r
}

// pdfPlaceholder is the explicit degraded answer for PDFs without OCR.
func pdfPlaceholder(fileName string) models.ExtractionResult {
	r := models.ExtractionResult{
		Confidence: placeholderConfidence,
		Fields:     emptyFields(),
		Note:       pdfSetupNote,
	}
	if name := fileExtRe.ReplaceAllString(fileName, ""); name != "" {
		r.Fields.FullName = models.ExtractedField{Value: models.Str(name), Confidence: placeholderNameConf}
	}
	r.SyncTopLevel()
	return r
}
