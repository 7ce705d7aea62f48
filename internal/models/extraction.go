package models

import "time"

// Field names as they appear on the wire.
const (
	FieldFullName    = "fullName"
	FieldIDNumber    = "idNumber"
	FieldDateOfBirth = "dateOfBirth"
	FieldGender      = "gender"
	FieldAddress     = "address"
)

// AllFields lists the recognised attributes in response order.
var AllFields = []string{FieldFullName, FieldIDNumber, FieldDateOfBirth, FieldGender, FieldAddress}

// CoreFields is the minimum set an extraction needs to count as non-empty.
var CoreFields = []string{FieldFullName, FieldIDNumber, FieldDateOfBirth}

// ExtractedField is one recognised attribute. Confidence is a heuristic in [0,1].
type ExtractedField struct {
	Value      *string `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Fields holds the per-attribute envelope of an extraction.
type Fields struct {
	FullName    ExtractedField `json:"fullName"`
	IDNumber    ExtractedField `json:"idNumber"`
	DateOfBirth ExtractedField `json:"dateOfBirth"`
	Gender      ExtractedField `json:"gender"`
	Address     ExtractedField `json:"address"`
}

// Get returns the field by wire name.
func (f *Fields) Get(name string) (ExtractedField, bool) {
	p := f.ptr(name)
	if p == nil {
		return ExtractedField{}, false
	}
	return *p, true
}

// Set replaces the field by wire name. Unknown names are ignored.
func (f *Fields) Set(name string, v ExtractedField) bool {
	p := f.ptr(name)
	if p == nil {
		return false
	}
	*p = v
	return true
}

func (f *Fields) ptr(name string) *ExtractedField {
	switch name {
	case FieldFullName:
		return &f.FullName
	case FieldIDNumber:
		return &f.IDNumber
	case FieldDateOfBirth:
		return &f.DateOfBirth
	case FieldGender:
		return &f.Gender
	case FieldAddress:
		return &f.Address
	}
	return nil
}

// Extraction methods recorded in Metadata.Method.
const (
	MethodAI          = "ai"
	MethodAIRetry     = "ai_json_retry"
	MethodRegex       = "regex_fallback"
	MethodHybrid      = "hybrid"
	MethodPlaceholder = "pdf_placeholder"
	MethodVisionOCR   = "vision_ocr"
	MethodFailed      = "failed"
)

// Metadata describes how a result was produced.
type Metadata struct {
	Source      string    `json:"source"`
	Method      string    `json:"method"`
	ExtractedAt time.Time `json:"extractedAt"`
}

// ExtractionResult is the response envelope of one extraction request.
// It is built fresh per request and never stored server-side.
type ExtractionResult struct {
	FullName    *string   `json:"fullName"`
	IDNumber    *string   `json:"idNumber"`
	DateOfBirth *string   `json:"dateOfBirth"`
	Gender      *string   `json:"gender"`
	Address     *string   `json:"address"`
	Confidence  float64   `json:"confidence"`
	Fields      Fields    `json:"fields"`
	RawText     string    `json:"rawText"`
	Note        string    `json:"note,omitempty"`
	Metadata    *Metadata `json:"metadata,omitempty"`
}

// SyncTopLevel copies field values into the flat top-level attributes.
func (r *ExtractionResult) SyncTopLevel() {
	r.FullName = r.Fields.FullName.Value
	r.IDNumber = r.Fields.IDNumber.Value
	r.DateOfBirth = r.Fields.DateOfBirth.Value
	r.Gender = r.Fields.Gender.Value
	r.Address = r.Fields.Address.Value
}

// Str returns a pointer to s, or nil when s is empty.
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
