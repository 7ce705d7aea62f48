// Package scanner drives a document scan from file selection or camera capture
// through server extraction to a reviewed, editable result.
package scanner

import (
	"errors"
	"fmt"
	"strings"

	"idscan/internal/models"
)

type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseFileSelected    Phase = "fileSelected"
	PhaseCameraCapturing Phase = "cameraCapturing"
	PhaseImageReady      Phase = "imageReady"
	PhaseProcessing      Phase = "processing"
	PhaseExtracted       Phase = "extracted"
	PhaseManualEntry     Phase = "manualEntry"
)

// ManualConfidence marks a field as entered by a person rather than read by
// the model.
const ManualConfidence = 0.5

const (
	msgUnsupportedType = "Unsupported file type. Please select an image or PDF document."
	msgCameraFailed    = "Unable to access camera. Please use file upload instead."
	msgExtractFailed   = "Failed to extract data from document. Please try again or enter details manually."
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrUnknownField    = errors.New("unknown field")
)

// TransitionError reports an event that is not valid in the current phase.
type TransitionError struct {
	From  Phase
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("scanner: %s not allowed in phase %s", e.Event, e.From)
}

// Document is the file sent for extraction.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

func (d Document) IsPDF() bool { return d.MIMEType == "application/pdf" }

// State is the whole scan screen. Transitions never mutate their input.
type State struct {
	Phase   Phase
	Doc     *Document
	Preview []byte
	Result  *models.ExtractionResult
	Error   string
}

// SupportedType reports whether a MIME type may be scanned.
func SupportedType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}

func allowed(s State, event string, phases ...Phase) error {
	for _, p := range phases {
		if s.Phase == p {
			return nil
		}
	}
	return &TransitionError{From: s.Phase, Event: event}
}

// SelectFile accepts an image or PDF. Other types leave the state idle with a
// visible error.
func SelectFile(s State, doc Document) (State, error) {
	if err := allowed(s, "selectFile", PhaseIdle, PhaseImageReady, PhaseExtracted, PhaseManualEntry); err != nil {
		return s, err
	}
	if !SupportedType(doc.MIMEType) {
		return State{Phase: PhaseIdle, Error: msgUnsupportedType}, ErrUnsupportedType
	}
	return State{Phase: PhaseFileSelected, Doc: &doc}, nil
}

// FileLoaded records the preview image of the selected file. preview may be
// nil when no preview could be rendered.
func FileLoaded(s State, preview []byte) (State, error) {
	if err := allowed(s, "fileLoaded", PhaseFileSelected); err != nil {
		return s, err
	}
	s.Phase = PhaseImageReady
	s.Preview = preview
	return s, nil
}

func StartCamera(s State) (State, error) {
	if err := allowed(s, "startCamera", PhaseIdle, PhaseImageReady, PhaseExtracted, PhaseManualEntry); err != nil {
		return s, err
	}
	return State{Phase: PhaseCameraCapturing}, nil
}

func CameraFailed(s State) (State, error) {
	if err := allowed(s, "cameraFailed", PhaseCameraCapturing); err != nil {
		return s, err
	}
	return State{Phase: PhaseIdle, Error: msgCameraFailed}, nil
}

// Captured stores a still JPEG taken from the camera.
func Captured(s State, jpeg []byte) (State, error) {
	if err := allowed(s, "capture", PhaseCameraCapturing); err != nil {
		return s, err
	}
	doc := Document{Name: "capture.jpg", MIMEType: "image/jpeg", Data: jpeg}
	return State{Phase: PhaseImageReady, Doc: &doc, Preview: jpeg}, nil
}

func CancelCamera(s State) (State, error) {
	if err := allowed(s, "cancelCamera", PhaseCameraCapturing); err != nil {
		return s, err
	}
	return State{Phase: PhaseIdle}, nil
}

func BeginProcessing(s State) (State, error) {
	if err := allowed(s, "process", PhaseImageReady, PhaseExtracted, PhaseManualEntry); err != nil {
		return s, err
	}
	if s.Doc == nil {
		return s, &TransitionError{From: s.Phase, Event: "process"}
	}
	s.Phase = PhaseProcessing
	s.Result = nil
	s.Error = ""
	return s, nil
}

func Extracted(s State, r models.ExtractionResult) (State, error) {
	if err := allowed(s, "extracted", PhaseProcessing); err != nil {
		return s, err
	}
	s.Phase = PhaseExtracted
	s.Result = &r
	return s, nil
}

// ExtractionFailed fills the form with a placeholder record the user must
// correct.
func ExtractionFailed(s State, demo models.ExtractionResult) (State, error) {
	if err := allowed(s, "extractionFailed", PhaseProcessing); err != nil {
		return s, err
	}
	s.Phase = PhaseManualEntry
	s.Result = &demo
	s.Error = msgExtractFailed
	return s, nil
}

// EditField replaces one field value and lowers its confidence to
// ManualConfidence. An empty value clears the field.
func EditField(s State, field, value string) (State, error) {
	if err := allowed(s, "editField", PhaseExtracted, PhaseManualEntry); err != nil {
		return s, err
	}
	r := *s.Result
	if !r.Fields.Set(field, models.ExtractedField{Value: models.Str(strings.TrimSpace(value)), Confidence: ManualConfidence}) {
		return s, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	r.SyncTopLevel()
	s.Result = &r
	return s, nil
}

// Reset clears the screen.
func Reset(State) State { return State{Phase: PhaseIdle} }
