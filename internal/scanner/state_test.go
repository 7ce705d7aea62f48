package scanner

import (
	"testing"

	"idscan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectFile(t *testing.T) {
	tests := []struct {
		mime string
		want Phase
		ok   bool
	}{
		{"image/jpeg", PhaseFileSelected, true},
		{"image/heic", PhaseFileSelected, true},
		{"application/pdf", PhaseFileSelected, true},
		{"text/plain", PhaseIdle, false},
		{"", PhaseIdle, false},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			s, err := SelectFile(State{Phase: PhaseIdle}, Document{Name: "f", MIMEType: tt.mime})
			assert.Equal(t, tt.want, s.Phase)
			if tt.ok {
				require.NoError(t, err)
				assert.Empty(t, s.Error)
			} else {
				assert.ErrorIs(t, err, ErrUnsupportedType)
				assert.NotEmpty(t, s.Error)
				assert.Nil(t, s.Doc)
			}
		})
	}
}

func TestTransitions_HappyPath(t *testing.T) {
	s := State{Phase: PhaseIdle}
	s, err := SelectFile(s, Document{Name: "card.png", MIMEType: "image/png", Data: []byte{1}})
	require.NoError(t, err)
	s, err = FileLoaded(s, []byte{1})
	require.NoError(t, err)
	assert.Equal(t, PhaseImageReady, s.Phase)

	s, err = BeginProcessing(s)
	require.NoError(t, err)
	assert.Equal(t, PhaseProcessing, s.Phase)

	var r models.ExtractionResult
	r.Fields.FullName = models.ExtractedField{Value: models.Str("Jane Doe"), Confidence: 0.9}
	r.SyncTopLevel()
	s, err = Extracted(s, r)
	require.NoError(t, err)
	assert.Equal(t, PhaseExtracted, s.Phase)
	assert.Equal(t, "Jane Doe", models.Deref(s.Result.FullName))
}

func TestTransitions_Rejected(t *testing.T) {
	idle := State{Phase: PhaseIdle}
	_, err := BeginProcessing(idle)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, PhaseIdle, te.From)

	_, err = Captured(idle, nil)
	assert.Error(t, err)
	_, err = EditField(idle, models.FieldFullName, "x")
	assert.Error(t, err)

	processing := State{Phase: PhaseProcessing}
	_, err = SelectFile(processing, Document{MIMEType: "image/png"})
	assert.Error(t, err)
	_, err = StartCamera(processing)
	assert.Error(t, err)
}

func TestCameraTransitions(t *testing.T) {
	s, err := StartCamera(State{Phase: PhaseIdle})
	require.NoError(t, err)
	assert.Equal(t, PhaseCameraCapturing, s.Phase)

	captured, err := Captured(s, []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, PhaseImageReady, captured.Phase)
	assert.Equal(t, "image/jpeg", captured.Doc.MIMEType)

	cancelled, err := CancelCamera(s)
	require.NoError(t, err)
	assert.Equal(t, State{Phase: PhaseIdle}, cancelled)

	failed, err := CameraFailed(s)
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, failed.Phase)
	assert.Equal(t, msgCameraFailed, failed.Error)
}

func TestEditField_LowersConfidenceWithoutMutatingInput(t *testing.T) {
	var r models.ExtractionResult
	r.Fields.FullName = models.ExtractedField{Value: models.Str("Jnae Doe"), Confidence: 0.9}
	r.Fields.IDNumber = models.ExtractedField{Value: models.Str("AB123456"), Confidence: 0.95}
	r.SyncTopLevel()
	before := State{Phase: PhaseExtracted, Result: &r}

	after, err := EditField(before, models.FieldFullName, " Jane Doe ")
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", models.Deref(after.Result.FullName))
	assert.Equal(t, ManualConfidence, after.Result.Fields.FullName.Confidence)
	assert.Equal(t, 0.95, after.Result.Fields.IDNumber.Confidence)
	assert.Equal(t, "Jnae Doe", models.Deref(before.Result.FullName))
	assert.Equal(t, 0.9, before.Result.Fields.FullName.Confidence)

	_, err = EditField(before, "nickname", "JD")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestExtractionFailed_EntersManualEntry(t *testing.T) {
	s := State{Phase: PhaseProcessing, Doc: &Document{}}
	var demo models.ExtractionResult
	demo.Fields.FullName.Value = models.Str("Demo Student")
	s, err := ExtractionFailed(s, demo)
	require.NoError(t, err)
	assert.Equal(t, PhaseManualEntry, s.Phase)
	assert.Equal(t, msgExtractFailed, s.Error)

	s, err = EditField(s, models.FieldAddress, "12 Oak Avenue, Springfield")
	require.NoError(t, err)
	assert.Equal(t, PhaseManualEntry, s.Phase)
	assert.Equal(t, ManualConfidence, s.Result.Fields.Address.Confidence)
}
