package scanner

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"idscan/internal/extraction"
	"idscan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	result models.ExtractionResult
	err    error
	got    []Document
}

func (f *fakeExtractor) Extract(_ context.Context, doc Document) (models.ExtractionResult, error) {
	f.got = append(f.got, doc)
	return f.result, f.err
}

type fakeRenderer struct {
	png []byte
	err error
}

func (f fakeRenderer) Render(context.Context, []byte) ([]byte, error) { return f.png, f.err }

func janeResult() models.ExtractionResult {
	var r models.ExtractionResult
	r.Fields.FullName = models.ExtractedField{Value: models.Str("Jane Doe"), Confidence: 0.9}
	r.Fields.IDNumber = models.ExtractedField{Value: models.Str("AB123456"), Confidence: 0.95}
	r.Fields.DateOfBirth = models.ExtractedField{Value: models.Str("2008-04-02"), Confidence: 0.8}
	r.Confidence = 0.9
	r.SyncTopLevel()
	return r
}

func testValidator() extraction.Validator {
	return extraction.Validator{Now: func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }}
}

func TestController_ImageExtraction(t *testing.T) {
	ex := &fakeExtractor{result: janeResult()}
	c := NewController(ex, Options{Validator: testValidator()})

	require.NoError(t, c.SelectFile(context.Background(), Document{Name: "card.jpg", MIMEType: "image/jpeg", Data: []byte("jpg")}))
	assert.Equal(t, PhaseImageReady, c.State().Phase)
	assert.Equal(t, []byte("jpg"), c.State().Preview)

	s, err := c.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseExtracted, s.Phase)
	assert.Equal(t, "Jane Doe", models.Deref(s.Result.FullName))

	q, ok := c.Quality()
	require.True(t, ok)
	assert.True(t, q.IsValid)

	require.NoError(t, c.EditField(models.FieldIDNumber, ""))
	q, _ = c.Quality()
	assert.False(t, q.IsValid)
	assert.Contains(t, q.MissingFields, models.FieldIDNumber)
}

func TestController_FailureFallsBackToDemo(t *testing.T) {
	ex := &fakeExtractor{err: &StatusError{Status: 500, Body: `{"error":"Gemini API key not configured"}`}}
	c := NewController(ex, Options{})
	c.newID = func() string { return "1a2b3c4d-0000-0000-0000-000000000000" }

	require.NoError(t, c.SelectFile(context.Background(), Document{Name: "card.jpg", MIMEType: "image/jpeg", Data: []byte("jpg")}))
	s, err := c.Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhaseManualEntry, s.Phase)
	assert.Equal(t, "Failed to extract data from document. Please try again or enter details manually.", s.Error)
	assert.Equal(t, "Demo Student", models.Deref(s.Result.FullName))
	assert.Equal(t, "ID-1A2B3C4D", models.Deref(s.Result.IDNumber))
	assert.Equal(t, "2005-01-15", models.Deref(s.Result.DateOfBirth))
	assert.Equal(t, "Not specified", models.Deref(s.Result.Gender))
	assert.Equal(t, "Please enter address manually", models.Deref(s.Result.Address))

	require.NoError(t, c.EditField(models.FieldGender, "Female"))
	assert.Equal(t, ManualConfidence, c.State().Result.Fields.Gender.Confidence)
}

func TestController_PDFPreview(t *testing.T) {
	ex := &fakeExtractor{result: janeResult()}
	pdf := Document{Name: "id.pdf", MIMEType: "application/pdf", Data: []byte("%PDF-1.4")}

	c := NewController(ex, Options{Renderer: fakeRenderer{png: []byte("png")}})
	require.NoError(t, c.SelectFile(context.Background(), pdf))
	assert.Equal(t, []byte("png"), c.State().Preview)

	_, err := c.Process(context.Background())
	require.NoError(t, err)
	require.Len(t, ex.got, 1)
	assert.Equal(t, pdf.Data, ex.got[0].Data, "the PDF bytes are uploaded, not the preview")

	c = NewController(ex, Options{Renderer: fakeRenderer{err: errors.New("pdftoppm missing")}})
	require.NoError(t, c.SelectFile(context.Background(), pdf))
	assert.Equal(t, PhaseImageReady, c.State().Phase)
	assert.Nil(t, c.State().Preview)
}

func TestController_UnsupportedFile(t *testing.T) {
	c := NewController(&fakeExtractor{}, Options{})
	err := c.SelectFile(context.Background(), Document{Name: "notes.txt", MIMEType: "text/plain"})
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Equal(t, PhaseIdle, c.State().Phase)
	assert.NotEmpty(t, c.State().Error)

	_, err = c.Process(context.Background())
	assert.Error(t, err)
}

func TestController_CameraFlow(t *testing.T) {
	dev := &fakeDevices{}
	c := NewController(&fakeExtractor{result: janeResult()}, Options{Camera: NewCamera(dev)})

	require.NoError(t, c.StartCamera(context.Background()))
	assert.Equal(t, PhaseCameraCapturing, c.State().Phase)
	require.NoError(t, c.Capture())
	assert.Equal(t, PhaseImageReady, c.State().Phase)
	assert.Equal(t, "image/jpeg", c.State().Doc.MIMEType)

	require.NoError(t, c.StartCamera(context.Background()))
	require.NoError(t, c.CancelCamera())
	c.Close()

	require.Len(t, dev.streams, 2)
	assert.Equal(t, int32(2), dev.streams[0].stops.Load())
	assert.Equal(t, int32(2), dev.streams[1].stops.Load())
	assert.Equal(t, PhaseIdle, c.State().Phase)
}

func TestController_CancelWhileCameraOpening(t *testing.T) {
	dev := newGatedDevices()
	c := NewController(&fakeExtractor{}, Options{Camera: NewCamera(dev)})

	errc := make(chan error, 1)
	go func() { errc <- c.StartCamera(context.Background()) }()
	<-dev.entered
	require.NoError(t, c.CancelCamera())
	close(dev.release)

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("StartCamera did not return")
	}
	assert.Equal(t, PhaseIdle, c.State().Phase)
	assert.Empty(t, c.State().Error)
	assert.False(t, c.camera.Active())
	assert.Equal(t, int32(2), dev.stream.stops.Load())

	c.Close()
	assert.Equal(t, int32(2), dev.stream.stops.Load())
}

func TestController_CameraUnavailable(t *testing.T) {
	c := NewController(&fakeExtractor{}, Options{Camera: NewCamera(&fakeDevices{err: errors.New("denied")})})
	require.NoError(t, c.StartCamera(context.Background()))
	assert.Equal(t, PhaseIdle, c.State().Phase)
	assert.Equal(t, msgCameraFailed, c.State().Error)
}

func TestClient_ImageRequest(t *testing.T) {
	var gotImage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai-extract", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotImage = r.FormValue("image")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"fullName":"Jane Doe","confidence":0.9,"fields":{"fullName":{"value":"Jane Doe","confidence":0.9}},"rawText":""}`)
	}))
	defer srv.Close()

	r, err := NewClient(srv.URL+"/", nil).Extract(context.Background(), Document{Name: "a.png", MIMEType: "image/png", Data: []byte("hello")})
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", gotImage)
	assert.Equal(t, "Jane Doe", models.Deref(r.FullName))
}

func TestClient_PDFRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, _, err := r.FormFile("pdf")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "%PDF", string(data))
		assert.Equal(t, "id.pdf", r.FormValue("fileName"))
		assert.Equal(t, "4", r.FormValue("fileSize"))
		assert.Equal(t, "application/pdf", r.FormValue("fileType"))
		assert.Empty(t, r.FormValue("image"))
		_, _ = io.WriteString(w, `{"confidence":0.2,"rawText":"","fields":{}}`)
	}))
	defer srv.Close()

	r, err := NewClient(srv.URL, nil).Extract(context.Background(), Document{Name: "id.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, r.Confidence, 1e-9)
}

func TestClient_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"No image or PDF provided"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Extract(context.Background(), Document{MIMEType: "image/png"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Contains(t, se.Body, "No image or PDF provided")
}

type stubRunner struct {
	name string
	args []string
	err  error
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.name, s.args = name, args
	if s.err != nil {
		return nil, []byte("Syntax Error"), s.err
	}
	prefix := args[len(args)-1]
	return nil, nil, os.WriteFile(prefix+".png", []byte("\x89PNG"), 0o600)
}

func TestPdftoppmRenderer(t *testing.T) {
	run := &stubRunner{}
	p := NewPdftoppmRenderer("", 0)
	p.runner = run

	png, err := p.Render(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png)
	assert.Equal(t, "pdftoppm", run.name)
	assert.Equal(t, []string{"-f", "1", "-l", "1", "-r", "100", "-png", "-singlefile"}, run.args[:8])
	assert.True(t, strings.HasSuffix(run.args[8], "doc.pdf"))
	assert.Equal(t, "page", filepath.Base(run.args[9]))

	run.err = errors.New("exit status 1")
	_, err = p.Render(context.Background(), []byte("%PDF"))
	assert.ErrorContains(t, err, "Syntax Error")
}
