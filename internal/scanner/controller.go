package scanner

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"idscan/internal/extraction"
	"idscan/internal/models"

	"github.com/google/uuid"
)

// Extractor submits a document for extraction.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (models.ExtractionResult, error)
}

// PreviewRenderer turns a PDF into a page image for display.
type PreviewRenderer interface {
	Render(ctx context.Context, pdf []byte) ([]byte, error)
}

type Options struct {
	Camera    *Camera
	Renderer  PreviewRenderer
	Validator extraction.Validator
	Logger    *slog.Logger
}

// Controller applies user events to a State and performs their side effects:
// camera access, preview rendering and the extraction request.
type Controller struct {
	extractor Extractor
	camera    *Camera
	renderer  PreviewRenderer
	validator extraction.Validator
	logger    *slog.Logger
	newID     func() string

	mu    sync.Mutex
	state State
}

func NewController(ex Extractor, opts Options) *Controller {
	c := &Controller{
		extractor: ex,
		camera:    opts.Camera,
		renderer:  opts.Renderer,
		validator: opts.Validator,
		logger:    opts.Logger,
		newID:     uuid.NewString,
		state:     State{Phase: PhaseIdle},
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) apply(f func(State) (State, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := f(c.state)
	// rejected input may still change what the user sees
	if err == nil || next.Phase != c.state.Phase || next.Error != c.state.Error {
		c.state = next
	}
	return err
}

// SelectFile validates the document type and prepares its preview. A PDF is
// rendered locally for display while its bytes are what gets uploaded; a
// failed render only loses the preview.
func (c *Controller) SelectFile(ctx context.Context, doc Document) error {
	if err := c.apply(func(s State) (State, error) { return SelectFile(s, doc) }); err != nil {
		return err
	}
	preview := doc.Data
	if doc.IsPDF() {
		preview = nil
		if c.renderer != nil {
			png, err := c.renderer.Render(ctx, doc.Data)
			if err != nil {
				c.logger.Warn("scanner.preview_failed", "file", doc.Name, "error", err)
			} else {
				preview = png
			}
		}
	}
	return c.apply(func(s State) (State, error) { return FileLoaded(s, preview) })
}

func (c *Controller) StartCamera(ctx context.Context) error {
	if err := c.apply(StartCamera); err != nil {
		return err
	}
	if c.camera == nil {
		return c.apply(CameraFailed)
	}
	err := c.camera.Start(ctx)
	switch {
	case errors.Is(err, ErrStartCanceled):
		return nil
	case err != nil:
		c.logger.Warn("scanner.camera_failed", "error", err)
		if c.State().Phase != PhaseCameraCapturing {
			return nil
		}
		return c.apply(CameraFailed)
	}
	// canceled or reset while the device was opening
	if c.State().Phase != PhaseCameraCapturing {
		c.camera.Stop()
	}
	return nil
}

// Capture takes a still and releases the camera.
func (c *Controller) Capture() error {
	if s := c.State(); s.Phase != PhaseCameraCapturing {
		return &TransitionError{From: s.Phase, Event: "capture"}
	}
	jpeg, err := c.camera.Capture()
	if err != nil {
		c.logger.Warn("scanner.capture_failed", "error", err)
		return c.apply(CameraFailed)
	}
	return c.apply(func(s State) (State, error) { return Captured(s, jpeg) })
}

func (c *Controller) CancelCamera() error {
	if c.camera != nil {
		c.camera.Stop()
	}
	return c.apply(CancelCamera)
}

// Process sends the document to the server. Any transport failure or
// non-2xx answer puts a placeholder record in the form for manual entry.
func (c *Controller) Process(ctx context.Context) (State, error) {
	if err := c.apply(BeginProcessing); err != nil {
		return c.State(), err
	}
	doc := *c.State().Doc

	r, err := c.extractor.Extract(ctx, doc)
	if err != nil {
		c.logger.Warn("scanner.extract_failed", "file", doc.Name, "error", err)
		err = c.apply(func(s State) (State, error) { return ExtractionFailed(s, c.demoRecord()) })
		return c.State(), err
	}
	err = c.apply(func(s State) (State, error) { return Extracted(s, r) })
	return c.State(), err
}

func (c *Controller) EditField(field, value string) error {
	return c.apply(func(s State) (State, error) { return EditField(s, field, value) })
}

// Quality assesses the current result. ok is false when there is none.
func (c *Controller) Quality() (q extraction.Quality, ok bool) {
	s := c.State()
	if s.Result == nil {
		return extraction.Quality{}, false
	}
	return c.validator.Assess(*s.Result), true
}

func (c *Controller) Reset() {
	if c.camera != nil {
		c.camera.Stop()
	}
	c.mu.Lock()
	c.state = Reset(c.state)
	c.mu.Unlock()
}

// Close releases the camera if it is still open.
func (c *Controller) Close() {
	if c.camera != nil {
		c.camera.Stop()
	}
}

func (c *Controller) demoRecord() models.ExtractionResult {
	id := strings.ToUpper(strings.ReplaceAll(c.newID(), "-", "")[:8])
	var r models.ExtractionResult
	r.Fields.FullName.Value = models.Str("Demo Student")
	r.Fields.IDNumber.Value = models.Str("ID-" + id)
	r.Fields.DateOfBirth.Value = models.Str("2005-01-15")
	r.Fields.Gender.Value = models.Str("Not specified")
	r.Fields.Address.Value = models.Str("Please enter address manually")
	r.SyncTopLevel()
	return r
}
