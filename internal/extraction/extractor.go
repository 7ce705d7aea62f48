// Package extraction turns ID document images and PDFs into ExtractionResults.
// Failures are never returned to the caller: every path ends in a well-formed
// result whose confidence reflects how it was produced.
package extraction

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"idscan/internal/models"
)

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrModelUnavailable = errors.New("vision model not configured")
)

// Model is a remote multimodal model that answers a prompt about an image.
type Model interface {
	Generate(ctx context.Context, prompt, mimeType string, data []byte) (string, error)
}

// PDFTextReader performs OCR over a PDF document.
type PDFTextReader interface {
	ReadText(ctx context.Context, data []byte) (string, error)
}

// Mode selects how image extractions are scored.
type Mode string

const (
	ModeAI     Mode = "ai"
	ModeHybrid Mode = "hybrid"
)

// Options configures an Extractor. Zero values are usable.
type Options struct {
	Mode      Mode
	Timeout   time.Duration
	PDFReader PDFTextReader
	Logger    *slog.Logger
	Now       func() time.Time
}

// Extractor runs one extraction per call and keeps no per-request state.
type Extractor struct {
	model  Model
	pdf    PDFTextReader
	mode   Mode
	tmo    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func New(model Model, opts Options) *Extractor {
	e := &Extractor{
		model:  model,
		pdf:    opts.PDFReader,
		mode:   opts.Mode,
		tmo:    opts.Timeout,
		logger: opts.Logger,
		now:    opts.Now,
	}
	if e.mode == "" {
		e.mode = ModeAI
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// PDFOCREnabled reports whether PDFs get real OCR.
func (e *Extractor) PDFOCREnabled() bool { return e.pdf != nil }

// ExtractImage extracts identity fields from a base64 image, optionally
// prefixed with a data URL scheme.
func (e *Extractor) ExtractImage(ctx context.Context, image string) models.ExtractionResult {
	r, method := e.processImage(ctx, image)

	if e.mode == ModeHybrid && method != models.MethodFailed {
		// regex over empty text contributes only its base score; kept as is
		rx := MatchPatterns("")
		r.Confidence = math.Max(rx.Confidence, r.Confidence)
		method = models.MethodHybrid
	}
	return e.stamp(r, "image", method)
}

func (e *Extractor) processImage(ctx context.Context, image string) (models.ExtractionResult, string) {
	mimeType, data, err := DecodeImage(image)
	if err != nil {
		e.logger.Warn("extract.image.decode_error", "error", err)
		return failedEnvelope(), models.MethodFailed
	}
	if e.model == nil {
		e.logger.Error("extract.image.model_error", "error", ErrModelUnavailable)
		return failedEnvelope(), models.MethodFailed
	}

	if e.tmo > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.tmo)
		defer cancel()
	}

	start := e.now()
	text, err := e.model.Generate(ctx, Prompt, mimeType, data)
	if err != nil {
		e.logger.Error("extract.image.model_error", "error", err, "bytes", len(data))
		return failedEnvelope(), models.MethodFailed
	}
	cleaned := CleanResponse(text)
	e.logger.Info("extract.image.model_response",
		"elapsed_ms", e.now().Sub(start).Milliseconds(),
		"text", compact(cleaned, 300),
	)

	p, class, err := DecodePayload(cleaned)
	if class != Invalid {
		e.logger.Info("extract.image.decoded", "class", class.String(), "dropped", p.Dropped)
		return structuredResult(p, cleaned), models.MethodAI
	}
	e.logger.Warn("extract.image.parse_error", "error", err)
	if errors.Is(err, ErrNoCoreFields) {
		return valuesFallback(p, cleaned), models.MethodRegex
	}

	if obj, ok := GreedyObject(cleaned); ok {
		p, class, err = DecodePayload(obj)
		if class != Invalid {
			e.logger.Info("extract.image.decoded", "class", class.String(), "retry", true, "dropped", p.Dropped)
			return structuredResult(p, cleaned), models.MethodAIRetry
		}
		e.logger.Warn("extract.image.retry_parse_error", "error", err)
		if errors.Is(err, ErrNoCoreFields) {
			return valuesFallback(p, cleaned), models.MethodRegex
		}
	}

	e.logger.Info("extract.fallback.regex", "text", compact(cleaned, 200))
	return ExtractWithFallback(cleaned), models.MethodRegex
}

// ExtractPDF extracts from a PDF. Without an OCR reader the result is the
// explicit low-confidence placeholder.
func (e *Extractor) ExtractPDF(ctx context.Context, data []byte, fileName string) models.ExtractionResult {
	if fileName == "" {
		fileName = "document.pdf"
	}
	if e.pdf != nil && len(data) > 0 {
		text, err := e.pdf.ReadText(ctx, data)
		switch {
		case err != nil:
			e.logger.Warn("extract.pdf.ocr_error", "file", fileName, "error", err)
		case strings.TrimSpace(text) == "":
			e.logger.Warn("extract.pdf.ocr_empty", "file", fileName)
		default:
			r := ExtractWithFallback(text)
			r.Note = pdfOCRNote
			return e.stamp(r, "pdf", models.MethodVisionOCR)
		}
	}
	e.logger.Info("extract.pdf.placeholder", "file", fileName, "bytes", len(data))
	return e.stamp(pdfPlaceholder(fileName), "pdf", models.MethodPlaceholder)
}

func (e *Extractor) stamp(r models.ExtractionResult, source, method string) models.ExtractionResult {
	r.Metadata = &models.Metadata{Source: source, Method: method, ExtractedAt: e.now().UTC()}
	return r
}

var dataURLRe = regexp.MustCompile(`^data:(image/\w+);base64,`)

// DecodeImage strips an optional data URL prefix and decodes the base64 body.
func DecodeImage(image string) (mimeType string, data []byte, err error) {
	mimeType = "image/jpeg"
	s := strings.TrimSpace(image)
	if m := dataURLRe.FindStringSubmatch(s); m != nil {
		mimeType = m[1]
		s = s[len(m[0]):]
	}
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)

	data, err = base64.StdEncoding.DecodeString(s)
	if err != nil {
		var rawErr error
		if data, rawErr = base64.RawStdEncoding.DecodeString(s); rawErr != nil {
			return "", nil, fmt.Errorf("decode image: %w", err)
		}
	}
	if len(data) == 0 {
		return "", nil, ErrEmptyImage
	}
	return mimeType, data, nil
}
