package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"idscan/internal/middleware"
)

const defaultPDFName = "document.pdf"

// Extract handles POST /api/ai-extract. The multipart form carries either an
// "image" (base64 or data URL text, or an uploaded file) or a "pdf" file.
// Extraction failures still answer 200 with a low-confidence result.
func (a *API) Extract(rw http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestID(r.Context())
	w := &headerGuard{ResponseWriter: rw}
	defer a.recoverExtract(w, reqID)

	if a.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(rw, r.Body, a.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.log().Warn("extract.too_large", "req_id", reqID, "limit_bytes", tooLarge.Limit)
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds the %d MB limit", tooLarge.Limit>>20))
			return
		}
		a.processingFailed(w, reqID, fmt.Errorf("parse form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	if !a.APIKeySet {
		a.log().Error("extract.config", "req_id", reqID, "error", "GEMINI_API_KEY not set")
		writeError(w, http.StatusInternalServerError, "Gemini API key not configured")
		return
	}

	if file, _, err := r.FormFile("pdf"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			a.processingFailed(w, reqID, fmt.Errorf("read pdf: %w", err))
			return
		}
		name := r.FormValue("fileName")
		if name == "" {
			name = defaultPDFName
		}
		a.log().Info("extract.pdf", "req_id", reqID, "file", name, "bytes", len(data))
		writeJSON(w, http.StatusOK, a.Extractor.ExtractPDF(r.Context(), data, name))
		return
	} else if !errors.Is(err, http.ErrMissingFile) {
		a.processingFailed(w, reqID, fmt.Errorf("read pdf part: %w", err))
		return
	}

	image := r.FormValue("image")
	if image == "" {
		var err error
		image, err = imageFilePart(r)
		if err != nil {
			a.processingFailed(w, reqID, err)
			return
		}
	}
	if image == "" {
		writeError(w, http.StatusBadRequest, "No image or PDF provided")
		return
	}

	a.log().Info("extract.image", "req_id", reqID, "chars", len(image))
	writeJSON(w, http.StatusOK, a.Extractor.ExtractImage(r.Context(), image))
}

// headerGuard records whether a response has been started.
type headerGuard struct {
	http.ResponseWriter
	wrote bool
}

func (g *headerGuard) WriteHeader(status int) {
	g.wrote = true
	g.ResponseWriter.WriteHeader(status)
}

func (g *headerGuard) Write(b []byte) (int, error) {
	g.wrote = true
	return g.ResponseWriter.Write(b)
}

// recoverExtract turns a panic into a 500 unless the response already began.
func (a *API) recoverExtract(w *headerGuard, reqID string) {
	rec := recover()
	if rec == nil {
		return
	}
	a.log().Error("extract.panic", "req_id", reqID, "panic", rec, "response_started", w.wrote)
	if w.wrote {
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "AI processing failed",
		"details": fmt.Sprint(rec),
	})
}

// imageFilePart returns an uploaded "image" file as a data URL, or "" when
// there is none.
func imageFilePart(r *http.Request) (string, error) {
	file, hdr, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read image part: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}
	return "data:" + partType(hdr) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func partType(hdr *multipart.FileHeader) string {
	if ct := hdr.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return "image/jpeg"
}

func (a *API) processingFailed(w http.ResponseWriter, reqID string, err error) {
	a.log().Error("extract.failed", "req_id", reqID, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "AI processing failed",
		"details": err.Error(),
	})
}

// ExtractHealth handles GET /api/ai-extract.
func (a *API) ExtractHealth(w http.ResponseWriter, r *http.Request) {
	features := []string{"image_analysis"}
	if a.Extractor != nil && a.Extractor.PDFOCREnabled() {
		features = append(features, "pdf_ocr")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"service":           "Gemini AI Document Extraction",
		"supportedFeatures": features,
		"model":             a.ModelName,
	})
}
