package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverExtract_KeepsStartedResponse(t *testing.T) {
	a := &API{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	rec := httptest.NewRecorder()
	w := &headerGuard{ResponseWriter: rec}

	func() {
		defer a.recoverExtract(w, "req-1")
		writeJSON(w, http.StatusOK, map[string]string{"status": "partial"})
		panic("after write")
	}()

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"partial"}`, rec.Body.String())
}
