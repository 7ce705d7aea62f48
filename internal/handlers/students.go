package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"idscan/internal/middleware"
	"idscan/internal/session"
	"idscan/internal/students"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
)

var registerMessages = map[error]string{
	students.ErrMissingFields: "Missing required fields",
	students.ErrInvalidEmail:  "Invalid email format",
	students.ErrShortPassword: "Password must be at least 8 characters",
	students.ErrEmailTaken:    "Email already registered",
}

// RegisterStudent handles POST /api/students/register.
func (a *API) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req students.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	studentID, err := a.Students.Register(r.Context(), req)
	if err != nil {
		for target, msg := range registerMessages {
			if errors.Is(err, target) {
				writeError(w, http.StatusBadRequest, msg)
				return
			}
		}
		a.log().Error("students.register_failed", "req_id", middleware.RequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "Registration failed. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Student registered successfully",
		"studentId": studentID,
	})
}

// Login handles POST /api/auth/login and sets the session cookie.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, err := a.Students.Authenticate(r.Context(), body.Email, body.Password)
	if errors.Is(err, students.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		a.log().Error("auth.login_failed", "req_id", middleware.RequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "An error occurred during login")
		return
	}

	token, err := a.Sessions.Issue(session.User{ID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		a.log().Error("auth.session_failed", "req_id", middleware.RequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "An error occurred during login")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.Sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   a.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user": map[string]any{
			"id":       u.ID,
			"email":    u.Email,
			"fullName": u.FullName,
			"role":     u.Role,
		},
	})
}

// Logout handles POST /api/auth/logout.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	clearSession(w, a.SecureCookie)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func clearSession(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Me handles GET /api/auth/me. A session whose account no longer exists is
// cleared.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	su, ok := middleware.User(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	u, err := a.Students.User(r.Context(), su.ID)
	if errors.Is(err, students.ErrNotFound) {
		clearSession(w, a.SecureCookie)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        u.ID,
		"email":     u.Email,
		"fullName":  u.FullName,
		"role":      u.Role,
		"studentId": u.StudentID,
		"phone":     u.Phone,
		"status":    u.Status,
	})
}

// StudentQRCode handles GET /api/students/{studentId}/qrcode and returns a
// PNG badge encoding the student id.
func (a *API) StudentQRCode(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "Invalid path")
		return
	}
	if _, err := a.Students.Student(r.Context(), studentID); errors.Is(err, students.ErrNotFound) {
		writeError(w, http.StatusNotFound, "student not found")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	png, err := qrcode.Encode(studentID, qrcode.Medium, 256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
