// Package students registers student accounts from reviewed ID-document fields
// and authenticates registry users.
package students

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"idscan/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrShortPassword      = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RegisterRequest is the registration form, prefilled from an extraction
// result and corrected by the user.
type RegisterRequest struct {
	FullName      string `json:"fullName" validate:"required"`
	Email         string `json:"email" validate:"required,simple_email"`
	Password      string `json:"password" validate:"required,min=8"`
	DateOfBirth   string `json:"dateOfBirth" validate:"required"`
	Gender        string `json:"gender" validate:"required"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	IDNumber      string `json:"idNumber"`
	GuardianName  string `json:"guardianName" validate:"required"`
	GuardianPhone string `json:"guardianPhone" validate:"required"`
	GuardianEmail string `json:"guardianEmail"`
	GradeLevel    string `json:"gradeLevel"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("simple_email", func(fl validator.FieldLevel) bool {
		return emailRe.MatchString(fl.Field().String())
	})
	return v
}

type Service struct {
	store    Store
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, validate: newValidator(), logger: logger, now: time.Now}
}

// Validate reports the first failing rule in the order: required fields,
// email format, password length.
func (s *Service) Validate(req RegisterRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var emailBad, passwordShort bool
	for _, fe := range verrs {
		switch {
		case fe.Tag() == "required":
			return ErrMissingFields
		case fe.Tag() == "simple_email":
			emailBad = true
		case fe.Field() == "password":
			passwordShort = true
		}
	}
	if emailBad {
		return ErrInvalidEmail
	}
	if passwordShort {
		return ErrShortPassword
	}
	return err
}

// Register creates a student account and returns its generated student id.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (string, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.Validate(req); err != nil {
		return "", err
	}

	if _, err := s.store.ByEmail(ctx, req.Email); err == nil {
		return "", ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	studentID := s.newStudentID()
	u := &models.User{
		Email:         req.Email,
		PasswordHash:  string(hash),
		FullName:      req.FullName,
		Role:          models.RoleStudent,
		StudentID:     &studentID,
		Phone:         req.Phone,
		Address:       req.Address,
		DateOfBirth:   req.DateOfBirth,
		Gender:        req.Gender,
		IDNumber:      req.IDNumber,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
		GuardianEmail: req.GuardianEmail,
		GradeLevel:    req.GradeLevel,
		Status:        "active",
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return "", err
		}
		return "", fmt.Errorf("create student: %w", err)
	}
	s.logger.Info("students.registered", "user_id", u.ID, "student_id", studentID)
	return studentID, nil
}

// Authenticate checks a password against the stored hash.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.store.ByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) User(ctx context.Context, id uint) (*models.User, error) {
	return s.store.ByID(ctx, id)
}

func (s *Service) Student(ctx context.Context, studentID string) (*models.User, error) {
	u, err := s.store.ByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if u.Role != models.RoleStudent {
		return nil, ErrNotFound
	}
	return u, nil
}

// newStudentID returns STU followed by the base36 millisecond clock and three
// random characters, all upper case.
func (s *Service) newStudentID() string {
	ts := strconv.FormatInt(s.now().UnixMilli(), 36)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:3]
	return strings.ToUpper("STU" + ts + suffix)
}
