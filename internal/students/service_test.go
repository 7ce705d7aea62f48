package students

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"idscan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() RegisterRequest {
	return RegisterRequest{
		FullName:      "Jane Doe",
		Email:         "Jane@School.test",
		Password:      "correct-horse",
		DateOfBirth:   "2008-04-02",
		Gender:        "Female",
		Address:       "12 Oak Avenue, Springfield",
		IDNumber:      "AB123456",
		GuardianName:  "John Doe",
		GuardianPhone: "+1 555 0100",
	}
}

func TestService_Register(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	id, err := svc.Register(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^STU[0-9A-Z]+[0-9A-F]{3}$`), id)
	assert.Contains(t, id, "LOYW3V28")

	u, err := store.ByEmail(context.Background(), "jane@school.test")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, u.Role)
	assert.Equal(t, id, *u.StudentID)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)

	got, err := svc.Student(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*RegisterRequest)
		want   error
	}{
		{"missing name", func(r *RegisterRequest) { r.FullName = "" }, ErrMissingFields},
		{"missing guardian phone", func(r *RegisterRequest) { r.GuardianPhone = "" }, ErrMissingFields},
		{"missing beats bad email", func(r *RegisterRequest) { r.Email = "nope"; r.Gender = "" }, ErrMissingFields},
		{"bad email", func(r *RegisterRequest) { r.Email = "jane@school" }, ErrInvalidEmail},
		{"short password", func(r *RegisterRequest) { r.Password = "short" }, ErrShortPassword},
		{"bad email beats short password", func(r *RegisterRequest) { r.Email = "x y@z.io"; r.Password = "1" }, ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.modify(&req)
			_, err := NewService(NewMemoryStore(), nil).Register(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	_, err := svc.Register(context.Background(), validRequest())
	require.NoError(t, err)

	req := validRequest()
	req.Email = "  JANE@school.test "
	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

type failingStore struct{ *MemoryStore }

func (failingStore) Create(context.Context, *models.User) error { return errors.New("db down") }

func TestService_RegisterStoreFailure(t *testing.T) {
	svc := NewService(failingStore{NewMemoryStore()}, nil)
	_, err := svc.Register(context.Background(), validRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailTaken)
}

func TestService_Authenticate(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	_, err := svc.Register(context.Background(), validRequest())
	require.NoError(t, err)

	u, err := svc.Authenticate(context.Background(), "jane@school.test", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", u.FullName)

	_, err = svc.Authenticate(context.Background(), "jane@school.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(context.Background(), "nobody@school.test", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMemoryStore_Lookups(t *testing.T) {
	s := NewMemoryStore()
	sid := "STU1"
	require.NoError(t, s.Create(context.Background(), &models.User{Email: "a@b.io", Role: models.RoleStudent, StudentID: &sid}))
	assert.ErrorIs(t, s.Create(context.Background(), &models.User{Email: "a@b.io"}), ErrEmailTaken)

	u, err := s.ByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "active", u.Status)

	_, err = s.ByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ByStudentID(context.Background(), "STU2")
	assert.ErrorIs(t, err, ErrNotFound)
}
