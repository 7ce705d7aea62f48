package students

import (
	"context"
	"errors"
	"sync"
	"time"

	"idscan/internal/models"

	"gorm.io/gorm"
)

var (
	ErrEmailTaken = errors.New("email already registered")
	ErrNotFound   = errors.New("user not found")
)

// Store persists registry accounts.
type Store interface {
	Create(ctx context.Context, u *models.User) error
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByID(ctx context.Context, id uint) (*models.User, error)
	ByStudentID(ctx context.Context, studentID string) (*models.User, error)
}

// GormStore is the Postgres-backed Store. The *gorm.DB must be opened with
// TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) Create(ctx context.Context, u *models.User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return err
}

func (s *GormStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *GormStore) ByID(ctx context.Context, id uint) (*models.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *GormStore) ByStudentID(ctx context.Context, studentID string) (*models.User, error) {
	return s.first(ctx, "student_id = ?", studentID)
}

func (s *GormStore) first(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// MemoryStore keeps accounts in process memory. Used in tests and when no
// database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID uint
	users  map[uint]models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[uint]models.User)}
}

func (s *MemoryStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
		if u.StudentID != nil && existing.StudentID != nil && *existing.StudentID == *u.StudentID {
			return ErrEmailTaken
		}
	}
	s.nextID++
	now := time.Now().UTC()
	u.ID = s.nextID
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Status == "" {
		u.Status = "active"
	}
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) ByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.Email == email })
}

func (s *MemoryStore) ByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) ByStudentID(_ context.Context, studentID string) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.StudentID != nil && *u.StudentID == studentID })
}

func (s *MemoryStore) find(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}
