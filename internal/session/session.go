// Package session issues and verifies the signed session cookie that carries
// the current user's id, email and role.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const CookieName = "session"

var ErrInvalidSession = errors.New("invalid or expired session")

// User is the authenticated principal attached to a request.
type User struct {
	ID    uint   `json:"userId"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs HS256 tokens with a shared secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret []byte, ttl time.Duration) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("missing session secret")
	}
	return &Manager{secret: secret, ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) Issue(u User) (string, error) {
	now := m.now()
	c := claims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

func (m *Manager) Parse(token string) (User, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return User{}, ErrInvalidSession
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.Role == "" {
		return User{}, ErrInvalidSession
	}
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return User{}, ErrInvalidSession
	}
	return User{ID: uint(id), Email: c.Email, Role: c.Role}, nil
}
