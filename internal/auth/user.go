package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	BusinessID   string    `json:"businessId,omitempty"`
	Region       string    `json:"region,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Repository interface {
	// Create fails with ErrEmailInUse when the email is taken.
	Create(ctx context.Context, u User) error
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	Update(ctx context.Context, u User) error
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]User), byEmail: make(map[string]string)}
}

func (m *MemoryRepository) Create(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := NormalizeEmail(u.Email)
	if _, taken := m.byEmail[email]; taken {
		return ErrEmailInUse
	}
	m.byID[u.ID] = u
	m.byEmail[email] = u.ID
	return nil
}

func (m *MemoryRepository) GetByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return m.byID[id], nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *MemoryRepository) Update(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return ErrUserNotFound
	}
	m.byID[u.ID] = u
	return nil
}
