// Package auth issues and checks session tokens for admins and business
// owners. Passwords are stored as bcrypt hashes.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront-order-service/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

type Service struct {
	users  Repository
	secret string
	ttl    time.Duration
	cost   int
	logger *zap.Logger
	now    func() time.Time
}

func NewService(users Repository, secret string, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{users: users, secret: secret, ttl: ttl, cost: bcrypt.DefaultCost, logger: logger, now: time.Now}
}

func (s *Service) Secret() string {
	return s.secret
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Signup registers a business account. It has no comercio until an admin
// assigns one.
func (s *Service) Signup(ctx context.Context, in SignupInput) (Session, error) {
	f := validation.Fields{}
	f.Require("email", in.Email)
	f.Check(strings.Contains(in.Email, "@"), "email", "is not a valid email")
	f.Check(len(in.Password) >= minPasswordLength, "password", "must be at least 6 characters")
	f.Require("name", in.Name)
	if err := f.Err(); err != nil {
		return Session{}, err
	}

	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return Session{}, err
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(in.Email),
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         RoleBusiness,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return Session{}, err
	}
	s.logger.Info("user signed up", zap.String("userId", u.ID))
	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.issue(u)
}

// AssignRole changes a user's role and scope. Business owners must be tied to
// a comercio and regional admins to a region.
func (s *Service) AssignRole(ctx context.Context, userID string, role Role, businessID, region string) (User, error) {
	f := validation.Fields{}
	f.Check(role.Valid(), "role", "is not a known role")
	if role == RoleBusiness {
		f.Require("businessId", businessID)
	}
	if role == RoleAdminRegional {
		f.Require("region", region)
	}
	if err := f.Err(); err != nil {
		return User{}, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	u.Role = role
	u.BusinessID = strings.TrimSpace(businessID)
	u.Region = strings.TrimSpace(region)
	if err := s.users.Update(ctx, u); err != nil {
		return User{}, err
	}
	s.logger.Info("user role assigned", zap.String("userId", u.ID), zap.String("role", string(role)))
	return u, nil
}

func (s *Service) Verify(token string) (*Claims, error) {
	return VerifyAccessToken(token, s.secret)
}

func (s *Service) issue(u User) (Session, error) {
	token, expires, err := IssueAccessToken(u, s.secret, s.ttl, s.now())
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expires, User: u}, nil
}
