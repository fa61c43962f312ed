package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Bruhadev45/Cardsnap-AI/internal/auth"
	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
	"github.com/Bruhadev45/Cardsnap-AI/internal/store"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// userRepository is the subset of store.UserStore that UserService requires.
type userRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

type UserService struct {
	users  userRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewUserService(users userRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger, now: time.Now}
}

// NormalizeEmail trims and lower-cases an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	email = NormalizeEmail(email)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Info("user registered", "user_id", u.ID)
	return u, nil
}

// Login returns the user whose email and password match. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil || !auth.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Lookup resolves ref as a user id first and then as an email address.
func (s *UserService) Lookup(ctx context.Context, ref string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, ref)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}
	u, err = s.users.GetByEmail(ctx, NormalizeEmail(ref))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Update changes the profile fields. Empty arguments leave the field as is.
func (s *UserService) Update(ctx context.Context, id, email, name, password string) (*domain.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if email = NormalizeEmail(email); email != "" && email != u.Email {
		other, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if other != nil {
			return nil, ErrEmailTaken
		}
		u.Email = email
	}
	if name = strings.TrimSpace(name); name != "" {
		u.Name = name
	}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		u.PasswordHash = hash
	}

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}
