package app

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"quiz-app-service/internal/domain"
)

// UserRepository abstracts the credential store (MongoDB, Postgres, in-memory).
type UserRepository interface {
	// Create assigns ID and RegisteredAt. Returns domain.ErrUsernameTaken on a duplicate name.
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, u domain.User) (domain.User, error)
	Delete(ctx context.Context, id string) error
}

// UserInput is the registration and update payload.
type UserInput struct {
	ID       string `json:"id"`
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required"`
}

// UserService manages accounts; passwords are stored as bcrypt hashes only.
type UserService struct {
	users UserRepository
	cost  int
}

func NewUserService(users UserRepository, cost int) *UserService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserService{users: users, cost: cost}
}

// Register validates the input, hashes the password and stores the user.
func (s *UserService) Register(ctx context.Context, in UserInput) (domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := domain.ValidateStruct(in); err != nil {
		return domain.User{}, err
	}
	hashed, err := s.hash(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{Username: in.Username, PasswordHash: string(hashed)}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return domain.User{}, domain.NewValidationError("username", "is already taken")
		}
		return domain.User{}, err
	}
	return u, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// Update replaces username and password of an existing user. The password is re-hashed.
func (s *UserService) Update(ctx context.Context, in UserInput) (domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.ID == "" {
		return domain.User{}, domain.NewValidationError("id", "is required")
	}
	if err := domain.ValidateStruct(in); err != nil {
		return domain.User{}, err
	}
	existing, err := s.users.GetByID(ctx, in.ID)
	if err != nil {
		return domain.User{}, err
	}
	hashed, err := s.hash(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	existing.Username = in.Username
	existing.PasswordHash = string(hashed)
	updated, err := s.users.Update(ctx, existing)
	if errors.Is(err, domain.ErrUsernameTaken) {
		return domain.User{}, domain.NewValidationError("username", "is already taken")
	}
	return updated, err
}

// hash rejects passwords bcrypt would refuse (over 72 bytes) as a field error.
func (s *UserService) hash(password string) ([]byte, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, domain.NewValidationError("password", "must be at most 72 bytes")
	}
	return hashed, err
}

// Delete removes a user by id.
func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

// UsernameAvailable reports whether no account uses name yet.
func (s *UserService) UsernameAvailable(ctx context.Context, name string) (bool, error) {
	_, err := s.users.GetByUsername(ctx, strings.TrimSpace(name))
	if errors.Is(err, domain.ErrUserNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}
