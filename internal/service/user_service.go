package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dom "todoweb/internal/domain"
	"todoweb/internal/repo"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for every stored credential.
const PasswordCost = 8

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrValidation         = errors.New("validation failed")
)

// dummyHash is compared against when the username is unknown, so that a miss
// costs the same bcrypt work as a wrong password.
var dummyHash = mustHash("not-a-real-password")

var compareHash = bcrypt.CompareHashAndPassword

func mustHash(password string) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		panic(err)
	}
	return h
}

// UserService handles user auth logic.
type UserService struct {
	repo repo.UserRepo
}

// NewUserService returns a new UserService.
func NewUserService(repo repo.UserRepo) *UserService {
	return &UserService{repo: repo}
}

// HashPassword returns the bcrypt digest stored for a credential.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Authenticate checks username and password; returns user if valid.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (dom.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return dom.User{}, ErrInvalidCredentials
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, dom.ErrNotFound) {
			_ = compareHash(dummyHash, []byte(password))
			return dom.User{}, ErrInvalidCredentials
		}
		return dom.User{}, err
	}
	if err := compareHash([]byte(u.PasswordHash), []byte(password)); err != nil {
		return dom.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Register hashes the password and creates the user.
func (s *UserService) Register(ctx context.Context, username, password string) (dom.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return dom.User{}, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	if len(password) > 72 {
		return dom.User{}, fmt.Errorf("%w: password must be at most 72 bytes", ErrValidation)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return dom.User{}, err
	}
	u, err := s.repo.Create(ctx, username, hash)
	if err != nil {
		if errors.Is(err, dom.ErrDuplicate) {
			return dom.User{}, ErrUsernameTaken
		}
		return dom.User{}, err
	}
	return u, nil
}
