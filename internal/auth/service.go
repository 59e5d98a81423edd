package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/silaibook/silaibook/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenIssuer
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Register creates an owner account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, creds Credentials) (*User, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", shared.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	user, err := s.repo.Create(ctx, User{Username: username, PasswordHash: string(hash), Role: DefaultRole})
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return nil, fmt.Errorf("%w: user already exists", shared.ErrDuplicate)
		}
		return nil, err
	}
	return user, nil
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a bearer token.
func (s *Service) Login(ctx context.Context, creds Credentials) (TokenResponse, error) {
	user, err := s.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		return TokenResponse{}, err
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// Resolve turns a bearer token into the active user it names.
func (s *Service) Resolve(ctx context.Context, raw string) (*User, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnauthorized, errEmptyToken)
	}
	username, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", shared.ErrUnauthorized)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user inactive", shared.ErrUnauthorized)
	}
	return user, nil
}
