package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/repository"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

var errInvalidCredentials = apperrors.NewUnauthenticated("invalid email or password")

// AuthService coordinates registration, login and profile lookups.
// Issuing and clearing the session cookies is the HTTP layer's job.
type AuthService struct {
	users      repository.UserRepository
	profiles   *repository.ProfileCache
	bcryptCost int
	logger     *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	ProfileCache *repository.ProfileCache
	BcryptCost   int
	Logger       *zap.Logger
}

// SignupInput describes a new account.
type SignupInput struct {
	Username string
	Email    string
	Password string
	Avatar   *domain.Image
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		profiles:   deps.ProfileCache,
		bcryptCost: deps.BcryptCost,
		logger:     logger,
	}
}

// Signup creates a regular account. It never grants the admin role.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	return s.createUser(ctx, input, domain.RoleUser)
}

// CreateAdmin creates an administrator. Only reachable from the operator CLI.
func (s *AuthService) CreateAdmin(ctx context.Context, input SignupInput) (*domain.User, error) {
	return s.createUser(ctx, input, domain.RoleAdmin)
}

func (s *AuthService) createUser(ctx context.Context, input SignupInput, role domain.Role) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !isNotFound(err) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     strings.TrimSpace(input.Username),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if !input.Avatar.IsZero() {
		user.Avatar = input.Avatar
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapDuplicate(err, "email already registered")
	}
	s.logger.Info("account created", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// Login verifies credentials. Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		// keep response time independent of whether the account exists
		_ = auth.ComparePassword(s.fallbackHash(), password)
		return nil, errInvalidCredentials
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}

// Profile returns the public profile of the authenticated principal.
// A principal whose account has been deleted is treated as unauthenticated.
func (s *AuthService) Profile(ctx context.Context, principal *domain.Principal) (*domain.Profile, error) {
	if principal == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}

	if cached, ok, err := s.profiles.Get(ctx, principal.SubjectID); err != nil {
		s.logger.Warn("profile cache read failed", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	if !validID(principal.SubjectID) {
		return nil, apperrors.NewUnauthenticated("account no longer exists")
	}
	user, err := s.users.GetByID(ctx, principal.SubjectID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewUnauthenticated("account no longer exists")
		}
		return nil, err
	}

	profile := user.Profile()
	if err := s.profiles.Set(ctx, profile); err != nil {
		s.logger.Warn("profile cache write failed", zap.Error(err))
	}
	return &profile, nil
}

func (s *AuthService) fallbackHash() string {
	s.dummyOnce.Do(func() {
		hash, err := auth.HashPassword("placeholder-password", s.bcryptCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
