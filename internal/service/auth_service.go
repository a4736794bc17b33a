package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/firelater/itsm-service/internal/auth"
	"github.com/firelater/itsm-service/internal/config"
	"github.com/firelater/itsm-service/internal/domain"
	"github.com/firelater/itsm-service/internal/repository"
	apperrors "github.com/firelater/itsm-service/pkg/util/errorutil"
)

// AuthService handles registration, login, and token issuance.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	cfg    config.AuthConfig
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.Config, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:  users,
		tokens: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		cfg:    cfg.Auth,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// RegisterInput describes account creation payload.
type RegisterInput struct {
	Email    string
	FullName string
	Password string
	Role     domain.UserRole
}

// Register creates a tenant-scoped account.
func (s *AuthService) Register(ctx context.Context, tenant string, input RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("valid email required", nil)
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	role := input.Role
	if role == "" {
		role = domain.RoleRequester
	}

	if existing, err := s.users.GetByEmail(ctx, tenant, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Email:        email,
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, tenant, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Login verifies credentials and issues a JWT carrying the tenant claim.
func (s *AuthService) Login(ctx context.Context, tenant, email, password string) (string, *domain.User, error) {
	user, err := s.users.GetByEmail(ctx, tenant, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return "", nil, apperrors.MapError(err)
	}
	if !user.IsActive {
		return "", nil, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return "", nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, _, err := s.tokens.GenerateToken(user.ID, tenant, user.Role)
	if err != nil {
		return "", nil, apperrors.NewInternalError(err)
	}
	return token, user, nil
}
