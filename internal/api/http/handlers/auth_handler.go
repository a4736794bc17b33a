package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/firelater/itsm-service/internal/api/dto"
	"github.com/firelater/itsm-service/internal/domain"
	"github.com/firelater/itsm-service/internal/service"
	apperrors "github.com/firelater/itsm-service/pkg/util/errorutil"
)

// AuthHandler manages registration and login.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Register POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Tenant == "" {
		return apperrors.NewValidationError("tenant required", nil)
	}

	user, err := h.service.Register(c.Context(), req.Tenant, service.RegisterInput{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Tenant == "" || req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("tenant, email, password required", nil)
	}

	token, user, err := h.service.Login(c.Context(), req.Tenant, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{Token: token, User: userResponse(user)}})
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
