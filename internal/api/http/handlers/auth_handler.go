package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cityflow/crm/internal/api/dto"
	"github.com/cityflow/crm/internal/auth"
	"github.com/cityflow/crm/internal/service"
	apperrors "github.com/cityflow/crm/pkg/util/errorutil"
)

// AuthHandler exposes staff login and logout.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	res, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Session:   res.Session,
	}})
}

// Logout POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Logout(c.UserContext(), session.ID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": session})
}
