package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/api/dto"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/service"
)

// AuthHandler exposes signup, login, logout and whoami.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *auth.SessionMiddleware
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, sessions *auth.SessionMiddleware) *AuthHandler {
	return &AuthHandler{auth: authService, sessions: sessions}
}

// Signup handles POST /api/signup. It does not log the new account in.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	user, err := h.auth.Signup(c.UserContext(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   req.Avatar.Image(),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.ProfileResponse{User: user.Profile()})
}

// Login handles POST /api/login and sets both credential cookies.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	user, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	if err := h.sessions.IssueSession(c, user.Principal()); err != nil {
		return err
	}
	return c.JSON(dto.ProfileResponse{User: user.Profile()})
}

// Logout handles POST /api/logout. It always succeeds.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.sessions.ClearSession(c)
	return c.JSON(fiber.Map{"message": "logged out"})
}

// WhoAmI handles GET /api/user.
func (h *AuthHandler) WhoAmI(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	profile, err := h.auth.Profile(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(dto.ProfileResponse{User: *profile})
}
