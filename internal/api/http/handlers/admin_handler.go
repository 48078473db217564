package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/api/dto"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/service"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

// AdminHandler serves the admin dashboard endpoints.
type AdminHandler struct {
	admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	q, params := bindListQuery(c)
	principal, _ := auth.PrincipalFromContext(c)
	users, total, err := h.admin.ListUsers(c.UserContext(), principal, params)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewPage(users, total, q))
}

// ListPosts handles GET /api/admin/blogs.
func (h *AdminHandler) ListPosts(c *fiber.Ctx) error {
	q, params := bindListQuery(c)
	principal, _ := auth.PrincipalFromContext(c)
	posts, total, err := h.admin.ListPosts(c.UserContext(), principal, params)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewPage(toPostResponses(posts), total, q))
}

// Stats handles GET /api/admin/stats?days=N.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > service.MaxStatsDays {
			return apperrors.NewValidationError(
				fmt.Sprintf("days must be between 1 and %d", service.MaxStatsDays), map[string]any{"days": raw})
		}
		days = n
	}
	window := time.Duration(days) * 24 * time.Hour
	stats, err := h.admin.Stats(c.UserContext(), principal, window)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// DeleteUser handles DELETE /api/admin/users/:id.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.admin.DeleteUser(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "user deleted"})
}

// DeletePost handles DELETE /api/admin/blogs/:id.
func (h *AdminHandler) DeletePost(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.admin.DeletePost(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "post deleted"})
}
