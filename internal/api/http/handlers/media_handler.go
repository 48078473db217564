package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/api/dto"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/service"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

const uploadField = "file"

// MediaHandler serves image upload and deletion.
type MediaHandler struct {
	media *service.MediaService
}

func NewMediaHandler(media *service.MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

// UploadImage handles POST /api/upload-image.
func (h *MediaHandler) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile(uploadField)
	if err != nil {
		return apperrors.NewValidationError("no file uploaded", nil)
	}
	principal, _ := auth.PrincipalFromContext(c)
	img, err := h.media.UploadImage(c.UserContext(), principal, file)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(img)
}

// UploadAvatar handles POST /api/upload-avatar.
func (h *MediaHandler) UploadAvatar(c *fiber.Ctx) error {
	file, err := c.FormFile(uploadField)
	if err != nil {
		return apperrors.NewValidationError("no file uploaded", nil)
	}
	img, err := h.media.UploadAvatar(c.UserContext(), file)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(img)
}

// DeleteImage handles POST /api/delete-image.
func (h *MediaHandler) DeleteImage(c *fiber.Ctx) error {
	var req dto.DeleteImageRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.media.DeleteImage(c.UserContext(), principal, req.PublicID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "image deleted"})
}
