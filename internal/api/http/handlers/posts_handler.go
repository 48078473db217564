package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/api/dto"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/service"
)

// PostsHandler serves the public feed and the author's own posts.
type PostsHandler struct {
	posts *service.PostService
}

func NewPostsHandler(posts *service.PostService) *PostsHandler {
	return &PostsHandler{posts: posts}
}

// List handles GET /api/blogs.
func (h *PostsHandler) List(c *fiber.Ctx) error {
	q, params := bindListQuery(c)
	posts, total, err := h.posts.List(c.UserContext(), params)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewPage(toPostResponses(posts), total, q))
}

// Get handles GET /api/blogs/:id.
func (h *PostsHandler) Get(c *fiber.Ctx) error {
	post, err := h.posts.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPostResponse(*post)})
}

// Create handles POST /api/blogs.
func (h *PostsHandler) Create(c *fiber.Ctx) error {
	var req dto.PostRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	principal, _ := auth.PrincipalFromContext(c)
	post, err := h.posts.Create(c.UserContext(), principal, postInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPostResponse(*post)})
}

// ListMine handles GET /api/myblogs.
func (h *PostsHandler) ListMine(c *fiber.Ctx) error {
	q, params := bindListQuery(c)
	principal, _ := auth.PrincipalFromContext(c)
	posts, total, err := h.posts.ListMine(c.UserContext(), principal, params)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewPage(toPostResponses(posts), total, q))
}

// GetMine handles GET /api/myblogs/:id.
func (h *PostsHandler) GetMine(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	post, err := h.posts.GetMine(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPostResponse(*post)})
}

// Update handles PUT /api/myblogs/:id.
func (h *PostsHandler) Update(c *fiber.Ctx) error {
	var req dto.PostRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	principal, _ := auth.PrincipalFromContext(c)
	post, err := h.posts.Update(c.UserContext(), principal, c.Params("id"), postInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPostResponse(*post)})
}

// Delete handles DELETE /api/myblogs/:id.
func (h *PostsHandler) Delete(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.posts.Delete(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "post deleted"})
}

func postInput(req dto.PostRequest) service.PostInput {
	return service.PostInput{
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image.Image(),
		RemoveImage: req.RemoveImage,
	}
}

func toPostResponses(posts []domain.Post) []dto.PostResponse {
	out := make([]dto.PostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, dto.NewPostResponse(p))
	}
	return out
}
