package dto

import "github.com/spec-kit/blog-service/internal/domain"

const (
	DefaultPageLimit = 9
	MaxPageLimit     = 100
)

// PostRequest is the body for creating or updating a post.
type PostRequest struct {
	Title       string    `json:"title" validate:"required,min=3,max=100"`
	Description string    `json:"description" validate:"required,min=10"`
	Image       *ImageRef `json:"image" validate:"omitempty"`
	// RemoveImage drops the current image on update when no new one is given.
	RemoveImage bool `json:"remove_image"`
}

// ListQuery carries page, limit and search query parameters.
type ListQuery struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Search string `query:"search"`
}

// Normalize clamps page to >=1 and limit to 1..100, defaulting to 9.
func (q *ListQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
}

// Offset returns the row offset of the current page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// PostResponse is the public representation of a post.
type PostResponse struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Image       *domain.Image  `json:"image,omitempty"`
	Author      *domain.Author `json:"author,omitempty"`
	AuthorID    string         `json:"author_id"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

// NewPostResponse maps a domain post.
func NewPostResponse(p domain.Post) PostResponse {
	return PostResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Image:       p.Image,
		Author:      p.Author,
		AuthorID:    p.AuthorID,
		CreatedAt:   p.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:   p.UpdatedAt.UTC().Format(timeLayout),
	}
}

// Page is a paginated listing.
type Page[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
}

// NewPage computes the page count for total rows at limit per page.
func NewPage[T any](data []T, total int64, q ListQuery) Page[T] {
	pages := 0
	if q.Limit > 0 {
		pages = int((total + int64(q.Limit) - 1) / int64(q.Limit))
	}
	if data == nil {
		data = []T{}
	}
	return Page[T]{Data: data, Total: total, Page: q.Page, TotalPages: pages}
}
