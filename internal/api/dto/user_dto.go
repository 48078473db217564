package dto

import (
	"strings"

	"github.com/spec-kit/blog-service/internal/domain"
)

// ImageRef references an image previously returned by an upload endpoint.
type ImageRef struct {
	URL      string `json:"url" validate:"required"`
	PublicID string `json:"public_id" validate:"required"`
}

// Image converts the reference, treating nil as no image.
func (r *ImageRef) Image() *domain.Image {
	if r == nil {
		return nil
	}
	return &domain.Image{URL: r.URL, PublicID: r.PublicID}
}

// SignupRequest payload for new accounts.
type SignupRequest struct {
	Username string    `json:"username" validate:"required,min=3,max=30,username"`
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,password"`
	Avatar   *ImageRef `json:"avatar" validate:"omitempty"`
}

// Normalize trims surrounding whitespace and lowercases the email.
func (r *SignupRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// ProfileResponse is the body of login and whoami.
type ProfileResponse struct {
	User domain.Profile `json:"user"`
}
