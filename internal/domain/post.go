package domain

import "time"

// Post is a blog entry. AuthorID is set at creation and never changes.
type Post struct {
	ID          string
	Title       string
	Description string
	Image       *Image
	AuthorID    string
	Author      *Author
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnerID exposes the author for ownership checks.
func (p *Post) OwnerID() string {
	if p == nil {
		return ""
	}
	return p.AuthorID
}

// Author is the author summary joined onto listed posts.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Avatar   *Image `json:"avatar,omitempty"`
}
