package domain

import "time"

// Image references an asset held by the image store.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// IsZero reports whether no image is attached.
func (i *Image) IsZero() bool {
	return i == nil || (i.URL == "" && i.PublicID == "")
}

// User is a registered blog account.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Avatar       *Image
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal returns the minimal claim set for this user.
func (u *User) Principal() Principal {
	return Principal{SubjectID: u.ID, Role: u.Role}
}

// Profile is the public view of a user; it never carries secrets.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Avatar    *Image    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile builds the public profile for u.
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}
