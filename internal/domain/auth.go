package domain

// Role enumerates the authorization roles a principal may hold.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// TokenKind differentiates the short-lived access credential from the long-lived refresh one.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Principal is the authenticated identity of the current request.
// It is derived from a verified credential and never persisted.
type Principal struct {
	SubjectID string `json:"id"`
	Role      Role   `json:"role"`
}

// IsAdmin reports whether the principal carries the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
