package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/domain"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

// Mode selects how a Requirement admits a principal.
type Mode int

const (
	ModePublic Mode = iota
	ModeAuthenticated
	ModeRole
	ModeOwnerOrRole
)

// Requirement is the admission rule attached to an operation.
type Requirement struct {
	Mode Mode
	Role domain.Role
}

// Public admits every caller.
func Public() Requirement { return Requirement{Mode: ModePublic} }

// AuthenticatedOnly admits any resolved principal.
func AuthenticatedOnly() Requirement { return Requirement{Mode: ModeAuthenticated} }

// RoleRequired admits principals holding role.
func RoleRequired(role domain.Role) Requirement {
	return Requirement{Mode: ModeRole, Role: role}
}

// OwnerOrRole admits the resource owner or any principal holding role.
func OwnerOrRole(role domain.Role) Requirement {
	return Requirement{Mode: ModeOwnerOrRole, Role: role}
}

// Owned is a resource with a single owning subject.
type Owned interface {
	OwnerID() string
}

// Authorize decides admission. It never fabricates a principal and has no side effects.
func Authorize(principal *domain.Principal, req Requirement, resource Owned) error {
	switch req.Mode {
	case ModePublic:
		return nil
	case ModeAuthenticated:
		if principal == nil {
			return apperrors.NewUnauthenticated("authentication required")
		}
		return nil
	case ModeRole:
		if principal == nil || principal.Role != req.Role {
			return apperrors.NewForbidden("insufficient role")
		}
		return nil
	case ModeOwnerOrRole:
		if principal == nil {
			return apperrors.NewForbidden("access denied")
		}
		if principal.Role == req.Role {
			return nil
		}
		if resource != nil && resource.OwnerID() != "" && resource.OwnerID() == principal.SubjectID {
			return nil
		}
		return apperrors.NewForbidden("access denied")
	default:
		return apperrors.NewForbidden("access denied")
	}
}

// NotSelf denies a principal acting on the account whose id equals its own subject.
func NotSelf(principal *domain.Principal, targetID string) error {
	if principal == nil {
		return apperrors.NewForbidden("access denied")
	}
	if principal.SubjectID == targetID {
		return apperrors.NewForbidden("cannot delete own account")
	}
	return nil
}

// Require gates a route on a resource-independent requirement.
func Require(req Requirement) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		if err := Authorize(principal, req, nil); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireNotSelf rejects requests whose route param equals the caller's subject id.
func RequireNotSelf(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		if err := NotSelf(principal, c.Params(param)); err != nil {
			return err
		}
		return c.Next()
	}
}
