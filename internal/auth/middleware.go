package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/domain"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

const principalKey = "auth_principal"

// SessionRecorder receives one resolution outcome per request.
type SessionRecorder interface {
	RecordSession(outcome string)
}

// CookiePolicy holds the attributes shared by both credential cookies.
type CookiePolicy struct {
	Secure bool
}

// SessionMiddleware resolves the credential cookies of every request and
// writes any staged cookie mutations to the response.
type SessionMiddleware struct {
	resolver *SessionResolver
	policy   CookiePolicy
	logger   *zap.Logger
	recorder SessionRecorder
}

// NewSessionMiddleware constructs middleware. recorder may be nil.
func NewSessionMiddleware(resolver *SessionResolver, policy CookiePolicy, logger *zap.Logger, recorder SessionRecorder) *SessionMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionMiddleware{resolver: resolver, policy: policy, logger: logger, recorder: recorder}
}

// Handle resolves the session once, at the start of the request.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	res, err := m.resolver.Resolve(fiberJar{c: c})
	if err != nil {
		m.logger.Error("session resolution failed", zap.Error(err))
		return apperrors.NewMisconfigured(err)
	}

	if res.AccessErr != nil || res.RefreshErr != nil {
		m.logger.Debug("credential rejected",
			zap.String("path", c.Path()),
			zap.String("access", failureReason(res.AccessErr)),
			zap.String("refresh", failureReason(res.RefreshErr)),
			zap.String("outcome", string(res.Outcome)))
	}
	if m.recorder != nil {
		m.recorder.RecordSession(string(res.Outcome))
	}

	m.apply(c, res.Mutations)
	if res.Principal != nil {
		c.Locals(principalKey, res.Principal)
	}
	return c.Next()
}

// IssueSession sets both credential cookies for a freshly authenticated principal.
func (m *SessionMiddleware) IssueSession(c *fiber.Ctx, principal domain.Principal) error {
	writes, err := m.resolver.Issue(principal)
	if err != nil {
		return apperrors.NewMisconfigured(err)
	}
	m.apply(c, writes)
	c.Locals(principalKey, &principal)
	return nil
}

// ClearSession deletes both credential cookies. Calling it repeatedly is harmless.
func (m *SessionMiddleware) ClearSession(c *fiber.Ctx) {
	m.apply(c, m.resolver.Clear())
	c.Locals(principalKey, nil)
}

func (m *SessionMiddleware) apply(c *fiber.Ctx, writes []CookieWrite) {
	for _, w := range writes {
		c.Cookie(&fiber.Cookie{
			Name:     w.Name,
			Value:    w.Value,
			Path:     "/",
			MaxAge:   w.MaxAge,
			Expires:  w.Expires,
			Secure:   m.policy.Secure,
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
}

// PrincipalFromContext retrieves the principal resolved for this request.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	principal, ok := c.Locals(principalKey).(*domain.Principal)
	if !ok || principal == nil {
		return nil, false
	}
	return principal, true
}

type fiberJar struct {
	c *fiber.Ctx
}

func (j fiberJar) Get(name string) string {
	return j.c.Cookies(name)
}

func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExpired):
		return "expired"
	default:
		return "malformed"
	}
}
