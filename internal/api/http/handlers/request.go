package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/api/dto"
	"github.com/spec-kit/blog-service/internal/repository"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

type normalizer interface {
	Normalize()
}

// bindJSON parses and validates a request body.
func bindJSON(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if n, ok := v.(normalizer); ok {
		n.Normalize()
	}
	return dto.Validate(v)
}

func bindListQuery(c *fiber.Ctx) (dto.ListQuery, repository.ListParams) {
	var q dto.ListQuery
	_ = c.QueryParser(&q)
	q.Normalize()
	return q, repository.ListParams{Search: q.Search, Limit: q.Limit, Offset: q.Offset()}
}
