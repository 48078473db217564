package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/repository"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

// validID reports whether id is a well-formed record id. Malformed ids are
// treated as absent records rather than passed to the database.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func mapDuplicate(err error, message string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewConflict(message, nil)
	}
	return err
}
