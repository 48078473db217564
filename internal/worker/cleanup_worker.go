package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/service"
)

// StartImageCleanupWorker subscribes media cleanup to deletion events and
// runs the cleanup loop until ctx is cancelled.
func StartImageCleanupWorker(ctx context.Context, media *service.MediaService, logger *zap.Logger) {
	if media == nil {
		return
	}
	media.RegisterHandlers()
	go media.RunCleanup(ctx)
	logger.Info("image cleanup worker started")
}
