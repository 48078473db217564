package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/repository"
	"github.com/spec-kit/blog-service/internal/storage"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

// DefaultMaxUploadBytes caps a single image upload.
const DefaultMaxUploadBytes = 10 * 1024 * 1024

const cleanupQueueSize = 256

// MediaService uploads images to the configured store and removes images
// that are no longer referenced after posts or accounts are deleted.
type MediaService struct {
	store      storage.Store
	posts      repository.PostRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	maxBytes   int64
	pending    chan string
}

// MediaDependencies bundles requirements for the media service.
type MediaDependencies struct {
	Store          storage.Store
	PostRepo       repository.PostRepository
	UserRepo       repository.UserRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	MaxUploadBytes int64
}

func NewMediaService(deps MediaDependencies) *MediaService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBytes := deps.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &MediaService{
		store:      deps.Store,
		posts:      deps.PostRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		maxBytes:   maxBytes,
		pending:    make(chan string, cleanupQueueSize),
	}
}

// UploadImage stores a post image.
func (m *MediaService) UploadImage(ctx context.Context, principal *domain.Principal, file *multipart.FileHeader) (domain.Image, error) {
	if err := auth.Authorize(principal, auth.AuthenticatedOnly(), nil); err != nil {
		return domain.Image{}, err
	}
	return m.upload(ctx, storage.FolderPostImages, file)
}

// UploadAvatar stores an avatar. It is public because it precedes signup.
func (m *MediaService) UploadAvatar(ctx context.Context, file *multipart.FileHeader) (domain.Image, error) {
	return m.upload(ctx, storage.FolderAvatars, file)
}

// DeleteImage removes an image by public id. Images attached to another
// account's post or avatar can only be removed by an admin.
func (m *MediaService) DeleteImage(ctx context.Context, principal *domain.Principal, publicID string) error {
	if err := auth.Authorize(principal, auth.AuthenticatedOnly(), nil); err != nil {
		return err
	}
	if !storage.ValidPublicID(publicID) {
		return apperrors.NewValidationError("invalid image id", nil)
	}
	if !principal.IsAdmin() {
		owners, err := m.imageOwners(ctx, publicID)
		if err != nil {
			return err
		}
		for _, owner := range owners {
			if err := auth.Authorize(principal, auth.OwnerOrRole(domain.RoleAdmin), imageOwner(owner)); err != nil {
				return apperrors.NewForbidden("image belongs to another account")
			}
		}
	}

	err := m.store.Delete(ctx, publicID)
	switch {
	case errors.Is(err, storage.ErrInvalidPublicID):
		return apperrors.NewValidationError("invalid image id", nil)
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.NewNotFound("image", nil)
	case err != nil:
		return err
	}
	m.logger.Info("image deleted", zap.String("public_id", publicID), zap.String("user_id", principal.SubjectID))
	return nil
}

type imageOwner string

func (o imageOwner) OwnerID() string { return string(o) }

func (m *MediaService) imageOwners(ctx context.Context, publicID string) ([]string, error) {
	owners := []string{}
	if m.posts != nil {
		ids, err := m.posts.ImageOwners(ctx, publicID)
		if err != nil {
			return nil, err
		}
		owners = append(owners, ids...)
	}
	if m.users != nil {
		ids, err := m.users.ImageOwners(ctx, publicID)
		if err != nil {
			return nil, err
		}
		owners = append(owners, ids...)
	}
	return owners, nil
}

func (m *MediaService) upload(ctx context.Context, folder string, file *multipart.FileHeader) (domain.Image, error) {
	if file == nil || file.Size == 0 {
		return domain.Image{}, apperrors.NewValidationError("no file uploaded", nil)
	}
	if file.Size > m.maxBytes {
		return domain.Image{}, apperrors.NewValidationError(
			fmt.Sprintf("file exceeds %d bytes", m.maxBytes), map[string]any{"max_bytes": m.maxBytes})
	}

	src, err := file.Open()
	if err != nil {
		return domain.Image{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	contentType, body, err := sniffImage(src)
	if err != nil {
		return domain.Image{}, err
	}

	img, err := m.store.Put(ctx, storage.Object{
		Folder:      folder,
		ContentType: contentType,
		Size:        file.Size,
		Body:        body,
	})
	if err != nil {
		return domain.Image{}, err
	}
	m.logger.Info("image uploaded", zap.String("public_id", img.PublicID), zap.String("content_type", contentType))
	return img, nil
}

// sniffImage detects the content type from the first bytes and rejects non-images.
// The returned reader replays the sniffed prefix.
func sniffImage(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}
	head = head[:n]

	contentType := strings.Split(http.DetectContentType(head), ";")[0]
	if !strings.HasPrefix(contentType, "image/") {
		return "", nil, apperrors.NewValidationError("only image files are allowed", map[string]any{"content_type": contentType})
	}
	return contentType, io.MultiReader(bytes.NewReader(head), r), nil
}

// RegisterHandlers subscribes image cleanup to post and account deletion.
func (m *MediaService) RegisterHandlers() {
	if m.dispatcher == nil {
		return
	}
	m.dispatcher.Subscribe(events.EventPostDeleted, m.handlePostDeleted)
	m.dispatcher.Subscribe(events.EventPostImageReplaced, m.handlePostImageReplaced)
	m.dispatcher.Subscribe(events.EventUserDeleted, m.handleUserDeleted)
}

func (m *MediaService) handlePostDeleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PostDeletedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	if !payload.Image.IsZero() {
		m.enqueue(ctx, payload.Image.PublicID)
	}
	return nil
}

func (m *MediaService) handlePostImageReplaced(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PostImageReplacedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	m.enqueue(ctx, payload.Previous.PublicID)
	return nil
}

func (m *MediaService) handleUserDeleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserDeletedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	if !payload.Avatar.IsZero() {
		m.enqueue(ctx, payload.Avatar.PublicID)
	}
	for _, img := range payload.PostImages {
		m.enqueue(ctx, img.PublicID)
	}
	return nil
}

// enqueue hands an image to the cleanup loop, deleting inline when the queue is full.
func (m *MediaService) enqueue(ctx context.Context, publicID string) {
	if publicID == "" {
		return
	}
	select {
	case m.pending <- publicID:
	default:
		m.remove(ctx, publicID)
	}
}

// RunCleanup deletes queued images until ctx is cancelled.
func (m *MediaService) RunCleanup(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case publicID := <-m.pending:
			m.remove(ctx, publicID)
		}
	}
}

func (m *MediaService) remove(ctx context.Context, publicID string) {
	err := m.store.Delete(ctx, publicID)
	switch {
	case err == nil:
		m.logger.Debug("orphaned image removed", zap.String("public_id", publicID))
	case errors.Is(err, storage.ErrNotFound):
	default:
		m.logger.Warn("image cleanup failed", zap.String("public_id", publicID), zap.Error(err))
	}
}
