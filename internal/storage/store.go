package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/config"
	"github.com/spec-kit/blog-service/internal/domain"
)

// Image folders.
const (
	FolderPostImages = "blog-images"
	FolderAvatars    = "avatar-images"
)

var (
	ErrInvalidPublicID = errors.New("invalid image id")
	ErrNotFound        = errors.New("image not found")
)

var publicIDPattern = regexp.MustCompile(`^(blog-images|avatar-images)/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.[a-z]+$`)

// Object is an image ready to be stored.
type Object struct {
	Folder      string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store persists images and deletes them by public id.
type Store interface {
	Put(ctx context.Context, obj Object) (domain.Image, error)
	Delete(ctx context.Context, publicID string) error
}

// New selects S3 when a bucket is configured and the local directory otherwise.
func New(cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	if cfg.Bucket != "" {
		logger.Info("using s3 image store", zap.String("bucket", cfg.Bucket), zap.String("region", cfg.Region))
		return NewS3Store(newS3Client(cfg), cfg.Bucket, publicBaseURL(cfg)), nil
	}
	logger.Info("using local image store", zap.String("dir", cfg.LocalDir))
	return NewLocalStore(cfg.LocalDir, cfg.LocalURLPrefix)
}

// ValidPublicID reports whether id was produced by NewPublicID.
func ValidPublicID(id string) bool {
	return publicIDPattern.MatchString(id)
}

// NewPublicID builds a fresh object key inside folder.
func NewPublicID(folder, contentType string) (string, error) {
	if folder != FolderPostImages && folder != FolderAvatars {
		return "", fmt.Errorf("unknown image folder %q", folder)
	}
	return folder + "/" + uuid.NewString() + extensionFor(contentType), nil
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	case "image/bmp":
		return ".bmp"
	default:
		return ".img"
	}
}

func publicBaseURL(cfg config.StorageConfig) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}
