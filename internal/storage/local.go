package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spec-kit/blog-service/internal/domain"
)

// LocalStore writes images below a directory served as static files.
type LocalStore struct {
	baseDir   string
	urlPrefix string
}

func NewLocalStore(baseDir, urlPrefix string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if urlPrefix == "" {
		urlPrefix = "/static/uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// BaseDir is the directory the HTTP layer serves under URLPrefix.
func (s *LocalStore) BaseDir() string { return s.baseDir }

func (s *LocalStore) URLPrefix() string { return s.urlPrefix }

func (s *LocalStore) Put(ctx context.Context, obj Object) (domain.Image, error) {
	key, err := NewPublicID(obj.Folder, obj.ContentType)
	if err != nil {
		return domain.Image{}, err
	}

	absDir := filepath.Join(s.baseDir, obj.Folder)
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return domain.Image{}, fmt.Errorf("failed to create upload directory: %w", err)
	}

	absPath := filepath.Join(s.baseDir, filepath.FromSlash(key))
	dst, err := os.Create(absPath)
	if err != nil {
		return domain.Image{}, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, obj.Body); err != nil {
		_ = os.Remove(absPath)
		return domain.Image{}, fmt.Errorf("failed to write file: %w", err)
	}

	return domain.Image{URL: s.urlPrefix + "/" + key, PublicID: key}, nil
}

func (s *LocalStore) Delete(ctx context.Context, publicID string) error {
	if !ValidPublicID(publicID) {
		return ErrInvalidPublicID
	}
	err := os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(publicID)))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
