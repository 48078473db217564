package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/repository"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

// denyPost is the single denial for author operations: a missing post and a
// post owned by someone else are indistinguishable to the caller.
func denyPost() error {
	return apperrors.NewForbidden("post not found or not authorized")
}

// PostService coordinates the public feed and author post management.
type PostService struct {
	posts      repository.PostRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// PostDependencies bundles requirements for the post service.
type PostDependencies struct {
	PostRepo   repository.PostRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// PostInput carries the editable fields of a post. On update a nil Image
// keeps the current one unless RemoveImage is set.
type PostInput struct {
	Title       string
	Description string
	Image       *domain.Image
	RemoveImage bool
}

// NewPostService constructs the service.
func NewPostService(deps PostDependencies) *PostService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostService{posts: deps.PostRepo, dispatcher: deps.Dispatcher, logger: logger}
}

// List returns the public feed, newest first, searching title and description.
func (s *PostService) List(ctx context.Context, params repository.ListParams) ([]domain.Post, int64, error) {
	return s.posts.List(ctx, repository.PostFilter{ListParams: params})
}

// Get returns a single post for public display.
func (s *PostService) Get(ctx context.Context, id string) (*domain.Post, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFound("post", nil)
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewNotFound("post", nil)
		}
		return nil, err
	}
	return post, nil
}

// Create stores a post authored by principal. The author is always the caller.
func (s *PostService) Create(ctx context.Context, principal *domain.Principal, input PostInput) (*domain.Post, error) {
	if err := auth.Authorize(principal, auth.AuthenticatedOnly(), nil); err != nil {
		return nil, err
	}
	post := &domain.Post{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		AuthorID:    principal.SubjectID,
	}
	if !input.Image.IsZero() {
		post.Image = input.Image
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// ListMine lists the caller's own posts.
func (s *PostService) ListMine(ctx context.Context, principal *domain.Principal, params repository.ListParams) ([]domain.Post, int64, error) {
	if err := auth.Authorize(principal, auth.AuthenticatedOnly(), nil); err != nil {
		return nil, 0, err
	}
	return s.posts.List(ctx, repository.PostFilter{ListParams: params, AuthorID: principal.SubjectID})
}

// GetMine loads a post the caller may edit.
func (s *PostService) GetMine(ctx context.Context, principal *domain.Principal, id string) (*domain.Post, error) {
	return s.loadEditable(ctx, principal, id)
}

// Update rewrites title, description and image of a post owned by the caller
// (or any post, for admins). The author never changes.
func (s *PostService) Update(ctx context.Context, principal *domain.Principal, id string, input PostInput) (*domain.Post, error) {
	post, err := s.loadEditable(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	previous := post.Image
	post.Title = strings.TrimSpace(input.Title)
	post.Description = input.Description
	switch {
	case !input.Image.IsZero():
		post.Image = input.Image
	case input.RemoveImage:
		post.Image = nil
	}

	if err := s.posts.Update(ctx, post); err != nil {
		if isNotFound(err) {
			return nil, denyPost()
		}
		return nil, err
	}

	if !previous.IsZero() && (post.Image.IsZero() || post.Image.PublicID != previous.PublicID) {
		publish(ctx, s.dispatcher, s.logger, events.New(events.EventPostImageReplaced, post.ID, principal.SubjectID,
			events.PostImageReplacedPayload{Previous: *previous}))
	}
	return post, nil
}

// Delete removes a post owned by the caller (or any post, for admins).
func (s *PostService) Delete(ctx context.Context, principal *domain.Principal, id string) error {
	post, err := s.loadEditable(ctx, principal, id)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, post.ID); err != nil {
		if isNotFound(err) {
			return denyPost()
		}
		return err
	}
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventPostDeleted, post.ID, principal.SubjectID,
		events.PostDeletedPayload{AuthorID: post.AuthorID, Image: post.Image}))
	return nil
}

func (s *PostService) loadEditable(ctx context.Context, principal *domain.Principal, id string) (*domain.Post, error) {
	if err := auth.Authorize(principal, auth.AuthenticatedOnly(), nil); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, denyPost()
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, denyPost()
		}
		return nil, err
	}
	if err := auth.Authorize(principal, auth.OwnerOrRole(domain.RoleAdmin), post); err != nil {
		return nil, denyPost()
	}
	return post, nil
}
