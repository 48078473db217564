package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/repository"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

const (
	// DefaultStatsWindow is how far back the per-day series reach.
	DefaultStatsWindow = 30 * 24 * time.Hour
	MaxStatsDays       = 3650
	MaxStatsWindow     = MaxStatsDays * 24 * time.Hour
)

// AdminService backs the admin dashboard. Every operation requires the admin role.
type AdminService struct {
	users      repository.UserRepository
	posts      repository.PostRepository
	profiles   *repository.ProfileCache
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// AdminDependencies bundles requirements for the admin service.
type AdminDependencies struct {
	UserRepo     repository.UserRepository
	PostRepo     repository.PostRepository
	ProfileCache *repository.ProfileCache
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

func NewAdminService(deps AdminDependencies) *AdminService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		users:      deps.UserRepo,
		posts:      deps.PostRepo,
		profiles:   deps.ProfileCache,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

func requireAdmin(principal *domain.Principal) error {
	return auth.Authorize(principal, auth.RoleRequired(domain.RoleAdmin), nil)
}

// ListUsers returns public profiles matching every word of the search term.
func (s *AdminService) ListUsers(ctx context.Context, principal *domain.Principal, params repository.ListParams) ([]domain.Profile, int64, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, 0, err
	}
	users, total, err := s.users.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	profiles := make([]domain.Profile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].Profile())
	}
	return profiles, total, nil
}

// ListPosts returns all posts matching every word of the search term.
func (s *AdminService) ListPosts(ctx context.Context, principal *domain.Principal, params repository.ListParams) ([]domain.Post, int64, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, 0, err
	}
	return s.posts.List(ctx, repository.PostFilter{ListParams: params, SplitWords: true})
}

// DeletePost removes any post regardless of its author.
func (s *AdminService) DeletePost(ctx context.Context, principal *domain.Principal, id string) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if !validID(id) {
		return apperrors.NewNotFound("post", nil)
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return apperrors.NewNotFound("post", nil)
		}
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return apperrors.NewNotFound("post", nil)
		}
		return err
	}
	s.logger.Info("post removed by admin", zap.String("post_id", id), zap.String("admin_id", principal.SubjectID))
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventPostDeleted, id, principal.SubjectID,
		events.PostDeletedPayload{AuthorID: post.AuthorID, Image: post.Image}))
	return nil
}

// DeleteUser removes an account and, through the foreign key, its posts.
// An admin can never delete their own account.
func (s *AdminService) DeleteUser(ctx context.Context, principal *domain.Principal, id string) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if err := auth.NotSelf(principal, id); err != nil {
		return err
	}
	if !validID(id) {
		return apperrors.NewNotFound("user", nil)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}

	postImages, err := s.postImagesOf(ctx, id)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}
	if err := s.profiles.Delete(ctx, id); err != nil {
		s.logger.Warn("profile cache eviction failed", zap.String("user_id", id), zap.Error(err))
	}

	s.logger.Info("user removed by admin", zap.String("user_id", id), zap.String("admin_id", principal.SubjectID))
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventUserDeleted, id, principal.SubjectID,
		events.UserDeletedPayload{Avatar: user.Avatar, PostImages: postImages}))
	return nil
}

// Stats returns totals and per-day creation counts over window.
func (s *AdminService) Stats(ctx context.Context, principal *domain.Principal, window time.Duration) (*domain.DashboardStats, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	if window > MaxStatsWindow {
		return nil, apperrors.NewValidationError("stats window too large", map[string]any{"max_days": MaxStatsDays})
	}
	if window <= 0 {
		window = DefaultStatsWindow
	}
	since := s.now().UTC().Add(-window).Truncate(24 * time.Hour)

	var stats domain.DashboardStats
	var err error
	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalPosts, err = s.posts.Count(ctx); err != nil {
		return nil, err
	}
	if stats.UsersOverTime, err = s.users.CountByDay(ctx, since); err != nil {
		return nil, err
	}
	if stats.PostsOverTime, err = s.posts.CountByDay(ctx, since); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *AdminService) postImagesOf(ctx context.Context, authorID string) ([]domain.Image, error) {
	const pageSize = 100
	images := []domain.Image{}
	for offset := 0; ; offset += pageSize {
		posts, _, err := s.posts.List(ctx, repository.PostFilter{
			ListParams: repository.ListParams{Limit: pageSize, Offset: offset},
			AuthorID:   authorID,
		})
		if err != nil {
			return nil, err
		}
		for _, p := range posts {
			if !p.Image.IsZero() {
				images = append(images, *p.Image)
			}
		}
		if len(posts) < pageSize {
			return images, nil
		}
	}
}
