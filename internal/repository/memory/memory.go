// Package memory provides in-process implementations of the repository
// interfaces. Deleting a user cascades to their posts, as the schema does.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/repository"
)

// Store holds users and posts behind one lock.
type Store struct {
	mu    sync.RWMutex
	users map[string]domain.User
	posts map[string]domain.Post
	Now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		users: map[string]domain.User{},
		posts: map[string]domain.Post{},
		Now:   time.Now,
	}
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Posts returns the post repository view.
func (s *Store) Posts() repository.PostRepository { return postRepo{s} }

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = r.s.Now()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r userRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.users, id)
	for pid, p := range r.s.posts {
		if p.AuthorID == id {
			delete(r.s.posts, pid)
		}
	}
	return nil
}

func (r userRepo) List(_ context.Context, params repository.ListParams) ([]domain.User, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	words := strings.Fields(strings.ToLower(params.Search))
	matched := []domain.User{}
	for _, u := range r.s.users {
		if matchesAll(words, u.Username, u.Email) {
			matched = append(matched, u)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return page(matched, params), int64(len(matched)), nil
}

func (r userRepo) Count(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.users)), nil
}

func (r userRepo) CountByDay(_ context.Context, since time.Time) ([]domain.DailyCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stamps := make([]time.Time, 0, len(r.s.users))
	for _, u := range r.s.users {
		stamps = append(stamps, u.CreatedAt)
	}
	return byDay(stamps, since), nil
}

func (r userRepo) ImageOwners(_ context.Context, publicID string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := []string{}
	for _, u := range r.s.users {
		if u.Avatar != nil && u.Avatar.PublicID == publicID {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

type postRepo struct{ s *Store }

func (r postRepo) Create(_ context.Context, post *domain.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[post.AuthorID]; !ok {
		return pgx.ErrNoRows
	}
	post.ID = uuid.NewString()
	post.CreatedAt = r.s.Now()
	post.UpdatedAt = post.CreatedAt
	r.s.posts[post.ID] = *post
	return nil
}

func (r postRepo) GetByID(_ context.Context, id string) (*domain.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	r.withAuthor(&p)
	return &p, nil
}

func (r postRepo) Update(_ context.Context, post *domain.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.posts[post.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Title = post.Title
	stored.Description = post.Description
	stored.Image = post.Image
	stored.UpdatedAt = r.s.Now()
	r.s.posts[post.ID] = stored
	post.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r postRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.posts, id)
	return nil
}

func (r postRepo) List(_ context.Context, filter repository.PostFilter) ([]domain.Post, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	words := []string{}
	if search != "" {
		words = []string{search}
		if filter.SplitWords {
			words = strings.Fields(search)
		}
	}

	matched := []domain.Post{}
	for _, p := range r.s.posts {
		if filter.AuthorID != "" && p.AuthorID != filter.AuthorID {
			continue
		}
		if !matchesAll(words, p.Title, p.Description) {
			continue
		}
		r.withAuthor(&p)
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return page(matched, filter.ListParams), int64(len(matched)), nil
}

func (r postRepo) Count(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.posts)), nil
}

func (r postRepo) CountByDay(_ context.Context, since time.Time) ([]domain.DailyCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stamps := make([]time.Time, 0, len(r.s.posts))
	for _, p := range r.s.posts {
		stamps = append(stamps, p.CreatedAt)
	}
	return byDay(stamps, since), nil
}

func (r postRepo) ImageOwners(_ context.Context, publicID string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := []string{}
	for _, p := range r.s.posts {
		if p.Image != nil && p.Image.PublicID == publicID {
			ids = append(ids, p.AuthorID)
		}
	}
	return ids, nil
}

// withAuthor must be called with the lock held.
func (r postRepo) withAuthor(p *domain.Post) {
	if u, ok := r.s.users[p.AuthorID]; ok {
		p.Author = &domain.Author{ID: u.ID, Username: u.Username, Email: u.Email, Avatar: u.Avatar}
	}
}

func matchesAll(words []string, fields ...string) bool {
	for _, w := range words {
		found := false
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func page[T any](items []T, params repository.ListParams) []T {
	if params.Offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if params.Limit > 0 && params.Offset+params.Limit < end {
		end = params.Offset + params.Limit
	}
	return items[params.Offset:end]
}

func byDay(stamps []time.Time, since time.Time) []domain.DailyCount {
	counts := map[string]int64{}
	for _, ts := range stamps {
		if ts.Before(since) {
			continue
		}
		counts[ts.UTC().Format("2006-01-02")]++
	}
	out := make([]domain.DailyCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, domain.DailyCount{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
