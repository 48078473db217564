package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/blog-service/internal/domain"
)

// PostFilter narrows post listings.
type PostFilter struct {
	ListParams
	AuthorID string
	// SplitWords matches every search word independently instead of the whole phrase.
	SplitWords bool
}

// PostRepository encapsulates post persistence.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter PostFilter) ([]domain.Post, int64, error)
	Count(ctx context.Context) (int64, error)
	CountByDay(ctx context.Context, since time.Time) ([]domain.DailyCount, error)
	// ImageOwners returns the authors of posts whose image has publicID.
	ImageOwners(ctx context.Context, publicID string) ([]string, error)
}

type postRepository struct {
	pool *pgxpool.Pool
}

// NewPostRepository instantiates repository.
func NewPostRepository(pool *pgxpool.Pool) PostRepository {
	return &postRepository{pool: pool}
}

const postSelect = `
        SELECT p.id, p.title, p.description, p.image_url, p.image_public_id, p.author_id,
               p.created_at, p.updated_at, u.username, u.email, u.avatar_url, u.avatar_public_id
        FROM posts p JOIN users u ON u.id = p.author_id`

func (r *postRepository) Create(ctx context.Context, post *domain.Post) error {
	const query = `
        INSERT INTO posts (title, description, image_url, image_public_id, author_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	imageURL, imageID := imageColumns(post.Image)
	return r.pool.QueryRow(ctx, query,
		post.Title,
		post.Description,
		imageURL,
		imageID,
		post.AuthorID,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	return scanPost(r.pool.QueryRow(ctx, postSelect+` WHERE p.id=$1`, id))
}

// Update rewrites the editable fields. The author is never changed.
func (r *postRepository) Update(ctx context.Context, post *domain.Post) error {
	const query = `
        UPDATE posts SET title=$1, description=$2, image_url=$3, image_public_id=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`

	imageURL, imageID := imageColumns(post.Image)
	return r.pool.QueryRow(ctx, query,
		post.Title,
		post.Description,
		imageURL,
		imageID,
		post.ID,
	).Scan(&post.UpdatedAt)
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]domain.Post, int64, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		clauses = append(clauses, fmt.Sprintf("p.author_id=$%d", len(args)))
	}

	terms := []string{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		if filter.SplitWords {
			terms = strings.Fields(search)
		} else {
			terms = []string{search}
		}
	}
	for _, term := range terms {
		args = append(args, likePattern(term))
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(p.title ILIKE $%d OR p.description ILIKE $%d)", n, n))
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := postSelect + where + fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := []domain.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, *post)
	}
	return posts, total, rows.Err()
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total)
	return total, err
}

func (r *postRepository) CountByDay(ctx context.Context, since time.Time) ([]domain.DailyCount, error) {
	return countByDay(ctx, r.pool, "posts", since)
}

func (r *postRepository) ImageOwners(ctx context.Context, publicID string) ([]string, error) {
	return ownerIDs(ctx, r.pool, `SELECT author_id::text FROM posts WHERE image_public_id=$1`, publicID)
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var post domain.Post
	var author domain.Author
	var imageURL, imageID, avatarURL, avatarID *string
	if err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Description,
		&imageURL,
		&imageID,
		&post.AuthorID,
		&post.CreatedAt,
		&post.UpdatedAt,
		&author.Username,
		&author.Email,
		&avatarURL,
		&avatarID,
	); err != nil {
		return nil, err
	}
	post.Image = imageFromColumns(imageURL, imageID)
	author.ID = post.AuthorID
	author.Avatar = imageFromColumns(avatarURL, avatarID)
	post.Author = &author
	return &post, nil
}
