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

// UserRepository defines persistence access for blog accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListParams) ([]domain.User, int64, error)
	Count(ctx context.Context) (int64, error)
	CountByDay(ctx context.Context, since time.Time) ([]domain.DailyCount, error)
	// ImageOwners returns the accounts whose avatar has publicID.
	ImageOwners(ctx context.Context, publicID string) ([]string, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, role, avatar_url, avatar_public_id, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, email, password_hash, role, avatar_url, avatar_public_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	avatarURL, avatarID := imageColumns(user.Avatar)
	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		avatarURL,
		avatarID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return mapWriteError(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email)=lower($1)`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// List matches every whitespace-separated word of the search term against username or email.
func (r *userRepository) List(ctx context.Context, params ListParams) ([]domain.User, int64, error) {
	clauses := []string{"1=1"}
	args := []any{}
	for _, word := range strings.Fields(params.Search) {
		args = append(args, likePattern(word))
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(username ILIKE $%d OR email ILIKE $%d)", n, n))
	}
	where := strings.Join(clauses, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	return users, total, rows.Err()
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	return total, err
}

func (r *userRepository) CountByDay(ctx context.Context, since time.Time) ([]domain.DailyCount, error) {
	return countByDay(ctx, r.pool, "users", since)
}

func (r *userRepository) ImageOwners(ctx context.Context, publicID string) ([]string, error) {
	return ownerIDs(ctx, r.pool, `SELECT id::text FROM users WHERE avatar_public_id=$1`, publicID)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var avatarURL, avatarID *string
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&avatarURL,
		&avatarID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.Avatar = imageFromColumns(avatarURL, avatarID)
	return &user, nil
}
