package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/blog-service/internal/domain"
)

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate record")

const uniqueViolation = "23505"

// ListParams carries pagination and free-text search for list queries.
type ListParams struct {
	Search string
	Limit  int
	Offset int
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// likePattern escapes LIKE metacharacters and wraps term in wildcards.
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(term) + "%"
}

func imageColumns(img *domain.Image) (*string, *string) {
	if img.IsZero() {
		return nil, nil
	}
	return &img.URL, &img.PublicID
}

func imageFromColumns(url, publicID *string) *domain.Image {
	if url == nil || *url == "" {
		return nil
	}
	img := &domain.Image{URL: *url}
	if publicID != nil {
		img.PublicID = *publicID
	}
	return img
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ownerIDs returns the first column of every row matched by query.
func ownerIDs(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// countByDay groups rows of table by UTC calendar day of created_at.
func countByDay(ctx context.Context, q queryer, table string, since time.Time) ([]domain.DailyCount, error) {
	query := fmt.Sprintf(`
        SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
        FROM %s WHERE created_at >= $1
        GROUP BY day ORDER BY day`, table)

	rows, err := q.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []domain.DailyCount{}
	for rows.Next() {
		var dc domain.DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}
