package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/blog-service/internal/domain"
)

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%go%", likePattern("go"))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
	assert.Equal(t, `%c:\\tmp%`, likePattern(`c:\tmp`))
}

func TestImageColumns(t *testing.T) {
	url, id := imageColumns(nil)
	assert.Nil(t, url)
	assert.Nil(t, id)

	url, id = imageColumns(&domain.Image{URL: "https://cdn/x.png", PublicID: "blog-images/x.png"})
	if assert.NotNil(t, url) && assert.NotNil(t, id) {
		assert.Equal(t, "https://cdn/x.png", *url)
		assert.Equal(t, "blog-images/x.png", *id)
	}

	assert.Nil(t, imageFromColumns(nil, nil))
	empty := ""
	assert.Nil(t, imageFromColumns(&empty, nil))

	u, p := "https://cdn/y.png", "avatar-images/y.png"
	assert.Equal(t, &domain.Image{URL: u, PublicID: p}, imageFromColumns(&u, &p))
}

func TestMapWriteError(t *testing.T) {
	err := mapWriteError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	assert.ErrorIs(t, err, ErrDuplicate)

	other := errors.New("boom")
	assert.Equal(t, other, mapWriteError(other))
}
