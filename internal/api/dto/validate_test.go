package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

func fieldsOf(t *testing.T, err error) map[string]any {
	t.Helper()
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	require.Equal(t, apperrors.CodeValidation, de.Code)
	fields, ok := de.Details["fields"].(map[string]any)
	require.True(t, ok)
	return fields
}

func TestSignupRequest_Validation(t *testing.T) {
	valid := SignupRequest{Username: "Émilie_2.0 b", Email: "emilie@example.com", Password: "s3cret!"}
	require.NoError(t, Validate(valid))

	cases := map[string]struct {
		mutate func(*SignupRequest)
		field  string
	}{
		"short username":    {func(r *SignupRequest) { r.Username = "ab" }, "username"},
		"long username":     {func(r *SignupRequest) { r.Username = strings.Repeat("a", 31) }, "username"},
		"username symbols":  {func(r *SignupRequest) { r.Username = "bob<script>" }, "username"},
		"bad email":         {func(r *SignupRequest) { r.Email = "nope" }, "email"},
		"short password":    {func(r *SignupRequest) { r.Password = "abc" }, "password"},
		"password space":    {func(r *SignupRequest) { r.Password = "abc def" }, "password"},
		"avatar missing id": {func(r *SignupRequest) { r.Avatar = &ImageRef{URL: "/x.png"} }, "public_id"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			assert.Contains(t, fieldsOf(t, Validate(req)), tc.field)
		})
	}
}

func TestPostRequest_Validation(t *testing.T) {
	require.NoError(t, Validate(PostRequest{Title: "Go!", Description: "ten chars."}))

	fields := fieldsOf(t, Validate(PostRequest{Title: "Go", Description: "short"}))
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "description")

	fields = fieldsOf(t, Validate(PostRequest{Title: strings.Repeat("t", 101), Description: "long enough text"}))
	assert.Contains(t, fields, "title")
}

func TestListQuery_Normalize(t *testing.T) {
	q := ListQuery{Page: 0, Limit: 500}
	q.Normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, MaxPageLimit, q.Limit)

	q = ListQuery{Page: 3}
	q.Normalize()
	assert.Equal(t, DefaultPageLimit, q.Limit)
	assert.Equal(t, 18, q.Offset())
}

func TestNewPage(t *testing.T) {
	p := NewPage[int](nil, 19, ListQuery{Page: 2, Limit: 9})
	assert.Equal(t, 3, p.TotalPages)
	assert.NotNil(t, p.Data)

	p = NewPage([]int{}, 0, ListQuery{Page: 1, Limit: 9})
	assert.Equal(t, 0, p.TotalPages)
}
