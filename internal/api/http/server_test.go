package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/api/http/handlers"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/config"
	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/observability"
	"github.com/spec-kit/blog-service/internal/repository/memory"
	"github.com/spec-kit/blog-service/internal/service"
	"github.com/spec-kit/blog-service/internal/storage"
)

type testServer struct {
	app     *fiber.App
	now     time.Time
	authSvc *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	ts := &testServer{now: time.Now()}

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:              "access-secret-for-tests",
		AccessTTL:                 15 * time.Minute,
		RefreshSecret:             "refresh-secret-for-tests",
		RefreshTTL:                15 * 24 * time.Hour,
		RotationThresholdFraction: 1.0 / 15.0,
		Now:                       func() time.Time { return ts.now },
	})
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	sessions := auth.NewSessionMiddleware(auth.NewSessionResolver(tokens), auth.CookiePolicy{}, logger, metrics)

	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher(logger)
	images, err := storage.NewLocalStore(t.TempDir(), "/static/uploads")
	require.NoError(t, err)

	ts.authSvc = service.NewAuthService(service.AuthDependencies{UserRepo: store.Users(), BcryptCost: 4, Logger: logger})
	posts := service.NewPostService(service.PostDependencies{PostRepo: store.Posts(), Dispatcher: dispatcher, Logger: logger})
	admin := service.NewAdminService(service.AdminDependencies{UserRepo: store.Users(), PostRepo: store.Posts(), Dispatcher: dispatcher, Logger: logger})
	media := service.NewMediaService(service.MediaDependencies{
		Store:      images,
		PostRepo:   store.Posts(),
		UserRepo:   store.Users(),
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	ts.app = NewServer(config.AppConfig{Name: "blog-test"}, logger, metrics, RouteConfig{
		Health:   handlers.NewHealthHandler("blog-test", "test"),
		Auth:     handlers.NewAuthHandler(ts.authSvc, sessions),
		Posts:    handlers.NewPostsHandler(posts),
		Admin:    handlers.NewAdminHandler(admin),
		Media:    handlers.NewMediaHandler(media),
		Sessions: sessions,
		Metrics:  adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	})
	return ts
}

// client keeps cookies across requests the way a browser would.
type client struct {
	t       *testing.T
	ts      *testServer
	cookies map[string]string
}

func (ts *testServer) client(t *testing.T) *client {
	return &client{t: t, ts: ts, cookies: map[string]string{}}
}

func (c *client) do(method, path string, body io.Reader, contentType string) *stdhttp.Response {
	c.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for name, value := range c.cookies {
		req.AddCookie(&stdhttp.Cookie{Name: name, Value: value})
	}
	resp, err := c.ts.app.Test(req, -1)
	require.NoError(c.t, err)
	for _, ck := range resp.Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}
	return resp
}

func (c *client) json(method, path string, payload any) *stdhttp.Response {
	c.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(c.t, err)
		body = bytes.NewReader(raw)
	}
	return c.do(method, path, body, fiber.MIMEApplicationJSON)
}

func decode(t *testing.T, resp *stdhttp.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorCode(t *testing.T, resp *stdhttp.Response) string {
	t.Helper()
	var body errorBody
	decode(t, resp, &body)
	return body.Error.Code
}

type profileBody struct {
	User domain.Profile `json:"user"`
}

func (c *client) signupAndLogin(username, email string) domain.Profile {
	c.t.Helper()
	resp := c.json("POST", "/api/signup", map[string]any{"username": username, "email": email, "password": "secret1"})
	require.Equal(c.t, fiber.StatusCreated, resp.StatusCode)
	return c.login(email)
}

func (c *client) login(email string) domain.Profile {
	c.t.Helper()
	resp := c.json("POST", "/api/login", map[string]any{"email": email, "password": "secret1"})
	require.Equal(c.t, fiber.StatusOK, resp.StatusCode)
	var body profileBody
	decode(c.t, resp, &body)
	return body.User
}

func (ts *testServer) createAdmin(t *testing.T, email string) {
	t.Helper()
	_, err := ts.authSvc.CreateAdmin(context.Background(), service.SignupInput{Username: "admin", Email: email, Password: "secret1"})
	require.NoError(t, err)
}

type postBody struct {
	Data struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		AuthorID string `json:"author_id"`
	} `json:"data"`
}

func (c *client) createPost(title string) string {
	c.t.Helper()
	resp := c.json("POST", "/api/blogs", map[string]any{"title": title, "description": "a sufficiently long body"})
	require.Equal(c.t, fiber.StatusCreated, resp.StatusCode)
	var body postBody
	decode(c.t, resp, &body)
	return body.Data.ID
}

func TestLoginThenAdminEndpointIsForbidden(t *testing.T) {
	ts := newTestServer(t)
	user := ts.client(t)
	profile := user.signupAndLogin("alice", "alice@example.com")
	assert.Equal(t, domain.RoleUser, profile.Role)
	assert.Contains(t, user.cookies, auth.AccessCookieName)
	assert.Contains(t, user.cookies, auth.RefreshCookieName)

	resp := user.json("GET", "/api/admin/users", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(t, resp))

	resp = user.json("GET", "/api/user", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var who profileBody
	decode(t, resp, &who)
	assert.Equal(t, profile.ID, who.User.ID)
}

func TestLogoutThenWhoAmIIsUnauthenticated(t *testing.T) {
	ts := newTestServer(t)
	user := ts.client(t)
	user.signupAndLogin("bob", "bob@example.com")

	resp := user.json("POST", "/api/logout", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, user.cookies)

	resp = user.json("POST", "/api/logout", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "logout is idempotent")

	resp = user.json("GET", "/api/user", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(t, resp))
}

func TestLoginFailuresAreUniform(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	c.signupAndLogin("carol", "carol@example.com")

	for _, email := range []string{"carol@example.com", "nobody@example.com"} {
		resp := c.json("POST", "/api/login", map[string]any{"email": email, "password": "wrong1"})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, email)
		assert.Equal(t, "UNAUTHENTICATED", errorCode(t, resp))
	}

	resp := c.json("POST", "/api/signup", map[string]any{"username": "x", "email": "bad", "password": "1"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, resp))

	resp = c.json("POST", "/api/signup", map[string]any{"username": "carol2", "email": "carol@example.com", "password": "secret1"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestSilentRotationOnExpiredAccess(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	c.signupAndLogin("dana", "dana@example.com")
	oldAccess := c.cookies[auth.AccessCookieName]
	oldRefresh := c.cookies[auth.RefreshCookieName]

	ts.now = ts.now.Add(20 * time.Minute)
	resp := c.json("GET", "/api/user", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEqual(t, oldAccess, c.cookies[auth.AccessCookieName])
	assert.Equal(t, oldRefresh, c.cookies[auth.RefreshCookieName])

	ts.now = ts.now.Add(16 * 24 * time.Hour)
	resp = c.json("GET", "/api/user", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, c.cookies, "dead refresh clears both cookies")
}

func TestOwnerAndAdminCanEditOthersCannot(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.client(t)
	owner.signupAndLogin("owner", "owner@example.com")
	other := ts.client(t)
	other.signupAndLogin("other", "other@example.com")
	ts.createAdmin(t, "admin@example.com")
	admin := ts.client(t)
	admin.login("admin@example.com")

	id := owner.createPost("Owned post")
	update := map[string]any{"title": "Edited", "description": "an edited long body"}

	resp := other.json("PUT", "/api/myblogs/"+id, update)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp = other.json("DELETE", "/api/myblogs/"+id, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp = other.json("PUT", "/api/myblogs/00000000-0000-4000-8000-000000000000", update)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, "missing and not-owned look alike")

	resp = owner.json("PUT", "/api/myblogs/"+id, update)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = admin.json("PUT", "/api/myblogs/"+id, map[string]any{"title": "Moderated", "description": "admin moderated body"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body postBody
	decode(t, resp, &body)
	assert.Equal(t, "Moderated", body.Data.Title)

	resp = ts.client(t).json("PUT", "/api/myblogs/"+id, update)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = admin.json("DELETE", "/api/myblogs/"+id, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = owner.json("GET", "/api/blogs/"+id, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	ts := newTestServer(t)
	ts.createAdmin(t, "admin@example.com")
	admin := ts.client(t)
	self := admin.login("admin@example.com")

	user := ts.client(t)
	victim := user.signupAndLogin("victim", "victim@example.com")

	resp := admin.json("DELETE", "/api/admin/users/"+self.ID, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = admin.json("DELETE", "/api/admin/users/"+victim.ID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = user.json("GET", "/api/user", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "deleted account no longer resolves to a profile")
}

func TestPublicFeedPagination(t *testing.T) {
	ts := newTestServer(t)
	author := ts.client(t)
	author.signupAndLogin("writer", "writer@example.com")
	for _, title := range []string{"First post", "Second post", "Third entry"} {
		author.createPost(title)
	}

	resp := ts.client(t).json("GET", "/api/blogs?page=1&limit=2&search=POST", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var page struct {
		Data       []map[string]any `json:"data"`
		Total      int              `json:"total"`
		Page       int              `json:"page"`
		TotalPages int              `json:"totalPages"`
	}
	decode(t, resp, &page)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Data, 2)
}

func TestUploadImageRequiresSession(t *testing.T) {
	ts := newTestServer(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "pixel.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	raw := body.Bytes()

	anon := ts.client(t)
	resp := anon.do("POST", "/api/upload-image", bytes.NewReader(raw), w.FormDataContentType())
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	user := ts.client(t)
	user.signupAndLogin("uploader", "uploader@example.com")
	resp = user.do("POST", "/api/upload-image", bytes.NewReader(raw), w.FormDataContentType())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var img domain.Image
	decode(t, resp, &img)
	assert.True(t, strings.HasPrefix(img.PublicID, storage.FolderPostImages+"/"))

	resp = user.json("POST", "/api/delete-image", map[string]any{"public_id": img.PublicID})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUnknownRouteRendersErrorEnvelope(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.client(t).json("GET", "/api/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, resp))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	c.json("GET", "/api/blogs", nil)

	resp := c.json("GET", "/metrics", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "blog_session_resolutions_total")
}

func TestAdminStatsWindowBounds(t *testing.T) {
	ts := newTestServer(t)
	ts.createAdmin(t, "admin@example.com")
	admin := ts.client(t)
	admin.login("admin@example.com")

	for _, days := range []string{"200000", "0", "-3", "week"} {
		resp := admin.json("GET", "/api/admin/stats?days="+days, nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, days)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, resp), days)
	}

	resp := admin.json("GET", "/api/admin/stats?days=7", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = admin.json("GET", "/api/admin/stats", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUpdateWithoutImageKeepsIt(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.client(t)
	owner.signupAndLogin("ivy", "ivy@example.com")

	image := map[string]any{"url": "/static/uploads/blog-images/a.png", "public_id": "blog-images/0b8e2c7a-3f5d-4c1e-9a7b-2d6f8e1c4b3a.png"}
	resp := owner.json("POST", "/api/blogs", map[string]any{"title": "Pictured", "description": "a post with a picture", "image": image})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created struct {
		Data struct {
			ID    string        `json:"id"`
			Image *domain.Image `json:"image"`
		} `json:"data"`
	}
	decode(t, resp, &created)
	require.NotNil(t, created.Data.Image)

	resp = owner.json("PUT", "/api/myblogs/"+created.Data.ID, map[string]any{"title": "Retitled", "description": "only the text changed"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var updated struct {
		Data struct {
			Image *domain.Image `json:"image"`
		} `json:"data"`
	}
	decode(t, resp, &updated)
	require.NotNil(t, updated.Data.Image)
	assert.Equal(t, image["public_id"], updated.Data.Image.PublicID)

	resp = owner.json("PUT", "/api/myblogs/"+created.Data.ID, map[string]any{"title": "Plain", "description": "picture removed now", "remove_image": true})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	updated.Data.Image = nil
	decode(t, resp, &updated)
	assert.Nil(t, updated.Data.Image)
}
