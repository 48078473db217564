package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/repository"
	"github.com/spec-kit/blog-service/internal/repository/memory"
	"github.com/spec-kit/blog-service/internal/storage"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Put(ctx context.Context, obj storage.Object) (domain.Image, error) {
	args := m.Called(ctx, obj)
	return args.Get(0).(domain.Image), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, publicID string) error {
	return m.Called(ctx, publicID).Error(0)
}

type fixture struct {
	store      *memory.Store
	dispatcher events.Dispatcher
	auth       *AuthService
	posts      *PostService
	admin      *AdminService
	media      *MediaService
	images     *mockStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	store.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	dispatcher := events.NewInMemoryDispatcher(nil)
	images := new(mockStore)

	f := &fixture{
		store:      store,
		dispatcher: dispatcher,
		images:     images,
		auth:       NewAuthService(AuthDependencies{UserRepo: store.Users(), BcryptCost: 4}),
		posts:      NewPostService(PostDependencies{PostRepo: store.Posts(), Dispatcher: dispatcher}),
		admin: NewAdminService(AdminDependencies{
			UserRepo:   store.Users(),
			PostRepo:   store.Posts(),
			Dispatcher: dispatcher,
		}),
		media: NewMediaService(MediaDependencies{
			Store:          images,
			PostRepo:       store.Posts(),
			UserRepo:       store.Users(),
			Dispatcher:     dispatcher,
			MaxUploadBytes: 1024,
		}),
	}
	f.admin.now = func() time.Time { return time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) signup(t *testing.T, username, email string) *domain.Principal {
	t.Helper()
	user, err := f.auth.Signup(context.Background(), SignupInput{Username: username, Email: email, Password: "secret1"})
	require.NoError(t, err)
	p := user.Principal()
	return &p
}

func (f *fixture) admin1(t *testing.T) *domain.Principal {
	t.Helper()
	user, err := f.auth.CreateAdmin(context.Background(), SignupInput{Username: "root", Email: "root@example.com", Password: "secret1"})
	require.NoError(t, err)
	p := user.Principal()
	return &p
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func TestAuthService_SignupAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.auth.Signup(ctx, SignupInput{Username: " alice ", Email: "Alice@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	_, err = f.auth.Signup(ctx, SignupInput{Username: "alice2", Email: "alice@example.com", Password: "secret1"})
	assertCode(t, err, apperrors.CodeConflict)

	logged, err := f.auth.Login(ctx, "ALICE@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, err = f.auth.Login(ctx, "alice@example.com", "wrong1")
	assertCode(t, err, apperrors.CodeUnauthenticated)
	_, err = f.auth.Login(ctx, "nobody@example.com", "secret1")
	assertCode(t, err, apperrors.CodeUnauthenticated)
}

func TestAuthService_Profile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.signup(t, "bob", "bob@example.com")

	profile, err := f.auth.Profile(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "bob", profile.Username)
	assert.Equal(t, domain.RoleUser, profile.Role)

	_, err = f.auth.Profile(ctx, nil)
	assertCode(t, err, apperrors.CodeUnauthenticated)

	_, err = f.auth.Profile(ctx, &domain.Principal{SubjectID: "8b0d8a5e-2c55-4f8e-9a1d-111111111111", Role: domain.RoleUser})
	assertCode(t, err, apperrors.CodeUnauthenticated)
}

func TestPostService_OwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "owner", "owner@example.com")
	other := f.signup(t, "other", "other@example.com")
	admin := f.admin1(t)

	post, err := f.posts.Create(ctx, owner, PostInput{Title: "Hello", Description: "a description"})
	require.NoError(t, err)
	assert.Equal(t, owner.SubjectID, post.AuthorID)

	_, err = f.posts.Update(ctx, other, post.ID, PostInput{Title: "Hijack", Description: "not my post at all"})
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.posts.Update(ctx, other, "8b0d8a5e-2c55-4f8e-9a1d-111111111111", PostInput{Title: "Ghost", Description: "does not exist"})
	assertCode(t, err, apperrors.CodeForbidden)

	updated, err := f.posts.Update(ctx, owner, post.ID, PostInput{Title: "Hello again", Description: "an edited description"})
	require.NoError(t, err)
	assert.Equal(t, "Hello again", updated.Title)

	updated, err = f.posts.Update(ctx, admin, post.ID, PostInput{Title: "Moderated", Description: "an admin edited this"})
	require.NoError(t, err)
	assert.Equal(t, owner.SubjectID, updated.AuthorID, "author never changes")

	assertCode(t, f.posts.Delete(ctx, other, post.ID), apperrors.CodeForbidden)
	require.NoError(t, f.posts.Delete(ctx, owner, post.ID))
	assertCode(t, f.posts.Delete(ctx, owner, post.ID), apperrors.CodeForbidden)

	_, err = f.posts.Create(ctx, nil, PostInput{Title: "Anon", Description: "anonymous post"})
	assertCode(t, err, apperrors.CodeUnauthenticated)
}

func TestPostService_ListAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice", "alice@example.com")
	bob := f.signup(t, "bob", "bob@example.com")

	for _, title := range []string{"Go generics", "Rust lifetimes", "Go channels"} {
		_, err := f.posts.Create(ctx, alice, PostInput{Title: title, Description: "some long body"})
		require.NoError(t, err)
	}
	_, err := f.posts.Create(ctx, bob, PostInput{Title: "Bob's go notes", Description: "some long body"})
	require.NoError(t, err)

	posts, total, err := f.posts.List(ctx, repository.ListParams{Search: "GO", Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, posts, 2)
	assert.Equal(t, "Bob's go notes", posts[0].Title, "newest first")
	require.NotNil(t, posts[0].Author)
	assert.Equal(t, "bob", posts[0].Author.Username)

	mine, total, err := f.posts.ListMine(ctx, bob, repository.ListParams{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, mine, 1)

	_, err = f.posts.Get(ctx, "not-a-uuid")
	assertCode(t, err, apperrors.CodeNotFound)
	got, err := f.posts.Get(ctx, mine[0].ID)
	require.NoError(t, err)
	assert.Equal(t, mine[0].ID, got.ID)
}

func TestAdminService_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signup(t, "carol", "carol@example.com")

	_, _, err := f.admin.ListUsers(ctx, user, repository.ListParams{Limit: 10})
	assertCode(t, err, apperrors.CodeForbidden)
	_, err = f.admin.Stats(ctx, nil, 0)
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestAdminService_DeleteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin1(t)
	victim := f.signup(t, "dave", "dave@example.com")

	_, err := f.posts.Create(ctx, victim, PostInput{
		Title:       "With image",
		Description: "a post with an image",
		Image:       &domain.Image{URL: "https://cdn/x", PublicID: "blog-images/x.png"},
	})
	require.NoError(t, err)

	assertCode(t, f.admin.DeleteUser(ctx, admin, admin.SubjectID), apperrors.CodeForbidden)
	assertCode(t, f.admin.DeleteUser(ctx, admin, "8b0d8a5e-2c55-4f8e-9a1d-111111111111"), apperrors.CodeNotFound)

	var published []events.Event
	f.dispatcher.Subscribe(events.EventUserDeleted, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})

	require.NoError(t, f.admin.DeleteUser(ctx, admin, victim.SubjectID))
	require.Len(t, published, 1)
	payload := published[0].Payload.(events.UserDeletedPayload)
	require.Len(t, payload.PostImages, 1)
	assert.Equal(t, "blog-images/x.png", payload.PostImages[0].PublicID)

	total, err := f.store.Posts().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, total, "posts cascade with their author")
}

func TestAdminService_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin1(t)
	alice := f.signup(t, "alice", "alice@example.com")
	_, err := f.posts.Create(ctx, alice, PostInput{Title: "Stats", Description: "counted once"})
	require.NoError(t, err)

	stats, err := f.admin.Stats(ctx, admin, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalUsers)
	assert.EqualValues(t, 1, stats.TotalPosts)
	require.Len(t, stats.UsersOverTime, 1)
	assert.Equal(t, domain.DailyCount{Date: "2026-05-01", Count: 2}, stats.UsersOverTime[0])
}

func TestAdminService_StatsRejectsOversizedWindow(t *testing.T) {
	f := newFixture(t)
	admin := f.admin1(t)

	_, err := f.admin.Stats(context.Background(), admin, MaxStatsWindow+time.Hour)
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.admin.Stats(context.Background(), admin, MaxStatsWindow)
	require.NoError(t, err)
}

func fileHeader(t *testing.T, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "upload.bin")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestMediaService_Upload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signup(t, "erin", "erin@example.com")

	f.images.On("Put", mock.Anything, mock.MatchedBy(func(obj storage.Object) bool {
		return obj.Folder == storage.FolderPostImages && obj.ContentType == "image/png"
	})).Return(domain.Image{URL: "https://cdn/p.png", PublicID: "blog-images/p.png"}, nil).Once()

	img, err := f.media.UploadImage(ctx, user, fileHeader(t, pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "blog-images/p.png", img.PublicID)

	_, err = f.media.UploadImage(ctx, nil, fileHeader(t, pngHeader))
	assertCode(t, err, apperrors.CodeUnauthenticated)

	_, err = f.media.UploadAvatar(ctx, fileHeader(t, []byte("plain text, not an image")))
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.media.UploadAvatar(ctx, fileHeader(t, append(pngHeader, make([]byte, 2048)...)))
	assertCode(t, err, apperrors.CodeValidation)

	f.images.AssertExpectations(t)
}

func TestMediaService_CleansUpAfterPostDeletion(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.media.RegisterHandlers()
	go f.media.RunCleanup(ctx)

	owner := f.signup(t, "frank", "frank@example.com")
	post, err := f.posts.Create(ctx, owner, PostInput{
		Title:       "Ephemeral",
		Description: "will be deleted",
		Image:       &domain.Image{URL: "https://cdn/e.png", PublicID: "blog-images/e.png"},
	})
	require.NoError(t, err)

	done := make(chan struct{})
	f.images.On("Delete", mock.Anything, "blog-images/e.png").Return(nil).Once().Run(func(mock.Arguments) { close(done) })

	require.NoError(t, f.posts.Delete(ctx, owner, post.ID))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("image was not cleaned up")
	}
	f.images.AssertExpectations(t)
}

func TestPostService_UpdateImageHandling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.media.RegisterHandlers()
	owner := f.signup(t, "gina", "gina@example.com")

	original := &domain.Image{URL: "https://cdn/o.png", PublicID: "blog-images/o.png"}
	post, err := f.posts.Create(ctx, owner, PostInput{Title: "Framed", Description: "has a picture", Image: original})
	require.NoError(t, err)

	updated, err := f.posts.Update(ctx, owner, post.ID, PostInput{Title: "Reframed", Description: "text only edit"})
	require.NoError(t, err)
	require.NotNil(t, updated.Image)
	assert.Equal(t, original.PublicID, updated.Image.PublicID)
	stored, err := f.store.Posts().GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, original.PublicID, stored.Image.PublicID)
	assert.Empty(t, f.media.pending, "nothing queued for deletion")

	replacement := &domain.Image{URL: "https://cdn/n.png", PublicID: "blog-images/n.png"}
	updated, err = f.posts.Update(ctx, owner, post.ID, PostInput{Title: "Reframed", Description: "new picture", Image: replacement})
	require.NoError(t, err)
	assert.Equal(t, replacement.PublicID, updated.Image.PublicID)
	require.Len(t, f.media.pending, 1)
	assert.Equal(t, original.PublicID, <-f.media.pending)

	updated, err = f.posts.Update(ctx, owner, post.ID, PostInput{Title: "Bare", Description: "picture removed", RemoveImage: true})
	require.NoError(t, err)
	assert.Nil(t, updated.Image)
	require.Len(t, f.media.pending, 1)
	assert.Equal(t, replacement.PublicID, <-f.media.pending)

	f.images.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestMediaService_DeleteImageOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "hank", "hank@example.com")
	other := f.signup(t, "iris", "iris@example.com")
	admin := f.admin1(t)

	postImage, err := storage.NewPublicID(storage.FolderPostImages, "image/png")
	require.NoError(t, err)
	_, err = f.posts.Create(ctx, owner, PostInput{
		Title:       "Owned",
		Description: "image belongs to hank",
		Image:       &domain.Image{URL: "https://cdn/" + postImage, PublicID: postImage},
	})
	require.NoError(t, err)

	avatar, err := storage.NewPublicID(storage.FolderAvatars, "image/png")
	require.NoError(t, err)
	_, err = f.auth.Signup(ctx, SignupInput{
		Username: "jade",
		Email:    "jade@example.com",
		Password: "secret1",
		Avatar:   &domain.Image{URL: "https://cdn/" + avatar, PublicID: avatar},
	})
	require.NoError(t, err)

	assertCode(t, f.media.DeleteImage(ctx, other, postImage), apperrors.CodeForbidden)
	assertCode(t, f.media.DeleteImage(ctx, owner, avatar), apperrors.CodeForbidden)
	assertCode(t, f.media.DeleteImage(ctx, other, "../etc/passwd"), apperrors.CodeValidation)
	f.images.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	f.images.On("Delete", mock.Anything, postImage).Return(nil).Once()
	require.NoError(t, f.media.DeleteImage(ctx, owner, postImage))

	f.images.On("Delete", mock.Anything, avatar).Return(nil).Once()
	require.NoError(t, f.media.DeleteImage(ctx, admin, avatar))

	fresh, err := storage.NewPublicID(storage.FolderPostImages, "image/png")
	require.NoError(t, err)
	f.images.On("Delete", mock.Anything, fresh).Return(storage.ErrNotFound).Once()
	assertCode(t, f.media.DeleteImage(ctx, other, fresh), apperrors.CodeNotFound)

	f.images.AssertExpectations(t)
}
