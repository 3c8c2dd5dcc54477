package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"blog-service/internal/application/command"
	"blog-service/internal/application/common"
	"blog-service/internal/application/interfaces"
	"blog-service/internal/application/query"
	"blog-service/internal/infrastructure"
	"blog-service/internal/infrastructure/db/orm"
)

type fakeMedia struct {
	mu      sync.Mutex
	saved   map[string][]byte
	removed []string
	n       int
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{saved: map[string][]byte{}}
}

func (m *fakeMedia) Save(dir, originalName string, src io.Reader) (string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	rel := path.Join(dir, fmt.Sprintf("file-%d%s", m.n, strings.ToLower(path.Ext(originalName))))
	m.saved[rel] = data
	return rel, nil
}

func (m *fakeMedia) Remove(rel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, rel)
}

type sentMail struct {
	to, username, link string
}

type fakeMailer struct {
	sent []sentMail
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, recipientEmail, username, link string) error {
	f.sent = append(f.sent, sentMail{to: recipientEmail, username: username, link: link})
	return nil
}

type testEnv struct {
	db         *gorm.DB
	users      interfaces.UserService
	posts      interfaces.PostService
	categories interfaces.CategoryService
	media      *fakeMedia
	mailer     *fakeMailer
	limiter    *infrastructure.RateLimiter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := orm.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, orm.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	media := newFakeMedia()
	mailer := &fakeMailer{}
	limiter := infrastructure.NewRateLimiter(time.Minute, 3)
	t.Cleanup(limiter.Stop)

	userRepo := orm.NewUserRepository(db, nil)
	env := &testEnv{
		db:     db,
		media:  media,
		mailer: mailer,
		users: NewUserService(
			userRepo, userRepo,
			infrastructure.NewRedisServiceFromClient(nil),
			infrastructure.NewJWTService("test-secret", time.Hour),
			mailer, limiter, media,
			UserServiceConfig{BaseURL: "http://blog.test/", SessionLifetime: time.Hour},
		),
		posts: NewPostService(
			orm.NewPostRepository(db, nil),
			orm.NewCategoryRepository(db),
			orm.NewCommentRepository(db),
			orm.NewLikeRepository(db),
			orm.NewIdempotencyRepository(db),
			media,
			PostServiceConfig{FeaturedPosts: 3, PostsPerPage: 3},
		),
		categories: NewCategoryService(orm.NewCategoryRepository(db)),
		limiter:    limiter,
	}
	return env
}

func (e *testEnv) register(t *testing.T, username string) *common.UserResult {
	t.Helper()
	res, err := e.users.Register(context.Background(), &command.RegisterUserCommand{
		Username:  username,
		Email:     username + "@example.com",
		Password1: "correct-horse",
		Password2: "correct-horse",
	})
	require.NoError(t, err)
	return res.Result
}

func (e *testEnv) createPost(t *testing.T, authorID uint, title string, categoryIDs ...string) *common.PostResult {
	t.Helper()
	res, err := e.posts.CreatePost(context.Background(), &command.CreatePostCommand{
		AuthorId:    authorID,
		Title:       title,
		Content:     "body of " + title,
		CategoryIds: categoryIDs,
		IsPublished: true,
	})
	require.NoError(t, err)
	return res.Result
}

func validationFields(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func TestRegisterCreatesExactlyOneProfile(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "alice")

	var profiles int64
	require.NoError(t, env.db.Model(&orm.ProfileModel{}).Where("user_id = ?", user.Id).Count(&profiles).Error)
	assert.Equal(t, int64(1), profiles)

	profile, err := env.users.GetProfile(context.Background(), user.Id)
	require.NoError(t, err)
	assert.Equal(t, "default_pic.png", profile.Result.ProfilePic)
	assert.Equal(t, "alice", profile.Result.User.Username)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "taken")

	tests := []struct {
		name      string
		cmd       command.RegisterUserCommand
		wantField string
	}{
		{name: "duplicate username", cmd: command.RegisterUserCommand{Username: "taken", Password1: "correct-horse", Password2: "correct-horse"}, wantField: "username"},
		{name: "missing username", cmd: command.RegisterUserCommand{Password1: "correct-horse", Password2: "correct-horse"}, wantField: "username"},
		{name: "bad email", cmd: command.RegisterUserCommand{Username: "bob", Email: "nope", Password1: "correct-horse", Password2: "correct-horse"}, wantField: "email"},
		{name: "mismatch", cmd: command.RegisterUserCommand{Username: "bob", Password1: "correct-horse", Password2: "correct-horsf"}, wantField: "password2"},
		{name: "numeric", cmd: command.RegisterUserCommand{Username: "bob", Password1: "12345678901", Password2: "12345678901"}, wantField: "password2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.users.Register(context.Background(), &tt.cmd)
			fields := validationFields(t, err)
			assert.NotEmpty(t, fields[tt.wantField])
		})
	}

	var users int64
	require.NoError(t, env.db.Model(&orm.UserModel{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
}

func TestLoginAuthenticateLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "carol")

	_, err := env.users.Login(ctx, &command.LoginUserCommand{Username: "carol", Password: "wrong-pass", ClientIP: "10.0.0.1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.users.Login(ctx, &command.LoginUserCommand{Username: "nobody", Password: "whatever", ClientIP: "10.0.0.1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := env.users.Login(ctx, &command.LoginUserCommand{Username: "carol", Password: "correct-horse", ClientIP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, user.Id, login.User.Id)
	assert.Equal(t, 3600, login.ExpiresIn)

	session, err := env.users.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "carol", session.User.Username)
	assert.NotEmpty(t, session.TokenId)

	_, err = env.users.Authenticate(ctx, login.Token+"x")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	assert.NoError(t, env.users.Logout(ctx, session.TokenId))
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "dave")

	for i := 0; i < 3; i++ {
		_, err := env.users.Login(ctx, &command.LoginUserCommand{Username: "dave", Password: "bad-password", ClientIP: "1.2.3.4"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
		var credErr *InvalidCredentialsError
		require.ErrorAs(t, err, &credErr)
		assert.Equal(t, 2-i, credErr.AttemptsLeft)
	}
	_, err := env.users.Login(ctx, &command.LoginUserCommand{Username: "dave", Password: "correct-horse", ClientIP: "1.2.3.4"})
	assert.ErrorIs(t, err, ErrRateLimited)

	_, err = env.users.Login(ctx, &command.LoginUserCommand{Username: "dave", Password: "correct-horse", ClientIP: "5.6.7.8"})
	assert.NoError(t, err, "the limit is per username and address")
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "erin")
	env.register(t, "frank")

	t.Run("both forms must pass", func(t *testing.T) {
		_, err := env.users.UpdateProfile(ctx, &command.UpdateProfileCommand{
			UserId:      user.Id,
			Username:    "erin2",
			Email:       "erin@example.com",
			DateOfBirth: "not-a-date",
		})
		fields := validationFields(t, err)
		assert.NotEmpty(t, fields["date_of_birth"])

		profile, err := env.users.GetProfile(ctx, user.Id)
		require.NoError(t, err)
		assert.Equal(t, "erin", profile.Result.User.Username)
	})

	t.Run("username taken", func(t *testing.T) {
		_, err := env.users.UpdateProfile(ctx, &command.UpdateProfileCommand{UserId: user.Id, Username: "frank"})
		fields := validationFields(t, err)
		assert.Equal(t, []string{usernameTakenMessage}, fields["username"])
	})

	t.Run("text upload rejected", func(t *testing.T) {
		_, err := env.users.UpdateProfile(ctx, &command.UpdateProfileCommand{
			UserId:     user.Id,
			Username:   "erin",
			ProfilePic: &common.Upload{Filename: "notes.txt", ContentType: "text/plain", Content: strings.NewReader("hi")},
		})
		fields := validationFields(t, err)
		assert.Len(t, fields["profile_pic"], 2)
		assert.Empty(t, env.media.saved)
	})

	t.Run("success", func(t *testing.T) {
		res, err := env.users.UpdateProfile(ctx, &command.UpdateProfileCommand{
			UserId:      user.Id,
			Username:    "erin2",
			Email:       "erin2@example.com",
			DateOfBirth: "1990-05-06",
			ProfilePic:  &common.Upload{Filename: "Me.PNG", ContentType: "image/png", Content: bytes.NewReader([]byte("png"))},
		})
		require.NoError(t, err)
		assert.Equal(t, "profile_pics/file-1.png", res.Result.ProfilePic)
		assert.Empty(t, env.media.removed, "the default picture is never removed")

		profile, err := env.users.GetProfile(ctx, user.Id)
		require.NoError(t, err)
		assert.Equal(t, "erin2", profile.Result.User.Username)
		require.NotNil(t, profile.Result.DateOfBirth)
		assert.Equal(t, 1990, profile.Result.DateOfBirth.Year())
	})
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "gina")

	require.NoError(t, env.users.RequestPasswordReset(ctx, &command.RequestPasswordResetCommand{Email: "nobody@example.com"}))
	assert.Empty(t, env.mailer.sent)

	require.NoError(t, env.users.RequestPasswordReset(ctx, &command.RequestPasswordResetCommand{Email: "gina@example.com"}))
	require.Len(t, env.mailer.sent, 1)
	mail := env.mailer.sent[0]
	assert.Equal(t, "gina", mail.username)
	require.True(t, strings.HasPrefix(mail.link, "http://blog.test/accounts/password-reset-confirm/"))

	parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(mail.link, "http://blog.test/accounts/password-reset-confirm/"), "/"), "/")
	require.Len(t, parts, 2)
	uid, token := parts[0], parts[1]

	require.NoError(t, env.users.CheckPasswordResetLink(ctx, uid, token))
	assert.ErrorIs(t, env.users.CheckPasswordResetLink(ctx, encodeUID(999), token), ErrInvalidResetLink)
	assert.ErrorIs(t, env.users.CheckPasswordResetLink(ctx, uid, "garbage"), ErrInvalidResetLink)

	err := env.users.ConfirmPasswordReset(ctx, &command.ConfirmPasswordResetCommand{
		UidB64: uid, Token: token, NewPassword1: "brand-new-pass", NewPassword2: "different-pass",
	})
	assert.NotEmpty(t, validationFields(t, err)["new_password2"])

	require.NoError(t, env.users.ConfirmPasswordReset(ctx, &command.ConfirmPasswordResetCommand{
		UidB64: uid, Token: token, NewPassword1: "brand-new-pass", NewPassword2: "brand-new-pass",
	}))

	_, err = env.users.Login(ctx, &command.LoginUserCommand{Username: "gina", Password: "brand-new-pass"})
	assert.NoError(t, err)

	assert.ErrorIs(t, env.users.CheckPasswordResetLink(ctx, uid, token), ErrInvalidResetLink, "a used link is spent")
}

func TestCreatePostRejectsNonImageUpload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.register(t, "hank")

	_, err := env.posts.CreatePost(ctx, &command.CreatePostCommand{
		AuthorId:   author.Id,
		Title:      "with attachment",
		Content:    "body",
		CoverImage: &common.Upload{Filename: "notes.txt", ContentType: "text/plain", Content: strings.NewReader("plain")},
	})
	fields := validationFields(t, err)
	assert.Equal(t, []string{
		"Only JPEG and PNG images are allowed.",
		"Invalid file type. Only JPEG and PNG files are allowed.",
	}, fields["cover_image"])
	assert.Empty(t, env.media.saved)

	list, err := env.posts.ListPosts(ctx, &query.PostListQuery{})
	require.NoError(t, err)
	assert.Empty(t, list.Posts)
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.register(t, "ivy")

	_, err := env.posts.CreatePost(ctx, &command.CreatePostCommand{
		AuthorId:    author.Id,
		Title:       strings.Repeat("x", 201),
		CategoryIds: []string{"42", "abc"},
	})
	fields := validationFields(t, err)
	assert.NotEmpty(t, fields["title"])
	assert.NotEmpty(t, fields["content"])
	assert.Len(t, fields["categories"], 2)
}

func TestCreatePostWithCoverAndCategories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.register(t, "jack")
	cat, err := env.categories.CreateCategory(ctx, &command.CreateCategoryCommand{Name: "Go"})
	require.NoError(t, err)

	res, err := env.posts.CreatePost(ctx, &command.CreatePostCommand{
		AuthorId:    author.Id,
		Title:       "Covered",
		Content:     "body",
		CategoryIds: []string{fmt.Sprint(cat.Result.Id)},
		IsPublished: true,
		CoverImage:  &common.Upload{Filename: "cover.JPG", ContentType: "image/jpeg", Content: strings.NewReader("jpg")},
	})
	require.NoError(t, err)
	post := res.Result
	assert.Equal(t, "cover_pics/file-1.jpg", post.CoverImage)
	assert.Equal(t, "jack", post.Author.Username)
	require.Len(t, post.Categories, 1)
	assert.True(t, post.HasCategory(cat.Result.Id))
}

func TestCreatePostIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.register(t, "kate")

	cmd := &command.CreatePostCommand{AuthorId: author.Id, Title: "once", Content: "body", IdempotencyKey: uuid.NewString()}
	first, err := env.posts.CreatePost(ctx, cmd)
	require.NoError(t, err)
	second, err := env.posts.CreatePost(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, first.Result.Id, second.Result.Id)

	var posts int64
	require.NoError(t, env.db.Model(&orm.PostModel{}).Count(&posts).Error)
	assert.Equal(t, int64(1), posts)
}

func TestCreatePostIdempotencyKeyIsPerAuthor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.register(t, "lena")
	second := env.register(t, "milo")
	key := uuid.NewString()

	own, err := env.posts.CreatePost(ctx, &command.CreatePostCommand{AuthorId: first.Id, Title: "mine", Content: "body", IdempotencyKey: key})
	require.NoError(t, err)
	other, err := env.posts.CreatePost(ctx, &command.CreatePostCommand{AuthorId: second.Id, Title: "theirs", Content: "body", IdempotencyKey: key})
	require.NoError(t, err)

	assert.NotEqual(t, own.Result.Id, other.Result.Id)
	assert.Equal(t, "theirs", other.Result.Title)
	assert.Equal(t, second.Id, other.Result.Author.Id)

	var posts int64
	require.NoError(t, env.db.Model(&orm.PostModel{}).Count(&posts).Error)
	assert.Equal(t, int64(2), posts)
}

func TestUpdateAndDeleteRequireAuthor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.register(t, "liam")
	other := env.register(t, "mia")
	post := env.createPost(t, author.Id, "mine")

	_, err := env.posts.GetPostForEdit(ctx, post.Id, other.Id)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.posts.UpdatePost(ctx, &command.UpdatePostCommand{PostId: post.Id, ActorId: other.Id, Title: "stolen", Content: "x"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, env.posts.DeletePost(ctx, &command.DeletePostCommand{PostId: post.Id, ActorId: other.Id}), ErrForbidden)

	detail, err := env.posts.GetPost(ctx, post.Id, 0)
	require.NoError(t, err)
	assert.Equal(t, "mine", detail.Post.Title)

	updated, err := env.posts.UpdatePost(ctx, &command.UpdatePostCommand{
		PostId: post.Id, ActorId: author.Id, Title: "mine, edited", Content: "new body",
		CoverImage: &common.Upload{Filename: "c.png", ContentType: "image/png", Content: strings.NewReader("png")},
	})
	require.NoError(t, err)
	assert.Equal(t, "mine, edited", updated.Result.Title)
	assert.Equal(t, author.Id, updated.Result.Author.Id)
	assert.Equal(t, "cover_pics/file-1.png", updated.Result.CoverImage)
	assert.False(t, updated.Result.IsPublished)

	require.NoError(t, env.posts.DeletePost(ctx, &command.DeletePostCommand{PostId: post.Id, ActorId: author.Id}))
	assert.Equal(t, []string{"cover_pics/file-1.png"}, env.media.removed)

	_, err = env.posts.GetPost(ctx, post.Id, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, env.posts.DeletePost(ctx, &command.DeletePostCommand{PostId: post.Id, ActorId: author.Id}), ErrNotFound)
}

func TestLikeAndComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.register(t, "noah")
	fan := env.register(t, "olga")
	post := env.createPost(t, author.Id, "popular")

	require.NoError(t, env.posts.LikePost(ctx, &command.LikePostCommand{PostId: post.Id, UserId: fan.Id}))
	assert.ErrorIs(t, env.posts.LikePost(ctx, &command.LikePostCommand{PostId: post.Id, UserId: fan.Id}), ErrAlreadyLiked)
	assert.ErrorIs(t, env.posts.LikePost(ctx, &command.LikePostCommand{PostId: 9999, UserId: fan.Id}), ErrNotFound)

	_, err := env.posts.AddComment(ctx, &command.AddCommentCommand{PostId: post.Id, AuthorId: fan.Id, Content: "   "})
	assert.NotEmpty(t, validationFields(t, err)["comment_content"])
	_, err = env.posts.AddComment(ctx, &command.AddCommentCommand{PostId: post.Id, AuthorId: fan.Id, Content: "great post"})
	require.NoError(t, err)

	detail, err := env.posts.GetPost(ctx, post.Id, fan.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.LikeCount)
	assert.True(t, detail.IsLiked)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "olga", detail.Comments[0].Author.Username)

	anonymous, err := env.posts.GetPost(ctx, post.Id, 0)
	require.NoError(t, err)
	assert.False(t, anonymous.IsLiked)
}

func TestListPostsPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.register(t, "pat")
	for i := 1; i <= 4; i++ {
		env.createPost(t, author.Id, fmt.Sprintf("post %d", i))
	}

	first, err := env.posts.ListPosts(ctx, &query.PostListQuery{Page: "abc"})
	require.NoError(t, err)
	assert.Len(t, first.Posts, 3)
	assert.Equal(t, "post 4", first.Posts[0].Title)
	assert.Equal(t, 2, first.Pagination.Pages)
	assert.True(t, first.Pagination.HasNext)
	assert.Equal(t, 2, first.Pagination.NextPage)

	second, err := env.posts.ListPosts(ctx, &query.PostListQuery{Page: "2"})
	require.NoError(t, err)
	require.Len(t, second.Posts, 1)
	assert.Equal(t, "post 1", second.Posts[0].Title)
	assert.True(t, second.Pagination.HasPrev)
	assert.False(t, second.Pagination.HasNext)

	_, err = env.posts.ListPosts(ctx, &query.PostListQuery{Page: "3"})
	assert.ErrorIs(t, err, ErrNotFound)

	none, err := env.posts.ListPosts(ctx, &query.PostListQuery{Category: "not-a-number"})
	require.NoError(t, err)
	assert.Empty(t, none.Posts)
	assert.Equal(t, 1, none.Pagination.Pages)

	searched, err := env.posts.ListPosts(ctx, &query.PostListQuery{Search: "POST 3"})
	require.NoError(t, err)
	require.Len(t, searched.Posts, 1)
	assert.Equal(t, "post 3", searched.Posts[0].Title)
}

func TestHome(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.register(t, "quinn")
	for i := 1; i <= 6; i++ {
		env.createPost(t, author.Id, fmt.Sprintf("post %d", i))
	}
	_, err := env.categories.CreateCategory(ctx, &command.CreateCategoryCommand{Name: "News"})
	require.NoError(t, err)

	home, err := env.posts.Home(ctx)
	require.NoError(t, err)
	assert.Len(t, home.RecentPosts, 5)
	assert.Equal(t, "post 6", home.RecentPosts[0].Title)
	assert.Len(t, home.FeaturedPosts, 3)
	assert.Len(t, home.Categories, 1)
}

func TestCreateCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.categories.CreateCategory(ctx, &command.CreateCategoryCommand{Name: "Go", Description: "gophers"})
	require.NoError(t, err)

	_, err = env.categories.CreateCategory(ctx, &command.CreateCategoryCommand{Name: "Go"})
	assert.Equal(t, []string{"Category with this Name already exists."}, validationFields(t, err)["name"])

	_, err = env.categories.CreateCategory(ctx, &command.CreateCategoryCommand{Name: " "})
	assert.NotEmpty(t, validationFields(t, err)["name"])

	list, err := env.categories.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list.Result, 1)
	assert.Equal(t, "gophers", list.Result[0].Description)
}
