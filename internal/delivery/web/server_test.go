package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"blog-service/internal/application/interfaces"
	"blog-service/internal/application/query"
	"blog-service/internal/application/services"
	"blog-service/internal/infrastructure"
	"blog-service/internal/infrastructure/db/orm"
)

const csrfToken = "test-csrf-token"

type fakeMailer struct {
	links []string
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, recipientEmail, username, link string) error {
	f.links = append(f.links, link)
	return nil
}

type testApp struct {
	t          *testing.T
	server     *Server
	users      interfaces.UserService
	posts      interfaces.PostService
	categories interfaces.CategoryService
	db         *gorm.DB
	media      *infrastructure.MediaStorage
	mailer     *fakeMailer
	baseURL    string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := orm.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, orm.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	media := infrastructure.NewMediaStorage(t.TempDir())
	resizer := infrastructure.NewImageResizer(40_000_000)
	limiter := infrastructure.NewRateLimiter(time.Minute, 100)
	t.Cleanup(limiter.Stop)
	mailer := &fakeMailer{}

	userRepo := orm.NewUserRepository(db, &orm.ImageHook{Processor: resizer, Resolve: media.Path, MaxWidth: 300, MaxHeight: 300})
	postRepo := orm.NewPostRepository(db, &orm.ImageHook{Processor: resizer, Resolve: media.Path, MaxWidth: 800, MaxHeight: 600})
	categoryRepo := orm.NewCategoryRepository(db)

	users := services.NewUserService(userRepo, userRepo,
		infrastructure.NewRedisServiceFromClient(nil),
		infrastructure.NewJWTService("web-test-secret", time.Hour),
		mailer, limiter, media,
		services.UserServiceConfig{BaseURL: "http://blog.test", SessionLifetime: time.Hour})
	posts := services.NewPostService(postRepo, categoryRepo,
		orm.NewCommentRepository(db), orm.NewLikeRepository(db), orm.NewIdempotencyRepository(db),
		media, services.PostServiceConfig{FeaturedPosts: 3, PostsPerPage: 3})
	categories := services.NewCategoryService(categoryRepo)

	server, err := NewServer(NewHandler(users, posts, categories, HandlerConfig{}), ServerConfig{
		MediaRoot:      media.Root(),
		MaxUploadBytes: 10 << 20,
	})
	require.NoError(t, err)

	return &testApp{
		t:          t,
		server:     server,
		users:      users,
		posts:      posts,
		categories: categories,
		db:         db,
		media:      media,
		mailer:     mailer,
		baseURL:    "http://blog.test",
	}
}

func (a *testApp) do(req *http.Request, session *http.Cookie) *httptest.ResponseRecorder {
	req.AddCookie(&http.Cookie{Name: "csrftoken", Value: csrfToken})
	if session != nil {
		req.AddCookie(session)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(path string, session *http.Cookie) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil), session)
}

func (a *testApp) postForm(path string, form url.Values, session *http.Cookie) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrfmiddlewaretoken", csrfToken)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, session)
}

type filePart struct {
	field, filename, contentType string
	data                         []byte
}

func (a *testApp) postMultipart(path string, form url.Values, file *filePart, session *http.Cookie) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(a.t, w.WriteField("csrfmiddlewaretoken", csrfToken))
	for key, values := range form {
		for _, v := range values {
			require.NoError(a.t, w.WriteField(key, v))
		}
	}
	if file != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.filename))
		header.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(header)
		require.NoError(a.t, err)
		_, err = part.Write(file.data)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return a.do(req, session)
}

func (a *testApp) register(username string) {
	rec := a.postForm("/accounts/register/", url.Values{
		"username":  {username},
		"email":     {username + "@example.com"},
		"password1": {"correct-horse"},
		"password2": {"correct-horse"},
	}, nil)
	require.Equal(a.t, http.StatusFound, rec.Code, rec.Body.String())
	require.Equal(a.t, "/accounts/login/", rec.Header().Get("Location"))
}

func (a *testApp) login(username string) *http.Cookie {
	rec := a.postForm("/accounts/login/", url.Values{
		"username": {username},
		"password": {"correct-horse"},
	}, nil)
	require.Equal(a.t, http.StatusFound, rec.Code, rec.Body.String())
	session := responseCookie(rec, sessionCookie)
	require.NotNil(a.t, session)
	return session
}

func (a *testApp) createPost(session *http.Cookie, title string) uint {
	rec := a.postMultipart("/posts/new/", url.Values{
		"title":        {title},
		"content":      {"content of " + title},
		"is_published": {"on"},
	}, nil, session)
	require.Equal(a.t, http.StatusFound, rec.Code, rec.Body.String())
	location := rec.Header().Get("Location")
	id, err := strconv.ParseUint(strings.Trim(strings.TrimPrefix(location, "/posts/"), "/"), 10, 64)
	require.NoError(a.t, err, location)
	return uint(id)
}

func (a *testApp) count(model interface{}) int64 {
	var n int64
	require.NoError(a.t, a.db.Model(model).Count(&n).Error)
	return n
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

func flashTexts(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	cookie := responseCookie(rec, flashCookie)
	if cookie == nil || cookie.Value == "" {
		return nil
	}
	flashes, err := decodeFlashes(cookie.Value)
	require.NoError(t, err)
	texts := make([]string, 0, len(flashes))
	for _, f := range flashes {
		texts = append(texts, f.Text)
	}
	return texts
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestAnonymousCommentRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)
	app.register("alice")
	postID := app.createPost(app.login("alice"), "hello")

	rec := app.postForm(fmt.Sprintf("/posts/%d/", postID), url.Values{"comment_content": {"drive-by"}}, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/accounts/login/?next="+url.QueryEscape(fmt.Sprintf("/posts/%d/", postID)), rec.Header().Get("Location"))
	assert.Equal(t, []string{"You must be logged in to comment."}, flashTexts(t, rec))
	assert.Zero(t, app.count(&orm.CommentModel{}))
}

func TestCommentFlow(t *testing.T) {
	app := newTestApp(t)
	app.register("bob")
	session := app.login("bob")
	postID := app.createPost(session, "discuss")
	path := fmt.Sprintf("/posts/%d/", postID)

	rec := app.postForm(path, url.Values{"comment_content": {"  "}}, session)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, []string{"Comment cannot be empty."}, flashTexts(t, rec))
	assert.Zero(t, app.count(&orm.CommentModel{}))

	rec = app.postForm(path, url.Values{"comment_content": {"first!"}}, session)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, path, rec.Header().Get("Location"))
	assert.Equal(t, int64(1), app.count(&orm.CommentModel{}))

	page := app.get(path, session)
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "first!")
}

func TestPostDetailRequiresDiscriminator(t *testing.T) {
	app := newTestApp(t)
	app.register("carol")
	session := app.login("carol")
	postID := app.createPost(session, "quiet")

	rec := app.postForm(fmt.Sprintf("/posts/%d/", postID), url.Values{"other": {"x"}}, session)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	assert.Equal(t, http.StatusNotFound, app.get("/posts/999/", nil).Code)
	assert.Equal(t, http.StatusNotFound, app.get("/posts/abc/", nil).Code)
}

func TestDoubleLikeKeepsOneRow(t *testing.T) {
	app := newTestApp(t)
	app.register("dave")
	session := app.login("dave")
	postID := app.createPost(session, "likeable")
	path := fmt.Sprintf("/posts/%d/", postID)

	rec := app.postForm(path, url.Values{"like_button": {"1"}}, session)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, []string{"You liked this post!"}, flashTexts(t, rec))

	rec = app.postForm(path, url.Values{"like_button": {"1"}}, session)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, []string{"You have already liked this post."}, flashTexts(t, rec))
	assert.Equal(t, int64(1), app.count(&orm.LikeModel{}))

	anonymous := app.postForm(path, url.Values{"like_button": {"1"}}, nil)
	assert.Equal(t, http.StatusFound, anonymous.Code)
	assert.True(t, strings.HasPrefix(anonymous.Header().Get("Location"), loginURL))
	assert.Equal(t, int64(1), app.count(&orm.LikeModel{}))
}

func TestCreatePostRejectsTextUpload(t *testing.T) {
	app := newTestApp(t)
	app.register("erin")
	session := app.login("erin")

	rec := app.postMultipart("/posts/new/", url.Values{
		"title":   {"attachment"},
		"content": {"body"},
	}, &filePart{field: "cover_image", filename: "notes.txt", contentType: "text/plain", data: []byte("plain text")}, session)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Only JPEG and PNG images are allowed.")
	assert.Contains(t, body, "Invalid file type. Only JPEG and PNG files are allowed.")
	assert.Contains(t, body, `value="attachment"`)
	assert.Zero(t, app.count(&orm.PostModel{}))

	entries, err := os.ReadDir(filepath.Join(app.media.Root(), "cover_pics"))
	if err == nil {
		assert.Empty(t, entries)
	} else {
		assert.True(t, os.IsNotExist(err))
	}
}

func TestCreatePostResizesCover(t *testing.T) {
	app := newTestApp(t)
	app.register("frank")
	session := app.login("frank")

	rec := app.postMultipart("/posts/new/", url.Values{
		"title":   {"big picture"},
		"content": {"body"},
	}, &filePart{field: "cover_image", filename: "Big.PNG", contentType: "image/png", data: pngBytes(t, 1600, 1200)}, session)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())

	var post orm.PostModel
	require.NoError(t, app.db.First(&post).Error)
	require.True(t, strings.HasPrefix(post.CoverImage, "cover_pics/"))
	assert.True(t, strings.HasSuffix(post.CoverImage, ".png"))

	f, err := os.Open(app.media.Path(post.CoverImage))
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 600, cfg.Height)
}

func TestCreatePostRequiresLogin(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/posts/new/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/accounts/login/?next="+url.QueryEscape("/posts/new/"), rec.Header().Get("Location"))
}

func TestNonAuthorIsForbidden(t *testing.T) {
	app := newTestApp(t)
	app.register("gina")
	app.register("hank")
	owner := app.login("gina")
	intruder := app.login("hank")
	postID := app.createPost(owner, "owned")

	updatePath := fmt.Sprintf("/posts/%d/update/", postID)
	deletePath := fmt.Sprintf("/posts/%d/delete/", postID)

	assert.Equal(t, http.StatusForbidden, app.get(updatePath, intruder).Code)
	assert.Equal(t, http.StatusForbidden, app.postMultipart(updatePath, url.Values{"title": {"hijacked"}, "content": {"x"}}, nil, intruder).Code)
	assert.Equal(t, http.StatusForbidden, app.get(deletePath, intruder).Code)
	assert.Equal(t, http.StatusForbidden, app.postForm(deletePath, nil, intruder).Code)

	var post orm.PostModel
	require.NoError(t, app.db.First(&post, postID).Error)
	assert.Equal(t, "owned", post.Title)

	rec := app.postMultipart(updatePath, url.Values{"title": {"owned, edited"}, "content": {"new"}}, nil, owner)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", postID), rec.Header().Get("Location"))

	assert.Equal(t, http.StatusOK, app.get(deletePath, owner).Code)
	rec = app.postForm(deletePath, nil, owner)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, []string{"Post deleted successfully!"}, flashTexts(t, rec))
	assert.Zero(t, app.count(&orm.PostModel{}))
}

func TestRegisterLoginProfile(t *testing.T) {
	app := newTestApp(t)
	app.register("ivy")
	assert.Equal(t, int64(1), app.count(&orm.ProfileModel{}))

	rec := app.postForm("/accounts/register/", url.Values{
		"username": {"ivy"}, "password1": {"correct-horse"}, "password2": {"correct-horse"},
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "A user with that username already exists.")

	bad := app.postForm("/accounts/login/", url.Values{"username": {"ivy"}, "password": {"nope-nope"}}, nil)
	assert.Equal(t, http.StatusOK, bad.Code)
	assert.Contains(t, bad.Body.String(), "Please enter a correct username and password.")
	assert.Contains(t, bad.Body.String(), "99 attempt(s) left")

	session := app.login("ivy")
	var user orm.UserModel
	require.NoError(t, app.db.Where("username = ?", "ivy").First(&user).Error)

	page := app.get(fmt.Sprintf("/accounts/profile/%d/", user.Id), session)
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "ivy@example.com")

	foreign := app.get("/accounts/profile/999/", session)
	assert.Equal(t, http.StatusFound, foreign.Code)
	assert.Equal(t, fmt.Sprintf("/accounts/profile/%d/", user.Id), foreign.Header().Get("Location"))

	assert.Equal(t, http.StatusFound, app.get("/accounts/register/", session).Code)

	rec = app.postMultipart(fmt.Sprintf("/accounts/profile/%d/update/", user.Id), url.Values{
		"username":      {"ivy2"},
		"email":         {"ivy2@example.com"},
		"date_of_birth": {"1995-07-08"},
	}, nil, session)
	assert.Equal(t, http.StatusFound, rec.Code)
	require.NoError(t, app.db.First(&user, user.Id).Error)
	assert.Equal(t, "ivy2", user.Username)

	logout := app.postForm("/accounts/logout/", nil, session)
	assert.Equal(t, http.StatusFound, logout.Code)
	cleared := responseCookie(logout, sessionCookie)
	require.NotNil(t, cleared)
	assert.True(t, cleared.MaxAge < 0)
}

func TestLoginRedirectsToNext(t *testing.T) {
	app := newTestApp(t)
	app.register("jack")

	rec := app.postForm("/accounts/login/", url.Values{
		"username": {"jack"}, "password": {"correct-horse"}, "next": {"/posts/new/"},
	}, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/posts/new/", rec.Header().Get("Location"))

	rec = app.postForm("/accounts/login/", url.Values{
		"username": {"jack"}, "password": {"correct-horse"}, "next": {"//evil.example"},
	}, nil)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestPostListing(t *testing.T) {
	app := newTestApp(t)
	app.register("kate")
	session := app.login("kate")
	for _, title := range []string{"Go tips", "Rust notes", "More Go"} {
		app.createPost(session, title)
	}

	rec := app.get("/posts/?search=go", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Go tips")
	assert.Contains(t, body, "More Go")
	assert.NotContains(t, body, "Rust notes")

	assert.Equal(t, http.StatusNotFound, app.get("/posts/?page=2", nil).Code)
	assert.Equal(t, http.StatusOK, app.get("/posts/?page=abc", nil).Code)
	assert.Equal(t, http.StatusOK, app.get("/", nil).Code)
}

func TestCategoryCreate(t *testing.T) {
	app := newTestApp(t)
	app.register("liam")
	session := app.login("liam")

	rec := app.postForm("/categories/new/", url.Values{"name": {"Go"}}, session)
	assert.Equal(t, http.StatusFound, rec.Code)

	rec = app.postForm("/categories/new/", url.Values{"name": {"Go"}}, session)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Category with this Name already exists.")
	assert.Equal(t, int64(1), app.count(&orm.CategoryModel{}))
}

func TestPasswordReset(t *testing.T) {
	app := newTestApp(t)
	app.register("mia")

	rec := app.postForm("/accounts/password-reset/", url.Values{"email": {"unknown@example.com"}}, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/accounts/password-reset/done/", rec.Header().Get("Location"))
	assert.Empty(t, app.mailer.links)

	rec = app.postForm("/accounts/password-reset/", url.Values{"email": {"mia@example.com"}}, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	require.Len(t, app.mailer.links, 1)

	confirmPath := strings.TrimPrefix(app.mailer.links[0], app.baseURL)
	page := app.get(confirmPath, nil)
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Enter new password")

	rec = app.postForm(confirmPath, url.Values{"new_password1": {"fresh-password"}, "new_password2": {"fresh-password"}}, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/accounts/password-reset-complete/", rec.Header().Get("Location"))

	spent := app.get(confirmPath, nil)
	assert.Contains(t, spent.Body.String(), "Password reset unsuccessful")
}

func TestPostWithoutCSRFTokenIsRejected(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/accounts/login/", strings.NewReader("username=x&password=y"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusForbidden}, rec.Code)
}

type failingHomeService struct {
	interfaces.PostService
	err error
}

func (f failingHomeService) Home(ctx context.Context) (*query.HomeQueryResult, error) {
	return nil, f.err
}

func TestHomeShowsErrorInPage(t *testing.T) {
	app := newTestApp(t)

	serve := func(err error) *httptest.ResponseRecorder {
		h := NewHandler(app.users, failingHomeService{PostService: app.posts, err: err}, app.categories, HandlerConfig{})
		server, serr := NewServer(h, ServerConfig{MediaRoot: app.media.Root(), MaxUploadBytes: 1 << 20})
		require.NoError(t, serr)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		return rec
	}

	rec := serve(errors.New("connection reset by peer"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), dashboardErrorMessage)
	assert.NotContains(t, rec.Body.String(), "connection reset by peer")

	assert.Equal(t, http.StatusNotFound, serve(fmt.Errorf("load home: %w", services.ErrNotFound)).Code)
}

func TestUpdatePostRejectsTextUpload(t *testing.T) {
	app := newTestApp(t)
	app.register("nora")
	session := app.login("nora")

	rec := app.postMultipart("/posts/new/", url.Values{
		"title":   {"with cover"},
		"content": {"original body"},
	}, &filePart{field: "cover_image", filename: "cover.png", contentType: "image/png", data: pngBytes(t, 400, 300)}, session)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())

	var before orm.PostModel
	require.NoError(t, app.db.First(&before).Error)
	require.True(t, strings.HasPrefix(before.CoverImage, "cover_pics/"))

	rec = app.postMultipart(fmt.Sprintf("/posts/%d/update/", before.Id), url.Values{
		"title":   {"changed title"},
		"content": {"changed body"},
	}, &filePart{field: "cover_image", filename: "notes.txt", contentType: "text/plain", data: []byte("plain text")}, session)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Only JPEG and PNG images are allowed.")

	var after orm.PostModel
	require.NoError(t, app.db.First(&after, before.Id).Error)
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, before.Content, after.Content)
	assert.Equal(t, before.CoverImage, after.CoverImage)
	assert.Equal(t, before.UpdatedAt.UnixNano(), after.UpdatedAt.UnixNano())

	entries, err := os.ReadDir(filepath.Join(app.media.Root(), "cover_pics"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	_, err = os.Stat(app.media.Path(before.CoverImage))
	assert.NoError(t, err)
}
