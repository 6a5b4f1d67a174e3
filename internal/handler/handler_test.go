package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository/sqlstore"
	"github.com/sakif/blog/internal/service"
	"github.com/sakif/blog/web"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	pages, err := NewRenderer(web.Templates(), false, testLogger())
	require.NoError(t, err)
	return pages
}

// fixture is a store with an admin, a reader and one post by the admin.
type fixture struct {
	db     *sqlstore.DB
	admin  *model.User
	reader *model.User
	post   *model.Post
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlstore.New(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	admin := &model.User{Name: "Admin", Email: "admin@example.com", PasswordHash: "x"}
	require.NoError(t, db.CreateUser(ctx, admin))
	reader := &model.User{Name: "Reader", Email: "reader@example.com", PasswordHash: "x"}
	require.NoError(t, db.CreateUser(ctx, reader))

	post := &model.Post{
		Title:    "First post",
		Subtitle: "A subtitle",
		Body:     "<p>Hello</p>",
		ImgURL:   "https://example.com/cover.jpg",
		AuthorID: admin.ID,
	}
	require.NoError(t, db.CreatePost(ctx, post))

	return &fixture{db: db, admin: admin, reader: reader, post: post}
}

func (f *fixture) blogHandler(t *testing.T) *BlogHandler {
	logger := testLogger()
	return NewBlogHandler(
		service.NewPostService(f.db, logger),
		service.NewCommentService(f.db, f.db, logger),
		newTestRenderer(t),
		logger,
	)
}

func (f *fixture) authHandler(t *testing.T) *AuthHandler {
	t.Helper()
	logger := testLogger()
	tokens, err := auth.NewTokenService("test-secret-key-at-least-16", 0)
	require.NoError(t, err)
	authSvc := service.NewAuthService(f.db, tokens, auth.NewPasswordService(bcrypt.MinCost), logger)
	return NewAuthHandler(authSvc, nil, false, newTestRenderer(t), logger)
}

// withPostID routes r as if chi had matched {postID}.
func withPostID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("postID", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func formRequest(method, target string, form url.Values) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// ====================================================================
// Error mapping
// ====================================================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", apperror.NotFound("post", 1), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("service: %w", apperror.NotFound("post", 1)), http.StatusNotFound},
		{"validation", apperror.ValidationFailed("title", "Title is required."), http.StatusUnprocessableEntity},
		{"reference", apperror.Reference("user", 9), http.StatusUnprocessableEntity},
		{"forbidden", apperror.Forbidden("no"), http.StatusForbidden},
		{"unauthenticated", apperror.Unauthenticated("", "login"), http.StatusForbidden},
		{"duplicate email", apperror.DuplicateEmail("a@b.c"), http.StatusConflict},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestPostID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r := withPostID(httptest.NewRequest(http.MethodGet, "/", nil), tt.raw)
			got, err := postID(r)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ====================================================================
// Renderer
// ====================================================================

func TestRenderer_Render(t *testing.T) {
	pages := newTestRenderer(t)
	user := &model.User{ID: 2, Name: "Reader", Role: model.RoleUser}

	r := httptest.NewRequest(http.MethodGet, "/about", nil)
	r = r.WithContext(auth.WithUser(r.Context(), user))
	rec := httptest.NewRecorder()

	pages.Render(rec, r, http.StatusOK, pageAbout, &PageData{Title: "About"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "About Me")
	assert.Contains(t, rec.Body.String(), `<span class="whoami">Reader</span>`)
	assert.NotContains(t, rec.Body.String(), `href="/make-post"`)
}

func TestRenderer_UnknownPage(t *testing.T) {
	pages := newTestRenderer(t)
	rec := httptest.NewRecorder()

	pages.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "nope", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRenderer_RenderError(t *testing.T) {
	pages := newTestRenderer(t)
	rec := httptest.NewRecorder()

	pages.RenderError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("secret SQL detail"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret SQL detail")
}

// ====================================================================
// Handlers
// ====================================================================

func TestHandleReadPost_AnonymousComment(t *testing.T) {
	f := newFixture(t)
	h := f.blogHandler(t)

	r := formRequest(http.MethodPost, "/read/1", url.Values{"text": {"<p>hi</p>"}})
	rec := httptest.NewRecorder()
	h.HandleReadPost(rec, withPostID(r, fmt.Sprint(f.post.ID)))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	var flash *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.FlashCookie {
			flash = c
		}
	}
	require.NotNil(t, flash, "flash cookie not set")

	comments, err := f.db.ListComments(context.Background(), f.post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestHandleReadPost_Comment(t *testing.T) {
	f := newFixture(t)
	h := f.blogHandler(t)

	r := formRequest(http.MethodPost, "/read/1", url.Values{"text": {"<p></p><p>Nice</p>"}})
	r = r.WithContext(auth.WithUser(r.Context(), f.reader))
	rec := httptest.NewRecorder()
	h.HandleReadPost(rec, withPostID(r, fmt.Sprint(f.post.ID)))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, fmt.Sprintf("/read/%d", f.post.ID), rec.Header().Get("Location"))

	comments, err := f.db.ListComments(context.Background(), f.post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "<p>Nice</p>", comments[0].Text)
	assert.Equal(t, f.reader.ID, comments[0].AuthorID)
}

func TestHandleReadPost_UnknownPost(t *testing.T) {
	f := newFixture(t)
	h := f.blogHandler(t)

	rec := httptest.NewRecorder()
	h.HandleReadPost(rec, withPostID(httptest.NewRequest(http.MethodGet, "/read/99", nil), "99"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleLogin_ShowsFlashOnce(t *testing.T) {
	f := newFixture(t)
	h := f.authHandler(t)

	first := httptest.NewRecorder()
	auth.SetFlash(first, service.MsgLoginToComment)

	r := httptest.NewRequest(http.MethodGet, "/login", nil)
	for _, c := range first.Result().Cookies() {
		r.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), service.MsgLoginToComment)

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.FlashCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "flash cookie should be cleared after it is shown")
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	h := f.authHandler(t)

	r := formRequest(http.MethodPost, "/register", url.Values{
		"name":     {"Someone"},
		"email":    {"admin@example.com"},
		"password": {"secret"},
	})
	rec := httptest.NewRecorder()
	h.HandleRegister(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), service.MsgEmailInUse)
	assert.Empty(t, rec.Result().Cookies())
}

func TestHandleRegister_SetsSession(t *testing.T) {
	f := newFixture(t)
	h := f.authHandler(t)

	r := formRequest(http.MethodPost, "/register", url.Values{
		"name":     {"Newcomer"},
		"email":    {"new@example.com"},
		"password": {"secret"},
	})
	rec := httptest.NewRecorder()
	h.HandleRegister(rec, r)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}
