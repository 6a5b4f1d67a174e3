package service

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeStore is an in-memory implementation of the three repositories. It
// mirrors the store's observable rules: the first user is admin, emails are
// unique, deleting a post drops its comments.
type fakeStore struct {
	users    map[int64]*model.User
	posts    map[int64]*model.Post
	comments map[int64]*model.Comment
	nextID   int64

	// set to a non-nil error to simulate a store failure
	createUserErr error
	createPostErr error
	updatePostErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]*model.User),
		posts:    make(map[int64]*model.Post),
		comments: make(map[int64]*model.Comment),
		nextID:   1,
	}
}

func (f *fakeStore) id() int64 {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	if f.createUserErr != nil {
		return f.createUserErr
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.DuplicateEmail(user.Email)
		}
	}
	user.Role = model.RoleUser
	if len(f.users) == 0 {
		user.Role = model.RoleAdmin
	}
	user.ID = f.id()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) ListPosts(_ context.Context) ([]model.Post, error) {
	posts := []model.Post{}
	for _, p := range f.posts {
		posts = append(posts, *p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts, nil
}

func (f *fakeStore) GetPost(_ context.Context, id int64) (*model.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) CreatePost(_ context.Context, post *model.Post) error {
	if f.createPostErr != nil {
		return f.createPostErr
	}
	if _, ok := f.users[post.AuthorID]; !ok {
		return apperror.Reference("user", post.AuthorID)
	}
	post.ID = f.id()
	post.Date = time.Now().Format(model.DateLayout)
	copied := *post
	f.posts[post.ID] = &copied
	return nil
}

func (f *fakeStore) UpdatePost(_ context.Context, post *model.Post) error {
	if f.updatePostErr != nil {
		return f.updatePostErr
	}
	existing, ok := f.posts[post.ID]
	if !ok {
		return apperror.NotFound("post", post.ID)
	}
	copied := *post
	copied.Date = existing.Date
	f.posts[post.ID] = &copied
	return nil
}

func (f *fakeStore) DeletePost(_ context.Context, id int64) error {
	delete(f.posts, id)
	for cid, c := range f.comments {
		if c.PostID == id {
			delete(f.comments, cid)
		}
	}
	return nil
}

func (f *fakeStore) CreateComment(_ context.Context, comment *model.Comment) error {
	if _, ok := f.posts[comment.PostID]; !ok {
		return apperror.Reference("post", comment.PostID)
	}
	comment.ID = f.id()
	copied := *comment
	f.comments[comment.ID] = &copied
	return nil
}

func (f *fakeStore) ListComments(_ context.Context, postID int64) ([]model.Comment, error) {
	comments := []model.Comment{}
	for _, c := range f.comments {
		if c.PostID == postID {
			comments = append(comments, *c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return comments, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestAuthService returns an AuthService over store with a fast bcrypt cost.
func newTestAuthService(t *testing.T, store *fakeStore) *AuthService {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	return NewAuthService(store, ts, auth.NewPasswordService(bcrypt.MinCost), testLogger())
}

// seedUsers stores an admin and a regular user and returns them.
func seedUsers(t *testing.T, store *fakeStore) (admin, reader *model.User) {
	t.Helper()
	admin = &model.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "x"}
	reader = &model.User{Name: "Bob", Email: "bob@example.com", PasswordHash: "x"}
	for _, u := range []*model.User{admin, reader} {
		if err := store.CreateUser(context.Background(), u); err != nil {
			t.Fatalf("seeding user: %v", err)
		}
	}
	return admin, reader
}

func validPostInput() PostInput {
	return PostInput{
		Title:    "Hello",
		Subtitle: "World",
		ImgURL:   "https://example.com/a.png",
		Body:     "<p>Body</p>",
	}
}
