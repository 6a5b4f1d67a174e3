package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/metrics"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

// PostInput is the submitted make-post or edit-post form. AuthorID is not a
// form field; zero means "the acting admin" on create and "unchanged" on
// update.
type PostInput struct {
	Title    string `form:"title"    validate:"required,max=250"`
	Subtitle string `form:"subtitle" validate:"required,max=250"`
	ImgURL   string `form:"img_url"  validate:"required,url,max=250"`
	Body     string `form:"body"     validate:"required"`
	AuthorID int64  `form:"-"`
}

func (in *PostInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Subtitle = strings.TrimSpace(in.Subtitle)
	in.ImgURL = strings.TrimSpace(in.ImgURL)
	if strings.TrimSpace(in.Body) == "" {
		in.Body = ""
	}
}

// PostService handles reading and managing posts. Reading is public; every
// mutation requires the administrator.
type PostService struct {
	posts  repository.PostRepository
	logger *slog.Logger
}

// NewPostService creates a PostService.
func NewPostService(posts repository.PostRepository, logger *slog.Logger) *PostService {
	return &PostService{posts: posts, logger: logger}
}

// ListPosts returns every post, oldest first.
func (s *PostService) ListPosts(ctx context.Context) ([]model.Post, error) {
	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts: %w", err)
	}
	return posts, nil
}

// GetPost returns a single post or apperror.ErrNotFound.
func (s *PostService) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/post: getting post %d: %w", id, err)
	}
	return post, nil
}

// CreatePost publishes a new post authored by actor, who must be the admin.
func (s *PostService) CreatePost(ctx context.Context, actor *model.User, in PostInput) (post *model.Post, err error) {
	defer func() { metrics.RecordOperation("create_post", err) }()

	admin, err := auth.RequireAdmin(actor)
	if err != nil {
		return nil, err
	}

	in.normalize()
	if err := validateInput(in); err != nil {
		return nil, err
	}

	authorID := in.AuthorID
	if authorID == 0 {
		authorID = admin.ID
	}

	post = &model.Post{
		Title:    in.Title,
		Subtitle: in.Subtitle,
		Body:     in.Body,
		ImgURL:   in.ImgURL,
		AuthorID: authorID,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}
	if authorID == admin.ID {
		post.AuthorName = admin.Name
	}

	s.logger.Info("post created",
		slog.Int64("postID", post.ID),
		slog.Int64("authorID", post.AuthorID),
	)

	return post, nil
}

// UpdatePost replaces the title, subtitle, image and body of post id. The
// date never changes and the author only changes when in.AuthorID is set.
func (s *PostService) UpdatePost(ctx context.Context, actor *model.User, id int64, in PostInput) (post *model.Post, err error) {
	defer func() { metrics.RecordOperation("update_post", err) }()

	if _, err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}

	in.normalize()
	if err := validateInput(in); err != nil {
		return nil, err
	}

	// Load first so a missing post is a clean ErrNotFound and the stored
	// author and date carry over.
	post, err = s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/post: getting post %d: %w", id, err)
	}

	post.Title = in.Title
	post.Subtitle = in.Subtitle
	post.Body = in.Body
	post.ImgURL = in.ImgURL
	if in.AuthorID != 0 {
		post.AuthorID = in.AuthorID
	}

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: updating post %d: %w", id, err)
	}

	s.logger.Info("post updated", slog.Int64("postID", post.ID))

	return post, nil
}

// DeletePost removes post id and its comments. A missing post is not an
// error.
func (s *PostService) DeletePost(ctx context.Context, actor *model.User, id int64) (err error) {
	defer func() { metrics.RecordOperation("delete_post", err) }()

	if _, err := auth.RequireAdmin(actor); err != nil {
		return err
	}

	if err := s.posts.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("service/post: deleting post %d: %w", id, err)
	}

	s.logger.Info("post deleted", slog.Int64("postID", id))

	return nil
}
