package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/metrics"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
	"github.com/sakif/blog/internal/sanitize"
)

// MsgLoginToComment is flashed when an anonymous reader submits a comment.
const MsgLoginToComment = "Login before posting a comment"

// CommentInput is the submitted comment form.
type CommentInput struct {
	Text string `form:"text" validate:"required"`
}

// CommentService handles reading and adding comments.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	logger   *slog.Logger
}

// NewCommentService creates a CommentService.
func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository, logger *slog.Logger) *CommentService {
	return &CommentService{comments: comments, posts: posts, logger: logger}
}

// AddComment stores a comment by actor under post postID.
//
// Anonymous callers get apperror.ErrUnauthenticated and nothing is stored.
// The text is cleaned with sanitize.Clean first; text with nothing visible
// left is a validation error.
func (s *CommentService) AddComment(ctx context.Context, actor *model.User, postID int64, in CommentInput) (comment *model.Comment, err error) {
	defer func() { metrics.RecordOperation("add_comment", err) }()

	if actor == nil {
		return nil, apperror.Unauthenticated("", MsgLoginToComment)
	}

	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return nil, fmt.Errorf("service/comment: getting post %d: %w", postID, err)
	}

	in.Text = sanitize.Clean(in.Text)
	if sanitize.IsBlank(in.Text) {
		in.Text = ""
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	comment = &model.Comment{
		Text:       in.Text,
		AuthorID:   actor.ID,
		PostID:     postID,
		AuthorName: actor.Name,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("service/comment: creating comment on post %d: %w", postID, err)
	}

	s.logger.Info("comment added",
		slog.Int64("commentID", comment.ID),
		slog.Int64("postID", postID),
		slog.Int64("authorID", actor.ID),
	)

	return comment, nil
}

// ListComments returns the comments under post postID, oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID int64) ([]model.Comment, error) {
	comments, err := s.comments.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("service/comment: listing comments for post %d: %w", postID, err)
	}
	return comments, nil
}
