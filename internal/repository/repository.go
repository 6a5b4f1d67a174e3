// Package repository declares the storage contracts the service layer depends on.
//
// Lookups return apperror.ErrNotFound for missing rows, and store constraint
// violations come back as apperror outcomes (ErrDuplicateEmail, ErrReference),
// never as raw driver errors.
package repository

import (
	"context"

	"github.com/sakif/blog/internal/model"
)

type PostRepository interface {
	ListPosts(ctx context.Context) ([]model.Post, error)
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	CreatePost(ctx context.Context, post *model.Post) error
	UpdatePost(ctx context.Context, post *model.Post) error
	DeletePost(ctx context.Context, id int64) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	ListComments(ctx context.Context, postID int64) ([]model.Comment, error)
}
