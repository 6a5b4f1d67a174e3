package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

// compile-time check that *DB implements repository.PostRepository
var _ repository.PostRepository = (*DB)(nil)

// postColumns are selected by every post read. The author's name comes from
// the users table.
var postColumns = []string{
	"p.id", "p.title", "p.subtitle", "p.date", "p.body", "p.img_url", "p.author_id",
	"COALESCE(u.name, '')",
}

func (db *DB) selectPosts() sq.SelectBuilder {
	return db.sb.Select(postColumns...).
		From("posts p").
		LeftJoin("users u ON u.id = p.author_id")
}

func scanPost(row sq.RowScanner) (*model.Post, error) {
	var p model.Post
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Subtitle,
		&p.Date,
		&p.Body,
		&p.ImgURL,
		&p.AuthorID,
		&p.AuthorName,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPosts returns every post in insertion order.
func (db *DB) ListPosts(ctx context.Context) ([]model.Post, error) {
	query, args, err := db.selectPosts().OrderBy("p.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building list posts query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing posts: %w", err)
	}
	defer rows.Close()

	// Return an empty slice rather than nil so templates and JSON see "[]".
	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning post: %w", err)
		}
		posts = append(posts, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating posts: %w", err)
	}

	return posts, nil
}

// GetPost returns the post with the given id, or apperror.ErrNotFound.
func (db *DB) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	query, args, err := db.selectPosts().Where(sq.Eq{"p.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building get post query: %w", err)
	}

	p, err := scanPost(db.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlstore: getting post %d: %w", id, err)
	}

	return p, nil
}

// CreatePost stores a new post. The store assigns post.ID and post.Date.
// An AuthorID that names no user yields apperror.ErrReference.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.Date = db.now().Format(model.DateLayout)

	query, args, err := db.sb.Insert("posts").
		Columns("title", "subtitle", "date", "body", "img_url", "author_id").
		Values(post.Title, post.Subtitle, post.Date, post.Body, post.ImgURL, post.AuthorID).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlstore: building create post query: %w", err)
	}

	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&post.ID); err != nil {
		if classify(err) == constraintForeignKey {
			return apperror.Reference("user", post.AuthorID)
		}
		return fmt.Errorf("sqlstore: inserting post: %w", err)
	}

	return nil
}

// UpdatePost overwrites the editable fields of an existing post. The id and
// date are left untouched. Returns apperror.ErrNotFound if no row matched.
func (db *DB) UpdatePost(ctx context.Context, post *model.Post) error {
	query, args, err := db.sb.Update("posts").
		Set("title", post.Title).
		Set("subtitle", post.Subtitle).
		Set("body", post.Body).
		Set("img_url", post.ImgURL).
		Set("author_id", post.AuthorID).
		Where(sq.Eq{"id": post.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlstore: building update post query: %w", err)
	}

	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		if classify(err) == constraintForeignKey {
			return apperror.Reference("user", post.AuthorID)
		}
		return fmt.Errorf("sqlstore: updating post %d: %w", post.ID, err)
	}

	// RowsAffected tells us if the WHERE clause matched anything.
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("post", post.ID)
	}

	return nil
}

// DeletePost removes a post and, through the foreign key cascade, its
// comments. Deleting an id that does not exist is not an error.
func (db *DB) DeletePost(ctx context.Context, id int64) error {
	query, args, err := db.sb.Delete("posts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("sqlstore: building delete post query: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlstore: deleting post %d: %w", id, err)
	}

	return nil
}
