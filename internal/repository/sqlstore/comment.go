package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

// compile-time check that *DB implements repository.CommentRepository
var _ repository.CommentRepository = (*DB)(nil)

// nullID maps the zero id to SQL NULL.
func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// CreateComment stores a comment and sets comment.ID. A post or author that
// does not exist yields apperror.ErrReference.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	query, args, err := db.sb.Insert("comments").
		Columns("text", "author_id", "post_id").
		Values(comment.Text, nullID(comment.AuthorID), nullID(comment.PostID)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlstore: building create comment query: %w", err)
	}

	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&comment.ID); err != nil {
		if classify(err) == constraintForeignKey {
			return &apperror.AppError{
				Err:     apperror.ErrReference,
				Message: fmt.Sprintf("comment references missing post %d or author %d", comment.PostID, comment.AuthorID),
			}
		}
		return fmt.Errorf("sqlstore: inserting comment on post %d: %w", comment.PostID, err)
	}

	return nil
}

// ListComments returns the comments under a post, oldest first, with the
// author's name when the author still exists.
func (db *DB) ListComments(ctx context.Context, postID int64) ([]model.Comment, error) {
	query, args, err := db.sb.Select(
		"c.id", "c.text", "c.author_id", "c.post_id", "u.name",
	).
		From("comments c").
		LeftJoin("users u ON u.id = c.author_id").
		Where(sq.Eq{"c.post_id": postID}).
		OrderBy("c.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building list comments query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing comments for post %d: %w", postID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var (
			c        model.Comment
			authorID sql.NullInt64
			postID   sql.NullInt64
			author   sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Text, &authorID, &postID, &author); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning comment: %w", err)
		}
		c.AuthorID = authorID.Int64
		c.PostID = postID.Int64
		c.AuthorName = author.String
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating comments: %w", err)
	}

	return comments, nil
}
