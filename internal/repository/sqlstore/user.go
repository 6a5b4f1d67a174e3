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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// firstUserRole evaluates to 'admin' while the users table is empty and to
// 'user' afterwards. It runs inside the INSERT, so the check and the write
// are one statement.
const firstUserRole = "SELECT CASE WHEN EXISTS (SELECT 1 FROM users) THEN 'user' ELSE 'admin' END"

var userColumns = []string{"id", "name", "email", "password_hash", "role"}

func scanUser(row sq.RowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new account and fills user.ID and user.Role from the
// stored row. The first account ever stored becomes the administrator.
//
// A taken email yields apperror.ErrDuplicateEmail and leaves the table as it
// was.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	query, args, err := db.sb.Insert("users").
		Columns("name", "email", "password_hash", "role").
		Values(user.Name, user.Email, user.PasswordHash, sq.Expr("("+firstUserRole+")")).
		Suffix("RETURNING id, role").
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlstore: building create user query: %w", err)
	}

	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.Role); err != nil {
		if classify(err) == constraintUnique {
			return apperror.DuplicateEmail(user.Email)
		}
		return fmt.Errorf("sqlstore: inserting user %s: %w", user.Email, err)
	}

	return nil
}

// GetUserByEmail returns the account registered under email, or
// apperror.ErrNotFound.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query, args, err := db.sb.Select(userColumns...).
		From("users").
		Where(sq.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building get user query: %w", err)
	}

	u, err := scanUser(db.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlstore: getting user %s: %w", email, err)
	}

	return u, nil
}

// GetUserByID returns the account with the given id, or apperror.ErrNotFound.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query, args, err := db.sb.Select(userColumns...).
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building get user query: %w", err)
	}

	u, err := scanUser(db.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlstore: getting user %d: %w", id, err)
	}

	return u, nil
}
