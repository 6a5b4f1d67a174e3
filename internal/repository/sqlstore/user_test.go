package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
)

// createTestUser creates a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, name, email string) *model.User {
	t.Helper()
	user := &model.User{Name: name, Email: email, PasswordHash: "$2a$04$hash"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "hash"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == 0 {
		t.Error("CreateUser() did not set user.ID")
	}

	got, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Name != "Ann" || got.Email != "ann@example.com" || got.PasswordHash != "hash" {
		t.Errorf("stored user = %+v", got)
	}
}

func TestCreateUser_FirstUserIsAdmin(t *testing.T) {
	db := newTestDB(t)

	first := createTestUser(t, db, "Ann", "ann@example.com")
	second := createTestUser(t, db, "Bob", "bob@example.com")
	third := createTestUser(t, db, "Cid", "cid@example.com")

	if first.Role != model.RoleAdmin {
		t.Errorf("first user role = %q, want %q", first.Role, model.RoleAdmin)
	}
	for _, u := range []*model.User{second, third} {
		if u.Role != model.RoleUser {
			t.Errorf("user %s role = %q, want %q", u.Email, u.Role, model.RoleUser)
		}
	}

	stored, err := db.GetUserByEmail(context.Background(), "ann@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if !stored.IsAdmin() {
		t.Error("stored first user is not admin")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)

	createTestUser(t, db, "Ann", "ann@example.com")

	err := db.CreateUser(context.Background(), &model.User{
		Name: "Other Ann", Email: "ann@example.com", PasswordHash: "hash",
	})
	if !errors.Is(err, apperror.ErrDuplicateEmail) {
		t.Fatalf("CreateUser() error = %v, want ErrDuplicateEmail", err)
	}

	if n := countRows(t, db, "users"); n != 1 {
		t.Errorf("users count = %d after duplicate insert, want 1", n)
	}
}

func TestCreateUser_IDsIncrease(t *testing.T) {
	db := newTestDB(t)

	a := createTestUser(t, db, "A", "a@example.com")
	b := createTestUser(t, db, "B", "b@example.com")

	if b.ID <= a.ID {
		t.Errorf("ids not increasing: %d then %d", a.ID, b.ID)
	}
}

// =========================================================================
// READ TESTS
// =========================================================================

func TestGetUserByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), 999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}
