// Package model defines the data structures used throughout the application.
package model

// Role decides what a user may do. Only admins manage posts.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User represents a registered account.
//
// The first account ever stored gets RoleAdmin; the store assigns the role in
// the same statement that inserts the row, so every later account is RoleUser.
//
// PasswordHash is a bcrypt hash and is never serialized.
type User struct {
	ID           int64  `json:"id"    db:"id"`
	Name         string `json:"name"  db:"name"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-"     db:"password_hash"`
	Role         Role   `json:"role"  db:"role"`
}

// IsAdmin reports whether u holds the administrator role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
