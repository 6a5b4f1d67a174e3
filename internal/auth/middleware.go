package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of this type, so no other package can
// read or shadow the user stored under it.
type contextKey string

const userKey contextKey = "user"

// UserLoader resolves the user id carried by a session token.
type UserLoader interface {
	LoadUser(ctx context.Context, id int64) (*model.User, error)
}

// LoadUser is a middleware that resolves the session cookie to a user.
//
// A valid token naming an existing user puts that *model.User in the request
// context. A missing or invalid cookie leaves the request anonymous. When the
// token is bad, or names a user that no longer exists, the cookie is cleared
// so the browser stops sending it. The request is never blocked here; admin
// routes add AdminOnly on top.
func LoadUser(tokens *TokenService, users UserLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := tokens.Validate(cookie.Value)
			if err != nil {
				logger.Debug("discarding session cookie", "error", err)
				ClearSession(w)
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.LoadUser(r.Context(), userID)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					ClearSession(w)
				} else {
					logger.Error("loading session user", "user_id", userID, "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// AdminOnly is a middleware that lets only the administrator through.
// Everyone else, logged in or not, is served by forbidden and the wrapped
// handler never runs.
func AdminOnly(forbidden http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := UserFromContext(r.Context())
			if !IsAdmin(user) {
				forbidden.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user LoadUser attached to the request.
//
// Returns (nil, false) if the request is anonymous.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// IsAdmin reports whether u is an authenticated administrator.
func IsAdmin(u *model.User) bool {
	return u.IsAdmin()
}

// RequireAdmin returns u when it is the administrator. An anonymous caller
// gets apperror.ErrUnauthenticated and any other user apperror.ErrForbidden;
// both map to 403 on the admin routes.
func RequireAdmin(u *model.User) (*model.User, error) {
	if u == nil {
		return nil, apperror.Unauthenticated("", "you must be logged in as the admin")
	}
	if !u.IsAdmin() {
		return nil, apperror.Forbidden("only the admin can do that")
	}
	return u, nil
}
