package auth

import (
	"encoding/base64"
	"net/http"
	"time"
)

const (
	// SessionCookie holds the signed session token.
	SessionCookie = "session"

	// FlashCookie holds a one-shot message shown on the next page render.
	FlashCookie = "flash"

	// StateCookie holds the OAuth state between redirect and callback.
	StateCookie = "oauth_state"
)

// SetSession stores a session token in an HttpOnly cookie. JavaScript cannot
// read it, and SameSite=Lax keeps it off cross-site form posts.
func SetSession(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession tells the browser to drop the session cookie.
func ClearSession(w http.ResponseWriter) {
	clearCookie(w, SessionCookie)
}

// SetFlash queues a message for the next page the browser renders.
// The value is base64url-encoded because cookie values may not contain
// spaces, commas or quotes.
func SetFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash returns the queued flash message, if any, and clears it.
func PopFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(FlashCookie)
	if err != nil {
		return ""
	}
	clearCookie(w, FlashCookie)

	msg, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}
	return string(msg)
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
