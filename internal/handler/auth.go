package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/service"
)

// stateMaxAge is how long a GitHub sign-in may take, in seconds.
const stateMaxAge = 600

// AuthHandler serves registration, login and logout, plus the optional
// GitHub sign-in flow.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → create an account and start a session
//   - HandleLogin          → check credentials and start a session
//   - HandleLogout         → drop the session cookie
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → exchange the code, find or create the account
type AuthHandler struct {
	auth   *service.AuthService
	github *auth.GitHubProvider
	secure bool
	pages  *Renderer
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil when GitHub
// sign-in is not configured; its routes are then not mounted. secure sets
// the Secure flag on the session cookie.
func NewAuthHandler(
	authSvc *service.AuthService,
	github *auth.GitHubProvider,
	secure bool,
	pages *Renderer,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:   authSvc,
		github: github,
		secure: secure,
		pages:  pages,
		logger: logger,
	}
}

// HandleRegister shows the registration form and creates the account.
//
// HTTP: GET|POST /register  form: email, password, name
//
// The first account ever created becomes the admin. Registering with an
// email that is taken sends the visitor to the login page instead.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.pages.Render(w, r, http.StatusOK, pageRegister, &PageData{Title: "Register"})
		return
	}

	form, err := parseForm(w, r, "email", "password", "name")
	if err != nil {
		h.pages.RenderStatus(w, r, http.StatusBadRequest)
		return
	}

	res, err := h.auth.Register(r.Context(), service.RegisterInput{
		Name:     form["name"],
		Email:    form["email"],
		Password: form["password"],
	})
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrDuplicateEmail):
		h.pages.Render(w, r, http.StatusOK, pageLogin, &PageData{
			Title:   "Log In",
			Message: messageOf(err),
			Form:    map[string]string{"email": form["email"]},
		})
		return
	case errors.Is(err, apperror.ErrValidation):
		h.pages.Render(w, r, http.StatusUnprocessableEntity, pageRegister, &PageData{
			Title:   "Register",
			Message: messageOf(err),
			Form:    form,
		})
		return
	default:
		h.pages.RenderError(w, r, err)
		return
	}

	auth.SetSession(w, res.Token, h.auth.SessionTTL(), h.secure)
	redirect(w, r, "/")
}

// HandleLogin shows the login form and starts a session.
//
// HTTP: GET|POST /login  form: email, password
//
// A GET shows any flash message queued by the previous request. A failed
// login re-renders the form with a message naming what was wrong.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.pages.Render(w, r, http.StatusOK, pageLogin, &PageData{
			Title:   "Log In",
			Message: auth.PopFlash(w, r),
		})
		return
	}

	form, err := parseForm(w, r, "email", "password")
	if err != nil {
		h.pages.RenderStatus(w, r, http.StatusBadRequest)
		return
	}

	res, err := h.auth.Login(r.Context(), service.LoginInput{
		Email:    form["email"],
		Password: form["password"],
	})
	if err != nil {
		status := http.StatusOK
		switch {
		case errors.Is(err, apperror.ErrUnauthenticated):
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusUnprocessableEntity
		default:
			h.pages.RenderError(w, r, err)
			return
		}
		h.pages.Render(w, r, status, pageLogin, &PageData{
			Title:   "Log In",
			Message: messageOf(err),
			Form:    map[string]string{"email": form["email"]},
		})
		return
	}

	auth.SetSession(w, res.Token, h.auth.SessionTTL(), h.secure)
	redirect(w, r, "/")
}

// HandleLogout ends the session.
//
// HTTP: GET /log-out
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	redirect(w, r, "/")
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state string goes into a short-lived cookie and into the
// authorization URL. HandleGitHubCallback only accepts a callback whose
// state matches the cookie.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the GitHub sign-in.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for the GitHub profile
//  3. Find the account with the same email, or create one
//  4. Start a session and redirect home
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	stateCookie, err := r.Cookie(auth.StateCookie)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		h.pages.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	if query.Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch",
			slog.String("expected", stateCookie.Value),
			slog.String("got", query.Get("state")),
		)
		h.pages.RenderStatus(w, r, http.StatusBadRequest)
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   auth.StateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		redirect(w, r, "/login")
		return
	}

	code := query.Get("code")
	if code == "" {
		h.pages.RenderStatus(w, r, http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		h.pages.RenderStatus(w, r, http.StatusBadGateway)
		return
	}

	res, err := h.auth.LoginWithGitHub(r.Context(), ghUser)
	if err != nil {
		h.pages.RenderError(w, r, err)
		return
	}

	h.logger.Info("user authenticated via GitHub",
		slog.Int64("userID", res.User.ID),
		slog.String("login", ghUser.Login),
	)

	auth.SetSession(w, res.Token, h.auth.SessionTTL(), h.secure)
	redirect(w, r, "/")
}
