package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog/internal/apperror"
)

// maxFormBytes caps the size of a submitted form.
const maxFormBytes = 1 << 20

// statusFor maps a service error to the HTTP status of the error page.
//
// errors.Is walks the whole chain, so a service error wrapped with
// fmt.Errorf("...: %w", apperror.NotFound(...)) still maps to 404.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperror.ErrForbidden), errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrDuplicateEmail):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RenderError renders the error page for err. Internal errors are logged
// with their details; the page itself only shows the status text.
func (rr *Renderer) RenderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		rr.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	rr.RenderStatus(w, r, status)
}

// RenderStatus renders the error page for a bare status code.
func (rr *Renderer) RenderStatus(w http.ResponseWriter, r *http.Request, status int) {
	rr.Render(w, r, status, pageError, &PageData{
		Title:      http.StatusText(status),
		Status:     status,
		StatusText: http.StatusText(status),
	})
}

// Forbidden serves the 403 page. It is the handler AdminOnly falls back to.
func (rr *Renderer) Forbidden(w http.ResponseWriter, r *http.Request) {
	rr.RenderStatus(w, r, http.StatusForbidden)
}

// NotFound serves the 404 page for unmatched routes.
func (rr *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rr.RenderStatus(w, r, http.StatusNotFound)
}

// MethodNotAllowed serves the 405 page.
func (rr *Renderer) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	rr.RenderStatus(w, r, http.StatusMethodNotAllowed)
}

// postID reads the {postID} route parameter. Ids that are not positive
// integers cannot name a post, so the caller answers 404.
func postID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "postID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFound("post", raw)
	}
	return id, nil
}

// parseForm reads a submitted form and returns the named fields, trimmed
// of surrounding whitespace except for the password.
func parseForm(w http.ResponseWriter, r *http.Request, fields ...string) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("handler: parsing form: %w", err)
	}

	values := make(map[string]string, len(fields))
	for _, f := range fields {
		v := r.PostFormValue(f)
		if f != "password" {
			v = strings.TrimSpace(v)
		}
		values[f] = v
	}
	return values, nil
}

// redirect answers a form submission with 303 See Other so a browser
// refresh does not resubmit it.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}
