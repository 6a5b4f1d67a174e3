package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/service"
)

// BlogHandler serves the public pages: the post list, a single post with
// its comments, and the two static pages.
type BlogHandler struct {
	posts    *service.PostService
	comments *service.CommentService
	pages    *Renderer
	logger   *slog.Logger
}

// NewBlogHandler creates a BlogHandler.
func NewBlogHandler(posts *service.PostService, comments *service.CommentService, pages *Renderer, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{
		posts:    posts,
		comments: comments,
		pages:    pages,
		logger:   logger,
	}
}

// HandleHome lists every post.
//
// HTTP: GET /
func (h *BlogHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListPosts(r.Context())
	if err != nil {
		h.pages.RenderError(w, r, err)
		return
	}

	h.pages.Render(w, r, http.StatusOK, pageIndex, &PageData{Posts: posts})
}

// HandleReadPost shows a post with its comments and accepts new comments.
//
// HTTP: GET  /read/{postID}
//
//	POST /read/{postID}  form: text
//
// An anonymous POST stores nothing: the visitor is sent to the login page
// with a flash message. A successful comment redirects back to the post.
func (h *BlogHandler) HandleReadPost(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		h.pages.RenderError(w, r, err)
		return
	}

	post, err := h.posts.GetPost(r.Context(), id)
	if err != nil {
		h.pages.RenderError(w, r, err)
		return
	}

	status := http.StatusOK
	data := &PageData{Title: post.Title, Post: post}

	if r.Method == http.MethodPost {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			auth.SetFlash(w, service.MsgLoginToComment)
			redirect(w, r, "/login")
			return
		}

		form, err := parseForm(w, r, "text")
		if err != nil {
			h.pages.RenderStatus(w, r, http.StatusBadRequest)
			return
		}

		_, err = h.comments.AddComment(r.Context(), user, id, service.CommentInput{Text: form["text"]})
		switch {
		case err == nil:
			redirect(w, r, fmt.Sprintf("/read/%d", id))
			return
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusUnprocessableEntity
			data.Message = messageOf(err)
			data.Form = form
		default:
			h.pages.RenderError(w, r, err)
			return
		}
	}

	comments, err := h.comments.ListComments(r.Context(), id)
	if err != nil {
		h.pages.RenderError(w, r, err)
		return
	}
	data.Comments = comments

	h.pages.Render(w, r, status, pagePost, data)
}

// HandleAbout serves the about page.
//
// HTTP: GET /about
func (h *BlogHandler) HandleAbout(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, pageAbout, &PageData{Title: "About"})
}

// HandleContact serves the contact page.
//
// HTTP: GET /contact
func (h *BlogHandler) HandleContact(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, pageContact, &PageData{Title: "Contact"})
}

// messageOf returns the user-facing message carried by an AppError.
func messageOf(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return http.StatusText(http.StatusInternalServerError)
}
