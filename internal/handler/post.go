package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/service"
)

var postFields = []string{"title", "subtitle", "img_url", "body"}

// PostHandler serves the admin pages that create, edit and delete posts.
// The routes sit behind auth.AdminOnly; the service checks the role again.
type PostHandler struct {
	posts  *service.PostService
	pages  *Renderer
	logger *slog.Logger
}

// NewPostHandler creates a PostHandler.
func NewPostHandler(posts *service.PostService, pages *Renderer, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, pages: pages, logger: logger}
}

// HandleMakePost shows the new-post form and creates the post.
//
// HTTP: GET|POST /make-post  form: title, subtitle, img_url, body
func (h *PostHandler) HandleMakePost(w http.ResponseWriter, r *http.Request) {
	data := &PageData{Title: "New Post", Page: "make"}
	if r.Method != http.MethodPost {
		h.pages.Render(w, r, http.StatusOK, pageMakePost, data)
		return
	}

	form, err := parseForm(w, r, postFields...)
	if err != nil {
		h.pages.RenderStatus(w, r, http.StatusBadRequest)
		return
	}

	user, _ := auth.UserFromContext(r.Context())
	post, err := h.posts.CreatePost(r.Context(), user, postInput(form))
	if err != nil {
		h.formError(w, r, err, data, form)
		return
	}

	h.logger.Info("post created", slog.Int64("post_id", post.ID))
	redirect(w, r, "/")
}

// HandleEditPost shows the edit form pre-filled with the post and saves it.
// The post keeps its original author and date.
//
// HTTP: GET|POST /edit-post/{postID}
func (h *PostHandler) HandleEditPost(w http.ResponseWriter, r *http.Request) {
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

	data := &PageData{Title: "Edit Post", Page: "edit", Post: post}
	if r.Method != http.MethodPost {
		data.Form = postForm(post)
		h.pages.Render(w, r, http.StatusOK, pageMakePost, data)
		return
	}

	form, err := parseForm(w, r, postFields...)
	if err != nil {
		h.pages.RenderStatus(w, r, http.StatusBadRequest)
		return
	}

	user, _ := auth.UserFromContext(r.Context())
	if _, err := h.posts.UpdatePost(r.Context(), user, id, postInput(form)); err != nil {
		h.formError(w, r, err, data, form)
		return
	}

	redirect(w, r, fmt.Sprintf("/read/%d", id))
}

// HandleDeletePost deletes a post and its comments. Deleting a post that
// does not exist is not an error.
//
// HTTP: GET /delete/{postID}
func (h *PostHandler) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		h.pages.RenderError(w, r, err)
		return
	}

	user, _ := auth.UserFromContext(r.Context())
	if err := h.posts.DeletePost(r.Context(), user, id); err != nil {
		h.pages.RenderError(w, r, err)
		return
	}

	redirect(w, r, "/")
}

// formError re-renders the post form with the validation message, or falls
// back to the error page for anything else.
func (h *PostHandler) formError(w http.ResponseWriter, r *http.Request, err error, data *PageData, form map[string]string) {
	if !errors.Is(err, apperror.ErrValidation) {
		h.pages.RenderError(w, r, err)
		return
	}
	data.Message = messageOf(err)
	data.Form = form
	h.pages.Render(w, r, http.StatusUnprocessableEntity, pageMakePost, data)
}

func postInput(form map[string]string) service.PostInput {
	return service.PostInput{
		Title:    form["title"],
		Subtitle: form["subtitle"],
		ImgURL:   form["img_url"],
		Body:     form["body"],
	}
}

func postForm(p *model.Post) map[string]string {
	return map[string]string{
		"title":    p.Title,
		"subtitle": p.Subtitle,
		"img_url":  p.ImgURL,
		"body":     p.Body,
	}
}
