// Package handler contains the HTTP handlers of the blog.
//
// Handlers parse the request, call a service and render an HTML page or
// redirect. They hold no business rules: who may do what and which inputs
// are valid is decided in the service layer, and the errors it returns are
// mapped to status codes in response.go.
package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/model"
)

// Page names. Each one is parsed together with base.html, which defines the
// layout and pulls the page in through {{template "content" .}}.
const (
	pageIndex    = "index"
	pagePost     = "post"
	pageLogin    = "login"
	pageRegister = "register"
	pageMakePost = "make-post"
	pageAbout    = "about"
	pageContact  = "contact"
	pageError    = "error"
)

var pageNames = []string{
	pageIndex, pagePost, pageLogin, pageRegister,
	pageMakePost, pageAbout, pageContact, pageError,
}

// templateFuncs are available in every page.
//
// safe marks a string as trusted HTML. It is used for post bodies, which
// only the admin writes, and for comments, which pass through the
// sanitizer before they are stored.
var templateFuncs = template.FuncMap{
	"safe": func(s string) template.HTML { return template.HTML(s) },
}

// PageData is the value every template is executed with. Handlers fill in
// what their page needs; Render adds the current user.
type PageData struct {
	Title    string
	Message  string
	Form     map[string]string
	Posts    []model.Post
	Post     *model.Post
	Comments []model.Comment

	// Page tells make-post.html whether it is creating or editing.
	Page string

	Status     int
	StatusText string

	User          *model.User
	IsAdmin       bool
	GitHubEnabled bool
}

// Renderer holds the parsed page templates. Parsing happens once at startup.
type Renderer struct {
	pages  map[string]*template.Template
	github bool
	logger *slog.Logger
}

// NewRenderer parses every page in fsys. github controls whether the login
// and register pages offer GitHub sign-in.
func NewRenderer(fsys fs.FS, github bool, logger *slog.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys, "base.html", name+".html")
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Renderer{pages: pages, github: github, logger: logger}, nil
}

// Render executes page with data and writes it with the given status.
//
// The page is rendered into a buffer first. A template error after the
// status line went out could not be reported any more, so nothing is
// written until execution succeeded.
func (rr *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data *PageData) {
	tmpl, ok := rr.pages[page]
	if !ok {
		rr.logger.Error("unknown page template", slog.String("page", page))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = &PageData{}
	}
	data.User, _ = auth.UserFromContext(r.Context())
	data.IsAdmin = auth.IsAdmin(data.User)
	data.GitHubEnabled = rr.github

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		rr.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		rr.logger.Debug("writing response body", slog.String("error", err.Error()))
	}
}
