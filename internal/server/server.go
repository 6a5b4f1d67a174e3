// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: New opens the store, builds the
// services and handlers on top of it and mounts them on one chi router.
//
//	config.Config → sqlstore.DB → PostService / CommentService / AuthService
//	                            → BlogHandler / PostHandler / AuthHandler
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/config"
	"github.com/sakif/blog/internal/handler"
	"github.com/sakif/blog/internal/metrics"
	"github.com/sakif/blog/internal/middleware"
	"github.com/sakif/blog/internal/repository/sqlstore"
	"github.com/sakif/blog/internal/service"
	"github.com/sakif/blog/web"
)

// shutdownTimeout is how long in-flight requests get to finish on shutdown.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection. Start closes it on the way out;
// callers that never call Start (tests) call Close.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqlstore.DB
}

// New creates a Server from cfg. It opens the database and runs the
// migrations before any route is mounted.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqlstore.New(cfg.DatabaseURI, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET       /                      → post list
//	GET|POST  /read/{postID}         → post, comments, new comment
//	GET|POST  /register              → create account
//	GET|POST  /login                 → start session
//	GET       /log-out               → end session
//	GET       /about, /contact
//	GET|POST  /make-post             → new post            (admin)
//	GET|POST  /edit-post/{postID}    → edit post           (admin)
//	GET       /delete/{postID}       → delete post         (admin)
//	GET       /auth/github/*         → GitHub sign-in      (when configured)
//	GET       /metrics               → Prometheus metrics
//	GET       /static/*              → CSS
//
// MIDDLEWARE ORDER MATTERS:
// RequestID and RealIP run first so the logger sees their values. Metrics
// sits inside the logger, and LoadUser runs last so every handler, including
// the 404 page, knows who is logged in.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.AppKey, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(s.config.BcryptCost)

	var github *auth.GitHubProvider
	if s.config.GitHub.Enabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHub.ClientID,
			s.config.GitHub.ClientSecret,
			s.config.GitHub.CallbackURL,
		)
	}

	pages, err := handler.NewRenderer(web.Templates(), github != nil, s.logger)
	if err != nil {
		return fmt.Errorf("parsing templates: %w", err)
	}

	// === Services ===
	// s.db implements all three repository interfaces. The services only
	// see the interfaces; the handlers only see the services.
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	postService := service.NewPostService(s.db, s.logger)
	commentService := service.NewCommentService(s.db, s.db, s.logger)

	blogHandler := handler.NewBlogHandler(postService, commentService, pages, s.logger)
	postHandler := handler.NewPostHandler(postService, pages, s.logger)
	authHandler := handler.NewAuthHandler(authService, github, s.config.SecureCookies, pages, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(auth.LoadUser(tokens, authService, s.logger))

	s.router.NotFound(pages.NotFound)
	s.router.MethodNotAllowed(pages.MethodNotAllowed)

	s.router.Handle("/metrics", metrics.Handler())
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	// === Public pages ===
	s.router.Get("/", blogHandler.HandleHome)
	s.router.Get("/about", blogHandler.HandleAbout)
	s.router.Get("/contact", blogHandler.HandleContact)
	s.router.Get("/read/{postID}", blogHandler.HandleReadPost)
	s.router.Post("/read/{postID}", blogHandler.HandleReadPost)

	// === Accounts ===
	s.router.Get("/register", authHandler.HandleRegister)
	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Get("/login", authHandler.HandleLogin)
	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Get("/log-out", authHandler.HandleLogout)

	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	} else {
		s.logger.Info("GitHub sign-in disabled: GITHUB_CLIENT_ID or GITHUB_CLIENT_SECRET not set")
	}

	// === Admin pages ===
	// AdminOnly answers 403 before the handler runs, so a visitor who is
	// not the admin never reaches the form parsing or the store.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.AdminOnly(http.HandlerFunc(pages.Forbidden)))

		r.Get("/make-post", postHandler.HandleMakePost)
		r.Post("/make-post", postHandler.HandleMakePost)
		r.Get("/edit-post/{postID}", postHandler.HandleEditPost)
		r.Post("/edit-post/{postID}", postHandler.HandleEditPost)
		r.Get("/delete/{postID}", postHandler.HandleDeletePost)
	})

	return nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database connection.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and blocks until it stops.
//
// GRACEFUL SHUTDOWN:
// On SIGINT or SIGTERM the server stops accepting connections, waits up to
// shutdownTimeout for in-flight requests and then closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("dialect", s.db.Dialect()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
