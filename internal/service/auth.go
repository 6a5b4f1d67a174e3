package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/metrics"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

// Messages shown on the login page. They are part of the user-facing
// contract, so handlers render AppError.Message verbatim.
const (
	MsgEmailInUse      = "This email is already in use, log in instead!"
	MsgUnknownEmail    = "User with this email does not exist!"
	MsgInvalidPassword = "Incorrect password. Try again!"
)

// RegisterInput is the submitted registration form.
type RegisterInput struct {
	Name     string `form:"name"     validate:"required,max=250"`
	Email    string `form:"email"    validate:"required,email,max=250"`
	Password string `form:"password" validate:"required"`
}

// LoginInput is the submitted login form.
type LoginInput struct {
	Email    string `form:"email"    validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// AuthResult bundles the user record and the issued session token so the
// handler can set the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// AuthService handles registration, login and session resolution.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (store)
//	                               ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// normalizeEmail makes lookups insensitive to case and stray whitespace.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and logs it in. The first account ever
// created becomes the administrator.
//
// A taken email yields apperror.ErrDuplicateEmail carrying MsgEmailInUse.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (res *AuthResult, err error) {
	defer func() { metrics.RecordOperation("register", err) }()

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", "Password must be at most 72 bytes.")
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Name: in.Name, Email: in.Email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicateEmail) {
			return nil, &apperror.AppError{Err: apperror.ErrDuplicateEmail, Message: MsgEmailInUse, Field: "email"}
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("role", string(user.Role)),
	)

	return s.issue(user)
}

// Login checks an email and password pair.
//
// An unknown email and a wrong password are both apperror.ErrUnauthenticated,
// with distinct messages for the login page.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (res *AuthResult, err error) {
	defer func() { metrics.RecordOperation("login", err) }()

	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("email", MsgUnknownEmail)
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, apperror.Unauthenticated("password", MsgInvalidPassword)
		}
		return nil, fmt.Errorf("service/auth: verifying password for user %d: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))

	return s.issue(user)
}

// LoginWithGitHub signs in the blog account whose email matches the GitHub
// profile, creating one on first sign-in.
//
// Accounts created here get a random password nobody knows, so they can
// only sign in through GitHub.
func (s *AuthService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (res *AuthResult, err error) {
	defer func() { metrics.RecordOperation("login_github", err) }()

	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}
	email := normalizeEmail(gh.Email)

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		hash, err := s.passwords.Hash(xid.New().String() + xid.New().String())
		if err != nil {
			return nil, fmt.Errorf("service/auth: hashing placeholder password: %w", err)
		}
		user = &model.User{Name: gh.DisplayName(), Email: email, PasswordHash: hash}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating user for GitHub login %s: %w", gh.Login, err)
		}
		s.logger.Info("user registered via GitHub",
			slog.Int64("userID", user.ID),
			slog.String("login", gh.Login),
		)
	default:
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	return s.issue(user)
}

// LoadUser resolves the user id of a session. It satisfies auth.UserLoader.
func (s *AuthService) LoadUser(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, apperror.NotFound("user", id)
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, err)
	}

	return user, nil
}

// SessionTTL is the lifetime of the tokens this service issues.
func (s *AuthService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
