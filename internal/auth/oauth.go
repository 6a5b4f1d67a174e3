package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPI = "https://api.github.com"

// GitHubUser is the portion of the GitHub /user API response we care about.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"` // empty if hidden in GitHub settings
}

// DisplayName is the name a new blog account gets, falling back to the
// login when the profile has no name.
func (u *GitHubUser) DisplayName() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Login
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code
// flow and calls the GitHub API through resty.
//
// Flow:
//  1. The user is redirected to AuthURL(state).
//  2. GitHub redirects back to the callback URL with a short-lived code.
//  3. Exchange trades the code for an access token server-to-server, then
//     reads the profile (and the primary verified email if the profile hides it).
type GitHubProvider struct {
	config *oauth2.Config
	apiURL string
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
// callbackURL must match the "Authorization callback URL" of the OAuth app.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiURL: githubAPI,
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
// state must be echoed back by GitHub and checked against the state cookie.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the OAuth flow and returns the GitHub profile of the
// user who approved it. The profile always carries an email.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// The oauth2 client adds "Authorization: Bearer <token>" to every request.
	client := resty.NewWithClient(p.config.Client(ctx, token)).
		SetBaseURL(p.apiURL).
		SetHeader("Accept", "application/vnd.github+json")

	var ghUser GitHubUser
	resp, err := client.R().SetContext(ctx).SetResult(&ghUser).Get("/user")
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode())
	}
	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	if ghUser.Email == "" {
		var emails []githubEmail
		resp, err := client.R().SetContext(ctx).SetResult(&emails).Get("/user/emails")
		if err != nil {
			return nil, fmt.Errorf("auth: calling GitHub /user/emails API: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("auth: GitHub /user/emails API returned status %d", resp.StatusCode())
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				ghUser.Email = e.Email
				break
			}
		}
	}

	if ghUser.Email == "" {
		return nil, fmt.Errorf("auth: GitHub account %s has no verified primary email", ghUser.Login)
	}

	return &ghUser, nil
}
