package apiclient

import (
	"context"
	"net/http"

	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/identity"
)

const (
	loginPath   = "/auth/login"
	profilePath = "/auth/profile"
)

// Credentials is the sign-in form payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates and returns the new credential with its principal
// payload. It does not store anything.
func (c *Client) Login(ctx context.Context, creds Credentials) (identity.LoginResult, error) {
	var result identity.LoginResult
	if err := c.Post(ctx, loginPath, creds, &result); err != nil {
		return identity.LoginResult{}, err
	}
	return result, nil
}

// FetchProfile returns the raw profile-lookup body for the stored credential.
func (c *Client) FetchProfile(ctx context.Context) ([]byte, error) {
	var body []byte
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: profilePath, NoCache: true}, &body); err != nil {
		return nil, err
	}
	return body, nil
}
