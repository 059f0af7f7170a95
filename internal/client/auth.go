package client

import (
	"context"
	"net/http"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	IDToken string `json:"idToken,omitempty"`
}

// LoginResponse is the body returned by POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
}

// Login exchanges an identity-provider ID token for an API session token.
// The API may also set a session cookie, which the client's jar keeps.
func (c *Client) Login(ctx context.Context, idToken string) (string, error) {
	var resp LoginResponse
	if err := c.call(ctx, "login", http.MethodPost, "/auth/login", nil, LoginRequest{IDToken: idToken}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Logout ends the API session.
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, "logout", http.MethodPost, "/auth/logout", nil, struct{}{}, nil)
}
