package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmynk/warikan/internal/client"
)

// IdentityProvider verifies credentials and issues ID tokens.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	SignOut(ctx context.Context) error
}

// Credentials is the body of signUp and signIn.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// IdentityResponse is returned by signUp and signIn.
type IdentityResponse struct {
	IDToken string `json:"idToken"`
	LocalID string `json:"localId"`
}

// HTTPIdentity talks to an identity provider exposing POST /signUp,
// /signIn and /signOut. Failed responses are returned as *client.APIError.
type HTTPIdentity struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPIdentity creates an identity client for baseURL. A nil httpClient
// uses a client with a 30 second timeout.
func NewHTTPIdentity(baseURL string, httpClient *http.Client) *HTTPIdentity {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPIdentity{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// SignUp registers an account and returns its ID token.
func (h *HTTPIdentity) SignUp(ctx context.Context, email, password string) (string, error) {
	return h.credentials(ctx, "sign up", "/signUp", email, password)
}

// SignIn verifies credentials and returns an ID token.
func (h *HTTPIdentity) SignIn(ctx context.Context, email, password string) (string, error) {
	return h.credentials(ctx, "sign in", "/signIn", email, password)
}

// SignOut ends the provider-side session.
func (h *HTTPIdentity) SignOut(ctx context.Context) error {
	_, err := h.post(ctx, "sign out", "/signOut", struct{}{})
	return err
}

func (h *HTTPIdentity) credentials(ctx context.Context, op, path, email, password string) (string, error) {
	data, err := h.post(ctx, op, path, Credentials{Email: email, Password: password})
	if err != nil {
		return "", err
	}
	var resp IdentityResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", op, err)
	}
	if resp.IDToken == "" {
		return "", fmt.Errorf("%s: identity provider returned no token", op)
	}
	return resp.IDToken, nil
}

func (h *HTTPIdentity) post(ctx context.Context, op, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if err := client.CheckResponse(op, resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	return data, nil
}
