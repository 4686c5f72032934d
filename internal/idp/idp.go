// Package idp talks to the external identity provider. The provider owns
// user credentials and profiles; this server only exchanges structured
// requests with it and treats it as a black box.
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Gateway is the surface the protocol engine depends on.
type Gateway interface {
	// IDToken asks the provider to mint an OIDC ID token for a grant.
	IDToken(ctx context.Context, req IDTokenRequest) (string, error)

	// UserByID resolves a user profile.
	UserByID(ctx context.Context, userID string) (*User, error)

	// VerifyCredential checks an authentication token issued by the
	// provider's login surface.
	VerifyCredential(ctx context.Context, token string) (bool, error)
}

type IDTokenRequest struct {
	UserID   string   `json:"userId"`
	ClientID string   `json:"clientId"`
	Scopes   []string `json:"scopes"`
}

// User is the provider's profile shape.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	FamilyName string `json:"family_name"`
	Gender     string `json:"gender"`
	Email      string `json:"email"`
	CreatedAt  string `json:"created_at"`
}

type idTokenResponse struct {
	IDToken string `json:"idToken"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

// HTTPGateway implements Gateway over the provider's JSON API. Every call
// is bounded by the client timeout; failures are returned to the caller,
// never retried here.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGateway) IDToken(ctx context.Context, req IDTokenRequest) (string, error) {
	var resp idTokenResponse
	if err := g.post(ctx, "/api/v1/credentials/id_token", req, &resp); err != nil {
		return "", err
	}

	return resp.IDToken, nil
}

func (g *HTTPGateway) UserByID(ctx context.Context, userID string) (*User, error) {
	endpoint := g.baseURL + "/api/v1/users/" + url.PathEscape(userID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-api-key", g.apiKey)

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("requesting user from idp: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("idp returned status %d for user lookup", httpResp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(httpResp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("parsing idp user response: %w", err)
	}

	return &user, nil
}

func (g *HTTPGateway) VerifyCredential(ctx context.Context, token string) (bool, error) {
	var resp verifyResponse
	if err := g.post(ctx, "/api/v1/credentials/verify", verifyRequest{Token: token}, &resp); err != nil {
		return false, err
	}

	return resp.Verified, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, body, dest any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-api-key", g.apiKey)

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request to idp: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("idp returned status %d", httpResp.StatusCode)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(dest); err != nil {
		return fmt.Errorf("parsing idp response: %w", err)
	}

	return nil
}

var _ Gateway = (*HTTPGateway)(nil)
