package engine

import (
	"context"

	"github.com/raphaelvls/go-authserver/internal/autherr"
)

type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string

	// Authorization code grant fields.
	Code         string
	CodeVerifier string
	RedirectURI  string

	// Refresh grant field.
	RefreshToken string
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
}

// Token exchanges an authorization code or a refresh token for a fresh
// credential pair.
func (e *Engine) Token(ctx context.Context, req TokenRequest) (TokenResponse, error) {
	switch req.GrantType {
	case grantAuthorizationCode:
		return e.authorizationCodeGrant(ctx, req)
	case grantRefreshToken:
		return e.refreshTokenGrant(ctx, req)
	default:
		return TokenResponse{}, autherr.New(autherr.CodeUnsupportedGrantType, "invalid grant type")
	}
}
