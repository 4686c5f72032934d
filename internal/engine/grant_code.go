package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raphaelvls/go-authserver/internal/autherr"
	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/hashutil"
	"github.com/raphaelvls/go-authserver/internal/storage"
	"github.com/raphaelvls/go-authserver/internal/timeutil"
	"github.com/raphaelvls/go-authserver/internal/token"
)

// authorizationCodeGrant redeems a single-use authorization code for a
// token pair. Taking the code from the vault happens first, so a replay
// fails even if a later step in this exchange does.
func (e *Engine) authorizationCodeGrant(ctx context.Context, req TokenRequest) (TokenResponse, error) {
	if req.Code == "" {
		return TokenResponse{}, autherr.New(autherr.CodeInvalidRequest, "invalid authorization code")
	}

	var envelope entity.CodeEnvelope
	if err := e.vault.Take(ctx, req.Code, &envelope); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return TokenResponse{}, autherr.New(autherr.CodeInvalidGrant, "invalid authorization code")
		}
		return TokenResponse{}, autherr.Errorf(autherr.CodeInternalError,
			"could not resolve the authorization code", err)
	}

	session, err := e.sessions.Session(ctx, envelope.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return TokenResponse{}, autherr.New(autherr.CodeInvalidGrant, "session not found")
		}
		return TokenResponse{}, autherr.Errorf(autherr.CodeInternalError,
			"could not load the session", err)
	}

	// PKCE binding: the verifier must hash back to the challenge captured
	// at push time.
	if hashutil.Thumbprint(req.CodeVerifier) != session.CodeChallenge {
		return TokenResponse{}, autherr.New(autherr.CodeInvalidGrant, "invalid code verifier")
	}

	client, err := e.clients.BySlug(ctx, session.ClientID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return TokenResponse{}, autherr.New(autherr.CodeInvalidClient, "invalid client")
		}
		return TokenResponse{}, autherr.Errorf(autherr.CodeInternalError,
			"could not load the client", err)
	}

	if err := validateGrantClient(req, session, client); err != nil {
		return TokenResponse{}, err
	}

	if req.RedirectURI != session.RedirectURI {
		return TokenResponse{}, autherr.New(autherr.CodeInvalidGrant, "invalid redirect uri")
	}

	pair, err := e.issueTokenPair(ctx, envelope.UserID, session)
	if err != nil {
		return TokenResponse{}, err
	}

	now := timeutil.Now()
	row := &entity.Token{
		ID:                 uuid.NewString(),
		SessionID:          session.ID,
		AccessTokenDigest:  hashutil.Digest(pair.AccessToken),
		RefreshTokenDigest: hashutil.Digest(pair.RefreshToken),
		Status:             entity.StatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := e.tokens.Create(ctx, row); err != nil {
		return TokenResponse{}, autherr.Errorf(autherr.CodeInternalError,
			"could not create the token", err)
	}

	e.log.Info("token pair issued",
		zap.String("session_id", session.ID),
		zap.String("client_id", session.ClientID))

	return pair, nil
}

// validateGrantClient checks the presented client credentials against both
// the session and the registered client record.
func validateGrantClient(req TokenRequest, session *entity.Session, client *entity.Client) error {
	if req.ClientID != session.ClientID {
		return autherr.New(autherr.CodeInvalidClient, "invalid client")
	}

	if !client.SecretMatches(req.ClientSecret) {
		return autherr.New(autherr.CodeInvalidClient, "invalid client")
	}

	return nil
}

// issueTokenPair obtains the ID token from the identity provider, signs the
// access token and generates a fresh refresh token. Nothing is persisted
// here.
func (e *Engine) issueTokenPair(ctx context.Context, userID string, session *entity.Session) (TokenResponse, error) {
	idToken, err := e.idp.IDToken(ctx, e.idTokenRequest(userID, session))
	if err != nil {
		return TokenResponse{}, autherr.Errorf(autherr.CodeInternalError,
			"could not obtain an id token from the identity provider", err)
	}

	accessToken, err := e.signer.SignAccessToken(userID, session.ID, session.ClientID, session.Scopes)
	if err != nil {
		return TokenResponse{}, autherr.Errorf(autherr.CodeInternalError,
			"could not sign the access token", err)
	}

	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: token.NewRefreshToken(),
		IDToken:      idToken,
	}, nil
}
