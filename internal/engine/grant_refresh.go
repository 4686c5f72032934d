package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/raphaelvls/go-authserver/internal/autherr"
	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/hashutil"
	"github.com/raphaelvls/go-authserver/internal/idp"
	"github.com/raphaelvls/go-authserver/internal/storage"
	"github.com/raphaelvls/go-authserver/internal/strutil"
)

// refreshTokenGrant rotates a token pair. The row keeps its identity; both
// digests are overwritten in one step, so the presented refresh token is
// permanently unusable the moment the rotation commits.
func (e *Engine) refreshTokenGrant(ctx context.Context, req TokenRequest) (TokenResponse, error) {
	if req.RefreshToken == "" {
		return TokenResponse{}, autherr.New(autherr.CodeInvalidRequest, "invalid refresh token")
	}

	row, err := e.tokens.ByRefreshDigest(ctx, hashutil.Digest(req.RefreshToken))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return TokenResponse{}, autherr.New(autherr.CodeInvalidGrant, "invalid refresh token")
		}
		return TokenResponse{}, autherr.Errorf(autherr.CodeInternalError,
			"could not look up the refresh token", err)
	}

	session, err := e.sessions.Session(ctx, row.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return TokenResponse{}, autherr.New(autherr.CodeInvalidGrant, "session not found")
		}
		return TokenResponse{}, autherr.Errorf(autherr.CodeInternalError,
			"could not load the session", err)
	}

	if !strutil.ContainsOfflineAccess(session.Scopes) {
		return TokenResponse{}, autherr.New(autherr.CodeInvalidGrant,
			"offline_access is required for the refresh token grant")
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

	pair, err := e.issueTokenPair(ctx, session.UserID, session)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := e.tokens.Rotate(ctx, row.ID,
		hashutil.Digest(pair.AccessToken), hashutil.Digest(pair.RefreshToken)); err != nil {
		return TokenResponse{}, autherr.Errorf(autherr.CodeInternalError,
			"could not rotate the token", err)
	}

	e.log.Info("token pair rotated",
		zap.String("session_id", session.ID),
		zap.String("client_id", session.ClientID))

	return pair, nil
}

func (e *Engine) idTokenRequest(userID string, session *entity.Session) idp.IDTokenRequest {
	return idp.IDTokenRequest{
		UserID:   userID,
		ClientID: session.ClientID,
		Scopes:   session.Scopes,
	}
}
