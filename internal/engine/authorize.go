package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raphaelvls/go-authserver/internal/autherr"
	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/storage"
	"github.com/raphaelvls/go-authserver/internal/strutil"
	"github.com/raphaelvls/go-authserver/internal/timeutil"
)

type AuthorizeRequest struct {
	ClientID   string
	RequestURI string
}

// Authorize resolves a previously pushed request and opens a session for
// it. Taking the request URI from the vault consumes it; a replayed URI
// fails as not found.
func (e *Engine) Authorize(ctx context.Context, req AuthorizeRequest) (string, error) {
	if !strings.HasPrefix(req.RequestURI, parRequestURIPrefix) {
		return "", autherr.New(autherr.CodeInvalidRequest, "invalid request uri")
	}

	var pushed entity.PushedRequest
	if err := e.vault.Take(ctx, req.RequestURI, &pushed); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", autherr.New(autherr.CodeInvalidRequest, "request uri not found or expired")
		}
		return "", autherr.Errorf(autherr.CodeInternalError,
			"could not resolve the pushed authorization request", err)
	}

	if pushed.ClientID != req.ClientID {
		return "", autherr.New(autherr.CodeInvalidRequest, "invalid client id")
	}

	now := timeutil.Now()
	session := &entity.Session{
		ID:                  uuid.NewString(),
		ClientID:            pushed.ClientID,
		Scopes:              strutil.SplitWithSpaces(pushed.Scope),
		RedirectURI:         pushed.RedirectURI,
		State:               pushed.State,
		ResponseType:        pushed.ResponseType,
		CodeChallenge:       pushed.CodeChallenge,
		CodeChallengeMethod: pushed.CodeChallengeMethod,
		Status:              entity.StatusActive,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := e.sessions.Create(ctx, session); err != nil {
		return "", autherr.Errorf(autherr.CodeInternalError,
			"could not create the authorization session", err)
	}

	e.log.Debug("authorization session created",
		zap.String("session_id", session.ID),
		zap.String("client_id", session.ClientID))

	return e.cfg.LoginPageURL + "?session_id=" + session.ID, nil
}
