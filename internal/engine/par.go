package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raphaelvls/go-authserver/internal/autherr"
	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/entropy"
	"github.com/raphaelvls/go-authserver/internal/strutil"
)

type PushResponse struct {
	RequestURI string `json:"request_uri"`
	ExpiresIn  int    `json:"expires_in"`
}

// Push validates a pushed authorization request and parks it in the vault
// under a fresh request URI. Nothing is written unless every check passes.
func (e *Engine) Push(ctx context.Context, req entity.PushedRequest) (PushResponse, error) {
	if err := e.validatePushedRequest(req); err != nil {
		return PushResponse{}, err
	}

	client, err := e.authenticatedClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return PushResponse{}, err
	}

	if req.RedirectURI == "" || !client.IsRedirectURIAllowed(req.RedirectURI) {
		return PushResponse{}, autherr.New(autherr.CodeInvalidRequest, "invalid redirect uri")
	}

	if err := validateRequestedScopes(req.Scope, client); err != nil {
		return PushResponse{}, err
	}

	requestURI := parRequestURIPrefix + uuid.NewString()
	if err := e.vault.Store(ctx, requestURI, req, e.cfg.PARLifetime); err != nil {
		return PushResponse{}, autherr.Errorf(autherr.CodeInternalError,
			"could not store the pushed authorization request", err)
	}

	e.log.Debug("pushed authorization request accepted",
		zap.String("client_id", req.ClientID))

	return PushResponse{
		RequestURI: requestURI,
		ExpiresIn:  int(e.cfg.PARLifetime.Seconds()),
	}, nil
}

func (e *Engine) validatePushedRequest(req entity.PushedRequest) error {
	if req.ResponseType != "code" {
		return autherr.New(autherr.CodeInvalidRequest, "invalid response type")
	}

	if req.CodeChallengeMethod != "S256" {
		return autherr.New(autherr.CodeInvalidRequest, "invalid code challenge method")
	}

	if req.State == "" {
		return autherr.New(autherr.CodeInvalidRequest, "invalid state")
	}

	if req.CodeChallenge == "" {
		return autherr.New(autherr.CodeInvalidRequest, "invalid code challenge")
	}

	if entropy.TotalBits(req.State) < e.cfg.MinStateEntropyBits {
		return autherr.New(autherr.CodeInvalidRequest, "state has insufficient entropy")
	}

	return nil
}

func validateRequestedScopes(scope string, client *entity.Client) error {
	requested := strutil.SplitWithSpaces(scope)
	if len(requested) == 0 {
		return autherr.New(autherr.CodeInvalidScope, "invalid scope")
	}

	for _, s := range requested {
		if !slices.Contains(client.AllowedScopes, s) {
			return autherr.New(autherr.CodeInvalidScope,
				fmt.Sprintf("scope %q is not allowed for this client", s))
		}
	}

	return nil
}
