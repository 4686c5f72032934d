// Package engine implements the authorization protocol core: pushed
// authorization requests, session authorization, consent negotiation, token
// issuance with rotation and userinfo resolution. Each operation is a pure
// orchestration over the injected stores and the identity provider gateway;
// no state lives in the engine itself.
package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/raphaelvls/go-authserver/internal/autherr"
	"github.com/raphaelvls/go-authserver/internal/config"
	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/idp"
	"github.com/raphaelvls/go-authserver/internal/storage"
	"github.com/raphaelvls/go-authserver/internal/token"
)

const (
	parRequestURIPrefix = "urn:ietf:params:oauth:request_uri:"

	// authorizePath is where the consent surface re-enters the flow after
	// a confirmation.
	authorizePath = "/api/v1/auth/authorize"

	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"
)

// Stores bundles the storage tiers the engine orchestrates.
type Stores struct {
	Clients  storage.ClientStore
	Sessions storage.SessionStore
	Consents storage.ConsentStore
	Tokens   storage.TokenStore
	Vault    storage.Vault
	Cache    storage.Cache
}

type Engine struct {
	cfg      config.Config
	clients  storage.ClientStore
	sessions storage.SessionStore
	consents storage.ConsentStore
	tokens   storage.TokenStore
	vault    storage.Vault
	cache    storage.Cache
	idp      idp.Gateway
	signer   *token.Signer
	log      *zap.Logger
}

func New(cfg config.Config, stores Stores, gateway idp.Gateway, signer *token.Signer, log *zap.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		clients:  stores.Clients,
		sessions: stores.Sessions,
		consents: stores.Consents,
		tokens:   stores.Tokens,
		vault:    stores.Vault,
		cache:    stores.Cache,
		idp:      gateway,
		signer:   signer,
		log:      log,
	}
}

// authenticatedClient resolves a client by its public identifier and checks
// the presented secret. Unknown identifier and wrong secret collapse into
// the same error so the endpoint cannot be used as a credential oracle.
func (e *Engine) authenticatedClient(ctx context.Context, clientID, clientSecret string) (*entity.Client, error) {
	client, err := e.clients.BySlug(ctx, clientID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, autherr.New(autherr.CodeInvalidClient, "invalid client")
		}
		return nil, autherr.Errorf(autherr.CodeInternalError, "could not load the client", err)
	}

	if client.Status == entity.StatusRevoked || !client.SecretMatches(clientSecret) {
		return nil, autherr.New(autherr.CodeInvalidClient, "invalid client")
	}

	return client, nil
}
