package engine_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/raphaelvls/go-authserver/internal/config"
	"github.com/raphaelvls/go-authserver/internal/engine"
	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/hashutil"
	"github.com/raphaelvls/go-authserver/internal/idp"
	"github.com/raphaelvls/go-authserver/internal/storage/inmemory"
	"github.com/raphaelvls/go-authserver/internal/token"
)

const (
	testClientSlug   = "my-app"
	testClientSecret = "client-secret"
	testRedirectURI  = "https://app.example.com/callback"
	testUserID       = "user-1"
	testAuthToken    = "fresh-login-credential"

	// 20 distinct characters, comfortably above the entropy floor.
	testState = "aZ3kQ8xNpR5tYw2LmB7v"

	testCodeVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
)

// fakeGateway is a scriptable identity provider for the engine tests.
type fakeGateway struct {
	idToken    string
	idTokenErr error

	user    *idp.User
	userErr error

	verified  bool
	verifyErr error
}

func (g *fakeGateway) IDToken(_ context.Context, _ idp.IDTokenRequest) (string, error) {
	return g.idToken, g.idTokenErr
}

func (g *fakeGateway) UserByID(_ context.Context, _ string) (*idp.User, error) {
	return g.user, g.userErr
}

func (g *fakeGateway) VerifyCredential(_ context.Context, _ string) (bool, error) {
	return g.verified, g.verifyErr
}

var _ idp.Gateway = (*fakeGateway)(nil)

type testEnv struct {
	engine   *engine.Engine
	cfg      config.Config
	clients  *inmemory.ClientStore
	sessions *inmemory.SessionStore
	consents *inmemory.ConsentStore
	tokens   *inmemory.TokenStore
	vault    *inmemory.Vault
	cache    *inmemory.Cache
	gateway  *fakeGateway
	signer   *token.Signer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	cfg := config.Config{
		Issuer:              "https://auth.example.com",
		AccessTokenLifetime: 4 * time.Hour,
		PARLifetime:         60 * time.Second,
		AuthCodeLifetime:    2 * time.Minute,
		ProfileCacheTTL:     5 * time.Minute,
		MinStateEntropyBits: 64,
		LoginPageURL:        "https://login.example.com/",
		ConsentPageURL:      "https://consent.example.com/",
	}

	env := &testEnv{
		cfg:      cfg,
		clients:  inmemory.NewClientStore(),
		sessions: inmemory.NewSessionStore(),
		consents: inmemory.NewConsentStore(),
		tokens:   inmemory.NewTokenStore(),
		vault:    inmemory.NewVault(),
		cache:    inmemory.NewCache(),
		signer:   token.NewSigner(key, "test-key", cfg.Issuer, cfg.AccessTokenLifetime),
		gateway: &fakeGateway{
			idToken:  "an-id-token",
			verified: true,
			user: &idp.User{
				ID:         testUserID,
				Name:       "Ada",
				FamilyName: "Lovelace",
				Gender:     "female",
				Email:      "ada@example.com",
				CreatedAt:  "2024-01-01T00:00:00Z",
			},
		},
	}

	env.engine = engine.New(cfg, engine.Stores{
		Clients:  env.clients,
		Sessions: env.sessions,
		Consents: env.consents,
		Tokens:   env.tokens,
		Vault:    env.vault,
		Cache:    env.cache,
	}, env.gateway, env.signer, zap.NewNop())

	now := time.Now().UTC()
	require.NoError(t, env.clients.Save(context.Background(), &entity.Client{
		ID:              "client-row-1",
		Name:            "My App",
		Slug:            testClientSlug,
		HashedSecret:    hashutil.BCryptHash(testClientSecret),
		RedirectURIs:    []string{testRedirectURI},
		AllowedScopes:   []string{"openid", "profile", "email", "offline_access"},
		MandatoryScopes: []string{"openid"},
		Logos:           []string{"https://app.example.com/logo.png"},
		Status:          entity.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}))

	return env
}

// pushedRequest returns a baseline valid payload the tests mutate.
func (env *testEnv) pushedRequest() entity.PushedRequest {
	return entity.PushedRequest{
		ClientID:            testClientSlug,
		ClientSecret:        testClientSecret,
		Scope:               "openid profile offline_access",
		RedirectURI:         testRedirectURI,
		ResponseType:        "code",
		State:               testState,
		CodeChallenge:       hashutil.Thumbprint(testCodeVerifier),
		CodeChallengeMethod: "S256",
	}
}

// openSession drives Push and Authorize and returns the fresh session.
func (env *testEnv) openSession(t *testing.T) *entity.Session {
	t.Helper()
	ctx := context.Background()

	pushResp, err := env.engine.Push(ctx, env.pushedRequest())
	require.NoError(t, err)

	loginURL, err := env.engine.Authorize(ctx, engine.AuthorizeRequest{
		ClientID:   testClientSlug,
		RequestURI: pushResp.RequestURI,
	})
	require.NoError(t, err)

	parsed, err := url.Parse(loginURL)
	require.NoError(t, err)
	sessionID := parsed.Query().Get("session_id")
	require.NotEmpty(t, sessionID)

	session, err := env.sessions.Session(ctx, sessionID)
	require.NoError(t, err)

	return session
}

// grantedSession opens a session and walks it through authentication and
// consent, returning the session in its code-issuable shape.
func (env *testEnv) grantedSession(t *testing.T) *entity.Session {
	t.Helper()
	ctx := context.Background()

	session := env.openSession(t)
	require.NoError(t, env.sessions.BindUser(ctx, session.ID, testUserID))

	grantedAt := time.Now().UTC()
	require.NoError(t, env.sessions.Update(ctx, session.ID, entity.SessionPatch{
		ConsentGrantedAt: &grantedAt,
	}))

	session, err := env.sessions.Session(ctx, session.ID)
	require.NoError(t, err)

	return session
}

// authorizationCode runs the front half of the flow and returns a minted
// code for the token grant tests.
func (env *testEnv) authorizationCode(t *testing.T) (string, *entity.Session) {
	t.Helper()
	ctx := context.Background()

	session := env.grantedSession(t)
	result, err := env.engine.Continue(ctx, engine.ContinueRequest{
		SessionID: session.ID,
		UserID:    testUserID,
		ConsentID: env.seedConsent(t, testUserID).ID,
	})
	require.NoError(t, err)
	require.Equal(t, engine.StepCodeIssued, result.Step)

	parsed, err := url.Parse(result.RedirectURL)
	require.NoError(t, err)
	code := parsed.Query().Get("code")
	require.NotEmpty(t, code)

	return code, session
}

// seedConsent records a prior grant for the test client.
func (env *testEnv) seedConsent(t *testing.T, userID string) *entity.Consent {
	t.Helper()

	consent := &entity.Consent{
		ID:        "consent-" + userID,
		ClientID:  testClientSlug,
		UserID:    userID,
		Scopes:    []string{"openid", "profile", "offline_access"},
		Status:    entity.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, env.consents.Create(context.Background(), consent))

	return consent
}
