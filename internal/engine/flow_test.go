package engine_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelvls/go-authserver/internal/autherr"
	"github.com/raphaelvls/go-authserver/internal/engine"
	"github.com/raphaelvls/go-authserver/internal/hashutil"
)

// TestFullAuthorizationFlow drives a first-time user through every
// operation in order: push, authorize, login continuation, consent round
// trip, code exchange, userinfo and a refresh rotation.
func TestFullAuthorizationFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Push.
	pushResp, err := env.engine.Push(ctx, env.pushedRequest())
	require.NoError(t, err)

	// Authorize. The user lands on the login page.
	loginURL, err := env.engine.Authorize(ctx, engine.AuthorizeRequest{
		ClientID:   testClientSlug,
		RequestURI: pushResp.RequestURI,
	})
	require.NoError(t, err)

	parsed, err := url.Parse(loginURL)
	require.NoError(t, err)
	sessionID := parsed.Query().Get("session_id")
	require.NotEmpty(t, sessionID)

	// Continue after login. No prior consent, so the user is sent on to
	// the consent surface.
	result, err := env.engine.Continue(ctx, engine.ContinueRequest{
		SessionID: sessionID,
		UserID:    testUserID,
		AuthToken: testAuthToken,
	})
	require.NoError(t, err)
	require.Equal(t, engine.StepConsentRequired, result.Step)

	// The consent surface renders what the client wants.
	info, err := env.engine.ConsentInfo(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"openid", "profile", "offline_access"}, info.RequestedScopes)

	// The user approves everything requested.
	confirmResp, err := env.engine.ConsentConfirm(ctx, engine.ConsentConfirmRequest{
		SessionID: sessionID,
		Scopes:    info.RequestedScopes,
	})
	require.NoError(t, err)

	confirmRedirect, err := url.Parse(confirmResp.RedirectURL)
	require.NoError(t, err)
	consentID := confirmRedirect.Query().Get("consent_id")
	require.NotEmpty(t, consentID)

	// Continue re-entered with the consent. The code goes out.
	result, err = env.engine.Continue(ctx, engine.ContinueRequest{
		SessionID: sessionID,
		UserID:    testUserID,
		ConsentID: consentID,
	})
	require.NoError(t, err)
	require.Equal(t, engine.StepCodeIssued, result.Step)

	codeRedirect, err := url.Parse(result.RedirectURL)
	require.NoError(t, err)
	assert.Equal(t, testState, codeRedirect.Query().Get("state"))
	code := codeRedirect.Query().Get("code")
	require.NotEmpty(t, code)

	// The client exchanges the code.
	pair, err := env.engine.Token(ctx, codeGrantRequest(code))
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "an-id-token", pair.IDToken)

	// The resource server resolves the profile.
	profile, err := env.engine.Userinfo(ctx, pair.AccessToken, testUserID)
	require.NoError(t, err)
	assert.Equal(t, testUserID, profile.Sub)

	// The client rotates the pair.
	rotated, err := env.engine.Token(ctx, engine.TokenRequest{
		GrantType:    "refresh_token",
		ClientID:     testClientSlug,
		ClientSecret: testClientSecret,
		RefreshToken: pair.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The rotated-out access token no longer resolves a fresh lookup.
	_, err = env.tokens.ByAccessDigest(ctx, hashutil.Digest(pair.AccessToken))
	require.Error(t, err)

	// A second user of the same client would still need their own consent;
	// this user's next login short-circuits it.
	secondSession := env.openSession(t)
	result, err = env.engine.Continue(ctx, engine.ContinueRequest{
		SessionID: secondSession.ID,
		UserID:    testUserID,
		AuthToken: testAuthToken,
	})
	require.NoError(t, err)
	assert.Equal(t, engine.StepCodeIssued, result.Step, "prior consent skips the consent surface")
}

// TestFullAuthorizationFlow_CodeReplayAfterRefresh checks the burned code
// stays burned across later grants.
func TestFullAuthorizationFlow_CodeReplayAfterRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	code, _ := env.authorizationCode(t)

	pair, err := env.engine.Token(ctx, codeGrantRequest(code))
	require.NoError(t, err)

	_, err = env.engine.Token(ctx, engine.TokenRequest{
		GrantType:    "refresh_token",
		ClientID:     testClientSlug,
		ClientSecret: testClientSecret,
		RefreshToken: pair.RefreshToken,
	})
	require.NoError(t, err)

	_, err = env.engine.Token(ctx, codeGrantRequest(code))

	var protocolErr autherr.Error
	require.ErrorAs(t, err, &protocolErr)
	assert.Equal(t, autherr.CodeInvalidGrant, protocolErr.Code)
}
