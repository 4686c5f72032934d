package engine_test

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelvls/go-authserver/internal/autherr"
	"github.com/raphaelvls/go-authserver/internal/engine"
)

func TestContinue_RequestValidation(t *testing.T) {
	testCases := []struct {
		name     string
		req      engine.ContinueRequest
		wantDesc string
	}{
		{
			name:     "missing session id",
			req:      engine.ContinueRequest{UserID: testUserID, AuthToken: testAuthToken},
			wantDesc: "missing session id",
		},
		{
			name:     "missing user id",
			req:      engine.ContinueRequest{SessionID: "session-1", AuthToken: testAuthToken},
			wantDesc: "missing user id",
		},
		{
			name:     "neither auth token nor consent id",
			req:      engine.ContinueRequest{SessionID: "session-1", UserID: testUserID},
			wantDesc: "missing auth token or consent id",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			// Given.
			env := newTestEnv(t)

			// When.
			_, err := env.engine.Continue(context.Background(), testCase.req)

			// Then.
			var protocolErr autherr.Error
			require.ErrorAs(t, err, &protocolErr)
			assert.Equal(t, autherr.CodeUnprocessable, protocolErr.Code)
			assert.Equal(t, testCase.wantDesc, protocolErr.Description)
		})
	}
}

func TestContinue_WithoutPriorConsent(t *testing.T) {
	// Given. A fresh session and a user who never granted this client
	// anything.
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.openSession(t)

	// When.
	result, err := env.engine.Continue(ctx, engine.ContinueRequest{
		SessionID: session.ID,
		UserID:    testUserID,
		AuthToken: testAuthToken,
	})

	// Then. The user is bound and sent to the consent surface.
	require.NoError(t, err)
	assert.Equal(t, engine.StepConsentRequired, result.Step)
	assert.Equal(t, env.cfg.ConsentPageURL+"?session_id="+session.ID, result.RedirectURL)

	bound, err := env.sessions.Session(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, testUserID, bound.UserID)
	assert.Nil(t, bound.ConsentGrantedAt)
}

func TestContinue_WithPriorConsent(t *testing.T) {
	// Given.
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.openSession(t)
	env.seedConsent(t, testUserID)

	// When.
	result, err := env.engine.Continue(ctx, engine.ContinueRequest{
		SessionID: session.ID,
		UserID:    testUserID,
		AuthToken: testAuthToken,
	})

	// Then. Consent is settled silently and the code goes out at once.
	require.NoError(t, err)
	assert.Equal(t, engine.StepCodeIssued, result.Step)
	assert.True(t, strings.HasPrefix(result.RedirectURL, testRedirectURI+"?code="))

	parsed, err := url.Parse(result.RedirectURL)
	require.NoError(t, err)
	assert.NotEmpty(t, parsed.Query().Get("code"))
	assert.Equal(t, testState, parsed.Query().Get("state"))

	updated, err := env.sessions.Session(ctx, session.ID)
	require.NoError(t, err)
	assert.NotNil(t, updated.ConsentGrantedAt)
}

func TestContinue_UnverifiedCredential(t *testing.T) {
	// Given.
	env := newTestEnv(t)
	env.gateway.verified = false
	session := env.openSession(t)

	// When.
	_, err := env.engine.Continue(context.Background(), engine.ContinueRequest{
		SessionID: session.ID,
		UserID:    testUserID,
		AuthToken: "stale-credential",
	})

	// Then.
	var protocolErr autherr.Error
	require.ErrorAs(t, err, &protocolErr)
	assert.Equal(t, autherr.CodeUnprocessable, protocolErr.Code)
	assert.Equal(t, "invalid auth token", protocolErr.Description)
}

func TestContinue_SessionBindsAUserOnce(t *testing.T) {
	// Given. A session that already went through authentication.
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.openSession(t)

	_, err := env.engine.Continue(ctx, engine.ContinueRequest{
		SessionID: session.ID,
		UserID:    testUserID,
		AuthToken: testAuthToken,
	})
	require.NoError(t, err)

	// When. A second authentication tries to rebind it.
	_, err = env.engine.Continue(ctx, engine.ContinueRequest{
		SessionID: session.ID,
		UserID:    "user-2",
		AuthToken: testAuthToken,
	})

	// Then.
	var protocolErr autherr.Error
	require.ErrorAs(t, err, &protocolErr)
	assert.Equal(t, autherr.CodeUnprocessable, protocolErr.Code)
	assert.Equal(t, "session already authorized", protocolErr.Description)
}

func TestContinue_UnknownSession(t *testing.T) {
	// Given.
	env := newTestEnv(t)

	// When.
	_, err := env.engine.Continue(context.Background(), engine.ContinueRequest{
		SessionID: "missing-session",
		UserID:    testUserID,
		AuthToken: testAuthToken,
	})

	// Then.
	var protocolErr autherr.Error
	require.ErrorAs(t, err, &protocolErr)
	assert.Equal(t, autherr.CodeInvalidRequest, protocolErr.Code)
	assert.Equal(t, "session not found", protocolErr.Description)
}

func TestContinue_WithConsentID(t *testing.T) {
	// Given. A session that completed the consent round trip.
	env := newTestEnv(t)
	session := env.grantedSession(t)
	consent := env.seedConsent(t, testUserID)

	// When.
	result, err := env.engine.Continue(context.Background(), engine.ContinueRequest{
		SessionID: session.ID,
		UserID:    testUserID,
		ConsentID: consent.ID,
	})

	// Then.
	require.NoError(t, err)
	assert.Equal(t, engine.StepCodeIssued, result.Step)
	assert.True(t, strings.HasPrefix(result.RedirectURL, testRedirectURI+"?code="))
}

func TestContinue_ConsentBelongingToAnotherUser(t *testing.T) {
	// Given.
	env := newTestEnv(t)
	session := env.grantedSession(t)
	consent := env.seedConsent(t, "user-2")

	// When.
	_, err := env.engine.Continue(context.Background(), engine.ContinueRequest{
		SessionID: session.ID,
		UserID:    "user-2",
		ConsentID: consent.ID,
	})

	// Then. The session is bound to a different user.
	var protocolErr autherr.Error
	require.ErrorAs(t, err, &protocolErr)
	assert.Equal(t, autherr.CodeUnprocessable, protocolErr.Code)
	assert.Equal(t, "consent does not match the session", protocolErr.Description)
}

func TestContinue_ConsentIDWithoutGrantedSession(t *testing.T) {
	// Given. A bound session whose consent was never granted.
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.openSession(t)
	require.NoError(t, env.sessions.BindUser(ctx, session.ID, testUserID))
	consent := env.seedConsent(t, testUserID)

	// When.
	_, err := env.engine.Continue(ctx, engine.ContinueRequest{
		SessionID: session.ID,
		UserID:    testUserID,
		ConsentID: consent.ID,
	})

	// Then.
	var protocolErr autherr.Error
	require.ErrorAs(t, err, &protocolErr)
	assert.Equal(t, autherr.CodeUnprocessable, protocolErr.Code)
	assert.Equal(t, "consent was not granted for this session", protocolErr.Description)
}

func TestContinue_UnknownConsentID(t *testing.T) {
	// Given.
	env := newTestEnv(t)
	session := env.grantedSession(t)

	// When.
	_, err := env.engine.Continue(context.Background(), engine.ContinueRequest{
		SessionID: session.ID,
		UserID:    testUserID,
		ConsentID: "missing-consent",
	})

	// Then.
	var protocolErr autherr.Error
	require.ErrorAs(t, err, &protocolErr)
	assert.Equal(t, autherr.CodeUnprocessable, protocolErr.Code)
	assert.Equal(t, "consent not found", protocolErr.Description)
}
