package engine

import (
	"context"
	"errors"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raphaelvls/go-authserver/internal/autherr"
	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/storage"
	"github.com/raphaelvls/go-authserver/internal/timeutil"
)

type ContinueRequest struct {
	SessionID string
	UserID    string
	// AuthToken is a fresh credential from the login surface. Either it or
	// ConsentID must be present.
	AuthToken string
	// ConsentID re-enters the flow after a consent confirmation.
	ConsentID string
}

// ContinueStep tags the two legitimate non-failure outcomes of Continue.
type ContinueStep int

const (
	// StepCodeIssued means the flow is complete and the redirect carries
	// the authorization code back to the client.
	StepCodeIssued ContinueStep = iota

	// StepConsentRequired means the user still has to approve the client's
	// scopes; the redirect points at the consent surface.
	StepConsentRequired
)

// ContinueResult is the outcome of a successful Continue call. Needing a
// consent round trip is not a failure, so it travels here rather than
// through the error channel.
type ContinueResult struct {
	Step        ContinueStep
	RedirectURL string
}

// Continue binds the authenticated user to the session, settles consent and
// mints the one-time authorization code once both are in place.
func (e *Engine) Continue(ctx context.Context, req ContinueRequest) (ContinueResult, error) {
	if err := validateContinueRequest(req); err != nil {
		return ContinueResult{}, err
	}

	session, err := e.sessions.Session(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ContinueResult{}, autherr.New(autherr.CodeInvalidRequest, "session not found")
		}
		return ContinueResult{}, autherr.Errorf(autherr.CodeInternalError,
			"could not load the session", err)
	}

	if req.ConsentID != "" {
		return e.continueWithConsent(ctx, req, session)
	}

	return e.continueWithCredential(ctx, req, session)
}

// continueWithConsent re-enters the flow after Consent-Confirm. The consent
// must belong to the session's user and client.
func (e *Engine) continueWithConsent(ctx context.Context, req ContinueRequest, session *entity.Session) (ContinueResult, error) {
	consent, err := e.consents.Consent(ctx, req.ConsentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ContinueResult{}, autherr.New(autherr.CodeUnprocessable, "consent not found")
		}
		return ContinueResult{}, autherr.Errorf(autherr.CodeInternalError,
			"could not load the consent", err)
	}

	if consent.UserID != req.UserID || consent.ClientID != session.ClientID || session.UserID != consent.UserID {
		return ContinueResult{}, autherr.New(autherr.CodeUnprocessable,
			"consent does not match the session")
	}

	if !session.IsConsentGranted() {
		return ContinueResult{}, autherr.New(autherr.CodeUnprocessable,
			"consent was not granted for this session")
	}

	return e.issueCode(ctx, session)
}

// continueWithCredential handles the first entry after authentication:
// verify the credential, bind the user once and settle consent either from
// a prior grant or via the consent surface.
func (e *Engine) continueWithCredential(ctx context.Context, req ContinueRequest, session *entity.Session) (ContinueResult, error) {
	verified, err := e.idp.VerifyCredential(ctx, req.AuthToken)
	if err != nil {
		return ContinueResult{}, autherr.Errorf(autherr.CodeInternalError,
			"could not verify the credential", err)
	}
	if !verified {
		return ContinueResult{}, autherr.New(autherr.CodeUnprocessable, "invalid auth token")
	}

	if err := e.sessions.BindUser(ctx, session.ID, req.UserID); err != nil {
		switch {
		case errors.Is(err, storage.ErrUserAlreadyBound):
			return ContinueResult{}, autherr.New(autherr.CodeUnprocessable, "session already authorized")
		case errors.Is(err, storage.ErrNotFound):
			return ContinueResult{}, autherr.New(autherr.CodeInvalidRequest, "session not found")
		default:
			return ContinueResult{}, autherr.Errorf(autherr.CodeInternalError,
				"could not bind the user to the session", err)
		}
	}
	session.UserID = req.UserID

	if _, err := e.consents.ByClientAndUser(ctx, session.ClientID, req.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ContinueResult{
				Step:        StepConsentRequired,
				RedirectURL: e.cfg.ConsentPageURL + "?session_id=" + session.ID,
			}, nil
		}
		return ContinueResult{}, autherr.Errorf(autherr.CodeInternalError,
			"could not look up prior consent", err)
	}

	now := timeutil.Now()
	if err := e.sessions.Update(ctx, session.ID, entity.SessionPatch{ConsentGrantedAt: &now}); err != nil {
		return ContinueResult{}, autherr.Errorf(autherr.CodeInternalError,
			"could not update the session", err)
	}
	session.ConsentGrantedAt = &now

	return e.issueCode(ctx, session)
}

// issueCode mints the single-use authorization code and parks it in the
// vault. The session must carry a bound user and granted consent by now.
func (e *Engine) issueCode(ctx context.Context, session *entity.Session) (ContinueResult, error) {
	code := uuid.NewString()
	envelope := entity.CodeEnvelope{
		UserID:    session.UserID,
		SessionID: session.ID,
	}

	if err := e.vault.Store(ctx, code, envelope, e.cfg.AuthCodeLifetime); err != nil {
		return ContinueResult{}, autherr.Errorf(autherr.CodeInternalError,
			"could not store the authorization code", err)
	}

	e.log.Debug("authorization code issued",
		zap.String("session_id", session.ID),
		zap.String("client_id", session.ClientID))

	return ContinueResult{
		Step:        StepCodeIssued,
		RedirectURL: session.RedirectURI + "?code=" + code + "&state=" + url.QueryEscape(session.State),
	}, nil
}

func validateContinueRequest(req ContinueRequest) error {
	if req.SessionID == "" {
		return autherr.New(autherr.CodeUnprocessable, "missing session id")
	}

	if req.UserID == "" {
		return autherr.New(autherr.CodeUnprocessable, "missing user id")
	}

	if req.AuthToken == "" && req.ConsentID == "" {
		return autherr.New(autherr.CodeUnprocessable, "missing auth token or consent id")
	}

	return nil
}
