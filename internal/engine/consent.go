package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raphaelvls/go-authserver/internal/autherr"
	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/storage"
	"github.com/raphaelvls/go-authserver/internal/timeutil"
)

type ConsentInfoResponse struct {
	ClientID        string    `json:"client_id"`
	Name            string    `json:"name"`
	Scopes          []string  `json:"scopes"`
	RequestedScopes []string  `json:"requested_scopes"`
	MandatoryScopes []string  `json:"mandatory_scopes"`
	Logos           []string  `json:"logos"`
	CreatedAt       time.Time `json:"created_at"`
}

// ConsentInfo describes what the consent surface should render for a
// session. Read-only; it mutates nothing.
func (e *Engine) ConsentInfo(ctx context.Context, sessionID string) (ConsentInfoResponse, error) {
	if sessionID == "" {
		return ConsentInfoResponse{}, autherr.New(autherr.CodeInvalidRequest, "missing session id")
	}

	session, err := e.loadSessionForConsent(ctx, sessionID)
	if err != nil {
		return ConsentInfoResponse{}, err
	}

	client, err := e.clients.BySlug(ctx, session.ClientID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ConsentInfoResponse{}, autherr.New(autherr.CodeInvalidRequest, "client not found")
		}
		return ConsentInfoResponse{}, autherr.Errorf(autherr.CodeInternalError,
			"could not load the client", err)
	}

	return ConsentInfoResponse{
		ClientID:        client.Slug,
		Name:            client.Name,
		Scopes:          client.AllowedScopes,
		RequestedScopes: session.Scopes,
		MandatoryScopes: client.MandatoryScopes,
		Logos:           client.Logos,
		CreatedAt:       client.CreatedAt,
	}, nil
}

type ConsentConfirmRequest struct {
	SessionID string   `json:"session_id"`
	Scopes    []string `json:"scopes"`
}

type ConsentConfirmResponse struct {
	RedirectURL string `json:"redirect_url"`
}

// ConsentConfirm records the user's scope choice, narrows the session to it
// and sends the caller back through the authorization continuation. This is
// the only place a session's scope list can shrink.
func (e *Engine) ConsentConfirm(ctx context.Context, req ConsentConfirmRequest) (ConsentConfirmResponse, error) {
	session, err := e.loadSessionForConsent(ctx, req.SessionID)
	if err != nil {
		return ConsentConfirmResponse{}, err
	}

	client, err := e.clients.BySlug(ctx, session.ClientID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ConsentConfirmResponse{}, autherr.New(autherr.CodeInvalidRequest, "client not found")
		}
		return ConsentConfirmResponse{}, autherr.Errorf(autherr.CodeInternalError,
			"could not load the client", err)
	}

	if err := checkConsentScopes(client, req.Scopes); err != nil {
		return ConsentConfirmResponse{}, err
	}

	if !session.IsAuthorized() {
		return ConsentConfirmResponse{}, autherr.New(autherr.CodeInvalidRequest,
			"session is not authenticated")
	}

	consent := &entity.Consent{
		ID:        uuid.NewString(),
		ClientID:  session.ClientID,
		UserID:    session.UserID,
		Scopes:    req.Scopes,
		Status:    entity.StatusActive,
		CreatedAt: timeutil.Now(),
	}
	if err := e.consents.Create(ctx, consent); err != nil {
		return ConsentConfirmResponse{}, autherr.Errorf(autherr.CodeInternalError,
			"could not create the consent", err)
	}

	now := timeutil.Now()
	patch := entity.SessionPatch{
		ConsentGrantedAt: &now,
		Scopes:           req.Scopes,
	}
	if err := e.sessions.Update(ctx, session.ID, patch); err != nil {
		return ConsentConfirmResponse{}, autherr.Errorf(autherr.CodeInternalError,
			"could not update the session", err)
	}

	e.log.Debug("consent granted",
		zap.String("session_id", session.ID),
		zap.String("client_id", session.ClientID),
		zap.Strings("scopes", req.Scopes))

	redirectURL := fmt.Sprintf("%s?user_id=%s&session_id=%s&consent_id=%s",
		authorizePath, session.UserID, session.ID, consent.ID)

	return ConsentConfirmResponse{RedirectURL: redirectURL}, nil
}

func (e *Engine) loadSessionForConsent(ctx context.Context, sessionID string) (*entity.Session, error) {
	session, err := e.sessions.Session(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, autherr.New(autherr.CodeInvalidRequest, "session not found")
		}
		return nil, autherr.Errorf(autherr.CodeInternalError, "could not load the session", err)
	}

	if session.IsConsentGranted() {
		return nil, autherr.New(autherr.CodeInvalidRequest,
			"consent already granted for this session")
	}

	return session, nil
}

// checkConsentScopes enforces the consent law: every chosen scope must be
// allowed for the client and every client-mandatory scope must be chosen.
func checkConsentScopes(client *entity.Client, chosen []string) error {
	for _, scope := range chosen {
		if !slices.Contains(client.AllowedScopes, scope) {
			return autherr.New(autherr.CodeInvalidScope,
				fmt.Sprintf("scope %q is not allowed for this client", scope))
		}
	}

	for _, scope := range client.MandatoryScopes {
		if !slices.Contains(chosen, scope) {
			return autherr.New(autherr.CodeInvalidScope,
				fmt.Sprintf("mandatory scope %q is missing", scope))
		}
	}

	return nil
}
