package api

import (
	"encoding/json"
	"net/http"

	"github.com/raphaelvls/go-authserver/internal/autherr"
	"github.com/raphaelvls/go-authserver/internal/engine"
	"github.com/raphaelvls/go-authserver/internal/entity"
)

const accessTokenHeader = "x-access-token"

func (a *API) handlePush(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.writeError(w, autherr.New(autherr.CodeInvalidRequest, "could not parse the request form"))
		return
	}

	req := entity.PushedRequest{
		ClientID:            r.PostFormValue("client_id"),
		ClientSecret:        r.PostFormValue("client_secret"),
		Scope:               r.PostFormValue("scope"),
		RedirectURI:         r.PostFormValue("redirect_uri"),
		ResponseType:        r.PostFormValue("response_type"),
		State:               r.PostFormValue("state"),
		CodeChallenge:       r.PostFormValue("code_challenge"),
		CodeChallengeMethod: r.PostFormValue("code_challenge_method"),
	}

	resp, err := a.engine.Push(r.Context(), req)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusCreated, resp)
}

// handleAuthorize serves both entries into the authorization flow: the
// initial request-URI resolution and the continuation the login and consent
// surfaces call back into. The presence of session_id picks the branch.
func (a *API) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Get("session_id") != "" {
		result, err := a.engine.Continue(r.Context(), engine.ContinueRequest{
			SessionID: query.Get("session_id"),
			UserID:    query.Get("user_id"),
			AuthToken: query.Get("auth_token"),
			ConsentID: query.Get("consent_id"),
		})
		if err != nil {
			a.writeError(w, err)
			return
		}

		a.redirect(w, result.RedirectURL)
		return
	}

	redirectURL, err := a.engine.Authorize(r.Context(), engine.AuthorizeRequest{
		ClientID:   query.Get("client_id"),
		RequestURI: query.Get("uri"),
	})
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.redirect(w, redirectURL)
}

func (a *API) handleConsentInfo(w http.ResponseWriter, r *http.Request) {
	resp, err := a.engine.ConsentInfo(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleConsentConfirm(w http.ResponseWriter, r *http.Request) {
	var req engine.ConsentConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, autherr.New(autherr.CodeInvalidRequest, "could not parse the request body"))
		return
	}

	resp, err := a.engine.ConsentConfirm(r.Context(), req)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.writeError(w, autherr.New(autherr.CodeInvalidRequest, "could not parse the request form"))
		return
	}

	resp, err := a.engine.Token(r.Context(), engine.TokenRequest{
		GrantType:    r.PostFormValue("grant_type"),
		ClientID:     r.PostFormValue("client_id"),
		ClientSecret: r.PostFormValue("client_secret"),
		Code:         r.PostFormValue("code"),
		CodeVerifier: r.PostFormValue("code_verifier"),
		RedirectURI:  r.PostFormValue("redirect_uri"),
		RefreshToken: r.PostFormValue("refresh_token"),
	})
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleUserinfo(w http.ResponseWriter, r *http.Request) {
	accessToken := r.Header.Get(accessTokenHeader)
	if accessToken == "" {
		a.writeError(w, autherr.New(autherr.CodeInvalidRequest, "missing access token header"))
		return
	}

	var req struct {
		Sub string `json:"sub"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, autherr.New(autherr.CodeInvalidRequest, "could not parse the request body"))
		return
	}

	profile, err := a.engine.Userinfo(r.Context(), accessToken, req.Sub)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, profile)
}
