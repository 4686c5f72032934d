package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/raphaelvls/go-authserver/internal/autherr"
)

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("could not write the response", zap.Error(err))
	}
}

// redirect sends the caller on to the next surface in the flow.
func (a *API) redirect(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusSeeOther)
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	var protocolErr autherr.Error
	if !errors.As(err, &protocolErr) {
		protocolErr = autherr.Errorf(autherr.CodeInternalError, "internal error", err)
	}

	status := protocolErr.Code.StatusCode()
	if status >= http.StatusInternalServerError {
		a.log.Error("request failed", zap.Error(err))
	}

	a.writeJSON(w, status, protocolErr)
}
