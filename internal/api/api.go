// Package api exposes the protocol engine over HTTP. Handlers only parse
// requests, call the engine and write results; every protocol decision
// lives in the engine.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/raphaelvls/go-authserver/internal/engine"
)

type API struct {
	engine *engine.Engine
	log    *zap.Logger
}

// New assembles the versioned router.
func New(e *engine.Engine, log *zap.Logger) http.Handler {
	a := &API{
		engine: e,
		log:    log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(a.requestLogger)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/par", a.handlePush)
		r.Get("/authorize", a.handleAuthorize)
		r.Get("/consent/info", a.handleConsentInfo)
		r.Post("/consent/confirm", a.handleConsentConfirm)
		r.Post("/token", a.handleToken)
		r.Post("/userinfo", a.handleUserinfo)
	})

	return r
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		a.log.Debug("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
