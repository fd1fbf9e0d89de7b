package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kikuomax/tweetscape-streams/internal/logging"
)

// NewRouter mounts the API.
//
//	GET  /healthz                 liveness, no auth
//	POST /v1/sync                 sync one account
//	POST /v1/tracked-accounts     track an account by username
//	GET  /v1/runs/{id}            stored sync run
func NewRouter(svc Service, logger logging.Logger, jwtSecret []byte) http.Handler {
	h := &handlers{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(requestLogging(logger))

	r.Get("/healthz", h.health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(bearerAuth(jwtSecret))
		r.With(chiMiddleware.AllowContentType("application/json")).Post("/sync", h.sync)
		r.With(chiMiddleware.AllowContentType("application/json")).Post("/tracked-accounts", h.track)
		r.Get("/runs/{id}", h.getRun)
	})

	return r
}
