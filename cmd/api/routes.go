package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	importhandler "github.com/jpcornejo/finanzas-tracker/internal/domain/import/handler"
)

func newRouter(deps *Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(importhandler.RequestLogger(deps.Logger))
	r.Use(importhandler.RateLimit(
		float64(deps.Config.Server.RateLimitPerSecond),
		deps.Config.Server.RateLimitBurst,
		deps.Logger,
	))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(importhandler.UserIdentity(deps.Logger))
		r.Mount("/import", deps.ImportHandler.Routes())
	})

	return r
}
