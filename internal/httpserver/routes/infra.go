package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/lbsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lbsync/internal/httpserver/handlers"
)

func init() {
	Register(Operator, registerInfra)
	Register(Internal, func(r chi.Router, d deps.Deps) { r.Method("GET", "/metrics", handlers.Metrics(d)) })
}

// /infra pings Redis; the timeout bounds a stuck connection.
func registerInfra(r chi.Router, d deps.Deps) {
	r.With(middleware.Timeout(5*time.Second)).Get("/infra", handlers.Infra(d))
}
