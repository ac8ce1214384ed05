package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/lbsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lbsync/internal/httpserver/handlers"
)

func init() {
	Register(Operator, func(r chi.Router, d deps.Deps) { r.Post("/reconcile", handlers.Reconcile(d)) })
}
