package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/lbsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lbsync/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/lbsync/internal/httpserver/mw"
)

func init() { Register(Operator, registerEvents) }

func registerEvents(r chi.Router, d deps.Deps) {
	r.With(mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.EventsBurst,
		RefillPerIPPerMin: d.EventsPerMin,
		MaxEntries:        4096,
		TrustProxy:        d.TrustProxy,
	}, d.Logger)).Post("/events", handlers.Events(d))
}
