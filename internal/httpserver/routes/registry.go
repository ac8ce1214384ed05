package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/lbsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lbsync/internal/httpserver/mw"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

// Access selects the guards a route sits behind.
type Access int

const (
	// Public routes answer anyone (liveness).
	Public Access = iota
	// Internal routes are restricted to the CIDR allow-list (readiness checks, scrapers).
	Internal
	// Operator routes also enforce the Host allow-list.
	Operator
)

type entry struct {
	access Access
	reg    Registrar
}

var registry []entry

// Register adds a registrar behind the guards of access.
func Register(access Access, reg Registrar) {
	registry = append(registry, entry{access: access, reg: reg})
}

// RegisterAll mounts every registered route. Called once from NewRouter.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		guards := guardsFor(e.access, d)
		if len(guards) == 0 {
			e.reg(r, d)
			continue
		}
		e.reg(r.With(guards...), d)
	}
}

func guardsFor(access Access, d deps.Deps) []Middleware {
	switch access {
	case Internal:
		return []Middleware{mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)}
	case Operator:
		return []Middleware{
			mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
			mw.EnforceHost(d.AllowedHosts, d.Logger),
		}
	default:
		return nil
	}
}
