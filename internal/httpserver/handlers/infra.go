package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/lbsync/internal/domain"
	"github.com/MrSnakeDoc/lbsync/internal/httpserver/deps"
)

const redisCheckTimeout = 2 * time.Second

type componentStatus struct {
	OK       bool             `json:"ok"`
	Mode     string           `json:"mode,omitempty"`
	Impact   string           `json:"impact,omitempty"`
	Error    string           `json:"error,omitempty"`
	Since    string           `json:"since,omitempty"`
	Last     *domain.Report   `json:"last,omitempty"`
	Success  *domain.Report   `json:"last_success,omitempty"`
	Outcomes map[string]int64 `json:"outcomes,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the state of the reconciler, the event stream and Redis.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"reconciler": checkReconciler(d),
			"events":     checkEvents(d),
			"redis":      checkRedis(r.Context(), d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if rec, ok := components["reconciler"]; ok && !rec.OK {
		return "critical" // last pass failed, the load balancer may be stale
	}
	for _, name := range []string{"events", "redis"} {
		if c, ok := components[name]; ok && !c.OK {
			return "degraded"
		}
	}
	return "ok"
}

func checkReconciler(d deps.Deps) componentStatus {
	cs := componentStatus{OK: true, Outcomes: map[string]int64{}}
	for _, o := range []domain.Outcome{domain.OutcomeDone, domain.OutcomeFailed} {
		cs.Outcomes[string(o)] = int64(d.Status.Count(o))
	}
	if last, ok := d.Status.Last(); ok {
		cs.Last = &last
		cs.OK = last.Outcome == domain.OutcomeDone
		cs.Error = last.Error
	} else {
		cs.Mode = "idle"
	}
	if success, ok := d.Status.LastSuccess(); ok {
		cs.Success = &success
	}
	return cs
}

func checkEvents(d deps.Deps) componentStatus {
	up, since := d.Status.Subscribed()
	if !up {
		return componentStatus{
			OK:     false,
			Mode:   "disconnected",
			Impact: "changes-applied-on-resync-only",
		}
	}
	return componentStatus{
		OK:    true,
		Mode:  "subscribed",
		Since: since.Format(time.RFC3339),
	}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{
			OK:     true,
			Mode:   "disabled",
			Impact: "single-replica-lock",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, redisCheckTimeout)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "passes-blocked-on-lock",
			Error:  err.Error(),
		}
	}

	cs := componentStatus{OK: true, Mode: "optimal"}
	if last, err := d.Store.LastReport(ctx); err == nil && last != nil {
		cs.Last = last
	}
	if stats, err := d.Store.OutcomeStats(ctx); err == nil {
		cs.Outcomes = stats
	}
	return cs
}
