package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/lbsync/internal/domain"
	"github.com/MrSnakeDoc/lbsync/internal/httpserver/deps"
)

type lastPass struct {
	Trigger        string         `json:"trigger"`
	Outcome        domain.Outcome `json:"outcome"`
	StartedAt      time.Time      `json:"started_at"`
	LoadBalancerID string         `json:"load_balancer_id,omitempty"`
	Error          string         `json:"error,omitempty"`
}

type healthzResponse struct {
	Status        string    `json:"status"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Version       string    `json:"version,omitempty"`
	Commit        string    `json:"commit,omitempty"`
	LastPass      *lastPass `json:"last_pass,omitempty"`
	LastSuccessAt string    `json:"last_success_at,omitempty"`
	Passes        int       `json:"passes"`
}

// Healthz answers 200 as long as the process serves HTTP. A failed pass does
// not make lbsync unhealthy; it is reported in last_pass for operators.
func Healthz(d deps.Deps) http.HandlerFunc {
	start := d.StartTime
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthzResponse{
			Status:        "ok",
			Version:       d.Version,
			Commit:        d.Commit,
			UptimeSeconds: time.Since(start).Seconds(),
		}
		if d.Status != nil {
			if last, ok := d.Status.Last(); ok {
				resp.LastPass = &lastPass{
					Trigger:        last.Trigger,
					Outcome:        last.Outcome,
					StartedAt:      last.StartedAt,
					LoadBalancerID: last.LoadBalancerID,
					Error:          last.Error,
				}
			}
			if success, ok := d.Status.LastSuccess(); ok {
				resp.LastSuccessAt = success.StartedAt.UTC().Format(time.RFC3339)
			}
			resp.Passes = d.Status.Count(domain.OutcomeDone) + d.Status.Count(domain.OutcomeFailed)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
