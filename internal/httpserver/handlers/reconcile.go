package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/lbsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lbsync/internal/logger"
)

type triggerResponse struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

// Reconcile queues a full pass. It answers before the pass runs.
func Reconcile(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.Resync.Trigger() {
			d.Logger.Warn("reconciliation already pending",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, triggerResponse{
				Message: "reconciliation already pending, please wait",
			})
			return
		}

		d.Logger.Info("manual reconciliation triggered via endpoint",
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, triggerResponse{
			Triggered: true,
			Message:   "reconciliation triggered",
		})
	}
}
