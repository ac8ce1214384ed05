package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/lbsync/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready      bool `json:"ready"`
	Subscribed bool `json:"subscribed"`
	Reconciled bool `json:"reconciled"`
}

// Readyz reports ready once the event subscription is up or a pass succeeded.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subscribed, _ := d.Status.Subscribed()
		_, reconciled := d.Status.LastSuccess()
		resp := readyzResponse{
			Ready:      d.Status.Ready(),
			Subscribed: subscribed,
			Reconciled: reconciled,
		}

		code := http.StatusOK
		if !resp.Ready {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}
