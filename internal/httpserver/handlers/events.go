package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/lbsync/internal/events"
	"github.com/MrSnakeDoc/lbsync/internal/httpserver/deps"
)

const maxEventBytes = 1 << 20

// Events takes one platform event payload and handles it before answering:
// 200 when ignored or applied, 400 when malformed, 502 when the pass failed.
// A client hanging up does not abort a pass that already started.
func Events(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
		if err != nil {
			http.Error(w, "payload too large or unreadable", http.StatusRequestEntityTooLarge)
			return
		}

		report, err := events.Dispatch(context.WithoutCancel(r.Context()), d.Events, body, events.SourceWebhook, d.Metrics, d.Logger)
		switch {
		case errors.Is(err, events.ErrMalformedEvent):
			writeJSON(w, http.StatusBadRequest, report)
		case err != nil:
			writeJSON(w, http.StatusBadGateway, report)
		default:
			writeJSON(w, http.StatusOK, report)
		}
	}
}
