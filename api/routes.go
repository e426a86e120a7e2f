// Package api assembles the HTTP routing table.
package api

import (
	"net/http"

	"github.com/motorline/assistcache/api/handlers"
)

// NewMux builds the routing table. The metrics handler is optional.
func NewMux(ask *handlers.AskHandler, feedback *handlers.FeedbackHandler, health *handlers.HealthHandler, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /ask", ask.HandleAsk)
	mux.HandleFunc("POST /feedback", feedback.HandleFeedback)
	mux.HandleFunc("GET /healthz", health.HandleHealthz)
	mux.HandleFunc("GET /readyz", health.HandleReady)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	return mux
}
