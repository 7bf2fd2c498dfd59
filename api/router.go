// Package api wires the HTTP routes to their handlers.
package api

import (
	"net/http"

	"github.com/Panchalparth471/Peppo-AI-Backend/api/handlers"
)

// Handlers holds the route handlers mounted by NewRouter.
type Handlers struct {
	Video   *handlers.VideoHandler
	Session *handlers.SessionHandler
	Health  *handlers.HealthHandler
}

// NewRouter builds the service mux.
func NewRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/session", h.Session.HandleCreate)
	mux.HandleFunc("GET /api/session-history/{id}", h.Session.HandleHistory)
	mux.HandleFunc("POST /api/generate-video", h.Video.HandleGenerate)
	mux.HandleFunc("GET /api/list-videos", h.Video.HandleList)
	mux.HandleFunc("GET /api/health", h.Health.HandleHealth)
	mux.HandleFunc("GET /{$}", handlers.HandleRoot)

	return mux
}
