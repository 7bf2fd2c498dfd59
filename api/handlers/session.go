package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Panchalparth471/Peppo-AI-Backend/session"
)

// SessionHandler exposes session creation and history lookup.
type SessionHandler struct {
	sessions *session.Store
	logger   *zap.Logger
}

// NewSessionHandler creates a session handler over the given store.
func NewSessionHandler(sessions *session.Store, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger.With(zap.String("component", "session_handler")),
	}
}

// HandleCreate allocates a fresh session and returns its id.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessions.Create()
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	h.logger.Info("session created", zap.String("session_id", id))
	WriteSuccess(w, map[string]string{"session_id": id})
}

// HandleHistory returns the full message history of one session.
func (h *SessionHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := h.sessions.Load(id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, sess)
}
