package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Panchalparth471/Peppo-AI-Backend/artifacts"
	"github.com/Panchalparth471/Peppo-AI-Backend/orchestrator"
	"github.com/Panchalparth471/Peppo-AI-Backend/types"
)

// GenerateRequest is the generation endpoint's JSON body.
type GenerateRequest struct {
	Prompt    string         `json:"prompt"`
	SessionID string         `json:"session_id,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

// VideoHandler serves generation and artifact listing.
type VideoHandler struct {
	orch   *orchestrator.Orchestrator
	store  *artifacts.Store
	logger *zap.Logger
}

// NewVideoHandler creates a video handler over the pipeline.
func NewVideoHandler(orch *orchestrator.Orchestrator, store *artifacts.Store, logger *zap.Logger) *VideoHandler {
	return &VideoHandler{
		orch:   orch,
		store:  store,
		logger: logger.With(zap.String("component", "video_handler")),
	}
}

// HandleGenerate runs one generation request and streams the resulting
// clip back. Session id, mock flag, and (for a real success) elapsed
// generation time travel in response headers.
func (h *VideoHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "malformed request body").WithCause(err), h.logger)
		return
	}

	res, err := h.orch.Generate(r.Context(), orchestrator.Request{
		Prompt:    req.Prompt,
		SessionID: req.SessionID,
		Options:   req.Options,
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	f, err := os.Open(res.Path)
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "artifact vanished before serving").WithCause(err), h.logger)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "failed to stat artifact").WithCause(err), h.logger)
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(res.Path))
	w.Header().Set("X-Session-Id", res.SessionID)
	w.Header().Set("X-Video-Mock", strconv.FormatBool(res.Mock))
	if !res.Mock && res.GenerationSeconds > 0 {
		w.Header().Set("X-Generation-Time", strconv.FormatFloat(res.GenerationSeconds, 'f', 2, 64))
	}
	http.ServeContent(w, r, filepath.Base(res.Path), info.ModTime(), f)
}

// HandleList returns the names of all stored video artifacts.
func (h *VideoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.List()
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "failed to list artifacts").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, map[string]any{"videos": names, "count": len(names)})
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".webm":
		return "video/webm"
	case ".gif":
		return "image/gif"
	default:
		return "video/mp4"
	}
}
