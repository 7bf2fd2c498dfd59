// Package orchestrator drives the end-to-end lifecycle of one generation
// request: session resolution, brief composition, cache lookup, backend
// invocation, artifact extraction, and degradation to the placeholder clip.
package orchestrator

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Panchalparth471/Peppo-AI-Backend/artifacts"
	"github.com/Panchalparth471/Peppo-AI-Backend/brief"
	"github.com/Panchalparth471/Peppo-AI-Backend/cache"
	"github.com/Panchalparth471/Peppo-AI-Backend/extract"
	"github.com/Panchalparth471/Peppo-AI-Backend/generation"
	"github.com/Panchalparth471/Peppo-AI-Backend/internal/metrics"
	"github.com/Panchalparth471/Peppo-AI-Backend/session"
	"github.com/Panchalparth471/Peppo-AI-Backend/types"
)

// Request is one parsed generation request.
type Request struct {
	Prompt    string
	SessionID string
	Options   map[string]any
}

// Result describes the artifact served for one request. GenerationSeconds
// is set only for a real backend success.
type Result struct {
	Path              string
	SessionID         string
	Mock              bool
	CacheHit          bool
	GenerationSeconds float64
}

// Orchestrator coordinates the generation pipeline. Each call to Generate
// is independent; callers may invoke it concurrently for distinct requests.
type Orchestrator struct {
	sessions  *session.Store
	index     cache.Index
	store     *artifacts.Store
	backend   generation.Backend
	extractor *extract.Extractor
	collector *metrics.Collector
	logger    *zap.Logger
}

// New wires the pipeline components together.
func New(
	sessions *session.Store,
	index cache.Index,
	store *artifacts.Store,
	backend generation.Backend,
	extractor *extract.Extractor,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Orchestrator {
	extractor.OnStrategyHit = collector.RecordExtractionHit
	return &Orchestrator{
		sessions:  sessions,
		index:     index,
		store:     store,
		backend:   backend,
		extractor: extractor,
		collector: collector,
		logger:    logger.With(zap.String("component", "orchestrator")),
	}
}

// Generate runs one request through the pipeline. Every request that
// resolves a session appends exactly one user and one assistant message,
// whichever path it takes.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "prompt is required")
	}

	sessionID, err := o.resolveSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	sess, err := o.sessions.Load(sessionID)
	if err != nil {
		return nil, err
	}
	briefText, ack := brief.Compose(sess.Messages, prompt)

	if err := o.sessions.Append(sessionID, types.RoleUser, prompt, nil); err != nil {
		return nil, err
	}

	key := cache.Normalize(prompt)
	if path, ok := o.index.Get(ctx, key); ok {
		o.collector.RecordCacheHit("prompt")
		o.collector.RecordGeneration(metrics.OutcomeCacheHit, 0)
		o.logger.Info("serving cached artifact",
			zap.String("session_id", sessionID),
			zap.String("path", path))

		if err := o.appendAck(sessionID, ack, map[string]any{
			"video":  filepath.Base(path),
			"mock":   false,
			"cached": true,
		}); err != nil {
			return nil, err
		}
		return &Result{Path: path, SessionID: sessionID, CacheHit: true}, nil
	}
	o.collector.RecordCacheMiss("prompt")

	if !o.backend.IsAvailable() {
		o.logger.Warn("generation backend unavailable, degrading",
			zap.String("session_id", sessionID))
		cause := types.NewError(types.ErrBackendUnavailable, "generation backend is not configured")
		return o.degrade(sessionID, ack, cause)
	}

	start := time.Now()
	raw, err := o.backend.Invoke(ctx, briefText, req.Options)
	if err != nil {
		o.logger.Error("backend invocation failed",
			zap.String("session_id", sessionID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return o.degrade(sessionID, ack, err)
	}
	elapsed := time.Since(start)

	paths, err := o.extractor.ExtractAll(ctx, raw)
	if err != nil {
		o.logger.Error("no artifact extracted from backend output",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return o.degrade(sessionID, ack, err)
	}

	// Only the first artifact is served; the rest stay on disk.
	artifact := paths[0]
	if err := o.index.Put(ctx, key, artifact); err != nil {
		o.logger.Warn("failed to persist cache entry", zap.Error(err))
	}

	o.collector.RecordGeneration(metrics.OutcomeSuccess, elapsed)
	o.logger.Info("generation succeeded",
		zap.String("session_id", sessionID),
		zap.String("path", artifact),
		zap.Duration("elapsed", elapsed))

	if err := o.appendAck(sessionID, ack, map[string]any{
		"video":                   filepath.Base(artifact),
		"mock":                    false,
		"generation_time_seconds": elapsed.Seconds(),
	}); err != nil {
		return nil, err
	}
	return &Result{
		Path:              artifact,
		SessionID:         sessionID,
		GenerationSeconds: elapsed.Seconds(),
	}, nil
}

// resolveSession returns the request's session id, creating the session
// record if needed. A fresh session is allocated when no id is supplied.
func (o *Orchestrator) resolveSession(id string) (string, error) {
	if id == "" {
		return o.sessions.Create()
	}
	return o.sessions.CreateWithID(id)
}

// degrade serves the placeholder clip after an availability, call, or
// extraction failure. The session still records the assistant turn, tagged
// mock with the underlying error for audit. A missing placeholder asset is
// surfaced to the caller.
func (o *Orchestrator) degrade(sessionID, ack string, cause error) (*Result, error) {
	path, err := o.store.ServeFallback()
	if err != nil {
		o.collector.RecordGeneration(metrics.OutcomeError, 0)
		if appendErr := o.appendAck(sessionID, ack, map[string]any{
			"mock":  true,
			"error": cause.Error(),
		}); appendErr != nil {
			o.logger.Error("failed to record failed turn", zap.Error(appendErr))
		}
		return nil, err
	}

	o.collector.RecordGeneration(metrics.OutcomeFallback, 0)
	o.collector.RecordFallback()

	meta := map[string]any{
		"video": filepath.Base(path),
		"mock":  true,
		"error": cause.Error(),
	}
	if err := o.appendAck(sessionID, ack, meta); err != nil {
		return nil, err
	}
	return &Result{Path: path, SessionID: sessionID, Mock: true}, nil
}

func (o *Orchestrator) appendAck(sessionID, ack string, meta map[string]any) error {
	return o.sessions.Append(sessionID, types.RoleAssistant, ack, meta)
}
