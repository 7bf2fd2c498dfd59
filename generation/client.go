// Package generation wraps the external video-generation backend. The
// Replicate client follows the create-then-poll prediction lifecycle and
// returns the raw output without interpreting its shape.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Panchalparth471/Peppo-AI-Backend/config"
	"github.com/Panchalparth471/Peppo-AI-Backend/types"
)

// Backend is the generation capability consumed by the orchestrator.
// Invoke returns the backend's raw output: a URL string, a handle value, a
// list, or a map — the extractor decides what to do with it.
type Backend interface {
	// IsAvailable reports whether the backend can be called at all. It is
	// checked before any network activity and is distinct from a call
	// failure.
	IsAvailable() bool

	// Invoke sends the brief and merged options to the backend and blocks
	// until the prediction reaches a terminal state.
	Invoke(ctx context.Context, brief string, options map[string]any) (any, error)
}

// ReplicateClient calls the Replicate predictions API.
type ReplicateClient struct {
	cfg      config.ReplicateConfig
	defaults map[string]any
	client   *http.Client
	logger   *zap.Logger
}

// NewReplicateClient creates a Replicate-backed generation client.
func NewReplicateClient(cfg config.ReplicateConfig, gen config.GenerationConfig, logger *zap.Logger) *ReplicateClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.replicate.com"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 600 * time.Second
	}

	return &ReplicateClient{
		cfg:      cfg,
		defaults: gen.FastDefaults(),
		// The poll loop owns the overall deadline; individual requests
		// stay short.
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger.With(zap.String("component", "generation_client")),
	}
}

// IsAvailable reports false when the API token or model id is missing.
func (c *ReplicateClient) IsAvailable() bool {
	return c.cfg.APIToken != "" && c.cfg.Model != ""
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"` // starting, processing, succeeded, failed, canceled
	Output json.RawMessage `json:"output,omitempty"`
	Error  any             `json:"error,omitempty"`
}

// Invoke creates a prediction and polls it to a terminal state. The whole
// call is bounded by the configured call timeout. Failures are returned as
// BACKEND_CALL errors with the elapsed time logged.
func (c *ReplicateClient) Invoke(ctx context.Context, brief string, options map[string]any) (any, error) {
	if !c.IsAvailable() {
		return nil, types.NewError(types.ErrBackendUnavailable, "replicate token or model not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	input := MergeOptions(c.defaults, options)
	input["prompt"] = brief

	c.logger.Info("calling replicate",
		zap.String("model", c.cfg.Model),
		zap.String("prompt", truncate(brief, 120)),
		zap.Int("option_count", len(input)))

	start := time.Now()
	pred, err := c.createPrediction(ctx, input)
	if err != nil {
		c.logger.Error("replicate create failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, types.NewError(types.ErrBackendCall, "replicate call failed").WithCause(err).WithRetryable(true)
	}

	pred, err = c.pollPrediction(ctx, pred)
	if err != nil {
		c.logger.Error("replicate prediction failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, types.NewError(types.ErrBackendCall, "replicate call failed").WithCause(err).WithRetryable(true)
	}

	c.logger.Info("replicate run finished", zap.Duration("elapsed", time.Since(start)))

	var output any
	if len(pred.Output) > 0 {
		if err := json.Unmarshal(pred.Output, &output); err != nil {
			return nil, types.NewError(types.ErrBackendCall, "failed to decode replicate output").WithCause(err)
		}
	}
	return output, nil
}

// createPrediction targets the model-scoped endpoint for "owner/model"
// slugs and the version endpoint for "owner/model:version" identifiers.
func (c *ReplicateClient) createPrediction(ctx context.Context, input map[string]any) (*prediction, error) {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	endpoint := fmt.Sprintf("%s/v1/models/%s/predictions", base, c.cfg.Model)
	body := map[string]any{"input": input}

	if _, version, ok := strings.Cut(c.cfg.Model, ":"); ok {
		endpoint = base + "/v1/predictions"
		body["version"] = version
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("replicate error: status=%d body=%s", resp.StatusCode, string(errBody))
	}

	var pred prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, fmt.Errorf("decode replicate response: %w", err)
	}
	return &pred, nil
}

func (c *ReplicateClient) pollPrediction(ctx context.Context, pred *prediction) (*prediction, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		switch pred.Status {
		case "succeeded":
			return pred, nil
		case "failed", "canceled":
			return nil, fmt.Errorf("replicate prediction %s: %v", pred.Status, pred.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		next, err := c.getPrediction(ctx, pred.ID)
		if err != nil {
			// Transient poll errors are retried until the deadline.
			c.logger.Warn("replicate poll failed", zap.String("prediction_id", pred.ID), zap.Error(err))
			continue
		}
		pred = next
	}
}

func (c *ReplicateClient) getPrediction(ctx context.Context, id string) (*prediction, error) {
	endpoint := fmt.Sprintf("%s/v1/predictions/%s", strings.TrimRight(c.cfg.BaseURL, "/"), id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("replicate error: status=%d body=%s", resp.StatusCode, string(errBody))
	}

	var pred prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, fmt.Errorf("decode replicate response: %w", err)
	}
	return &pred, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
