package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("peppo", zap.NewNop())

	c.RecordGeneration(OutcomeSuccess, 3*time.Second)
	c.RecordGeneration(OutcomeFallback, 0)
	c.RecordCacheHit("prompt")
	c.RecordCacheMiss("prompt")
	c.RecordExtractionHit("direct_url")
	c.RecordFallback()
	c.RecordHTTPRequest("POST", "/api/generate-video", 200, 50*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.generationTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.generationTotal.WithLabelValues(OutcomeFallback)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.cacheHits.WithLabelValues("prompt")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.cacheMisses.WithLabelValues("prompt")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.extractionHits.WithLabelValues("direct_url")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.fallbacksServed))
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordGeneration(OutcomeError, 0)
		c.RecordCacheHit("prompt")
		c.RecordCacheMiss("prompt")
		c.RecordExtractionHit("byte_reader")
		c.RecordFallback()
		c.RecordHTTPRequest("GET", "/api/health", 200, time.Millisecond)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("peppo", zap.NewNop())
	c.RecordFallback()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "peppo_fallbacks_served_total 1")
}

func TestCollector_IndependentRegistries(t *testing.T) {
	// Two collectors must not collide on registration.
	assert.NotPanics(t, func() {
		_ = NewCollector("peppo", zap.NewNop())
		_ = NewCollector("peppo", zap.NewNop())
	})
}
