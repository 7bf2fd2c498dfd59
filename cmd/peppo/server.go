package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Panchalparth471/Peppo-AI-Backend/api"
	"github.com/Panchalparth471/Peppo-AI-Backend/api/handlers"
	"github.com/Panchalparth471/Peppo-AI-Backend/artifacts"
	"github.com/Panchalparth471/Peppo-AI-Backend/cache"
	"github.com/Panchalparth471/Peppo-AI-Backend/config"
	"github.com/Panchalparth471/Peppo-AI-Backend/extract"
	"github.com/Panchalparth471/Peppo-AI-Backend/generation"
	"github.com/Panchalparth471/Peppo-AI-Backend/internal/metrics"
	"github.com/Panchalparth471/Peppo-AI-Backend/internal/server"
	"github.com/Panchalparth471/Peppo-AI-Backend/orchestrator"
	"github.com/Panchalparth471/Peppo-AI-Backend/session"
)

// Server assembles the generation pipeline behind the HTTP surface.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	collector *metrics.Collector
	sessions  *session.Store
	store     *artifacts.Store
	index     cache.Index
	backend   generation.Backend
	orch      *orchestrator.Orchestrator

	rateLimiterCancel context.CancelFunc
}

// NewServer creates an unstarted server for the given configuration.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Start bootstraps storage, wires the pipeline, and brings up the HTTP and
// metrics listeners.
func (s *Server) Start() error {
	if err := s.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to prepare storage directories: %w", err)
	}

	s.collector = metrics.NewCollector("peppo", s.logger)

	if err := s.initPipeline(); err != nil {
		return fmt.Errorf("failed to init pipeline: %w", err)
	}
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("backend_available", s.backend.IsAvailable()),
	)
	return nil
}

func (s *Server) initPipeline() error {
	s.store = artifacts.NewStore(s.cfg.Storage.VideoDir, s.cfg.Storage.SampleAsset, s.logger)
	s.sessions = session.NewStore(s.cfg.Storage.SessionsDir, s.logger)

	index, err := s.buildCacheIndex()
	if err != nil {
		return err
	}
	s.index = index

	s.backend = generation.NewReplicateClient(s.cfg.Replicate, s.cfg.Generation, s.logger)
	if !s.backend.IsAvailable() {
		s.logger.Warn("generation backend not configured, all requests will serve the placeholder clip")
	}

	dl := extract.NewDownloader(s.store, s.cfg.Generation.DownloadTimeout, s.logger)
	extractor := extract.New(s.store, dl, s.logger)
	s.orch = orchestrator.New(s.sessions, s.index, s.store, s.backend, extractor, s.collector, s.logger)
	return nil
}

// buildCacheIndex selects the prompt cache backend. The file index is the
// default; redis is opt-in for deployments with shared state.
func (s *Server) buildCacheIndex() (cache.Index, error) {
	switch s.cfg.Cache.Backend {
	case "", "file":
		return cache.NewFileIndex(s.cfg.Storage.CacheFile, s.logger), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     s.cfg.Cache.RedisAddr,
			Password: s.cfg.Cache.RedisPassword,
			DB:       s.cfg.Cache.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis cache backend unreachable at %s: %w", s.cfg.Cache.RedisAddr, err)
		}
		return cache.NewRedisIndex(client, s.logger), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", s.cfg.Cache.Backend)
	}
}

func (s *Server) startHTTPServer() error {
	healthHandler := handlers.NewHealthHandler(Version, s.logger)
	healthHandler.RegisterCheck(sampleAssetCheck{path: s.cfg.Storage.SampleAsset})
	healthHandler.RegisterCheck(backendCheck{backend: s.backend})

	mux := api.NewRouter(api.Handlers{
		Video:   handlers.NewVideoHandler(s.orch, s.store, s.logger),
		Session: handlers.NewSessionHandler(s.sessions, s.logger),
		Health:  healthHandler,
	})

	limiterCtx, cancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = cancel

	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		CORS([]string{"*"}),
		RateLimiter(limiterCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)

	serverCfg := server.DefaultConfig()
	serverCfg.Addr = fmt.Sprintf(":%d", s.cfg.Server.HTTPPort)
	serverCfg.ReadTimeout = s.cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = s.cfg.Server.WriteTimeout
	serverCfg.ShutdownTimeout = s.cfg.Server.ShutdownTimeout

	s.httpManager = server.NewManager(handler, serverCfg, s.logger)
	return s.httpManager.Start()
}

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.collector.Handler())

	serverCfg := server.DefaultConfig()
	serverCfg.Addr = fmt.Sprintf(":%d", s.cfg.Server.MetricsPort)

	s.metricsManager = server.NewManager(mux, serverCfg, s.logger.With(zap.String("server", "metrics")))
	return s.metricsManager.Start()
}

// WaitForShutdown blocks until a signal or serve failure, then stops both
// listeners.
func (s *Server) WaitForShutdown() {
	s.httpManager.WaitForShutdown()

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(context.Background()); err != nil {
			s.logger.Error("metrics server shutdown failed", zap.Error(err))
		}
	}
}

// sampleAssetCheck verifies the placeholder clip exists; without it the
// degraded path cannot serve anything.
type sampleAssetCheck struct {
	path string
}

func (c sampleAssetCheck) Name() string { return "sample_asset" }

func (c sampleAssetCheck) Check(ctx context.Context) error {
	if _, err := os.Stat(c.path); err != nil {
		return fmt.Errorf("placeholder asset missing: %w", err)
	}
	return nil
}

// backendCheck reports whether the generation backend is configured.
type backendCheck struct {
	backend generation.Backend
}

func (c backendCheck) Name() string { return "generation_backend" }

func (c backendCheck) Check(ctx context.Context) error {
	if !c.backend.IsAvailable() {
		return fmt.Errorf("backend credentials or model not configured")
	}
	return nil
}
