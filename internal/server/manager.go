// Package server manages HTTP listener lifecycle: non-blocking start,
// graceful shutdown, and signal-driven wait.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Config holds listener settings.
type Config struct {
	Addr            string        `yaml:"addr" json:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" json:"max_header_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig returns the default listener settings. WriteTimeout is
// generous because a generation request can hold the connection for the
// full backend call.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8000",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    15 * time.Minute,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Manager wraps one http.Server with start/stop lifecycle control.
type Manager struct {
	server   *http.Server
	listener net.Listener
	errCh    chan error
	config   Config
	logger   *zap.Logger
	mu       sync.RWMutex
	closed   bool
}

// NewManager creates a server manager for the given handler.
func NewManager(handler http.Handler, config Config, logger *zap.Logger) *Manager {
	server := &http.Server{
		Addr:           config.Addr,
		Handler:        handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return &Manager{
		server: server,
		errCh:  make(chan error, 1),
		config: config,
		logger: logger.With(zap.String("component", "http_server")),
	}
}

// Start binds the listener and serves in the background.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("server is closed")
	}
	if m.listener != nil {
		return fmt.Errorf("server already started")
	}

	listener, err := net.Listen("tcp", m.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.config.Addr, err)
	}

	m.listener = listener
	m.logger.Info("starting HTTP server", zap.String("addr", listener.Addr().String()))

	go m.serve(listener)

	return nil
}

func (m *Manager) serve(listener net.Listener) {
	if err := m.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		m.logger.Error("HTTP server failed", zap.Error(err))
		select {
		case m.errCh <- err:
		default:
		}
	}
}

// Shutdown drains in-flight requests within the configured timeout.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, m.config.ShutdownTimeout)
	defer cancel()

	if err := m.server.Shutdown(shutdownCtx); err != nil {
		m.logger.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}

	m.listener = nil
	m.logger.Info("HTTP server stopped")
	return nil
}

// WaitForShutdown blocks until SIGINT/SIGTERM or a serve failure, then
// shuts the server down.
func (m *Manager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		m.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-m.errCh:
		if err != nil {
			m.logger.Error("server exited unexpectedly", zap.Error(err))
		}
	}

	if err := m.Shutdown(context.Background()); err != nil {
		m.logger.Error("shutdown error", zap.Error(err))
	}
}

// Errors returns asynchronous serve failures.
func (m *Manager) Errors() <-chan error {
	return m.errCh
}

// Addr returns the bound listener address, or the configured address when
// not started.
func (m *Manager) Addr() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listener != nil {
		return m.listener.Addr().String()
	}
	return m.config.Addr
}

// IsRunning reports whether the server has not been shut down.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.closed
}
