// Package server provides the HTTP ops server of the gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Kone-AI/Kone-sub000/pkg/config"
	"github.com/Kone-AI/Kone-sub000/pkg/healthstore"
	"github.com/Kone-AI/Kone-sub000/pkg/modelhealth"
	"github.com/Kone-AI/Kone-sub000/pkg/providerfactory"
	"github.com/Kone-AI/Kone-sub000/pkg/telemetry/health"
)

// ModelStatuser exposes the health checker state.
type ModelStatuser interface {
	GetStatus() []modelhealth.Record
	Get(modelID string) (modelhealth.Record, bool)
	NextRun() time.Time
	Running() bool
}

// ProviderStatuser exposes the provider manager state.
type ProviderStatuser interface {
	Status(ctx context.Context) []providerfactory.ProviderStatus
	ResetProvider(name string) error
}

// HistoryReader reads persisted health history.
type HistoryReader interface {
	History(ctx context.Context, modelID string, limit int) ([]healthstore.HistoryEntry, error)
}

// Dependencies are the components served by the ops server. Nil
// components leave their routes unmounted, except Health which is required.
type Dependencies struct {
	Health      *health.Checker
	Metrics     http.Handler
	MetricsPath string
	Models      ModelStatuser
	Providers   ProviderStatuser
	History     HistoryReader

	Version   string
	Commit    string
	BuildTime string
}

// Server is the HTTP ops server.
type Server struct {
	config       config.GatewayConfig
	deps         Dependencies
	logger       *slog.Logger
	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new ops server.
func NewServer(cfg config.GatewayConfig, deps Dependencies, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Health == nil {
		deps.Health = health.New(0)
	}
	if deps.MetricsPath == "" {
		deps.MetricsPath = config.DefaultMetricsPath
	}
	return &Server{
		config: cfg,
		deps:   deps,
		logger: logger.With("component", "server"),
	}
}

// Start listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting ops server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running := s.isRunning
		s.mu.RUnlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx := ctx
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("ops server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound listen address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.ListenAddress
}
