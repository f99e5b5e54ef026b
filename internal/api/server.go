package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/wonny/carteira/pkg/logger"
)

// ServerConfig holds HTTP server timeouts
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // 랭킹 최초 계산은 스크래핑 포함
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns the server defaults for a port
func DefaultServerConfig(port string) ServerConfig {
	return ServerConfig{
		Addr:            ":" + port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    120 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server represents the HTTP API server
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	logger     *logger.Logger
}

// NewServer creates a new API server
func NewServer(config ServerConfig, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		config: config,
		httpServer: &http.Server{
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: log.Component("api"),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
// ready, if non-nil, receives the bound address once listening.
func (s *Server) Run(ctx context.Context, ready chan<- string) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}
	addr := ln.Addr().String()
	s.logger.WithField("addr", addr).Info("API server listening")
	if ready != nil {
		ready <- addr
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
