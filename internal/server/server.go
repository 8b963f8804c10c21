// ABOUTME: HTTP server lifecycle: TCP or tsnet listeners, graceful shutdown.
// ABOUTME: Shutdown drains HTTP first, then stops every agent worker.

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"tailscale.com/tsnet"

	"github.com/voxhive/voxhive/internal/config"
	"github.com/voxhive/voxhive/internal/registry"
)

const shutdownTimeout = 10 * time.Second

// Server runs the processor API and coordinates shutdown with the registry.
type Server struct {
	cfg      *config.Config
	registry *registry.Registry
	logger   *slog.Logger

	httpServer  *http.Server
	tsnetServer *tsnet.Server
}

// New assembles the server: routes, middleware, and HTTP timeouts.
func New(cfg *config.Config, reg *registry.Registry, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	handlers := NewHandlers(reg, cfg.Token.TTL, logger)
	handlers.Register(mux)

	s := &Server{
		cfg:      cfg,
		registry: reg,
		logger:   logger.With("component", "server"),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled or the listener fails, then
// shuts down: HTTP drains first so in-flight requests finish, workers stop
// after, each within the configured grace.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.setupListener(ctx)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
	case serveErr = <-errCh:
		s.logger.Error("server error", "error", serveErr)
	}

	shutdownErr := s.shutdown()
	if serveErr != nil {
		return serveErr
	}
	return shutdownErr
}

// shutdown uses a fresh context: the run context is already cancelled.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.registry.StopAll(ctx)

	if s.tsnetServer != nil {
		if cerr := s.tsnetServer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing tailscale node: %w", cerr)
		}
	}
	if err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.logger.Info("shutdown complete")
	return nil
}

func (s *Server) setupListener(ctx context.Context) (net.Listener, error) {
	if s.cfg.Tailscale.Enabled {
		return s.setupTailscaleListener(ctx)
	}

	ln, err := net.Listen("tcp", s.cfg.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", s.cfg.Server.HTTPAddr, err)
	}
	return ln, nil
}

// setupTailscaleListener joins the tailnet and listens there instead of on a
// local TCP port, so the processor API is only reachable inside the tailnet.
func (s *Server) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := s.cfg.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey := tsCfg.AuthKey
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return nil, errors.New("tailscale auth key required: set tailscale.auth_key or TS_AUTHKEY")
	}

	s.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	s.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir)
	status, err := s.tsnetServer.Up(ctx)
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	if len(status.TailscaleIPs) > 0 {
		s.logger.Info("tailscale node ready", "tailscale_ip", status.TailscaleIPs[0].String())
	}

	ln, err := s.tsnetServer.Listen("tcp", ":80")
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale port: %w", err)
	}
	return ln, nil
}

func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "voxhive", "tailscale"), nil
}
