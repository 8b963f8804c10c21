// ABOUTME: Cooperative lifecycle management for agent worker goroutines.
// ABOUTME: Start/stop/restart with grace-bounded waits; workers are never killed.

package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Handle tracks one worker goroutine. A handle is reused across restarts of
// the same node; each start swaps in a fresh context and done channel.
type Handle struct {
	nodeID string
	label  string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHandle creates an idle handle for the given node.
func NewHandle(nodeID string) *Handle {
	return &Handle{
		nodeID: nodeID,
		label:  "agent-" + nodeID,
	}
}

// NodeID returns the node this handle belongs to.
func (h *Handle) NodeID() string { return h.nodeID }

// Label returns the worker's human-readable name, stable across restarts.
func (h *Handle) Label() string { return h.label }

// Alive reports whether the worker goroutine is still running. Liveness comes
// from the done channel, not a flag: a worker that returned on its own counts
// as dead even though nobody called Stop.
func (h *Handle) Alive() bool {
	h.mu.Lock()
	done := h.done
	h.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Supervisor starts and stops worker goroutines. Stop is cooperative: it
// cancels the worker's context and waits up to a grace period, reporting
// whether the worker exited in time. It never forces termination.
type Supervisor struct {
	logger       *slog.Logger
	grace        time.Duration
	restartPause time.Duration
}

// New creates a supervisor with the given stop grace and restart pause.
func New(logger *slog.Logger, grace, restartPause time.Duration) *Supervisor {
	return &Supervisor{
		logger:       logger.With("component", "supervisor"),
		grace:        grace,
		restartPause: restartPause,
	}
}

// Start launches run in a new goroutine under the handle. If the handle's
// worker is still alive the call is a no-op, preserving at most one worker
// per handle.
func (s *Supervisor) Start(h *Handle, run func(ctx context.Context)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.done != nil {
		select {
		case <-h.done:
			// previous worker finished; fall through and start a fresh one
		default:
			s.logger.Debug("worker already running", "worker", h.label)
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	h.cancel = cancel
	h.done = done

	s.logger.Info("starting worker", "worker", h.label)
	go func() {
		defer close(done)
		run(ctx)
		s.logger.Info("worker exited", "worker", h.label)
	}()
}

// Stop cancels the worker and waits up to grace for it to exit. Returns true
// when the worker exited within the grace period (or was not running), false
// when it is still winding down. A false return is not an error: the worker
// keeps its cancelled context and will exit when it honors it.
func (s *Supervisor) Stop(h *Handle, grace time.Duration) bool {
	h.mu.Lock()
	cancel := h.cancel
	done := h.done
	h.mu.Unlock()

	if done == nil {
		return true
	}
	if cancel != nil {
		cancel()
	}

	if grace <= 0 {
		grace = s.grace
	}
	select {
	case <-done:
		return true
	case <-time.After(grace):
		s.logger.Warn("worker did not stop within grace", "worker", h.label, "grace", grace)
		return false
	}
}

// Restart stops the worker, pauses briefly so in-flight teardown can settle,
// then starts a fresh one. Returns the result of the stop phase.
func (s *Supervisor) Restart(h *Handle, run func(ctx context.Context)) bool {
	graceful := s.Stop(h, s.grace)
	if s.restartPause > 0 {
		time.Sleep(s.restartPause)
	}
	s.Start(h, run)
	return graceful
}
