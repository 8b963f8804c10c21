// ABOUTME: Media session owned by one agent worker.
// ABOUTME: Connects to the platform, then holds the link with a keepalive loop.

package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/voxhive/voxhive/internal/config"
	"github.com/voxhive/voxhive/internal/provider"
)

// Session errors
var (
	ErrConnectFailed = errors.New("media connect failed")
	ErrLinkLost      = errors.New("media link lost")
)

// maxKeepaliveFailures is how many consecutive probe failures the session
// tolerates before declaring the link lost.
const maxKeepaliveFailures = 3

// Session is one worker's connection to the media platform, carrying the
// resolved provider adapters for the assistant pipeline.
type Session struct {
	nodeID    string
	client    *RoomClient
	keepalive time.Duration
	logger    *slog.Logger

	stt provider.Adapter
	llm provider.Adapter
	tts provider.Adapter
}

// SessionOptions configures NewSession. STT, LLM and TTS may be nil when the
// catalog disabled a provider; the session runs without that capability.
type SessionOptions struct {
	NodeID    string
	Media     config.MediaSettings
	TokenTTL  time.Duration
	Keepalive time.Duration
	Logger    *slog.Logger
	STT       provider.Adapter
	LLM       provider.Adapter
	TTS       provider.Adapter
}

// NewSession validates the media settings and prepares a session. It does not
// touch the network; call Connect for that.
func NewSession(opts SessionOptions) (*Session, error) {
	client, err := NewRoomClient(opts.Media, opts.TokenTTL)
	if err != nil {
		return nil, err
	}
	keepalive := opts.Keepalive
	if keepalive <= 0 {
		keepalive = config.DefaultKeepalive
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		nodeID:    opts.NodeID,
		client:    client,
		keepalive: keepalive,
		logger:    logger.With("component", "media-session", "node_id", opts.NodeID),
		stt:       opts.STT,
		llm:       opts.LLM,
		tts:       opts.TTS,
	}, nil
}

// Connect performs an authenticated reachability check against the media
// server. A failure here is fatal to the worker: the credentials or the
// server are wrong and retrying the same config will not help.
func (s *Session) Connect(ctx context.Context) error {
	rooms, err := s.client.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	s.logger.Info("media session connected",
		"rooms", len(rooms),
		"stt", providerName(s.stt),
		"llm", providerName(s.llm),
		"tts", providerName(s.tts))
	return nil
}

// Serve holds the session open until the context is cancelled, probing the
// server every keepalive interval. Returns nil on cancellation and ErrLinkLost
// after repeated probe failures.
func (s *Session) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.keepalive)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("media session closing")
			return nil
		case <-ticker.C:
			if _, err := s.client.ListRooms(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				failures++
				s.logger.Warn("keepalive probe failed", "error", err, "failures", failures)
				if failures >= maxKeepaliveFailures {
					return fmt.Errorf("%w after %d probes", ErrLinkLost, failures)
				}
				continue
			}
			failures = 0
		}
	}
}

func providerName(a provider.Adapter) string {
	if a == nil {
		return "none"
	}
	return a.Provider()
}
