// ABOUTME: Agent worker body: wait for a valid config, resolve providers,
// ABOUTME: open the media session, and serve until cancelled.

package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/voxhive/voxhive/internal/config"
	"github.com/voxhive/voxhive/internal/media"
	"github.com/voxhive/voxhive/internal/provider"
)

// Options configures one worker run.
type Options struct {
	NodeID    string
	Lookup    func() (config.NodeConfig, bool)
	Providers *provider.Registry
	Logger    *slog.Logger

	// Backoff is the wait between config validation attempts.
	Backoff   time.Duration
	TokenTTL  time.Duration
	Keepalive time.Duration
}

// Run is the lifecycle of one agent worker. It blocks until the context is
// cancelled or the worker hits a fatal condition:
//
//  1. wait for a valid node config, re-reading the store every backoff tick
//  2. resolve the STT/LLM/TTS adapters from the provider registry
//  3. connect the media session; a connect failure is fatal
//  4. serve until cancellation or link loss
//
// Run never panics its goroutine; every exit path logs why.
func Run(ctx context.Context, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("worker", "agent-"+opts.NodeID, "node_id", opts.NodeID)

	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = config.DefaultConfigBackoff
	}

	cfg, ok := awaitValidConfig(ctx, opts.Lookup, backoff, logger)
	if !ok {
		logger.Info("worker cancelled while waiting for config")
		return
	}

	stt := opts.Providers.Resolve(provider.STT, cfg.STT.Provider, cfg.STT.APIKey)
	llm := opts.Providers.Resolve(provider.LLM, cfg.LLM.Provider, cfg.LLM.APIKey)
	tts := opts.Providers.Resolve(provider.TTS, cfg.TTS.Provider, cfg.TTS.APIKey)

	sess, err := media.NewSession(media.SessionOptions{
		NodeID:    opts.NodeID,
		Media:     cfg.Media,
		TokenTTL:  opts.TokenTTL,
		Keepalive: opts.Keepalive,
		Logger:    logger,
		STT:       stt,
		LLM:       llm,
		TTS:       tts,
	})
	if err != nil {
		logger.Error("media session setup failed", "error", err)
		return
	}

	if err := sess.Connect(ctx); err != nil {
		logger.Error("media connect failed, worker exiting", "error", err)
		return
	}

	if err := sess.Serve(ctx); err != nil {
		logger.Error("media session ended", "error", err)
		return
	}
	logger.Info("worker stopped")
}

// awaitValidConfig polls the lookup until it yields a complete config. The
// store is re-read on every tick, so a config set after the worker started
// is picked up without a restart.
func awaitValidConfig(ctx context.Context, lookup func() (config.NodeConfig, bool), backoff time.Duration, logger *slog.Logger) (config.NodeConfig, bool) {
	for {
		if cfg, ok := lookup(); ok {
			cfg.ApplyDefaults()
			if cfg.Valid() {
				return cfg, true
			}
			logger.Info("stored config incomplete, waiting", "backoff", backoff)
		} else {
			logger.Info("no config yet, waiting", "backoff", backoff)
		}

		select {
		case <-ctx.Done():
			return config.NodeConfig{}, false
		case <-time.After(backoff):
		}
	}
}
