// ABOUTME: Capability registry mapping provider keys to adapter constructors.
// ABOUTME: Resolves STT/LLM/TTS adapters with baseline fallback for unknown keys.

package provider

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/voxhive/voxhive/internal/config"
)

// Capability identifies one of the three pluggable voice-agent backends.
type Capability string

const (
	STT Capability = "stt"
	LLM Capability = "llm"
	TTS Capability = "tts"
)

// Adapter is a constructed capability backend. Internals are owned by the
// provider implementations; the control plane only selects and carries them.
type Adapter interface {
	Provider() string
	Capability() Capability
}

// Factory constructs adapters for the capabilities a provider supports.
// A nil constructor means the provider does not implement that capability.
type Factory struct {
	STT func(apiKey string) Adapter
	LLM func(apiKey string) Adapter
	TTS func(apiKey string) Adapter
}

func (f Factory) constructor(cap Capability) func(string) Adapter {
	switch cap {
	case STT:
		return f.STT
	case LLM:
		return f.LLM
	case TTS:
		return f.TTS
	}
	return nil
}

// Registry resolves provider keys to adapters. It is populated once at
// process start with the providers whose implementations are enabled;
// lookups after that are read-only.
type Registry struct {
	factories map[string]Factory
	logger    *slog.Logger
}

// NewRegistry builds a registry from the builtin provider set, restricted by
// the catalog. The baseline provider is always registered regardless of the
// catalog so that fallback resolution cannot fail.
func NewRegistry(catalog Catalog, logger *slog.Logger) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		logger:    logger,
	}

	for name, factory := range builtins {
		if name != config.BaselineProvider && !catalog.Enabled(name) {
			logger.Warn("provider disabled by catalog", "provider", name)
			continue
		}
		r.factories[name] = factory
	}
	return r
}

// Known reports whether the key names a provider this build ships an
// implementation for, enabled or not.
func Known(name string) bool {
	_, ok := builtins[canonical(name)]
	return ok
}

// Available reports whether the provider is registered and usable.
func (r *Registry) Available(name string) bool {
	_, ok := r.factories[canonical(name)]
	return ok
}

// Providers returns the sorted keys of all registered providers.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns an adapter for the requested capability and provider key.
//
// Unknown keys fall back to the baseline provider with a warning. Keys this
// build knows but the catalog disabled return nil: the capability is skipped
// rather than silently served by a different provider. Providers that do not
// implement the requested capability also fall back to the baseline.
func (r *Registry) Resolve(cap Capability, name, apiKey string) Adapter {
	key := canonical(name)
	if key == "" {
		key = config.BaselineProvider
	}

	factory, registered := r.factories[key]
	if !registered {
		if Known(key) {
			r.logger.Warn("provider not available, skipping capability",
				"capability", cap, "provider", key)
			return nil
		}
		r.logger.Warn("unsupported provider, using baseline",
			"capability", cap, "provider", key, "baseline", config.BaselineProvider)
		key = config.BaselineProvider
		factory = r.factories[key]
	}

	ctor := factory.constructor(cap)
	if ctor == nil {
		if key == config.BaselineProvider {
			return nil
		}
		r.logger.Warn("provider lacks capability, using baseline",
			"capability", cap, "provider", key, "baseline", config.BaselineProvider)
		factory = r.factories[config.BaselineProvider]
		ctor = factory.constructor(cap)
		if ctor == nil {
			return nil
		}
	}

	return ctor(apiKey)
}

// canonical normalizes a provider key. "gemini" has always been an alias for
// the google provider in node configs.
func canonical(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "gemini" {
		return "google"
	}
	return key
}
