// ABOUTME: Per-node provider configuration types and environment loading
// ABOUTME: Defines the JSON config shape and the media-credential invariant

package config

import "os"

// BaselineProvider is used whenever a node omits a provider choice or names
// one the capability registry does not know.
const BaselineProvider = "groq"

// DefaultNodeID is the node auto-activated from environment variables when
// NODE_ID is not set.
const DefaultNodeID = "default-node"

// ProviderSettings selects one capability backend by key.
type ProviderSettings struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
}

// MediaSettings holds the credentials for the real-time media platform.
// All three fields must be non-empty before a worker may be started.
type MediaSettings struct {
	APIKey    string `json:"apiKey"`
	Secret    string `json:"secret"`
	ServerURL string `json:"serverUrl"`
}

// Valid reports whether the media credentials are complete.
func (m MediaSettings) Valid() bool {
	return m.APIKey != "" && m.Secret != "" && m.ServerURL != ""
}

// NodeConfig is the full provider configuration for one node.
type NodeConfig struct {
	STT   ProviderSettings `json:"stt"`
	LLM   ProviderSettings `json:"llm"`
	TTS   ProviderSettings `json:"tts"`
	Media MediaSettings    `json:"media"`
}

// Valid reports whether the config satisfies the media-credential invariant.
// Provider sections are never required: absent providers fall back to the
// baseline at resolution time.
func (c NodeConfig) Valid() bool {
	return c.Media.Valid()
}

// ApplyDefaults fills empty provider keys with the baseline provider.
func (c *NodeConfig) ApplyDefaults() {
	if c.STT.Provider == "" {
		c.STT.Provider = BaselineProvider
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = BaselineProvider
	}
	if c.TTS.Provider == "" {
		c.TTS.Provider = BaselineProvider
	}
}

// NodeFromEnv reads the environment-derived default node configuration.
// Read once at process start; the returned config may be incomplete, in
// which case the caller must not auto-activate the node.
func NodeFromEnv() (nodeID string, cfg NodeConfig) {
	nodeID = os.Getenv("NODE_ID")
	if nodeID == "" {
		nodeID = DefaultNodeID
	}

	cfg = NodeConfig{
		STT: ProviderSettings{
			Provider: envOr("STT_PROVIDER", BaselineProvider),
			APIKey:   os.Getenv("STT_API_KEY"),
		},
		LLM: ProviderSettings{
			Provider: envOr("LLM_PROVIDER", BaselineProvider),
			APIKey:   os.Getenv("LLM_API_KEY"),
		},
		TTS: ProviderSettings{
			Provider: envOr("TTS_PROVIDER", BaselineProvider),
			APIKey:   os.Getenv("TTS_API_KEY"),
		},
		Media: MediaSettings{
			APIKey:    os.Getenv("LIVEKIT_API_KEY"),
			Secret:    os.Getenv("LIVEKIT_API_SECRET"),
			ServerURL: os.Getenv("LIVEKIT_SERVER_URL"),
		},
	}
	return nodeID, cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
