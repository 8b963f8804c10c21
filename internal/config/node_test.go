// ABOUTME: Tests for node configuration validation and environment loading.
// ABOUTME: Covers the media-credential invariant and baseline provider defaults.

package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validNode() NodeConfig {
	return NodeConfig{
		STT:   ProviderSettings{Provider: "groq", APIKey: "stt-key"},
		LLM:   ProviderSettings{Provider: "groq", APIKey: "llm-key"},
		TTS:   ProviderSettings{Provider: "groq", APIKey: "tts-key"},
		Media: MediaSettings{APIKey: "mk", Secret: "ms", ServerURL: "wss://media.example.com"},
	}
}

func TestNodeConfigValid(t *testing.T) {
	cfg := validNode()
	assert.True(t, cfg.Valid())

	for name, mutate := range map[string]func(*NodeConfig){
		"missing apiKey":    func(c *NodeConfig) { c.Media.APIKey = "" },
		"missing secret":    func(c *NodeConfig) { c.Media.Secret = "" },
		"missing serverUrl": func(c *NodeConfig) { c.Media.ServerURL = "" },
	} {
		t.Run(name, func(t *testing.T) {
			c := validNode()
			mutate(&c)
			assert.False(t, c.Valid())
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg NodeConfig
	cfg.LLM.Provider = "openai"
	cfg.ApplyDefaults()

	assert.Equal(t, BaselineProvider, cfg.STT.Provider)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, BaselineProvider, cfg.TTS.Provider)
}

func TestNodeConfigJSONShape(t *testing.T) {
	raw := `{
		"stt":   {"provider": "deepgram", "apiKey": "d1"},
		"llm":   {"provider": "anthropic", "apiKey": "a1"},
		"tts":   {"provider": "elevenlabs", "apiKey": "e1"},
		"media": {"apiKey": "mk", "secret": "ms", "serverUrl": "wss://x"}
	}`

	var cfg NodeConfig
	require.NoError(t, json.Unmarshal([]byte(raw), &cfg))

	assert.Equal(t, "deepgram", cfg.STT.Provider)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "elevenlabs", cfg.TTS.Provider)
	assert.Equal(t, "wss://x", cfg.Media.ServerURL)
	assert.True(t, cfg.Valid())
}

func TestNodeFromEnv(t *testing.T) {
	t.Run("reads full configuration", func(t *testing.T) {
		t.Setenv("NODE_ID", "tenant-42")
		t.Setenv("STT_PROVIDER", "deepgram")
		t.Setenv("STT_API_KEY", "dg-key")
		t.Setenv("LLM_PROVIDER", "")
		t.Setenv("LLM_API_KEY", "llm-key")
		t.Setenv("TTS_PROVIDER", "elevenlabs")
		t.Setenv("TTS_API_KEY", "el-key")
		t.Setenv("LIVEKIT_API_KEY", "lk-key")
		t.Setenv("LIVEKIT_API_SECRET", "lk-secret")
		t.Setenv("LIVEKIT_SERVER_URL", "wss://lk.example.com")

		nodeID, cfg := NodeFromEnv()

		assert.Equal(t, "tenant-42", nodeID)
		assert.Equal(t, "deepgram", cfg.STT.Provider)
		assert.Equal(t, BaselineProvider, cfg.LLM.Provider)
		assert.Equal(t, "elevenlabs", cfg.TTS.Provider)
		assert.True(t, cfg.Valid())
	})

	t.Run("defaults node id and leaves media incomplete", func(t *testing.T) {
		t.Setenv("NODE_ID", "")
		t.Setenv("LIVEKIT_API_KEY", "lk-key")
		t.Setenv("LIVEKIT_API_SECRET", "")
		t.Setenv("LIVEKIT_SERVER_URL", "")

		nodeID, cfg := NodeFromEnv()

		assert.Equal(t, DefaultNodeID, nodeID)
		assert.False(t, cfg.Valid())
	})
}
