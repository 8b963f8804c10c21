// Package config loads the voxhive process configuration and defines the
// per-node provider configuration shape.
//
// Process configuration comes from a YAML file (see Path for resolution
// order) with ${VAR} environment expansion, falling back to defaults when
// the file is absent. Per-node configuration is a JSON document exchanged
// over the HTTP API:
//
//	{
//	  "stt":   {"provider": "groq", "apiKey": "..."},
//	  "llm":   {"provider": "groq", "apiKey": "..."},
//	  "tts":   {"provider": "groq", "apiKey": "..."},
//	  "media": {"apiKey": "...", "secret": "...", "serverUrl": "wss://..."}
//	}
//
// The media credentials are the only hard requirement: a worker is never
// started for a node whose media apiKey, secret, or serverUrl is empty.
// NodeFromEnv reads the same shape from NODE_ID, STT_PROVIDER, STT_API_KEY,
// LLM_PROVIDER, LLM_API_KEY, TTS_PROVIDER, TTS_API_KEY, LIVEKIT_API_KEY,
// LIVEKIT_API_SECRET and LIVEKIT_SERVER_URL for the boot-time default node.
package config
