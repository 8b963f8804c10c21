// Package provider resolves STT, LLM and TTS provider keys to adapters.
//
// The registry is populated once at process start from the builtin provider
// set, optionally restricted by a TOML catalog. Resolution rules:
//
//   - empty or unknown keys fall back to the baseline provider ("groq")
//     with a warning
//   - keys the build knows but the catalog disabled are skipped: the
//     adapter stays nil and the worker runs without that capability
//   - a provider that does not implement the requested capability falls
//     back to the baseline
//
// Adapters are opaque to the control plane; they carry the selected
// provider key and API key into the media session.
package provider
