// ABOUTME: Builtin provider adapters for the supported STT/LLM/TTS backends.
// ABOUTME: Adapters carry the provider key and API key; backend wire protocols live elsewhere.

package provider

// adapter is the common implementation for all builtin providers. The
// control plane never calls into a backend directly, so one value type
// carrying the selection is enough.
type adapter struct {
	provider   string
	capability Capability
	apiKey     string
}

func (a adapter) Provider() string       { return a.provider }
func (a adapter) Capability() Capability { return a.capability }

// APIKey exposes the credential for the session layer.
func (a adapter) APIKey() string { return a.apiKey }

func makeFactory(name string, caps ...Capability) Factory {
	var f Factory
	for _, c := range caps {
		cap := c
		ctor := func(apiKey string) Adapter {
			return adapter{provider: name, capability: cap, apiKey: apiKey}
		}
		switch cap {
		case STT:
			f.STT = ctor
		case LLM:
			f.LLM = ctor
		case TTS:
			f.TTS = ctor
		}
	}
	return f
}

// builtins lists every provider this build ships, with the capabilities each
// one implements. The baseline provider covers all three.
var builtins = map[string]Factory{
	"groq":       makeFactory("groq", STT, LLM, TTS),
	"deepgram":   makeFactory("deepgram", STT, TTS),
	"azure":      makeFactory("azure", STT, LLM, TTS),
	"openai":     makeFactory("openai", LLM, TTS),
	"anthropic":  makeFactory("anthropic", LLM),
	"elevenlabs": makeFactory("elevenlabs", TTS),
	"google":     makeFactory("google", LLM, TTS),
}
