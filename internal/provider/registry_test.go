// ABOUTME: Tests for provider resolution, fallback, and catalog gating.
// ABOUTME: Covers baseline fallback, catalog skips, and the gemini alias.

package provider

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, catalog Catalog) *Registry {
	t.Helper()
	return NewRegistry(catalog, slog.Default())
}

func TestResolveBaseline(t *testing.T) {
	r := newTestRegistry(t, Catalog{})

	for _, cap := range []Capability{STT, LLM, TTS} {
		a := r.Resolve(cap, "groq", "key")
		require.NotNil(t, a, "capability %s", cap)
		assert.Equal(t, "groq", a.Provider())
		assert.Equal(t, cap, a.Capability())
	}
}

func TestResolveEmptyKeyUsesBaseline(t *testing.T) {
	r := newTestRegistry(t, Catalog{})

	a := r.Resolve(LLM, "", "key")
	require.NotNil(t, a)
	assert.Equal(t, "groq", a.Provider())
}

func TestResolveUnknownKeyFallsBack(t *testing.T) {
	r := newTestRegistry(t, Catalog{})

	a := r.Resolve(TTS, "definitely-not-a-provider", "key")
	require.NotNil(t, a)
	assert.Equal(t, "groq", a.Provider())
}

func TestResolveGeminiAlias(t *testing.T) {
	r := newTestRegistry(t, Catalog{})

	a := r.Resolve(LLM, "gemini", "key")
	require.NotNil(t, a)
	assert.Equal(t, "google", a.Provider())
}

func TestResolveCapabilityMismatchFallsBack(t *testing.T) {
	r := newTestRegistry(t, Catalog{})

	// anthropic only implements LLM; asking it for STT yields the baseline.
	a := r.Resolve(STT, "anthropic", "key")
	require.NotNil(t, a)
	assert.Equal(t, "groq", a.Provider())
}

func TestCatalogDisablesProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[providers]
enabled = ["deepgram"]
`), 0o600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)

	r := newTestRegistry(t, catalog)

	// deepgram is enabled, elevenlabs is known but disabled.
	assert.NotNil(t, r.Resolve(STT, "deepgram", "key"))
	assert.Nil(t, r.Resolve(TTS, "elevenlabs", "key"))

	// baseline survives any catalog.
	assert.NotNil(t, r.Resolve(LLM, "groq", "key"))
	assert.True(t, r.Available("groq"))
	assert.False(t, r.Available("elevenlabs"))
}

func TestLoadCatalogMissingFileUnrestricted(t *testing.T) {
	catalog, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.True(t, catalog.Enabled("elevenlabs"))

	catalog, err = LoadCatalog("")
	require.NoError(t, err)
	assert.True(t, catalog.Enabled("anything"))
}

func TestProvidersSorted(t *testing.T) {
	r := newTestRegistry(t, Catalog{})
	names := r.Providers()

	require.NotEmpty(t, names)
	assert.Contains(t, names, "groq")
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}
