// ABOUTME: TOML catalog restricting which optional providers are enabled.
// ABOUTME: A missing catalog enables every builtin provider.

package provider

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Catalog controls which optional providers the registry enables. The zero
// value enables everything, matching a deployment with no catalog file.
type Catalog struct {
	restricted bool
	enabled    map[string]bool
}

type catalogFile struct {
	Providers struct {
		Enabled []string `toml:"enabled"`
	} `toml:"providers"`
}

// Enabled reports whether the named provider may be registered.
func (c Catalog) Enabled(name string) bool {
	if !c.restricted {
		return true
	}
	return c.enabled[name]
}

// LoadCatalog reads a provider catalog from the given TOML path:
//
//	[providers]
//	enabled = ["deepgram", "openai"]
//
// An empty path or missing file yields an unrestricted catalog.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return Catalog{}, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Catalog{}, nil
	}
	if err != nil {
		return Catalog{}, fmt.Errorf("reading provider catalog: %w", err)
	}

	var file catalogFile
	if _, err := toml.Decode(string(data), &file); err != nil {
		return Catalog{}, fmt.Errorf("parsing provider catalog: %w", err)
	}

	cat := Catalog{restricted: true, enabled: make(map[string]bool)}
	for _, name := range file.Providers.Enabled {
		cat.enabled[canonical(name)] = true
	}
	return cat, nil
}
