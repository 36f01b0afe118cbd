// Package extension enumerates installed extension packs and the
// tools they declare. Two pack formats exist: the generic "extension"
// format and the "skill" format; each carries its own tool namespace
// so identically-named tools from different packs cannot collide.
package extension

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/tessera-ai/dispatch/pkg/registry"
)

// Format distinguishes the two pack layouts.
type Format string

const (
	FormatExtension Format = "extension"
	FormatSkill     Format = "skill"
)

// Source returns the registry tool source for the pack format.
func (f Format) Source() (registry.ToolSource, error) {
	switch f {
	case FormatExtension:
		return registry.SourceExtension, nil
	case FormatSkill:
		return registry.SourceSkill, nil
	default:
		return "", fmt.Errorf("unknown extension format %q", string(f))
	}
}

// PackTool is one tool declared by a pack manifest. Command is the
// host executable invoked with the tool arguments as JSON on stdin.
type PackTool struct {
	Definition registry.ToolDefinition `json:"definition"`
	Command    string                  `json:"command"`
	Args       []string                `json:"args,omitempty"`
}

// Pack is one installed extension package.
type Pack struct {
	ID      string     `json:"id"`
	Format  Format     `json:"format"`
	Version string     `json:"version,omitempty"`
	Enabled bool       `json:"enabled"`
	Tools   []PackTool `json:"tools"`
}

// Catalog enumerates installed packs for the extension registrar.
type Catalog struct {
	dir string
}

// NewCatalog creates a catalog over a directory of pack manifests
// (one <pack>.json per pack).
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// Packs loads every enabled pack manifest in the catalog directory.
// A malformed manifest is skipped with a warning, not fatal: one bad
// pack must not take down agent construction.
func (c *Catalog) Packs() ([]Pack, error) {
	if c.dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read extension dir: %w", err)
	}

	var packs []Pack
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(c.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Str("pack", entry.Name()).Err(err).Msg("Failed to read extension pack")
			continue
		}

		var pack Pack
		if err := json.Unmarshal(data, &pack); err != nil {
			log.Warn().Str("pack", entry.Name()).Err(err).Msg("Malformed extension pack manifest")
			continue
		}
		if pack.ID == "" {
			log.Warn().Str("pack", entry.Name()).Msg("Extension pack manifest has no id")
			continue
		}
		if !pack.Enabled {
			continue
		}
		if pack.Format == "" {
			pack.Format = FormatExtension
		}

		packs = append(packs, pack)
	}

	sort.Slice(packs, func(i, j int) bool { return packs[i].ID < packs[j].ID })
	return packs, nil
}
