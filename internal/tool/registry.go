// ABOUTME: Tool registry and the TOML manifest controlling enablement and confirmation copy
// ABOUTME: Lookup misses mean the backend asked for a tool this client does not ship

package tool

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
)

// ManifestEntry configures one tool.
type ManifestEntry struct {
	Enabled             bool   `toml:"enabled"`
	ConfirmationTitle   string `toml:"confirmation_title"`
	ConfirmationMessage string `toml:"confirmation_message"`
}

// Manifest is the on-disk tool configuration.
type Manifest struct {
	Tools map[string]ManifestEntry `toml:"tools"`
}

// LoadManifest reads a TOML manifest from path.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return Manifest{}, fmt.Errorf("loading tool manifest: %w", err)
	}
	return m, nil
}

// DefaultManifest enables every shipped tool with stock confirmation copy.
func DefaultManifest() Manifest {
	return Manifest{Tools: map[string]ManifestEntry{
		NameInsertEditIntoFile: {
			Enabled:             true,
			ConfirmationTitle:   "Edit file",
			ConfirmationMessage: "Allow the assistant to modify this file?",
		},
		NameCreateFile: {
			Enabled:             true,
			ConfirmationTitle:   "Create file",
			ConfirmationMessage: "Allow the assistant to create this file?",
		},
		NameRunInTerminal: {
			Enabled:             true,
			ConfirmationTitle:   "Run command",
			ConfirmationMessage: "Allow the assistant to run this terminal command?",
		},
	}}
}

// Registry maps tool names to implementations, filtered by the manifest.
// Safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	tools    map[string]Tool
	manifest Manifest
}

// NewRegistry creates a registry governed by the given manifest.
func NewRegistry(manifest Manifest) *Registry {
	return &Registry{
		tools:    make(map[string]Tool),
		manifest: manifest,
	}
}

// Register adds a tool. Tools disabled by the manifest are dropped.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, known := r.manifest.Tools[t.Name()]
	if known && !entry.Enabled {
		return
	}
	r.tools[t.Name()] = t
}

// Get returns the named tool, or false when absent or disabled.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tools[name]
	return t, ok
}

// ConfirmationCopy returns the title and message shown when asking the user
// to approve the named tool.
func (r *Registry) ConfirmationCopy(name string) (title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := r.manifest.Tools[name]
	return entry.ConfirmationTitle, entry.ConfirmationMessage
}

// Names lists the registered tools.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}
