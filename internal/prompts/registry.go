package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
)

// Built-in prompt names
const (
	NameSummarize = "summarize"
	NameRedact    = "redact"
	NameAdvise    = "advise"
	NamePrefill   = "prefill"
)

//go:embed defaults/*.yaml defaults/*.json
var defaultsFS embed.FS

// Registry holds prompts indexed by name, along with the filesystem their
// JSON schemas are read from
type Registry struct {
	prompts map[string]*Prompt
	schemas map[string]fs.FS
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		prompts: make(map[string]*Prompt),
		schemas: make(map[string]fs.FS),
	}
}

// Register adds a prompt. A prompt with the same name is replaced.
func (r *Registry) Register(p *Prompt, schemaFS fs.FS) {
	r.prompts[p.Name] = p
	r.schemas[p.Name] = schemaFS
}

// Get retrieves a prompt by name
func (r *Registry) Get(name string) (*Prompt, bool) {
	p, ok := r.prompts[name]
	return p, ok
}

// MustGet retrieves a prompt or returns an error naming the missing prompt
func (r *Registry) MustGet(name string) (*Prompt, error) {
	p, ok := r.prompts[name]
	if !ok {
		return nil, fmt.Errorf("prompt not registered: %s", name)
	}
	return p, nil
}

// List returns all prompts sorted by name
func (r *Registry) List() []*Prompt {
	out := make([]*Prompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of registered prompts
func (r *Registry) Count() int {
	return len(r.prompts)
}

// Schema returns the raw JSON schema attached to a prompt, if any
func (r *Registry) Schema(name string) ([]byte, bool, error) {
	p, ok := r.prompts[name]
	if !ok || p.Schema == "" {
		return nil, false, nil
	}
	data, err := fs.ReadFile(r.schemas[name], p.Schema)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read schema for prompt %s: %w", name, err)
	}
	return data, true, nil
}

// Load returns the built-in prompts, overridden by any manifests found in
// overrideDir. An empty overrideDir uses the built-ins only.
func Load(overrideDir string) (*Registry, error) {
	defaults, err := fs.Sub(defaultsFS, "defaults")
	if err != nil {
		return nil, err
	}

	r := NewRegistry()
	builtin, err := Discover(defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in prompts: %w", err)
	}
	for _, p := range builtin {
		r.Register(p, defaults)
	}

	if overrideDir == "" {
		return r, nil
	}

	dir := os.DirFS(overrideDir)
	overrides, err := Discover(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts from %s: %w", overrideDir, err)
	}
	for _, p := range overrides {
		schemaFS := fs.FS(dir)
		if p.Schema != "" {
			if _, err := fs.Stat(dir, p.Schema); err != nil {
				// Fall back to the built-in schema of the same name
				schemaFS = defaults
			}
		}
		r.Register(p, schemaFS)
		slog.Info("Prompt overridden", "name", p.Name, "version", p.Version, "dir", overrideDir)
	}

	return r, nil
}
