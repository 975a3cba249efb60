// Package prompts loads the YAML prompt manifests used by the AI client.
// Built-in prompts are embedded; a directory of manifests may override them
// by name.
package prompts

import (
	"bytes"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Prompt is one parsed prompt manifest
type Prompt struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
	MaxTokens   int64  `yaml:"max_tokens"`
	Schema      string `yaml:"schema"`
	System      string `yaml:"system"`
	Template    string `yaml:"template"`

	tmpl *template.Template
}

// Parse decodes a manifest with strict validation. Unknown YAML fields are
// rejected and name, version and template are required.
func Parse(data []byte) (*Prompt, error) {
	var p Prompt
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown keys to catch typos

	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse prompt manifest: %w", err)
	}

	if p.Name == "" {
		return nil, fmt.Errorf("prompt manifest missing required field: name")
	}
	if p.Version == "" {
		return nil, fmt.Errorf("prompt manifest missing required field: version")
	}
	if strings.TrimSpace(p.Template) == "" {
		return nil, fmt.Errorf("prompt manifest %s missing required field: template", p.Name)
	}

	tmpl, err := template.New(p.Name).Option("missingkey=error").Parse(p.Template)
	if err != nil {
		return nil, fmt.Errorf("prompt %s has an invalid template: %w", p.Name, err)
	}
	p.tmpl = tmpl
	return &p, nil
}

// LoadFile reads and parses a manifest from fsys
func LoadFile(fsys fs.FS, path string) (*Prompt, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt manifest: %w", err)
	}
	return Parse(data)
}

// Render executes the prompt template against data
func (p *Prompt) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", p.Name, err)
	}
	return buf.String(), nil
}
