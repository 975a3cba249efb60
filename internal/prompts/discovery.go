package prompts

import (
	"io/fs"
	"log/slog"
	"path"
	"strings"
)

// Discover loads every *.yaml manifest at the top level of fsys. Invalid
// manifests are logged and skipped so one typo does not hide the rest.
func Discover(fsys fs.FS) ([]*Prompt, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	var out []*Prompt
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		p, err := LoadFile(fsys, entry.Name())
		if err != nil {
			slog.Warn("Skipping invalid prompt manifest", "file", entry.Name(), "error", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
