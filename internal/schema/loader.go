package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// LoadDir compiles every *.yaml / *.yml file in dir into a fresh
// Registry. Files are processed in lexical order so that cross-file
// provider declarations compile deterministically.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("schema: reading schema dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	reg := NewRegistry()
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("schema: reading %q: %w", name, err)
		}
		if err := Compile(reg, b); err != nil {
			return nil, fmt.Errorf("schema: compiling %q: %w", name, err)
		}
	}
	return reg, nil
}
