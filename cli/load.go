package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/fieldsync/fieldsync/engine/workflow"
)

// definitionFile is the on-disk shape: either a single workflow document or
// a list under a top-level "workflows" key.
type definitionFile struct {
	Workflows []workflow.Definition `yaml:"workflows"`
}

// LoadDefinitions reads workflow definitions from a YAML file or from every
// .yaml/.yml file in a directory.
func LoadDefinitions(path string) ([]workflow.Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", path, err)
	}
	if !info.IsDir() {
		return loadDefinitionFile(path)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %q: %w", path, err)
	}
	var out []workflow.Definition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		defs, err := loadDefinitionFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, defs...)
	}
	return out, nil
}

func loadDefinitionFile(path string) ([]workflow.Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	var file definitionFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}
	if len(file.Workflows) > 0 {
		return file.Workflows, nil
	}
	var single workflow.Definition
	if err := yaml.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}
	if single.Name == "" {
		return nil, fmt.Errorf("%q contains no workflow definitions", path)
	}
	return []workflow.Definition{single}, nil
}
