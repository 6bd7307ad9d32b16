package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"httpgen/internal/model"
)

// LoadTypeTree reads the type tree written by the compiler. The path file
// names the directory holding the representation; relative names are
// resolved against the output directory.
func LoadTypeTree(outputDir string) ([]*model.Element, error) {
	raw, err := os.ReadFile(filepath.Join(outputDir, pathFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to read compiler path file: %w", err)
	}

	dir := strings.TrimSpace(string(raw))
	if dir == "" {
		dir = outputDir
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(outputDir, dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("the compiler path file names %q, which is not a directory", dir)
	}

	data, err := os.ReadFile(filepath.Join(dir, typeTreeFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to read compiled type tree: %w", err)
	}
	return ParseTypeTree(data)
}

// ParseTypeTree decodes a YAML or JSON list of compiled elements
func ParseTypeTree(data []byte) ([]*model.Element, error) {
	var elements []*model.Element
	if err := yaml.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("failed to parse compiled type tree: %w", err)
	}
	for _, el := range elements {
		if err := el.Validate(); err != nil {
			return nil, fmt.Errorf("invalid compiled type tree: %w", err)
		}
	}
	return elements, nil
}

// LoadJSONSchema reads the JSON schema written by the compiler
func LoadJSONSchema(outputDir string) (map[string]interface{}, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, jsonFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to read compiled JSON schema: %w", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse compiled JSON schema: %w", err)
	}
	return doc, nil
}
