package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"httpgen/internal/config"
	"httpgen/internal/logger"
)

const (
	JSONFilename = "Swagger.json"
	YAMLFilename = "Swagger.yaml"
)

// OutputFilenames lists the files Write produces for the settings
func OutputFilenames(settings config.SwaggerConfig, outputDir string) []string {
	var out []string
	if !settings.NoJSON {
		out = append(out, filepath.Join(outputDir, JSONFilename))
	}
	if !settings.NoYAML {
		out = append(out, filepath.Join(outputDir, YAMLFilename))
	}
	return out
}

// Write serializes the document as JSON and YAML and checks the result
// against the OpenAPI specification. Findings are logged, not returned.
func Write(ctx context.Context, spec *OpenAPI, settings config.SwaggerConfig, outputDir string) ([]string, error) {
	var (
		data []byte
		err  error
	)
	if settings.PrettyPrint {
		data, err = json.MarshalIndent(spec, "", "  ")
	} else {
		data, err = json.Marshal(spec)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode OpenAPI document: %w", err)
	}

	var written []string
	if !settings.NoJSON {
		path := filepath.Join(outputDir, JSONFilename)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}

	if !settings.NoYAML {
		out, err := yaml.Marshal(spec)
		if err != nil {
			return written, fmt.Errorf("failed to encode OpenAPI document: %w", err)
		}
		path := filepath.Join(outputDir, YAMLFilename)
		if err := os.WriteFile(path, out, 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}

	for _, finding := range Validate(ctx, data) {
		logger.WarnAttrs("OpenAPI validation", "finding", finding)
	}
	return written, nil
}

// Validate loads an encoded document with kin-openapi and returns its
// validation findings
func Validate(ctx context.Context, data []byte) []string {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return []string{err.Error()}
	}
	if err := doc.Validate(ctx); err != nil {
		return []string{err.Error()}
	}
	return nil
}
