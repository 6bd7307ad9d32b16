package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"httpgen/internal/config"
	"httpgen/internal/logger"
	"httpgen/internal/reader"
	"httpgen/internal/rest"
)

// JSONAPISuffix is appended to the input stem of each decorated document
const JSONAPISuffix = ".rest.yaml"

// JSONAPIExporter writes the JSON:API decorated copy of every input
type JSONAPIExporter struct{}

func NewJSONAPIExporter() *JSONAPIExporter {
	return &JSONAPIExporter{}
}

func (e *JSONAPIExporter) Name() string { return PluginJSONAPI }

func (e *JSONAPIExporter) OutputFilenames(cfg *config.Config, inputs []string) []string {
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, jsonapiPath(cfg.Output.Dir, in))
	}
	return out
}

func (e *JSONAPIExporter) Export(ctx context.Context, run *Run) ([]string, error) {
	decorated, err := rest.New(run.Config.Rest).Decorate(run.Roots)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, r := range decorated {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		data, err := reader.Marshal(r)
		if err != nil {
			return written, err
		}
		path := jsonapiPath(run.Config.Output.Dir, r.Filename)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		logger.Debug("Wrote %s", path)
		written = append(written, path)
	}
	return written, nil
}

func jsonapiPath(dir, input string) string {
	return filepath.Join(dir, reader.Stem(input)+JSONAPISuffix)
}
