package exporter

import (
	"context"

	"httpgen/internal/config"
	"httpgen/internal/exporter/openapi"
)

// SwaggerExporter writes one OpenAPI document covering every input
type SwaggerExporter struct{}

func NewSwaggerExporter() *SwaggerExporter {
	return &SwaggerExporter{}
}

func (e *SwaggerExporter) Name() string { return PluginSwagger }

func (e *SwaggerExporter) OutputFilenames(cfg *config.Config, _ []string) []string {
	return openapi.OutputFilenames(cfg.Swagger, cfg.Output.Dir)
}

func (e *SwaggerExporter) Export(ctx context.Context, run *Run) ([]string, error) {
	b, err := openapi.NewBuilder(run.Config.Swagger)
	if err != nil {
		return nil, err
	}
	spec, err := b.Build(run.Roots)
	if err != nil {
		return nil, err
	}
	return openapi.Write(ctx, spec, run.Config.Swagger, run.Config.Output.Dir)
}
