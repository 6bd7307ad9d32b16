package exporter

import (
	"context"

	"httpgen/internal/config"
	"httpgen/internal/model"
)

// Run carries the state shared by the plugins of one generation run
type Run struct {
	Config *config.Config

	// Roots are the aligned input documents. Leaves carry type tree
	// resolutions and, when the swagger plugin is enabled, JSON schemas.
	Roots []*model.Root
}

// Plugin is one output format
type Plugin interface {
	Name() string

	// OutputFilenames lists the files Export writes for the given inputs.
	// It does not depend on compilation.
	OutputFilenames(cfg *config.Config, inputs []string) []string

	Export(ctx context.Context, run *Run) ([]string, error)
}
