// Package pipeline runs a generation: documents are read, validated and
// externalized into one schema document, compiled, aligned back onto the
// endpoint trees and handed to the output plugins.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"httpgen/internal/config"
	"httpgen/internal/errs"
	"httpgen/internal/exporter"
	"httpgen/internal/exporter/openapi"
	"httpgen/internal/logger"
	"httpgen/internal/model"
	"httpgen/internal/reader"
	"httpgen/internal/schema"
	"httpgen/internal/ui"
)

// Result summarizes a finished run
type Result struct {
	RunID     string
	Workspace string
	Compiled  []schema.OutputKind
	Written   []string
}

// Pipeline is configured once per run
type Pipeline struct {
	cfg      *config.Config
	compiler *schema.Compiler
	progress *ui.Pipeline
}

// New creates a pipeline. A nil progress tracker discards progress output.
func New(cfg *config.Config, progress *ui.Pipeline) *Pipeline {
	if progress == nil {
		progress = ui.NewPipelineWithOutput(ui.Phases, io.Discard)
	}
	return &Pipeline{
		cfg: cfg,
		compiler: &schema.Compiler{
			Command: cfg.Compiler.Command,
			Args:    cfg.Compiler.Args,
			Verbose: cfg.Compiler.Verbose,
		},
		progress: progress,
	}
}

// Run executes every stage. The ephemeral workspace is removed on return
// unless compilation or loading failed.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	defer p.progress.Finish()

	plugins, err := exporter.GetPlugins(p.cfg.Plugins)
	if err != nil {
		return nil, err
	}
	jsonapi := p.cfg.HasPlugin(exporter.PluginJSONAPI)
	swagger := p.cfg.HasPlugin(exporter.PluginSwagger)

	// 1. Read
	files, err := reader.Expand(p.cfg.Inputs)
	if err != nil {
		return nil, err
	}
	bar := p.progress.Begin(ui.PhaseReading, len(files))
	roots := make([]*model.Root, 0, len(files))
	for _, f := range files {
		r, err := reader.Read(f)
		if err != nil {
			return nil, err
		}
		roots = append(roots, r)
		bar.Step(f)
	}
	if len(roots) == 0 {
		return nil, errs.Configf("no input documents were found")
	}

	// 2. Validate, filter and classify
	if roots, err = p.validate(roots, jsonapi); err != nil {
		return nil, err
	}

	// 3. Externalize
	p.progress.Begin(ui.PhaseExternalizing, 1)
	ws, err := schema.NewWorkspace(p.cfg.TempDir)
	if err != nil {
		return nil, err
	}
	if p.cfg.KeepTempDir {
		ws.Retain()
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Warn("Failed to remove workspace %s: %v", ws.Dir, err)
		}
	}()
	logger.Bind("run_id", ws.RunID)

	plan := schema.NewPlan(roots)
	rendered := []byte(plan.Render())
	source, _, err := ws.WriteIfChanged(schema.SourceFilename, rendered)
	if err != nil {
		return nil, err
	}
	logger.Debug("Externalized %d entries to %s", len(plan.Entries), source)

	result := &Result{RunID: ws.RunID, Workspace: ws.Dir}

	// 4. Compile
	kinds := []schema.OutputKind{schema.KindTypeTree}
	if swagger {
		kinds = append(kinds, schema.KindJSONSchema)
	}
	hash := schema.SourceHash(rendered)
	var stale []schema.OutputKind
	for _, kind := range kinds {
		if !schema.UpToDate(ws.Dir, kind, hash) {
			stale = append(stale, kind)
		}
	}

	bar = p.progress.Begin(ui.PhaseCompiling, len(kinds))
	if len(stale) > 0 {
		if err := p.compiler.Compile(ctx, ws.Dir, source, stale...); err != nil {
			ws.Retain()
			return nil, err
		}
		for _, kind := range stale {
			bar.Step(string(kind))
		}
	} else {
		logger.Info("Schema compilation is up to date")
	}
	result.Compiled = stale

	// 5. Align
	bar = p.progress.Begin(ui.PhaseAligning, len(kinds))
	if err := p.align(plan, ws, roots, jsonapi, swagger); err != nil {
		var loadErr *loadError
		if errors.As(err, &loadErr) {
			ws.Retain()
			err = loadErr.err
		}
		return nil, err
	}
	bar.Step("")

	// 6. Generate
	if err := p.cfg.EnsureOutputDir(); err != nil {
		return nil, err
	}
	bar = p.progress.Begin(ui.PhaseGenerating, len(plugins))
	run := &exporter.Run{Config: p.cfg, Roots: roots}
	for _, plugin := range plugins {
		written, err := plugin.Export(ctx, run)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", plugin.Name(), err)
		}
		result.Written = append(result.Written, written...)
		bar.Step(plugin.Name())
	}

	return result, nil
}

func (p *Pipeline) validate(roots []*model.Root, classify bool) ([]*model.Root, error) {
	bar := p.progress.Begin(ui.PhaseValidating, len(roots))
	for _, r := range roots {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		bar.Step(r.Filename)
	}
	if err := model.CheckUniqueNames(roots); err != nil {
		return nil, err
	}

	f := p.cfg.Filter
	filter, err := model.NewFilter(f.ContentTypeIncludes, f.ContentTypeExcludes, f.VerbIncludes, f.VerbExcludes)
	if err != nil {
		return nil, err
	}
	if filter.Active() {
		roots = filter.Apply(roots)
		if len(roots) == 0 {
			return nil, errs.Configf("the filters removed every endpoint")
		}
	}

	if classify {
		if err := model.Classify(roots); err != nil {
			return nil, err
		}
	}
	return roots, nil
}

// loadError marks a failure to read compiler output, after which the
// workspace is kept for inspection
type loadError struct{ err error }

func (e *loadError) Error() string { return e.err.Error() }
func (e *loadError) Unwrap() error { return e.err }

func (p *Pipeline) align(plan *schema.Plan, ws *schema.Workspace, roots []*model.Root, metadata, jsonSchema bool) error {
	elements, err := schema.LoadTypeTree(schema.OutputDir(ws.Dir, schema.KindTypeTree))
	if err != nil {
		return &loadError{err}
	}
	if err := schema.Align(plan, elements); err != nil {
		return &loadError{err}
	}

	if metadata {
		for _, r := range roots {
			if err := model.AttachMetadata(r); err != nil {
				return err
			}
		}
	}

	if jsonSchema {
		doc, err := schema.LoadJSONSchema(schema.OutputDir(ws.Dir, schema.KindJSONSchema))
		if err != nil {
			return &loadError{err}
		}
		if doc, err = openapi.Denormalize(doc); err != nil {
			return &loadError{err}
		}
		if err := schema.BindJSONSchema(plan, doc); err != nil {
			return &loadError{err}
		}
	}
	return nil
}

// Clean removes the files the configured plugins would generate. It returns
// the paths that were removed.
func Clean(cfg *config.Config) ([]string, error) {
	plugins, err := exporter.GetPlugins(cfg.Plugins)
	if err != nil {
		return nil, err
	}
	inputs, err := reader.Expand(cfg.Inputs)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, path := range exporter.OutputFilenames(plugins, cfg, inputs) {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed = append(removed, path)
		case os.IsNotExist(err):
		default:
			return removed, fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return removed, nil
}
