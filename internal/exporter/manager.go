package exporter

import (
	"sort"
	"strings"

	"httpgen/internal/config"
	"httpgen/internal/errs"
)

const (
	PluginJSONAPI = "jsonapi"
	PluginSwagger = "swagger"
	PluginCatalog = "catalog"
)

var registry = map[string]func() Plugin{
	PluginJSONAPI: func() Plugin { return NewJSONAPIExporter() },
	PluginSwagger: func() Plugin { return NewSwaggerExporter() },
	PluginCatalog: func() Plugin { return NewCatalogExporter() },
}

// Names lists the registered plugins
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPlugins returns the requested plugins in order, without duplicates
func GetPlugins(names []string) ([]Plugin, error) {
	plugins := []Plugin{}
	seen := make(map[string]bool)

	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			continue
		}
		seen[name] = true

		factory, ok := registry[name]
		if !ok {
			return nil, errs.Configf("unknown plugin %q; expected one of: %s", name, strings.Join(Names(), ", "))
		}
		plugins = append(plugins, factory())
	}
	return plugins, nil
}

// OutputFilenames lists every file the plugins would write
func OutputFilenames(plugins []Plugin, cfg *config.Config, inputs []string) []string {
	var out []string
	for _, p := range plugins {
		out = append(out, p.OutputFilenames(cfg, inputs)...)
	}
	return out
}
