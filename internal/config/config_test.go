package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"httpgen/internal/errs"
	"httpgen/internal/logger"
)

func TestLoadConfigWithDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"), nil)
	if err != nil {
		t.Fatalf("Failed to load config with defaults: %v", err)
	}

	if !filepath.IsAbs(cfg.Output.Dir) {
		t.Errorf("Expected Output.Dir to be absolute, got %s", cfg.Output.Dir)
	}
	if cfg.Output.FileName != "endpoints" {
		t.Errorf("Output.FileName = %s, expected endpoints", cfg.Output.FileName)
	}
	if cfg.Compiler.Command == "" {
		t.Error("Expected a default compiler command")
	}
	if cfg.Swagger.OpenAPIVersion != "3.0.3" {
		t.Errorf("Swagger.OpenAPIVersion = %s, expected 3.0.3", cfg.Swagger.OpenAPIVersion)
	}
	if cfg.Log.FileLevel() != logger.LevelDebug {
		t.Errorf("the log file should receive every level by default, got %s", cfg.Log.FileLevel())
	}
	if !cfg.HasPlugin("jsonapi") || !cfg.HasPlugin("swagger") || cfg.HasPlugin("catalog") {
		t.Errorf("unexpected default plugins %v", cfg.Plugins)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "httpgen.yaml")
	content := `
inputs: [api.yaml]
temp_dir: work
compiler:
  command: ssc
  args: [--quiet]
rest:
  authentication_scheme: Bearer
  if_unmodified_since_header_verbs: [patch, delete]
filter:
  verb_excludes: [" delete"]
log:
  level: WARN
plugins: [jsonapi, catalog]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Compiler.Command != "ssc" || len(cfg.Compiler.Args) != 1 {
		t.Errorf("Compiler = %+v", cfg.Compiler)
	}
	if cfg.Rest.AuthenticationScheme != "Bearer" {
		t.Errorf("AuthenticationScheme = %q", cfg.Rest.AuthenticationScheme)
	}
	if strings.Join(cfg.Rest.IfUnmodifiedSinceHeaderVerbs, ",") != "PATCH,DELETE" {
		t.Errorf("verbs were not normalized: %v", cfg.Rest.IfUnmodifiedSinceHeaderVerbs)
	}
	if strings.Join(cfg.Filter.VerbExcludes, ",") != "DELETE" {
		t.Errorf("filter verbs were not normalized: %v", cfg.Filter.VerbExcludes)
	}
	if cfg.Log.Level != "warn" || cfg.Log.FileLevel() != logger.LevelWarn {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if len(cfg.Inputs) != 1 || !filepath.IsAbs(cfg.Inputs[0]) || !filepath.IsAbs(cfg.TempDir) {
		t.Errorf("paths were not made absolute: %v %s", cfg.Inputs, cfg.TempDir)
	}
}

func TestLoadEnvironmentAndFlags(t *testing.T) {
	out := t.TempDir()
	t.Setenv("HTTPGEN_OUTPUT_FILE_NAME", "from-env")
	t.Setenv("HTTPGEN_REST_NO_PAGINATION", "true")

	flags := pflag.NewFlagSet("generate", pflag.ContinueOnError)
	flags.String("output-dir", "", "")
	flags.StringSlice("plugin", nil, "")
	flags.StringArray("set", nil, "")
	if err := flags.Parse([]string{"--output-dir", out, "--plugin", "catalog", "--set", "rest.no_sort=true"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), flags)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Output.FileName != "from-env" {
		t.Errorf("FileName = %s, expected the environment value", cfg.Output.FileName)
	}
	if !cfg.Rest.NoPagination || !cfg.Rest.NoSort {
		t.Errorf("Rest = %+v", cfg.Rest)
	}
	if cfg.Output.Dir != out {
		t.Errorf("Output.Dir = %s, expected %s", cfg.Output.Dir, out)
	}
	if len(cfg.Plugins) != 1 || cfg.Plugins[0] != "catalog" {
		t.Errorf("Plugins = %v", cfg.Plugins)
	}
}

func TestLoadRejectsMalformedSet(t *testing.T) {
	flags := pflag.NewFlagSet("generate", pflag.ContinueOnError)
	flags.StringArray("set", nil, "")
	if err := flags.Parse([]string{"--set", "novalue"}); err != nil {
		t.Fatal(err)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), flags)
	var ce *errs.ConfigurationError
	if !errors.As(err, &ce) {
		t.Errorf("Load() error = %v, expected ConfigurationError", err)
	}
}

func TestGetCatalogPath(t *testing.T) {
	cfg := &Config{
		Output: OutputConfig{
			Dir:      "/tmp/output",
			FileName: "test-report",
		},
	}

	expected := filepath.Join("/tmp/output", "test-report.xlsx")
	if result := cfg.GetCatalogPath(); result != expected {
		t.Errorf("GetCatalogPath() = %s, expected %s", result, expected)
	}
}

func TestValidate(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "api.yaml")
	if err := os.WriteFile(input, []byte("endpoints: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	valid := func() *Config {
		return &Config{
			Inputs:   []string{input},
			Output:   OutputConfig{Dir: tmpDir, FileName: "report"},
			Compiler: CompilerConfig{Command: "ssc"},
			Plugins:  []string{"jsonapi"},
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{name: "Valid config", mutate: func(*Config) {}},
		{
			name:      "No inputs",
			mutate:    func(c *Config) { c.Inputs = nil },
			errSubstr: "inputs",
		},
		{
			name:      "Nonexistent input",
			mutate:    func(c *Config) { c.Inputs = []string{"/nonexistent/api.yaml"} },
			errSubstr: "does not exist",
		},
		{
			name:      "Empty output filename",
			mutate:    func(c *Config) { c.Output.FileName = "" },
			errSubstr: "output.file_name",
		},
		{
			name:      "Unknown plugin",
			mutate:    func(c *Config) { c.Plugins = []string{"word"} },
			errSubstr: "must be one of",
		},
		{
			name:      "Unknown conditional verb",
			mutate:    func(c *Config) { c.Rest.IfUnmodifiedSinceHeaderVerbs = []string{"PUT"} },
			errSubstr: "if_unmodified_since_header_verbs",
		},
		{
			name:      "Optional header without verbs",
			mutate:    func(c *Config) { c.Rest.IfUnmodifiedSinceHeaderIsOptional = true },
			errSubstr: "requires",
		},
		{
			name: "Optional header with verbs",
			mutate: func(c *Config) {
				c.Rest.IfUnmodifiedSinceHeaderVerbs = []string{"PATCH"}
				c.Rest.IfUnmodifiedSinceHeaderIsOptional = true
			},
		},
		{
			name:      "Invalid filter expression",
			mutate:    func(c *Config) { c.Filter.ContentTypeExcludes = []string{"("} },
			errSubstr: "filter.content_type_excludes",
		},
		{
			name:      "Unknown filter verb",
			mutate:    func(c *Config) { c.Filter.VerbIncludes = []string{"GET", "PUT"} },
			errSubstr: "verb_includes",
		},
		{
			name:      "Unknown log level",
			mutate:    func(c *Config) { c.Log.Level = "trace" },
			errSubstr: "level",
		},
		{
			name:      "Swagger without metadata",
			mutate:    func(c *Config) { c.Plugins = []string{"swagger"} },
			errSubstr: "swagger.title",
		},
		{
			name: "Swagger with a bad server uri",
			mutate: func(c *Config) {
				c.Plugins = []string{"swagger"}
				c.Swagger = SwaggerConfig{Title: "t", APIVersion: "1", LicenseName: "MIT", ServerURI: "not a url", OpenAPIVersion: "3.0.3"}
			},
			errSubstr: "swagger.server_uri",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.errSubstr == "" {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
				return
			}
			var ce *errs.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("Expected ConfigurationError but got: %v", err)
			}
			if !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("error %q does not mention %q", err, tt.errSubstr)
			}
		})
	}
}
