package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"httpgen/internal/errs"
	"httpgen/internal/logger"
)

// DefaultConfigFile is used when no config path is given
const DefaultConfigFile = "httpgen.yaml"

// EnvPrefix prefixes environment overrides, e.g. HTTPGEN_OUTPUT_DIR
const EnvPrefix = "HTTPGEN"

// Config represents the application configuration
type Config struct {
	Inputs      []string       `mapstructure:"inputs" validate:"min=1,dive,required"`
	Output      OutputConfig   `mapstructure:"output"`
	Compiler    CompilerConfig `mapstructure:"compiler"`
	TempDir     string         `mapstructure:"temp_dir"`      // Workspace for the schema compiler; empty means ephemeral
	KeepTempDir bool           `mapstructure:"keep_temp_dir"` // Keep an ephemeral workspace after the run
	Filter      FilterConfig   `mapstructure:"filter"`
	Rest        RestConfig     `mapstructure:"rest"`
	Swagger     SwaggerConfig  `mapstructure:"swagger" validate:"-"`
	Plugins     []string       `mapstructure:"plugins" validate:"min=1,dive,oneof=jsonapi swagger catalog"`
	Log         LogConfig      `mapstructure:"log"`
}

// OutputConfig holds output settings
type OutputConfig struct {
	Dir      string `mapstructure:"dir" validate:"required"`       // Output directory
	FileName string `mapstructure:"file_name" validate:"required"` // Catalog workbook name (without extension)
}

// CompilerConfig describes how to invoke the schema compiler
type CompilerConfig struct {
	Command string   `mapstructure:"command" validate:"required"`
	Args    []string `mapstructure:"args"` // Placed before the generated arguments
	Verbose bool     `mapstructure:"verbose"`
}

// FilterConfig selects which methods, requests and response contents are
// generated. Content types are regular expressions, verbs are names.
type FilterConfig struct {
	ContentTypeIncludes []string `mapstructure:"content_type_includes"`
	ContentTypeExcludes []string `mapstructure:"content_type_excludes"`
	VerbIncludes        []string `mapstructure:"verb_includes" validate:"dive,oneof=POST GET PATCH DELETE"`
	VerbExcludes        []string `mapstructure:"verb_excludes" validate:"dive,oneof=POST GET PATCH DELETE"`
}

// RestConfig controls the REST conventions added to every endpoint
type RestConfig struct {
	NoPagination                      bool     `mapstructure:"no_pagination"`
	NoSort                            bool     `mapstructure:"no_sort"`
	AuthenticationScheme              string   `mapstructure:"authentication_scheme"` // e.g. "Bearer"
	IfUnmodifiedSinceHeaderVerbs      []string `mapstructure:"if_unmodified_since_header_verbs" validate:"dive,oneof=POST GET PATCH DELETE"`
	IfUnmodifiedSinceHeaderIsOptional bool     `mapstructure:"if_unmodified_since_header_is_optional"`
	NoScrub                           bool     `mapstructure:"no_scrub"` // Keep context markers and metadata in the output
}

// SwaggerConfig holds the document metadata of the OpenAPI output. It is
// validated when the swagger plugin runs.
type SwaggerConfig struct {
	Title             string `mapstructure:"title" validate:"required"`
	APIVersion        string `mapstructure:"api_version" validate:"required"`
	LicenseName       string `mapstructure:"license_name" validate:"required"`
	ServerURI         string `mapstructure:"server_uri" validate:"required,url"`
	OpenAPIVersion    string `mapstructure:"open_api_version" validate:"required"`
	Description       string `mapstructure:"description"`
	TermsOfService    string `mapstructure:"terms_of_service" validate:"omitempty,url"`
	ContactName       string `mapstructure:"contact_name"`
	ContactURI        string `mapstructure:"contact_uri" validate:"omitempty,url"`
	ContactEmail      string `mapstructure:"contact_email" validate:"omitempty,email"`
	LicenseURI        string `mapstructure:"license_uri" validate:"omitempty,url"`
	ServerDescription string `mapstructure:"server_description"`
	PrettyPrint       bool   `mapstructure:"pretty_print"`
	NoJSON            bool   `mapstructure:"no_json"`
	NoYAML            bool   `mapstructure:"no_yaml"`
}

// LogConfig holds logging settings
type LogConfig struct {
	File    string `mapstructure:"file"`                                            // JSON log file; empty disables it
	Level   string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"` // Lowest level written to the file
	Verbose bool   `mapstructure:"verbose"`
}

// FileLevel is the lowest level written to the log file. Every level is
// written when none is configured.
func (l LogConfig) FileLevel() logger.Level {
	if l.Level == "" {
		return logger.LevelDebug
	}
	return logger.ParseLevel(l.Level)
}

// flagKeys maps command line flag names to configuration keys
var flagKeys = map[string]string{
	"input":      "inputs",
	"output-dir": "output.dir",
	"plugin":     "plugins",
	"temp-dir":   "temp_dir",
	"verbose":    "log.verbose",
}

// Load reads the configuration from a file, the environment and the command
// line, in increasing order of precedence. A missing config file falls back
// to defaults. flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		configPath = DefaultConfigFile
	}
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) && !strings.Contains(err.Error(), "no such file") {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logger.Debug("Config file %s not found, using defaults", configPath)
	} else {
		logger.Debug("Loaded config from: %s", v.ConfigFileUsed())
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.normalizePaths(); err != nil {
		return nil, err
	}
	cfg.normalizeVerbs()

	return &cfg, nil
}

// setDefaults configures sensible default values. Every key is listed so that
// environment overrides are picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("inputs", []string{})

	v.SetDefault("output.dir", "./output")
	v.SetDefault("output.file_name", "endpoints")

	v.SetDefault("compiler.command", "SimpleSchemaGenerator")
	v.SetDefault("compiler.args", []string{})
	v.SetDefault("compiler.verbose", false)

	v.SetDefault("temp_dir", "")
	v.SetDefault("keep_temp_dir", false)

	v.SetDefault("filter.content_type_includes", []string{})
	v.SetDefault("filter.content_type_excludes", []string{})
	v.SetDefault("filter.verb_includes", []string{})
	v.SetDefault("filter.verb_excludes", []string{})

	v.SetDefault("rest.no_pagination", false)
	v.SetDefault("rest.no_sort", false)
	v.SetDefault("rest.authentication_scheme", "")
	v.SetDefault("rest.if_unmodified_since_header_verbs", []string{})
	v.SetDefault("rest.if_unmodified_since_header_is_optional", false)
	v.SetDefault("rest.no_scrub", false)

	v.SetDefault("swagger.title", "")
	v.SetDefault("swagger.api_version", "")
	v.SetDefault("swagger.license_name", "")
	v.SetDefault("swagger.server_uri", "")
	v.SetDefault("swagger.open_api_version", "3.0.3")
	v.SetDefault("swagger.description", "")
	v.SetDefault("swagger.terms_of_service", "")
	v.SetDefault("swagger.contact_name", "")
	v.SetDefault("swagger.contact_uri", "")
	v.SetDefault("swagger.contact_email", "")
	v.SetDefault("swagger.license_uri", "")
	v.SetDefault("swagger.server_description", "")
	v.SetDefault("swagger.pretty_print", false)
	v.SetDefault("swagger.no_json", false)
	v.SetDefault("swagger.no_yaml", false)

	v.SetDefault("plugins", []string{"jsonapi", "swagger"})

	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.verbose", false)
}

// bindFlags binds the known flags to their keys and applies every
// --set key=value override
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
	}

	sets, err := flags.GetStringArray("set")
	if err != nil {
		return nil
	}
	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return errs.Configf("--set expects key=value, got %q", kv)
		}
		v.Set(strings.TrimSpace(key), value)
	}
	return nil
}

// normalizePaths converts relative paths to absolute paths
func (c *Config) normalizePaths() error {
	for i, input := range c.Inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			return fmt.Errorf("failed to resolve input %s: %w", input, err)
		}
		c.Inputs[i] = abs
	}

	absOutput, err := filepath.Abs(c.Output.Dir)
	if err != nil {
		return fmt.Errorf("failed to resolve output.dir: %w", err)
	}
	c.Output.Dir = absOutput

	if c.TempDir != "" {
		if c.TempDir, err = filepath.Abs(c.TempDir); err != nil {
			return fmt.Errorf("failed to resolve temp_dir: %w", err)
		}
	}
	if c.Log.File != "" {
		if c.Log.File, err = filepath.Abs(c.Log.File); err != nil {
			return fmt.Errorf("failed to resolve log.file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeVerbs() {
	for _, verbs := range [][]string{c.Rest.IfUnmodifiedSinceHeaderVerbs, c.Filter.VerbIncludes, c.Filter.VerbExcludes} {
		for i, verb := range verbs {
			verbs[i] = strings.ToUpper(strings.TrimSpace(verb))
		}
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
}

// EnsureOutputDir creates the output directory if it doesn't exist
func (c *Config) EnsureOutputDir() error {
	if err := os.MkdirAll(c.Output.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// GetCatalogPath returns the full path for the catalog workbook
func (c *Config) GetCatalogPath() string {
	return filepath.Join(c.Output.Dir, c.Output.FileName+".xlsx")
}

// HasPlugin reports whether the named plugin is enabled
func (c *Config) HasPlugin(name string) bool {
	for _, p := range c.Plugins {
		if p == name {
			return true
		}
	}
	return false
}

// NewValidator returns a validator that reports fields by their
// configuration key
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := NewValidator().Struct(c); err != nil {
		return errs.FromValidation("", err)
	}

	for _, input := range c.Inputs {
		if _, err := os.Stat(input); os.IsNotExist(err) {
			return errs.Configf("input does not exist: %s", input)
		}
	}

	if c.Rest.IfUnmodifiedSinceHeaderIsOptional && len(c.Rest.IfUnmodifiedSinceHeaderVerbs) == 0 {
		return errs.Configf("rest.if_unmodified_since_header_is_optional requires rest.if_unmodified_since_header_verbs")
	}

	for key, patterns := range map[string][]string{
		"filter.content_type_includes": c.Filter.ContentTypeIncludes,
		"filter.content_type_excludes": c.Filter.ContentTypeExcludes,
	} {
		for _, p := range patterns {
			if _, err := regexp.Compile(p); err != nil {
				return errs.Configf("%s: invalid regular expression %q: %v", key, p, err)
			}
		}
	}

	if c.HasPlugin("swagger") {
		if err := NewValidator().Struct(c.Swagger); err != nil {
			return errs.FromValidation("swagger", err)
		}
	}
	return nil
}

// Print displays the current configuration
func (c *Config) Print() {
	fmt.Println("=== httpgen Configuration ===")
	fmt.Printf("Inputs:           %v\n", c.Inputs)
	fmt.Printf("Plugins:          %v\n", c.Plugins)
	fmt.Printf("Compiler:         %s %s\n", c.Compiler.Command, strings.Join(c.Compiler.Args, " "))
	fmt.Printf("Temp Directory:   %s\n", c.TempDir)
	fmt.Printf("Output Directory: %s\n", c.Output.Dir)
	fmt.Printf("Catalog File:     %s\n", c.GetCatalogPath())
	fmt.Println("=============================")
}
