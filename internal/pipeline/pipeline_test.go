package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"httpgen/internal/config"
	"httpgen/internal/errs"
	"httpgen/internal/schema"
)

// TestHelperProcess stands in for the schema compiler
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}

	if os.Getenv("HELPER_FAIL") == "1" {
		fmt.Fprintln(os.Stderr, "http_schema.SimpleSchema(1): unknown type")
		os.Exit(1)
	}

	kind, outDir := args[1], args[3]
	switch kind {
	case "TypeTree":
		os.WriteFile(filepath.Join(outDir, "http_schema.path"), []byte("."), 0644)
		os.WriteFile(filepath.Join(outDir, "http_schema.TypeTree.yaml"), []byte(os.Getenv("HELPER_TYPE_TREE")), 0644)
	case "JsonSchema":
		os.WriteFile(filepath.Join(outDir, "http_schema.schema.json"), []byte(os.Getenv("HELPER_JSON_SCHEMA")), 0644)
	}
	os.Exit(0)
}

const itemsDocument = `simple_schema_content: |
  (__metadata_items):
      <__identities__>:
          <id string>
      <__items__>:
          <name string>
      <__mutable_items__>:
          <name string>
      <__references__>: pass
      <__backrefs__>: pass
endpoints:
  - uri: /items/
    context: rest::collection
    methods:
      - verb: get
        responses:
          - code: 200
    children:
      - uri: "{item_id}/"
        group: items
        context: rest::collection_item
        variables:
          - name: item_id
            description: Item identifier
            simple_schema: string
        methods:
          - verb: get
            responses:
              - code: 200
`

const itemsTypeTree = `
- name: __metadata_items
  children:
    - name: __identities__
      children: [{name: id, type: string}]
    - name: __items__
      children: [{name: name, type: string}]
    - name: __mutable_items__
      children: [{name: name, type: string}]
    - name: __references__
    - name: __backrefs__
- name: simple_schema_delimiter_0
  type: string
- name: endpoint_0
  children:
    - name: endpoint_0
      children:
        - name: variable_0
          children: [{name: item_id, type: string}]
`

const itemsJSONSchema = `{
  "definitions": {"Id": {"type": "string", "pattern": "^[a-z0-9]+$"}},
  "properties": {
    "endpoint_0": {
      "properties": {
        "endpoint_0": {
          "properties": {
            "variable_0": {
              "properties": {"item_id": {"$ref": "#/definitions/Id"}},
              "required": ["item_id"]
            }
          }
        }
      }
    }
  }
}`

func testConfig(t *testing.T, plugins ...string) *config.Config {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("HELPER_TYPE_TREE", itemsTypeTree)
	t.Setenv("HELPER_JSON_SCHEMA", itemsJSONSchema)

	dir := t.TempDir()
	input := filepath.Join(dir, "specs", "items.yaml")
	if err := os.MkdirAll(filepath.Dir(input), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(input, []byte(itemsDocument), 0644); err != nil {
		t.Fatal(err)
	}

	return &config.Config{
		Inputs: []string{filepath.Join(dir, "specs")},
		Output: config.OutputConfig{Dir: filepath.Join(dir, "out"), FileName: "endpoints"},
		Compiler: config.CompilerConfig{
			Command: os.Args[0],
			Args:    []string{"-test.run=TestHelperProcess", "--"},
		},
		TempDir: filepath.Join(dir, "work"),
		Swagger: config.SwaggerConfig{
			Title:          "Items",
			APIVersion:     "1.0.0",
			LicenseName:    "MIT",
			ServerURI:      "https://api.example.com",
			OpenAPIVersion: "3.0.3",
		},
		Plugins: plugins,
	}
}

func TestRun(t *testing.T) {
	cfg := testConfig(t, "jsonapi", "swagger", "catalog")

	result, err := New(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.Compiled) != 2 {
		t.Errorf("Compiled = %v, expected both kinds", result.Compiled)
	}
	if result.Workspace != cfg.TempDir || result.RunID == "" {
		t.Errorf("unexpected result %+v", result)
	}

	for _, name := range []string{"items.rest.yaml", "Swagger.json", "Swagger.yaml", "endpoints.xlsx"} {
		path := filepath.Join(cfg.Output.Dir, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s was not written: %v", name, err)
		}
	}
	if len(result.Written) != 4 {
		t.Errorf("Written = %v", result.Written)
	}

	if _, err := os.Stat(filepath.Join(cfg.TempDir, schema.SourceFilename)); err != nil {
		t.Errorf("a caller supplied workspace must be kept: %v", err)
	}
}

func TestRunSkipsUpToDateCompilation(t *testing.T) {
	cfg := testConfig(t, "jsonapi")

	if _, err := New(cfg, nil).Run(context.Background()); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}

	// A failing compiler proves the second run does not invoke it
	t.Setenv("HELPER_FAIL", "1")
	result, err := New(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if len(result.Compiled) != 0 {
		t.Errorf("Compiled = %v, expected nothing", result.Compiled)
	}

	// Enabling swagger needs the JSON schema, which was never compiled
	cfg.Plugins = []string{"jsonapi", "swagger"}
	_, err = New(cfg, nil).Run(context.Background())
	var sf *errs.SubprocessFailure
	if !errors.As(err, &sf) {
		t.Errorf("expected the missing JSON schema to be compiled, got %v", err)
	}
}

func TestRunRecompilesAfterFailedCompilation(t *testing.T) {
	cfg := testConfig(t, "jsonapi")
	if _, err := New(cfg, nil).Run(context.Background()); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}

	input := filepath.Join(cfg.Inputs[0], "items.yaml")
	changed := strings.Replace(itemsDocument, "simple_schema: string", "simple_schema: int", 1)
	if err := os.WriteFile(input, []byte(changed), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HELPER_FAIL", "1")
	if _, err := New(cfg, nil).Run(context.Background()); err == nil {
		t.Fatal("second Run() succeeded with a failing compiler")
	}

	// The changed document sits unchanged on disk now, but was never compiled
	t.Setenv("HELPER_FAIL", "0")
	result, err := New(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("third Run() error: %v", err)
	}
	if len(result.Compiled) != 1 || result.Compiled[0] != schema.KindTypeTree {
		t.Errorf("Compiled = %v, expected the type tree to be rebuilt", result.Compiled)
	}
}

func TestRunCompileFailureRetainsWorkspace(t *testing.T) {
	cfg := testConfig(t, "jsonapi")
	cfg.TempDir = ""
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	t.Setenv("HELPER_FAIL", "1")

	_, err := New(cfg, nil).Run(context.Background())
	var sf *errs.SubprocessFailure
	if !errors.As(err, &sf) {
		t.Fatalf("expected SubprocessFailure, got %v", err)
	}
	if sf.ExitCode != 1 {
		t.Errorf("ExitCode = %d", sf.ExitCode)
	}

	kept, _ := filepath.Glob(filepath.Join(tmp, "httpgen-*"))
	if len(kept) != 1 {
		t.Errorf("expected the failed workspace to be kept, found %v", kept)
	}
}

func TestRunRemovesEphemeralWorkspace(t *testing.T) {
	cfg := testConfig(t, "jsonapi")
	cfg.TempDir = ""
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	if _, err := New(cfg, nil).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if kept, _ := filepath.Glob(filepath.Join(tmp, "httpgen-*")); len(kept) != 0 {
		t.Errorf("ephemeral workspace left behind: %v", kept)
	}
}

func TestRunAlignmentFailure(t *testing.T) {
	cfg := testConfig(t, "jsonapi")
	t.Setenv("HELPER_TYPE_TREE", `
- name: simple_schema_delimiter_0
  type: string
- name: endpoint_0
  children:
    - name: endpoint_0
      children:
        - name: variable_0
          children: [{name: item_id, type: string}, {name: extra, type: string}]
`)

	_, err := New(cfg, nil).Run(context.Background())
	var ae *errs.AlignmentError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AlignmentError, got %v", err)
	}
	if ae.Expected != 1 || ae.Actual != 2 {
		t.Errorf("unexpected alignment error %+v", ae)
	}
}

func TestRunRejectsInvalidDocuments(t *testing.T) {
	cfg := testConfig(t, "jsonapi")
	bad := filepath.Join(cfg.Inputs[0], "broken.yaml")
	doc := "endpoints:\n  - uri: /things/{thing_id}/\n    context: rest::collection_item\n"
	if err := os.WriteFile(bad, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := New(cfg, nil).Run(context.Background())
	var ce *errs.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if ce.Filename != bad {
		t.Errorf("Filename = %s, expected %s", ce.Filename, bad)
	}
}

func TestClean(t *testing.T) {
	cfg := testConfig(t, "jsonapi", "catalog")
	if err := cfg.EnsureOutputDir(); err != nil {
		t.Fatal(err)
	}

	generated := filepath.Join(cfg.Output.Dir, "items.rest.yaml")
	unrelated := filepath.Join(cfg.Output.Dir, "notes.txt")
	for _, path := range []string{generated, unrelated} {
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := Clean(cfg)
	if err != nil {
		t.Fatalf("Clean() error: %v", err)
	}
	if len(removed) != 1 || removed[0] != generated {
		t.Errorf("removed = %v", removed)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Error("Clean removed a file it does not own")
	}
}
