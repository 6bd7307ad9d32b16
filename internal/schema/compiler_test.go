package schema

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"httpgen/internal/errs"
)

// TestHelperProcess stands in for the schema compiler. It is a no-op unless
// invoked through helperCompiler.
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
		fmt.Fprintln(os.Stderr, "http_schema.SimpleSchema(3): syntax error")
		os.Exit(2)
	}

	// Generate <kind> http_schema <outdir> /input=... /output_data_filename_prefix=...
	kind, outDir := args[1], args[3]
	switch kind {
	case string(KindTypeTree):
		os.WriteFile(filepath.Join(outDir, "http_schema.path"), []byte("."), 0644)
		os.WriteFile(filepath.Join(outDir, "http_schema.TypeTree.yaml"), []byte(os.Getenv("HELPER_TYPE_TREE")), 0644)
	case string(KindJSONSchema):
		os.WriteFile(filepath.Join(outDir, "http_schema.schema.json"), []byte(os.Getenv("HELPER_JSON_SCHEMA")), 0644)
	}
	os.Exit(0)
}

func helperCompiler(t *testing.T) *Compiler {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	return &Compiler{
		Command: os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess", "--"},
	}
}

func TestCompileBothKinds(t *testing.T) {
	c := helperCompiler(t)
	t.Setenv("HELPER_TYPE_TREE", fixtureTypeTree)
	t.Setenv("HELPER_JSON_SCHEMA", `{"properties": {"endpoint_0": {"type": "object"}}}`)

	ws := t.TempDir()
	input := filepath.Join(ws, SourceFilename)
	source := []byte(NewPlan(nil).Render())
	if err := os.WriteFile(input, source, 0644); err != nil {
		t.Fatal(err)
	}

	if err := c.Compile(context.Background(), ws, input, KindTypeTree, KindJSONSchema); err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	for _, kind := range []OutputKind{KindTypeTree, KindJSONSchema} {
		if !UpToDate(ws, kind, SourceHash(source)) {
			t.Errorf("UpToDate(%s) = false after compiling", kind)
		}
		if UpToDate(ws, kind, SourceHash([]byte("<other string>\n"))) {
			t.Errorf("UpToDate(%s) = true for a different source", kind)
		}
	}

	elements, err := LoadTypeTree(OutputDir(ws, KindTypeTree))
	if err != nil {
		t.Fatalf("LoadTypeTree() error: %v", err)
	}
	if findElement(elements, "endpoint_0/method_0/request_0/query_1") == nil {
		t.Error("compiled type tree is missing query_1")
	}

	doc, err := LoadJSONSchema(OutputDir(ws, KindJSONSchema))
	if err != nil {
		t.Fatalf("LoadJSONSchema() error: %v", err)
	}
	if _, ok := doc["properties"]; !ok {
		t.Error("JSON schema missing properties")
	}
}

func TestCompileFailure(t *testing.T) {
	c := helperCompiler(t)
	t.Setenv("HELPER_FAIL", "1")

	ws := t.TempDir()
	input := filepath.Join(ws, SourceFilename)
	if err := os.WriteFile(input, []byte("<a string>\n"), 0644); err != nil {
		t.Fatal(err)
	}
	err := c.Compile(context.Background(), ws, input, KindTypeTree)

	var sf *errs.SubprocessFailure
	if !errors.As(err, &sf) {
		t.Fatalf("Compile() error = %v, want SubprocessFailure", err)
	}
	if sf.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", sf.ExitCode)
	}
	if !strings.Contains(sf.Output, "http_schema.SimpleSchema(3): syntax error") {
		t.Errorf("Output = %q, want the compiler diagnostics", sf.Output)
	}
	if !strings.Contains(sf.Command, "Generate TypeTree http_schema") {
		t.Errorf("Command = %q", sf.Command)
	}
}

func TestCompileFailureInvalidatesEarlierOutput(t *testing.T) {
	c := helperCompiler(t)
	t.Setenv("HELPER_TYPE_TREE", fixtureTypeTree)

	ws := t.TempDir()
	input := filepath.Join(ws, SourceFilename)
	first := []byte("<a string>\n")
	if err := os.WriteFile(input, first, 0644); err != nil {
		t.Fatal(err)
	}
	if err := c.Compile(context.Background(), ws, input, KindTypeTree); err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	if err := os.WriteFile(input, []byte("<a int>\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HELPER_FAIL", "1")
	if err := c.Compile(context.Background(), ws, input, KindTypeTree); err == nil {
		t.Fatal("Compile() succeeded with a failing compiler")
	}

	if UpToDate(ws, KindTypeTree, SourceHash(first)) {
		t.Error("output of the first source is still reported up to date")
	}
}

func TestCompilerArgs(t *testing.T) {
	c := &Compiler{Command: "SimpleSchemaGenerator", Verbose: true}
	args := c.args("/ws", "/ws/http_schema.SimpleSchema", KindJSONSchema)

	expected := []string{
		"Generate", "JsonSchema", "http_schema", filepath.Join("/ws", "JsonSchema"),
		"/input=/ws/http_schema.SimpleSchema", "/output_data_filename_prefix=JsonSchema", "/verbose",
	}
	if strings.Join(args, " ") != strings.Join(expected, " ") {
		t.Errorf("args = %v, want %v", args, expected)
	}
}

func TestLoadTypeTreeBadPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "http_schema.path"), []byte("missing"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTypeTree(dir); err == nil {
		t.Error("LoadTypeTree() accepted a path file naming a missing directory")
	}
}

func TestWorkspace(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "work")
	ws, err := NewWorkspace(dir)
	if err != nil {
		t.Fatalf("NewWorkspace() error: %v", err)
	}
	if ws.Ephemeral() {
		t.Error("a caller supplied workspace must not be ephemeral")
	}

	_, changed, err := ws.WriteIfChanged(SourceFilename, []byte("<a string>\n"))
	if err != nil || !changed {
		t.Fatalf("first write changed=%v err=%v", changed, err)
	}
	_, changed, err = ws.WriteIfChanged(SourceFilename, []byte("<a string>\n"))
	if err != nil || changed {
		t.Errorf("identical write changed=%v err=%v", changed, err)
	}
	_, changed, _ = ws.WriteIfChanged(SourceFilename, []byte("<b string>\n"))
	if !changed {
		t.Error("different content was not written")
	}

	ws.Close()
	if _, err := os.Stat(dir); err != nil {
		t.Error("Close removed a caller supplied workspace")
	}
}

func TestEphemeralWorkspace(t *testing.T) {
	ws, err := NewWorkspace("")
	if err != nil {
		t.Fatalf("NewWorkspace() error: %v", err)
	}
	if !ws.Ephemeral() || !strings.Contains(ws.Dir, ws.RunID) {
		t.Errorf("workspace %q should be ephemeral and named after run %s", ws.Dir, ws.RunID)
	}
	if err := ws.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Error("Close did not remove the ephemeral workspace")
	}

	retained, err := NewWorkspace("")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(retained.Dir)
	retained.Retain()
	retained.Close()
	if _, err := os.Stat(retained.Dir); err != nil {
		t.Error("Close removed a retained workspace")
	}
}
