package schema

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"httpgen/internal/errs"
	"httpgen/internal/logger"
)

// OutputKind is a representation the schema compiler can produce
type OutputKind string

const (
	// KindTypeTree is the native serialized type tree consumed by Align
	KindTypeTree OutputKind = "TypeTree"
	// KindJSONSchema is consumed by BindJSONSchema
	KindJSONSchema OutputKind = "JsonSchema"
)

const (
	schemaName       = "http_schema"
	pathFilename     = schemaName + ".path"
	typeTreeFilename = schemaName + ".TypeTree.yaml"
	jsonFilename     = schemaName + ".schema.json"
	stampFilename    = schemaName + ".sha256"
)

// Compiler invokes the external schema compiler
type Compiler struct {
	Command string
	Args    []string
	Verbose bool
}

// OutputDir is where the compiler writes the given kind
func OutputDir(workspace string, kind OutputKind) string {
	return filepath.Join(workspace, string(kind))
}

// SourceHash is the stamp recorded for a compiled source
func SourceHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// UpToDate reports whether kind was last compiled successfully from a source
// with the given hash
func UpToDate(workspace string, kind OutputKind, hash string) bool {
	stamp, err := os.ReadFile(filepath.Join(OutputDir(workspace, kind), stampFilename))
	if err != nil || strings.TrimSpace(string(stamp)) != hash {
		return false
	}

	var marker string
	switch kind {
	case KindTypeTree:
		marker = pathFilename
	default:
		marker = jsonFilename
	}
	_, err = os.Stat(filepath.Join(OutputDir(workspace, kind), marker))
	return err == nil
}

// Compile runs one compiler invocation per kind in parallel and waits for
// all of them. The first failure is returned.
func (c *Compiler) Compile(ctx context.Context, workspace, input string, kinds ...OutputKind) error {
	var g errgroup.Group
	for _, kind := range kinds {
		g.Go(func() error {
			return c.run(ctx, workspace, input, kind)
		})
	}
	return g.Wait()
}

func (c *Compiler) args(workspace, input string, kind OutputKind) []string {
	args := append([]string(nil), c.Args...)
	args = append(args,
		"Generate",
		string(kind),
		schemaName,
		OutputDir(workspace, kind),
		"/input="+input,
		"/output_data_filename_prefix="+string(kind),
	)
	if c.Verbose {
		args = append(args, "/verbose")
	}
	return args
}

func (c *Compiler) run(ctx context.Context, workspace, input string, kind OutputKind) error {
	if c.Command == "" {
		return errs.Configf("no schema compiler command is configured")
	}
	if err := os.MkdirAll(OutputDir(workspace, kind), 0755); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", kind, err)
	}

	source, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}
	// Output of an earlier source must not survive a failed compile
	stamp := filepath.Join(OutputDir(workspace, kind), stampFilename)
	if err := os.Remove(stamp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to invalidate %s: %w", stamp, err)
	}

	args := c.args(workspace, input, kind)
	commandLine := c.Command + " " + strings.Join(args, " ")
	logger.Debug("Running %s", commandLine)

	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Dir = workspace
	output, err := cmd.CombinedOutput()
	if err == nil {
		logger.Debug("%s compiled", kind)
		if err := os.WriteFile(stamp, []byte(SourceHash(source)+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to record %s: %w", stamp, err)
		}
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &errs.SubprocessFailure{Command: commandLine, ExitCode: exitErr.ExitCode(), Output: string(output)}
	}
	return &errs.SubprocessFailure{Command: commandLine, ExitCode: -1, Output: err.Error()}
}
