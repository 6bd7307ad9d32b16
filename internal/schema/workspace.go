package schema

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/xid"

	"httpgen/internal/logger"
)

// SourceFilename is the name of the externalized document in a workspace
const SourceFilename = "http_schema.SimpleSchema"

// Workspace is the directory the schema compiler works in. Ephemeral
// workspaces are removed by Close unless they were retained.
type Workspace struct {
	Dir    string
	RunID  string
	owned  bool
	retain bool
}

// NewWorkspace uses dir when provided and creates an ephemeral directory
// otherwise
func NewWorkspace(dir string) (*Workspace, error) {
	runID := xid.New().String()

	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create workspace: %w", err)
		}
		return &Workspace{Dir: dir, RunID: runID}, nil
	}

	tmp, err := os.MkdirTemp("", "httpgen-"+runID+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{Dir: tmp, RunID: runID, owned: true}, nil
}

// Retain keeps an ephemeral workspace on Close so a failed compilation can be
// inspected
func (w *Workspace) Retain() {
	if w.owned && !w.retain {
		logger.Warn("Keeping workspace for inspection: %s", w.Dir)
	}
	w.retain = true
}

// Ephemeral reports whether the workspace was created by NewWorkspace
func (w *Workspace) Ephemeral() bool {
	return w.owned
}

// Close removes an ephemeral workspace
func (w *Workspace) Close() error {
	if !w.owned || w.retain {
		return nil
	}
	return os.RemoveAll(w.Dir)
}

// WriteIfChanged writes content to name inside the workspace unless the file
// already holds identical content
func (w *Workspace) WriteIfChanged(name string, content []byte) (string, bool, error) {
	path := filepath.Join(w.Dir, name)

	if existing, err := os.ReadFile(path); err == nil {
		prev := sha256.Sum256(existing)
		next := sha256.Sum256(content)
		if bytes.Equal(prev[:], next[:]) {
			logger.Debug("%s is unchanged", path)
			return path, false, nil
		}
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, true, nil
}
