package filesystem

import (
	"fmt"
	"os"
	"path/filepath"

	"transcode-worker/domain/media"

	"github.com/google/uuid"
)

// Workspace is a private directory holding the files of one message
type Workspace struct {
	dir  string
	keep bool
}

// Dir returns the workspace directory
func (w *Workspace) Dir() string {
	return w.dir
}

// Path joins name onto the workspace directory
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Release removes the workspace and everything in it, unless files are kept
func (w *Workspace) Release() error {
	if w.keep {
		return nil
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", w.dir, err)
	}
	return nil
}

// Workspaces hands out per-message directories below a root
type Workspaces struct {
	root string
	keep bool
}

// NewWorkspaces creates a workspace provider rooted at root.
// An empty root uses the system temp directory.
func NewWorkspaces(root string, keepFiles bool) *Workspaces {
	if root == "" {
		root = filepath.Join(os.TempDir(), "transcode-worker")
	}
	return &Workspaces{root: root, keep: keepFiles}
}

// Root returns the directory workspaces are created in
func (w *Workspaces) Root() string {
	return w.root
}

// Acquire creates a new uniquely named workspace
func (w *Workspaces) Acquire() (media.Workspace, error) {
	dir := filepath.Join(w.root, uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace %s: %w", dir, err)
	}
	return &Workspace{dir: dir, keep: w.keep}, nil
}

// Ensure Workspaces implements media.WorkspaceProvider
var _ media.WorkspaceProvider = (*Workspaces)(nil)
