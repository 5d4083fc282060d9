package media

// Workspace is local scratch space for the files of one message
type Workspace interface {
	// Dir returns the workspace directory
	Dir() string

	// Path joins name onto the workspace directory
	Path(name string) string

	// Release removes the workspace
	Release() error
}

// WorkspaceProvider hands out fresh workspaces
type WorkspaceProvider interface {
	Acquire() (Workspace, error)
}
