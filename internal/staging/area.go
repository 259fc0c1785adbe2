package staging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"tidybids/internal/fileutil"
)

// Area is the shadow copy backing one apply transaction. Every file the
// transaction will move or delete is stashed here first; if the mutation
// phase fails the stashed copies restore the pre-edit state, and on commit
// the whole area is discarded.
type Area struct {
	runID   string
	dir     string
	stashed map[string]string
}

// NewArea creates a fresh area under the staging directory.
func NewArea(stagingDir string) (*Area, error) {
	runID := uuid.NewString()
	dir := filepath.Join(stagingDir, "apply-"+runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging area: %w", err)
	}
	return &Area{runID: runID, dir: dir, stashed: make(map[string]string)}, nil
}

// RunID returns the transaction identifier the area was created for.
func (a *Area) RunID() string { return a.runID }

// Dir returns the area's directory.
func (a *Area) Dir() string { return a.dir }

// Stash copies a file into the area under its dataset-relative path.
func (a *Area) Stash(relPath, absPath string) error {
	if _, done := a.stashed[relPath]; done {
		return nil
	}
	target := filepath.Join(a.dir, relPath)
	if err := fileutil.CopyFile(absPath, target); err != nil {
		return fmt.Errorf("stash %s: %w", relPath, err)
	}
	a.stashed[relPath] = target
	return nil
}

// Restore copies a stashed file back to the given absolute path.
func (a *Area) Restore(relPath, absPath string) error {
	stashed, ok := a.stashed[relPath]
	if !ok {
		return fmt.Errorf("restore %s: not stashed", relPath)
	}
	if err := fileutil.CopyFile(stashed, absPath); err != nil {
		return fmt.Errorf("restore %s: %w", relPath, err)
	}
	return nil
}

// Stashed reports whether the relative path has been stashed.
func (a *Area) Stashed(relPath string) bool {
	_, ok := a.stashed[relPath]
	return ok
}

// Discard removes the area and all stashed copies.
func (a *Area) Discard() error {
	return os.RemoveAll(a.dir)
}
