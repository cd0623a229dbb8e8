// pattern: Imperative Shell

package reconcile

import (
	"os"
	"path/filepath"
)

const (
	// ManifestFile marks a directory as a project with dependencies.
	ManifestFile = "package.json"
	// DependencyDir holds installed dependencies.
	DependencyDir = "node_modules"

	gitDir = ".git"
)

// RepoState classifies a project directory.
type RepoState int

const (
	Missing       RepoState = iota // no directory
	NotRepository                  // directory without repository metadata
	Repository                     // directory with repository metadata
)

func (s RepoState) String() string {
	switch s {
	case NotRepository:
		return "not-repository"
	case Repository:
		return "repository"
	default:
		return "missing"
	}
}

// LocalState is what Inspect finds for one project. It is recomputed
// every time and never stored.
type LocalState struct {
	Path            string
	Repo            RepoState
	HasManifest     bool
	HasDependencies bool
}

// Exists reports whether the project directory exists.
func (s LocalState) Exists() bool {
	return s.Repo != Missing
}

// IsRepository reports whether the directory holds repository metadata.
func (s LocalState) IsRepository() bool {
	return s.Repo == Repository
}

// Inspect reads the state of the project directory name under root.
func Inspect(root, name string) LocalState {
	path := filepath.Join(root, name)
	state := LocalState{Path: path}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		// A regular file in the project's place blocks a clone like a
		// foreign directory does.
		if err == nil {
			state.Repo = NotRepository
		}
		return state
	}

	state.Repo = NotRepository
	// .git is a directory in a clone and a file in a linked worktree.
	if exists(filepath.Join(path, gitDir)) {
		state.Repo = Repository
	}
	state.HasManifest = exists(filepath.Join(path, ManifestFile))
	state.HasDependencies = exists(filepath.Join(path, DependencyDir))
	return state
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
