// pattern: Imperative Shell

// Package gittest creates throwaway local git remotes for tests.
package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// identity keeps commits working on hosts without a configured git user.
var identity = []string{
	"-c", "user.name=reposync",
	"-c", "user.email=reposync@example.com",
	"-c", "commit.gpgsign=false",
}

// RequireGit skips the test when git is not on PATH.
func RequireGit(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// Git runs git in dir and returns its trimmed output, failing the test on error.
func Git(t testing.TB, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append(slices.Clone(identity), args...)...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// Remote is a bare repository with a working clone used to push commits.
type Remote struct {
	t    testing.TB
	URL  string // path of the bare repository, usable as a clone URL
	seed string
}

// NewRemote creates a bare repository whose main branch holds files.
func NewRemote(t testing.TB, files map[string]string) *Remote {
	t.Helper()
	RequireGit(t)

	base := t.TempDir()
	bare := filepath.Join(base, "remote.git")
	seed := filepath.Join(base, "seed")

	Git(t, base, "init", "--bare", bare)
	Git(t, bare, "symbolic-ref", "HEAD", "refs/heads/main")
	Git(t, base, "init", seed)
	Git(t, seed, "symbolic-ref", "HEAD", "refs/heads/main")
	Git(t, seed, "remote", "add", "origin", bare)

	r := &Remote{t: t, URL: bare, seed: seed}
	if len(files) == 0 {
		files = map[string]string{"README.md": "seed\n"}
	}
	r.write(files)
	Git(t, seed, "add", "-A")
	Git(t, seed, "commit", "-m", "initial")
	Git(t, seed, "push", "origin", "main")
	return r
}

// Commit writes files on branch, commits them and pushes. The branch is
// created from the current HEAD when it does not exist yet.
func (r *Remote) Commit(branch string, files map[string]string) string {
	r.t.Helper()
	if Git(r.t, r.seed, "branch", "--list", branch) == "" {
		Git(r.t, r.seed, "checkout", "-b", branch)
	} else {
		Git(r.t, r.seed, "checkout", branch)
	}
	r.write(files)
	Git(r.t, r.seed, "add", "-A")
	Git(r.t, r.seed, "commit", "-m", "update "+branch)
	Git(r.t, r.seed, "push", "origin", branch)
	return Git(r.t, r.seed, "rev-parse", "HEAD")
}

// Head returns the commit branch points at in the bare repository.
func (r *Remote) Head(branch string) string {
	r.t.Helper()
	return Git(r.t, r.URL, "rev-parse", "refs/heads/"+branch)
}

func (r *Remote) write(files map[string]string) {
	r.t.Helper()
	for name, content := range files {
		path := filepath.Join(r.seed, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			r.t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			r.t.Fatal(err)
		}
	}
}
