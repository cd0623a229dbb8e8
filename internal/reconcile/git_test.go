package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"reposync/internal/config"
	"reposync/internal/gittest"
	"reposync/internal/runner"
)

func gitReconciler(root string, policy config.Policy) *Reconciler {
	return &Reconciler{
		Runner:        runner.New(runner.Options{Quiet: true}),
		Root:          root,
		Policy:        policy,
		DefaultBranch: "main",
	}
}

func TestGit_CloneThenIdempotentUpdate(t *testing.T) {
	remote := gittest.NewRemote(t, map[string]string{ManifestFile: `{"name":"app"}`})
	root := t.TempDir()
	rec := gitReconciler(root, config.PolicyConservative)
	s := config.ProjectSpec{Name: "app", RepoURL: remote.URL, Branch: "main"}

	first := rec.Reconcile(context.Background(), s)
	if first.Action != Cloned || first.Err != nil {
		t.Fatalf("first Reconcile() = %+v", first)
	}
	if !first.After.IsRepository() || !first.After.HasManifest {
		t.Errorf("After = %+v, want a repository with a manifest", first.After)
	}
	if head := gittest.Git(t, first.After.Path, "rev-parse", "HEAD"); head != remote.Head("main") {
		t.Errorf("HEAD = %s, want %s", head, remote.Head("main"))
	}

	second := rec.Reconcile(context.Background(), s)
	if second.Action != Updated || second.Err != nil {
		t.Fatalf("second Reconcile() = %+v", second)
	}
	if second.After != first.After {
		t.Errorf("state changed between runs: %+v then %+v", first.After, second.After)
	}
}

func TestGit_PullsNewCommits(t *testing.T) {
	remote := gittest.NewRemote(t, nil)
	root := t.TempDir()
	s := config.ProjectSpec{Name: "app", RepoURL: remote.URL, Branch: "main"}

	for _, policy := range []config.Policy{config.PolicyConservative, config.PolicyAggressive} {
		t.Run(string(policy), func(t *testing.T) {
			rec := gitReconciler(root, policy)
			if out := rec.Reconcile(context.Background(), s); out.Err != nil {
				t.Fatalf("Reconcile() = %+v", out)
			}

			want := remote.Commit("main", map[string]string{"CHANGELOG.md": string(policy)})
			if out := rec.Reconcile(context.Background(), s); out.Action != Updated || out.Err != nil {
				t.Fatalf("Reconcile() = %+v", out)
			}
			if head := gittest.Git(t, filepath.Join(root, "app"), "rev-parse", "HEAD"); head != want {
				t.Errorf("HEAD = %s, want %s", head, want)
			}
		})
	}
}

func TestGit_CloneNonDefaultBranch(t *testing.T) {
	remote := gittest.NewRemote(t, nil)
	want := remote.Commit("develop", map[string]string{"feature.txt": "wip"})
	root := t.TempDir()

	out := gitReconciler(root, config.PolicyConservative).Reconcile(context.Background(),
		config.ProjectSpec{Name: "app", RepoURL: remote.URL, Branch: "develop"})
	if out.Err != nil {
		t.Fatalf("Reconcile() = %+v", out)
	}
	dir := filepath.Join(root, "app")
	if branch := gittest.Git(t, dir, "rev-parse", "--abbrev-ref", "HEAD"); branch != "develop" {
		t.Errorf("branch = %s, want develop", branch)
	}
	if head := gittest.Git(t, dir, "rev-parse", "HEAD"); head != want {
		t.Errorf("HEAD = %s, want %s", head, want)
	}
}

func TestGit_ConservativeSwitchesBranchBeforePull(t *testing.T) {
	remote := gittest.NewRemote(t, nil)
	remote.Commit("develop", map[string]string{"feature.txt": "v1"})
	root := t.TempDir()

	rec := gitReconciler(root, config.PolicyConservative)
	if out := rec.Reconcile(context.Background(), config.ProjectSpec{Name: "app", RepoURL: remote.URL, Branch: "main"}); out.Err != nil {
		t.Fatalf("clone: %+v", out)
	}

	out := rec.Reconcile(context.Background(), config.ProjectSpec{Name: "app", RepoURL: remote.URL, Branch: "develop"})
	if out.Err != nil {
		t.Fatalf("update: %+v", out)
	}
	if branch := gittest.Git(t, filepath.Join(root, "app"), "rev-parse", "--abbrev-ref", "HEAD"); branch != "develop" {
		t.Errorf("branch = %s, want develop", branch)
	}
}

func TestGit_AggressiveReplacesForeignDirectory(t *testing.T) {
	remote := gittest.NewRemote(t, map[string]string{ManifestFile: "{}"})
	remote.Commit("develop", map[string]string{"DEVELOP.md": "develop"})

	for _, branch := range []string{"main", "develop"} {
		t.Run(branch, func(t *testing.T) {
			root := t.TempDir()
			if err := os.MkdirAll(filepath.Join(root, "app", "leftover"), 0o755); err != nil {
				t.Fatal(err)
			}

			out := gitReconciler(root, config.PolicyAggressive).Reconcile(context.Background(),
				config.ProjectSpec{Name: "app", RepoURL: remote.URL, Branch: branch})
			if out.Action != Recloned || out.Err != nil {
				t.Fatalf("Reconcile() = %+v", out)
			}
			if !out.After.IsRepository() || !out.After.HasManifest {
				t.Errorf("After = %+v", out.After)
			}
			if _, err := os.Stat(filepath.Join(root, "app", "leftover")); !os.IsNotExist(err) {
				t.Error("leftover directory survived the re-clone")
			}
			if got := gittest.Git(t, out.After.Path, "rev-parse", "--abbrev-ref", "HEAD"); got != branch {
				t.Errorf("checked out %s, want %s", got, branch)
			}
			if head := gittest.Git(t, out.After.Path, "rev-parse", "HEAD"); head != remote.Head(branch) {
				t.Errorf("HEAD = %s, want %s", head, remote.Head(branch))
			}
		})
	}
}

func TestGit_BadURLFails(t *testing.T) {
	gittest.RequireGit(t)
	root := t.TempDir()

	out := gitReconciler(root, config.PolicyConservative).Reconcile(context.Background(),
		config.ProjectSpec{Name: "app", RepoURL: filepath.Join(root, "does-not-exist.git"), Branch: "main"})
	if out.Err == nil || out.Action != Cloned {
		t.Errorf("Reconcile() = %+v, want a failed clone", out)
	}
	if out.After.Exists() {
		t.Error("failed clone left a directory behind")
	}
}
