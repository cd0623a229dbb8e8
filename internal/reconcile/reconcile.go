// pattern: Imperative Shell

// Package reconcile drives a project directory to a cloned, up-to-date
// repository on its configured branch.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"

	"reposync/internal/config"
	"reposync/internal/logging"
	"reposync/internal/runner"
)

var (
	ErrCloneFailed   = errors.New("clone failed")
	ErrPullFailed    = errors.New("pull failed")
	ErrNotRepository = errors.New("directory exists but is not a repository")
	ErrRemoveFailed  = errors.New("removing directory failed")
)

// Action is the transition Reconcile took.
type Action int

const (
	Skipped  Action = iota // no remote configured
	Cloned                 // directory was missing
	Updated                // existing repository pulled
	Blocked                // foreign directory left in place
	Recloned               // foreign directory removed and cloned
)

func (a Action) String() string {
	switch a {
	case Cloned:
		return "cloned"
	case Updated:
		return "updated"
	case Blocked:
		return "blocked"
	case Recloned:
		return "recloned"
	default:
		return "skipped"
	}
}

// Outcome reports one reconciliation. Err is nil for Skipped and for
// successful clones and updates.
type Outcome struct {
	Action Action
	Before LocalState
	After  LocalState
	Err    error
}

// Reconciler reconciles projects under Root.
type Reconciler struct {
	Runner        runner.Runner
	Root          string
	Policy        config.Policy
	DefaultBranch string
	Retry         runner.RetryPolicy
	Logger        *logging.ScopedLogger
}

// Reconcile inspects spec's directory and clones, updates, blocks or
// replaces it according to the policy.
func (r *Reconciler) Reconcile(ctx context.Context, spec config.ProjectSpec) Outcome {
	logger := r.logger()
	before := Inspect(r.Root, spec.Name)
	out := Outcome{Before: before}

	switch {
	case spec.RepoURL == "":
		logger.Info("no repository configured, skipping")
		out.Action = Skipped

	case before.Repo == Missing:
		out.Action = Cloned
		out.Err = r.clone(ctx, spec)

	case before.Repo == NotRepository && r.Policy == config.PolicyAggressive:
		out.Action = Recloned
		logger.Warn("directory is not a repository, removing it", "path", before.Path)
		if err := os.RemoveAll(before.Path); err != nil {
			out.Err = fmt.Errorf("%w: %w", ErrRemoveFailed, err)
			break
		}
		out.Err = r.clone(ctx, spec)

	case before.Repo == NotRepository:
		out.Action = Blocked
		logger.Warn("directory exists but is not a repository, leaving it untouched", "path", before.Path)
		out.Err = fmt.Errorf("%w: %s", ErrNotRepository, before.Path)

	default:
		out.Action = Updated
		out.Err = r.update(ctx, spec, before.Path)
	}

	out.After = Inspect(r.Root, spec.Name)
	return out
}

func (r *Reconciler) clone(ctx context.Context, spec config.ProjectSpec) error {
	args := []string{"clone"}
	if spec.Branch != "" && spec.Branch != r.defaultBranch() {
		args = append(args, "-b", spec.Branch)
	}
	args = append(args, spec.RepoURL, spec.Name)

	r.logger().Info("cloning repository", "url", spec.RepoURL, "branch", spec.Branch)
	res := runner.RunWithRetry(ctx, r.Runner, r.git(r.Root, args...), r.Retry, r.logger())
	if !res.Success {
		r.logger().Error("clone failed", "url", spec.RepoURL, "exit_code", res.ExitCode)
		return fmt.Errorf("%w: %s", ErrCloneFailed, spec.RepoURL)
	}
	r.logger().Info("repository cloned")
	return nil
}

func (r *Reconciler) update(ctx context.Context, spec config.ProjectSpec, dir string) error {
	logger := r.logger()
	logger.Info("repository exists, updating", "branch", spec.Branch)

	pull := r.git(dir, "pull")
	if r.Policy == config.PolicyAggressive {
		pull = r.git(dir, "pull", "origin", r.branch(spec))
	} else if spec.Branch != "" && spec.Branch != r.defaultBranch() {
		if res := r.Runner.Run(ctx, r.git(dir, "checkout", spec.Branch)); !res.Success {
			logger.Warn("branch checkout failed, pulling the current branch", "branch", spec.Branch)
		}
	}

	res := runner.RunWithRetry(ctx, r.Runner, pull, r.Retry, logger)
	if !res.Success {
		logger.Error("pull failed", "exit_code", res.ExitCode)
		return fmt.Errorf("%w: %s", ErrPullFailed, dir)
	}
	logger.Info("repository updated")
	return nil
}

// git returns a git command in dir that fails instead of prompting for credentials.
func (r *Reconciler) git(dir string, args ...string) runner.Command {
	return runner.Command{
		Name: "git",
		Args: args,
		Dir:  dir,
		Env:  []string{"GIT_TERMINAL_PROMPT=0"},
	}
}

func (r *Reconciler) branch(spec config.ProjectSpec) string {
	if spec.Branch != "" {
		return spec.Branch
	}
	return r.defaultBranch()
}

func (r *Reconciler) defaultBranch() string {
	if r.DefaultBranch == "" {
		return "main"
	}
	return r.DefaultBranch
}

func (r *Reconciler) logger() *logging.ScopedLogger {
	if r.Logger == nil {
		return logging.NopLogger()
	}
	return r.Logger
}
