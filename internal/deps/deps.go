// pattern: Imperative Shell

// Package deps installs a project's dependencies with its package manager.
package deps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"reposync/internal/logging"
	"reposync/internal/nvm"
	"reposync/internal/pkgmgr"
	"reposync/internal/reconcile"
	"reposync/internal/runner"
)

var (
	// ErrNoManifest means the project directory has no package.json.
	ErrNoManifest = errors.New("no " + reconcile.ManifestFile)
	// ErrInstallFailed means the package manager exited with an error.
	ErrInstallFailed = errors.New("dependency install failed")
)

// Installer runs "<manager> install" in a project directory.
type Installer struct {
	Runner runner.Runner
	NVM    *nvm.Manager // nil when no version manager is available
	Retry  runner.RetryPolicy
	Logger *logging.ScopedLogger
}

// Install installs the dependencies in dir with m, under runtimeVersion
// when a version manager is available.
func (i *Installer) Install(ctx context.Context, dir string, m pkgmgr.Manager, runtimeVersion string) error {
	logger := i.logger()
	if _, err := os.Stat(filepath.Join(dir, reconcile.ManifestFile)); err != nil {
		return fmt.Errorf("%w in %s", ErrNoManifest, dir)
	}

	cmd := nvm.Scope(i.NVM, runtimeVersion, m.InstallCommand(dir))
	logger.Info("installing dependencies", "package_manager", m, "command", cmd.String())

	res := runner.RunWithRetry(ctx, i.Runner, cmd, i.Retry, logger)
	if !res.Success {
		logger.Warn("dependency install failed, install manually", "package_manager", m, "exit_code", res.ExitCode)
		return fmt.Errorf("%w: %s exited with %d", ErrInstallFailed, m, res.ExitCode)
	}
	logger.Info("dependencies installed")
	return nil
}

func (i *Installer) logger() *logging.ScopedLogger {
	if i.Logger == nil {
		return logging.NopLogger()
	}
	return i.Logger
}
