// pattern: Imperative Shell

package pkgmgr

import (
	"context"
	"fmt"

	"reposync/internal/logging"
	"reposync/internal/nvm"
	"reposync/internal/runner"
)

// Availability reports whether a package manager can be invoked under a runtime.
type Availability interface {
	IsPackageManagerAvailable(ctx context.Context, manager Manager, runtimeVersion string) bool
}

// Outcome is the result of provisioning one project's package manager.
// Effective is the manager the project must use for the rest of the run.
type Outcome struct {
	Requested string
	Effective Manager
	Installed bool // a global install ran and succeeded
	FellBack  bool // the install failed and Effective is Default
	Err       error
}

// Provisioner makes a package manager available. It never modifies the
// project configuration; callers use Outcome.Effective.
type Provisioner struct {
	Runner   runner.Runner
	Probe    Availability
	NVM      *nvm.Manager // nil when no version manager is available
	Registry string       // empty skips registry configuration
	Retry    runner.RetryPolicy
	Logger   *logging.ScopedLogger
}

// Ensure provisions requested under runtimeVersion.
func (p *Provisioner) Ensure(ctx context.Context, requested, runtimeVersion string) Outcome {
	logger := p.logger()
	out := Outcome{Requested: requested}

	m, err := Parse(requested)
	if err != nil {
		logger.Error("package manager not supported", "package_manager", requested)
		out.Err = err
		return out
	}
	out.Effective = m

	if !p.Probe.IsPackageManagerAvailable(ctx, m, runtimeVersion) {
		logger.Warn("package manager not available, installing", "package_manager", m)
		if err := p.install(ctx, m, runtimeVersion); err != nil {
			logger.Error("package manager install failed, falling back", "package_manager", m, "fallback", Default, "error", err)
			out.Effective = Default
			out.FellBack = true
		} else {
			logger.Info("package manager installed", "package_manager", m)
			out.Installed = true
		}
	}

	p.configureRegistry(ctx, out.Effective, runtimeVersion)
	return out
}

func (p *Provisioner) install(ctx context.Context, m Manager, runtimeVersion string) error {
	cmd, ok := m.GlobalInstallCommand()
	if !ok {
		return fmt.Errorf("%s has no global install command", m)
	}

	// The Default fetches the installer package, so it needs the registry first.
	p.configureRegistry(ctx, Default, runtimeVersion)

	res := runner.RunWithRetry(ctx, p.Runner, nvm.Scope(p.NVM, runtimeVersion, cmd), p.Retry, p.logger())
	if !res.Success {
		return fmt.Errorf("%s: exit code %d", cmd, res.ExitCode)
	}
	return nil
}

// configureRegistry is best effort; a failure only degrades download speed.
func (p *Provisioner) configureRegistry(ctx context.Context, m Manager, runtimeVersion string) {
	if p.Registry == "" {
		return
	}
	res := p.Runner.Run(ctx, nvm.Scope(p.NVM, runtimeVersion, m.RegistryCommand(p.Registry)))
	if !res.Success {
		p.logger().Warn("registry configuration failed", "package_manager", m, "registry", p.Registry)
		return
	}
	p.logger().Debug("registry configured", "package_manager", m, "registry", p.Registry)
}

func (p *Provisioner) logger() *logging.ScopedLogger {
	if p.Logger == nil {
		return logging.NopLogger()
	}
	return p.Logger
}
