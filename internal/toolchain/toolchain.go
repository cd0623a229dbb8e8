// pattern: Imperative Shell

// Package toolchain installs and activates the Node runtime a project requests.
package toolchain

import (
	"context"
	"errors"
	"fmt"

	"reposync/internal/logging"
	"reposync/internal/nvm"
	"reposync/internal/runner"
)

var (
	// ErrInstallFailed means nvm could not install the requested version.
	ErrInstallFailed = errors.New("runtime install failed")
	// ErrActivateFailed means nvm could not switch to the requested version.
	ErrActivateFailed = errors.New("runtime activation failed")
)

// State is a step of the provisioning state machine.
type State int

const (
	Unknown State = iota
	MirrorConfigured
	Installing
	Installed
	Active
	Failed
)

func (s State) String() string {
	switch s {
	case MirrorConfigured:
		return "mirror-configured"
	case Installing:
		return "installing"
	case Installed:
		return "installed"
	case Active:
		return "active"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Inspector answers whether a runtime version is already installed.
type Inspector interface {
	IsVersionInstalled(ctx context.Context, version string) bool
}

// Outcome is the final state of one Ensure call and the states it passed through.
type Outcome struct {
	Version   string
	State     State
	Path      []State
	Assumed   bool // no version manager; the ambient runtime is used unverified
	Installed bool // Ensure installed the version
	Err       error
}

// Provisioner drives a runtime version to Active.
type Provisioner struct {
	Runner  runner.Runner
	NVM     *nvm.Manager // nil when no version manager is available
	Probe   Inspector
	Mirrors []nvm.Setting
	Retry   runner.RetryPolicy
	Logger  *logging.ScopedLogger
}

// Ensure installs version if needed and activates it. Without a version
// manager the version is assumed active.
func (p *Provisioner) Ensure(ctx context.Context, version string) Outcome {
	logger := p.logger().With("node_version", version)
	out := Outcome{Version: version}
	move := func(s State) {
		out.State = s
		out.Path = append(out.Path, s)
	}

	if p.NVM == nil {
		logger.Warn("version manager not available, using the current runtime")
		out.Assumed = true
		move(Active)
		return out
	}

	if p.Probe.IsVersionInstalled(ctx, version) {
		move(Installed)
	} else {
		logger.Warn("runtime not installed, installing")
		p.configureMirrors(ctx, logger)
		move(MirrorConfigured)

		move(Installing)
		res := runner.RunWithRetry(ctx, p.Runner, p.NVM.Install(version), p.Retry, logger)
		if !res.Success {
			logger.Error("runtime install failed", "exit_code", res.ExitCode)
			move(Failed)
			out.Err = fmt.Errorf("%w: node %s", ErrInstallFailed, version)
			return out
		}
		out.Installed = true
		move(Installed)
	}

	if res := p.Runner.Run(ctx, p.NVM.Use(version)); !res.Success {
		logger.Error("runtime activation failed", "exit_code", res.ExitCode)
		move(Failed)
		out.Err = fmt.Errorf("%w: node %s", ErrActivateFailed, version)
		return out
	}
	move(Active)
	logger.Info("runtime ready")
	return out
}

// configureMirrors applies each mirror setting; failures are logged and ignored.
func (p *Provisioner) configureMirrors(ctx context.Context, logger *logging.ScopedLogger) {
	for _, s := range p.Mirrors {
		if res := p.NVM.ConfigureMirror(ctx, p.Runner, s); !res.Success {
			logger.Warn("mirror configuration failed", "setting", s.Key, "url", s.URL)
			continue
		}
		logger.Debug("mirror configured", "setting", s.Key, "url", s.URL)
	}
}

func (p *Provisioner) logger() *logging.ScopedLogger {
	if p.Logger == nil {
		return logging.NopLogger()
	}
	return p.Logger
}
