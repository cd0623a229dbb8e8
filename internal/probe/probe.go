// pattern: Imperative Shell

// Package probe reports which external tools are usable. Every probe is
// read-only and degrades to "unavailable" on any failure.
package probe

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"reposync/internal/config"
	"reposync/internal/nvm"
	"reposync/internal/pkgmgr"
	"reposync/internal/runner"
)

// ErrVCSMissing means git is not installed. It aborts the whole run.
var ErrVCSMissing = errors.New("git is not installed")

// LookPathFunc resolves a binary name on PATH.
type LookPathFunc func(file string) (string, error)

// Tool describes one probed binary.
type Tool struct {
	Name      string
	Available bool
	Version   string // first line of the version output
}

// Prober probes the host through a Runner.
type Prober struct {
	runner   runner.Runner
	nvm      *nvm.Manager // nil when the version manager is disabled
	lookPath LookPathFunc
}

// New creates a Prober. vm may be nil when version management is disabled.
func New(r runner.Runner, vm *nvm.Manager) *Prober {
	return &Prober{runner: r, nvm: vm, lookPath: exec.LookPath}
}

// WithLookPath replaces the PATH lookup, for tests.
func (p *Prober) WithLookPath(fn LookPathFunc) *Prober {
	p.lookPath = fn
	return p
}

// VCS probes git.
func (p *Prober) VCS(ctx context.Context) Tool {
	tool := Tool{Name: "git"}
	if _, err := p.lookPath("git"); err != nil {
		return tool
	}
	res := p.runner.Run(ctx, runner.Command{Name: "git", Args: []string{"--version"}, Silent: true})
	tool.Available = res.Success
	if res.Success {
		tool.Version = firstLine(res.Output)
	}
	return tool
}

// HasVCS reports whether git can be invoked.
func (p *Prober) HasVCS(ctx context.Context) bool {
	return p.VCS(ctx).Available
}

// RequireVCS returns ErrVCSMissing when git cannot be invoked.
func (p *Prober) RequireVCS(ctx context.Context) error {
	if !p.HasVCS(ctx) {
		return ErrVCSMissing
	}
	return nil
}

// VersionManager probes nvm. The result is not cached.
func (p *Prober) VersionManager(ctx context.Context) Tool {
	tool := Tool{Name: "nvm"}
	if p.nvm == nil {
		return tool
	}
	// nvm.sh is a shell function and never on PATH.
	if p.nvm.Flavor() == config.FlavorWindows {
		if _, err := p.lookPath("nvm"); err != nil {
			return tool
		}
	}
	res := p.runner.Run(ctx, p.nvm.Version())
	tool.Available = res.Success
	if res.Success {
		tool.Version = firstLine(res.Output)
	}
	return tool
}

// HasVersionManager reports whether nvm can be invoked.
func (p *Prober) HasVersionManager(ctx context.Context) bool {
	return p.VersionManager(ctx).Available
}

// IsVersionInstalled reports whether nvm's installed list contains version
// as a substring. "22.14" therefore matches an installed "22.14.0".
func (p *Prober) IsVersionInstalled(ctx context.Context, version string) bool {
	if p.nvm == nil || version == "" {
		return false
	}
	res := p.runner.Run(ctx, p.nvm.List())
	return res.Success && strings.Contains(res.Output, version)
}

// IsPackageManagerAvailable reports whether manager answers --version under
// runtimeVersion. The default manager ships with the runtime and is always
// available.
func (p *Prober) IsPackageManagerAvailable(ctx context.Context, manager pkgmgr.Manager, runtimeVersion string) bool {
	if manager.IsDefault() {
		return true
	}

	var vm *nvm.Manager
	if p.HasVersionManager(ctx) {
		vm = p.nvm
	}
	res := p.runner.Run(ctx, nvm.Scope(vm, runtimeVersion, manager.VersionCommand()))
	return res.Success
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
