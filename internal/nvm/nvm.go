// pattern: Functional Core

// Package nvm builds invocations of the Node version manager. On Windows
// nvm is a binary on PATH; elsewhere it is a shell function defined by
// nvm.sh, so every call goes through bash after sourcing that script.
package nvm

import (
	"context"
	"slices"

	"reposync/internal/config"
	"reposync/internal/runner"
)

// Mirror setting keys, named after the nvm-windows subcommands.
const (
	NodeMirror = "node_mirror"
	NPMMirror  = "npm_mirror"
)

// posixShim loads nvm.sh and forwards the remaining arguments to nvm.
const posixShim = `export NVM_DIR="${NVM_DIR:-$HOME/.nvm}"
[ -s "$NVM_DIR/nvm.sh" ] || { echo "nvm.sh not found in $NVM_DIR" >&2; exit 127; }
. "$NVM_DIR/nvm.sh" >/dev/null 2>&1
nvm "$@"`

// posixMirrorEnv maps mirror keys to the variables nvm.sh reads.
var posixMirrorEnv = map[string]string{
	NodeMirror: "NVM_NODEJS_ORG_MIRROR",
}

// Setting is one mirror endpoint for the version manager.
type Setting struct {
	Key string
	URL string
}

// Manager builds nvm commands for one flavor. Mirror settings applied on
// the posix flavor are carried as environment on every later command.
type Manager struct {
	flavor string
	env    []string
}

// New returns a Manager for cfg, resolving the "auto" flavor for goos.
func New(cfg config.VersionManagerConfig, goos string) *Manager {
	m := &Manager{flavor: cfg.ResolvedFlavor(goos)}
	if cfg.Dir != "" && m.flavor == config.FlavorPOSIX {
		m.env = append(m.env, "NVM_DIR="+cfg.Dir)
	}
	return m
}

// Flavor returns config.FlavorWindows or config.FlavorPOSIX.
func (m *Manager) Flavor() string {
	return m.flavor
}

// Command returns an nvm invocation with the given arguments.
func (m *Manager) Command(args ...string) runner.Command {
	if m.flavor == config.FlavorWindows {
		return runner.Command{Name: "nvm", Args: args, Env: slices.Clone(m.env)}
	}
	full := append([]string{"-c", posixShim, "nvm"}, args...)
	return runner.Command{Name: "bash", Args: full, Env: slices.Clone(m.env)}
}

// Version probes the manager itself.
func (m *Manager) Version() runner.Command {
	cmd := m.Command("--version")
	cmd.Silent = true
	return cmd
}

// List lists installed runtime versions.
func (m *Manager) List() runner.Command {
	args := []string{"list"}
	if m.flavor == config.FlavorPOSIX {
		args = append(args, "--no-colors")
	}
	cmd := m.Command(args...)
	cmd.Silent = true
	return cmd
}

// Install installs an exact runtime version.
func (m *Manager) Install(version string) runner.Command {
	return m.Command("install", version)
}

// Use activates an installed runtime version.
func (m *Manager) Use(version string) runner.Command {
	return m.Command("use", version)
}

// Exec wraps inner so it runs under the given runtime version. The inner
// command's directory, environment and silence are preserved.
func (m *Manager) Exec(version string, inner runner.Command) runner.Command {
	args := append([]string{"exec", version, inner.Name}, inner.Args...)
	cmd := m.Command(args...)
	cmd.Dir = inner.Dir
	cmd.Silent = inner.Silent
	cmd.Env = append(cmd.Env, inner.Env...)
	return cmd
}

// Settings returns the mirror settings to apply for mirrors, in order.
func Settings(mirrors config.Mirrors) []Setting {
	if !mirrors.Enabled {
		return nil
	}
	var out []Setting
	if mirrors.Node != "" {
		out = append(out, Setting{Key: NodeMirror, URL: mirrors.Node})
	}
	if mirrors.NPM != "" {
		out = append(out, Setting{Key: NPMMirror, URL: mirrors.NPM})
	}
	return out
}

// ConfigureMirror applies one mirror setting. The windows flavor persists
// it through nvm itself; the posix flavor records an environment override.
// Settings nvm.sh has no equivalent for succeed without effect.
func (m *Manager) ConfigureMirror(ctx context.Context, r runner.Runner, s Setting) runner.Result {
	if m.flavor == config.FlavorWindows {
		cmd := m.Command(s.Key, s.URL)
		cmd.Silent = true
		return r.Run(ctx, cmd)
	}

	name, ok := posixMirrorEnv[s.Key]
	if !ok {
		return runner.Result{Success: true, Output: s.Key + " is not supported by nvm.sh"}
	}
	m.setEnv(name, s.URL)
	return runner.Result{Success: true}
}

func (m *Manager) setEnv(name, value string) {
	prefix := name + "="
	m.env = slices.DeleteFunc(m.env, func(kv string) bool {
		return len(kv) >= len(prefix) && kv[:len(prefix)] == prefix
	})
	m.env = append(m.env, prefix+value)
}

// Scope runs cmd under version when a version manager is available and a
// version was requested; otherwise cmd runs in the ambient environment.
func Scope(vm *Manager, version string, cmd runner.Command) runner.Command {
	if vm == nil || version == "" {
		return cmd
	}
	return vm.Exec(version, cmd)
}
