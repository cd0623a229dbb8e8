package nvm

import (
	"context"
	"slices"
	"testing"

	"reposync/internal/config"
	"reposync/internal/runner"
)

func TestCommand_Windows(t *testing.T) {
	m := New(config.VersionManagerConfig{Flavor: config.FlavorAuto}, "windows")
	cmd := m.Install("22.14.0")
	if cmd.Name != "nvm" {
		t.Errorf("Name = %q, want nvm", cmd.Name)
	}
	if !slices.Equal(cmd.Args, []string{"install", "22.14.0"}) {
		t.Errorf("Args = %v", cmd.Args)
	}
}

func TestCommand_POSIX(t *testing.T) {
	m := New(config.VersionManagerConfig{Flavor: config.FlavorPOSIX, Dir: "/opt/nvm"}, "windows")
	cmd := m.Use("20.11.1")

	if cmd.Name != "bash" {
		t.Fatalf("Name = %q, want bash", cmd.Name)
	}
	if cmd.Args[0] != "-c" || cmd.Args[1] != posixShim || cmd.Args[2] != "nvm" {
		t.Errorf("shim prefix = %v", cmd.Args[:3])
	}
	if !slices.Equal(cmd.Args[3:], []string{"use", "20.11.1"}) {
		t.Errorf("forwarded args = %v", cmd.Args[3:])
	}
	if !slices.Contains(cmd.Env, "NVM_DIR=/opt/nvm") {
		t.Errorf("Env = %v, want NVM_DIR", cmd.Env)
	}
}

func TestList_SilentAndUncolored(t *testing.T) {
	m := New(config.VersionManagerConfig{Flavor: config.FlavorPOSIX}, "linux")
	cmd := m.List()
	if !cmd.Silent {
		t.Error("List() should be silent")
	}
	if cmd.Args[len(cmd.Args)-1] != "--no-colors" {
		t.Errorf("Args = %v, want --no-colors last", cmd.Args)
	}
}

func TestExec_PreservesInner(t *testing.T) {
	m := New(config.VersionManagerConfig{Flavor: config.FlavorWindows}, "windows")
	inner := runner.Command{Name: "pnpm", Args: []string{"install"}, Dir: "child-one", Env: []string{"CI=1"}}
	cmd := m.Exec("22.14.0", inner)

	if !slices.Equal(cmd.Args, []string{"exec", "22.14.0", "pnpm", "install"}) {
		t.Errorf("Args = %v", cmd.Args)
	}
	if cmd.Dir != "child-one" {
		t.Errorf("Dir = %q", cmd.Dir)
	}
	if !slices.Contains(cmd.Env, "CI=1") {
		t.Errorf("Env = %v", cmd.Env)
	}
}

func TestSettings(t *testing.T) {
	mirrors := config.DefaultConfig().Mirrors
	got := Settings(mirrors)
	if len(got) != 2 || got[0].Key != NodeMirror || got[1].Key != NPMMirror {
		t.Errorf("Settings() = %v", got)
	}

	mirrors.Enabled = false
	if got := Settings(mirrors); len(got) != 0 {
		t.Errorf("Settings() disabled = %v, want none", got)
	}
}

func TestConfigureMirror_Windows(t *testing.T) {
	m := New(config.VersionManagerConfig{}, "windows")
	var ran runner.Command
	r := runner.Func(func(ctx context.Context, cmd runner.Command) runner.Result {
		ran = cmd
		return runner.Result{Success: true}
	})

	res := m.ConfigureMirror(context.Background(), r, Setting{Key: NodeMirror, URL: "https://m/node/"})
	if !res.Success {
		t.Fatal("ConfigureMirror() failed")
	}
	if !slices.Equal(ran.Args, []string{"node_mirror", "https://m/node/"}) || !ran.Silent {
		t.Errorf("ran %v silent=%v", ran.Args, ran.Silent)
	}
}

func TestConfigureMirror_POSIXSetsEnv(t *testing.T) {
	m := New(config.VersionManagerConfig{Flavor: config.FlavorPOSIX}, "linux")
	r := runner.Func(func(ctx context.Context, cmd runner.Command) runner.Result {
		t.Fatalf("posix mirror configuration should not run %s", cmd)
		return runner.Result{}
	})

	for _, url := range []string{"https://a/", "https://b/"} {
		if res := m.ConfigureMirror(context.Background(), r, Setting{Key: NodeMirror, URL: url}); !res.Success {
			t.Fatal("ConfigureMirror() failed")
		}
	}
	if res := m.ConfigureMirror(context.Background(), r, Setting{Key: NPMMirror, URL: "https://c/"}); !res.Success {
		t.Fatal("npm_mirror should succeed as a no-op")
	}

	env := m.Install("22.14.0").Env
	if !slices.Equal(env, []string{"NVM_NODEJS_ORG_MIRROR=https://b/"}) {
		t.Errorf("Env = %v, want only the latest node mirror", env)
	}
}

func TestScope(t *testing.T) {
	cmd := runner.Command{Name: "npm", Args: []string{"install"}}
	if got := Scope(nil, "22.14.0", cmd); got.Name != "npm" {
		t.Errorf("Scope(nil) = %s, want unchanged", got)
	}

	vm := New(config.VersionManagerConfig{}, "windows")
	if got := Scope(vm, "", cmd); got.Name != "npm" {
		t.Errorf("Scope(no version) = %s, want unchanged", got)
	}
	if got := Scope(vm, "22.14.0", cmd); got.Name != "nvm" || got.Args[0] != "exec" {
		t.Errorf("Scope() = %s, want nvm exec", got)
	}
}
