package main

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bep/helpers/envhelpers"
	"github.com/rogpeppe/go-internal/testscript"
)

func TestScripts(t *testing.T) {
	params := commonTestScriptsParam
	params.Dir = "testscripts"
	// params.TestWork = true
	testscript.Run(t, params)
}

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"reposync": func() int { main(); return 0 },
	}))
}

func testSetupFunc() func(env *testscript.Env) error {
	return func(env *testscript.Env) error {
		var keyVals []string
		// Commits made by mkremote need an identity; HOME has no git config.
		keyVals = append(keyVals,
			"GIT_AUTHOR_NAME", "reposync",
			"GIT_AUTHOR_EMAIL", "reposync@example.com",
			"GIT_COMMITTER_NAME", "reposync",
			"GIT_COMMITTER_EMAIL", "reposync@example.com",
			"GIT_TERMINAL_PROMPT", "0",
		)
		envhelpers.SetEnvVars(&env.Vars, keyVals...)
		return nil
	}
}

var commonTestScriptsParam = testscript.Params{
	Setup: func(env *testscript.Env) error {
		return testSetupFunc()(env)
	},
	Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
		// mkremote creates a bare repository whose main branch holds the
		// files of a directory from the script archive.
		"mkremote": func(ts *testscript.TestScript, neg bool, args []string) {
			if len(args) != 2 {
				ts.Fatalf("usage: mkremote BARE_DIR CONTENT_DIR")
			}
			bare := ts.MkAbs(args[0])
			content := ts.MkAbs(args[1])
			seed := bare + ".seed"

			git := func(dir string, gitArgs ...string) {
				cmd := exec.Command("git", append([]string{"-c", "commit.gpgsign=false"}, gitArgs...)...)
				cmd.Dir = dir
				cmd.Env = environ(ts)
				if out, err := cmd.CombinedOutput(); err != nil {
					ts.Fatalf("git %s: %v\n%s", strings.Join(gitArgs, " "), err, out)
				}
			}

			git(ts.MkAbs("."), "init", "--bare", bare)
			git(bare, "symbolic-ref", "HEAD", "refs/heads/main")
			git(ts.MkAbs("."), "init", seed)
			git(seed, "symbolic-ref", "HEAD", "refs/heads/main")
			ts.Check(copyTree(content, seed))
			git(seed, "add", "-A")
			git(seed, "commit", "-m", "initial")
			git(seed, "push", bare, "main")
		},
	},
}

func environ(ts *testscript.TestScript) []string {
	env := os.Environ()
	for _, key := range []string{"HOME", "GIT_AUTHOR_NAME", "GIT_AUTHOR_EMAIL", "GIT_COMMITTER_NAME", "GIT_COMMITTER_EMAIL", "GIT_TERMINAL_PROMPT"} {
		env = append(env, key+"="+ts.Getenv(key))
	}
	return env
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
