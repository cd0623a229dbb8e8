// pattern: Imperative Shell

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"

	"reposync/internal/cli"
)

var version = "dev"

func main() {
	// Stop parsing flags after the first non-flag arg (the command),
	// so that --help after a command is handled by the command.
	flag.CommandLine.SetInterspersed(false)

	configPath := flag.StringP("config", "c", "", "workspace config file (default: <workdir>/reposync.yaml)")
	workDir := flag.StringP("workdir", "C", "", "workspace directory holding the projects (default: current directory)")
	policy := flag.String("policy", "", "conservative or aggressive (overrides the config file)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides the config file)")
	quiet := flag.BoolP("quiet", "q", false, "do not stream the output of git and package managers")
	watch := flag.Bool("watch", false, "after syncing, sync again whenever the config file changes")
	showVersion := flag.BoolP("version", "v", false, "print version and exit")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cli.Options{
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Interactive: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}

	// Override flag.Usage before Parse so --help uses the CLI app's help
	flag.Usage = func() {
		app := cli.BuildApp(ctx, version, opts)
		app.PrintHelp(os.Stderr)
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	opts.ConfigPath = *configPath
	opts.WorkDir = *workDir
	opts.Policy = *policy
	opts.LogLevel = *logLevel
	opts.Quiet = *quiet
	opts.Watch = *watch

	app := cli.BuildApp(ctx, version, opts)
	code := app.Execute(flag.Args())
	stop()
	os.Exit(code)
}
