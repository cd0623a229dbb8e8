// pattern: Imperative Shell

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"reposync/internal/config"
	"reposync/internal/instance"
	"reposync/internal/logging"
	"reposync/internal/orchestrator"
	"reposync/internal/report"
	"reposync/internal/runner"
	"reposync/internal/watch"
)

// Options carries the global flags into every command.
type Options struct {
	ConfigPath  string // empty means reposync.yaml in WorkDir
	WorkDir     string // empty means the process working directory
	Policy      string // overrides the configured policy when set
	LogLevel    string // overrides the configured log level when set
	Quiet       bool   // capture command output instead of streaming it
	Watch       bool   // keep running and sync again on config changes
	Interactive bool   // stdout is a terminal

	Stdout io.Writer
	Stderr io.Writer
}

func (o Options) withDefaults() Options {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}

// BuildApp creates and configures the CLI application with all commands.
func BuildApp(ctx context.Context, version string, opts Options) *App {
	opts = opts.withDefaults()
	app := NewApp(version)
	app.stderr = opts.Stderr

	app.AddCommand(&Command{
		Name:    "sync",
		Summary: "Clone or update every project and install its dependencies",
		Usage:   "Usage: reposync [options] sync",
		Run: func(args []string) int {
			return runSync(ctx, opts)
		},
	})

	app.AddCommand(&Command{
		Name:    "status",
		Summary: "Show the local state of every project without changing anything",
		Usage:   "Usage: reposync [options] status",
		Run: func(args []string) int {
			return runStatus(opts)
		},
	})

	app.AddCommand(&Command{
		Name:    "list",
		Summary: "Print the configured projects",
		Usage:   "Usage: reposync [options] list",
		Run: func(args []string) int {
			return runList(opts)
		},
	})

	app.AddCommand(&Command{
		Name:    "unlock",
		Summary: "Remove a stale workspace lock left by a crashed run",
		Usage:   "Usage: reposync [options] unlock",
		Run: func(args []string) int {
			return runUnlock(opts)
		},
	})

	app.AddCommand(&Command{
		Name:    "version",
		Summary: "Print version and exit",
		Usage:   "Usage: reposync version",
		Run: func(args []string) int {
			fmt.Fprintln(opts.Stdout, version)
			return ExitOK
		},
	})

	return app
}

// workspace is a loaded and validated configuration with its locations.
type workspace struct {
	cfg        config.Config
	root       string
	configPath string
	dataDir    string
}

func loadWorkspace(opts Options) (workspace, error) {
	root := opts.WorkDir
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return workspace{}, fmt.Errorf("resolving workspace: %w", err)
	}

	configPath := config.ResolvePath(root, opts.ConfigPath)
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return workspace{}, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	if opts.Policy != "" {
		cfg.Policy = config.Policy(opts.Policy)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return workspace{}, err
	}

	return workspace{
		cfg:        cfg,
		root:       root,
		configPath: configPath,
		dataDir:    cfg.ResolveDataDir(root),
	}, nil
}

// errConfigRemoved means the watched configuration file no longer exists.
var errConfigRemoved = errors.New("configuration file removed")

// reloadWorkspace loads the configuration again for a watch re-run. A
// removed file yields errConfigRemoved instead of the built-in defaults.
func reloadWorkspace(opts Options, prev workspace) (workspace, error) {
	if _, err := os.Stat(prev.configPath); errors.Is(err, fs.ErrNotExist) {
		return workspace{}, errConfigRemoved
	}
	next, err := loadWorkspace(opts)
	if err != nil {
		return workspace{}, err
	}
	// The lock and log live in the data directory of the first load.
	next.dataDir = prev.dataDir
	return next, nil
}

func runSync(ctx context.Context, opts Options) int {
	ws, err := loadWorkspace(opts)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "Error: %v\n", err)
		return ExitFatal
	}

	fl, err := instance.Lock(ws.dataDir)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "Error: %v\n", err)
		if errors.Is(err, instance.ErrLocked) {
			fmt.Fprintf(opts.Stderr, "Run \"reposync unlock\" if no other run is active.\n")
		}
		return ExitFatal
	}
	defer instance.Cleanup(ws.dataDir, fl)

	logManager, err := logging.NewManager(logging.Config{
		FilePath:       filepath.Join(ws.dataDir, "reposync.log"),
		MaxSizeMB:      10,
		MaxBackups:     3,
		MaxAgeDays:     7,
		ChannelBufSize: 1000,
		Level:          ws.cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(opts.Stderr, "Failed to initialize logging: %v\n", err)
		return ExitFatal
	}
	defer func() { _ = logManager.Close() }()

	appLogger := logManager.For("app")
	appLogger.Info("sync starting", "workspace", ws.root, "config", ws.configPath, "policy", ws.cfg.Policy)

	code := syncOnce(ctx, opts, ws, logManager)
	if !opts.Watch || code != ExitOK {
		return code
	}

	w, err := watch.New(ws.configPath, 0, logManager.For("watch"))
	if err != nil {
		fmt.Fprintf(opts.Stderr, "Error: %v\n", err)
		return ExitFatal
	}
	fmt.Fprintf(opts.Stdout, "\nWatching %s for changes (Ctrl+C to stop)\n", ws.configPath)
	err = w.Run(ctx, func(ctx context.Context) {
		next, err := reloadWorkspace(opts, ws)
		if errors.Is(err, errConfigRemoved) {
			appLogger.Warn("configuration file removed, waiting for it to return", "config", ws.configPath)
			fmt.Fprintf(opts.Stderr, "Warning: %s was removed, not syncing\n", ws.configPath)
			return
		}
		if err != nil {
			appLogger.Error("configuration rejected", "error", err)
			fmt.Fprintf(opts.Stderr, "Error: %v\n", err)
			return
		}
		syncOnce(ctx, opts, next, logManager)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(opts.Stderr, "Error: %v\n", err)
		return ExitFatal
	}
	appLogger.Info("watch stopped")
	return ExitOK
}

// syncOnce runs every project once and prints the issues logged during the run.
func syncOnce(ctx context.Context, opts Options, ws workspace, logManager *logging.Manager) int {
	rep := report.New(opts.Stdout, ws.cfg.Theme)
	cmdRunner := runner.New(runner.Options{
		Stdout: opts.Stdout,
		Logger: logManager.For("runner"),
		PTY:    opts.Interactive,
		Quiet:  opts.Quiet,
	})

	orch := orchestrator.New(orchestrator.Options{
		Config:   ws.cfg,
		Root:     ws.root,
		Runner:   cmdRunner,
		Logs:     logManager,
		Reporter: rep,
	})
	result, err := orch.Run(ctx)

	_ = logManager.Sync()
	rep.Issues(logging.IssuesByProject(logging.Drain(logManager.Entries())))

	if err != nil {
		logManager.For("app").Error("sync aborted", "error", err)
		return ExitFatal
	}
	logManager.For("app").Info("sync finished", "failed", result.Failed())
	return ExitOK
}

func runStatus(opts Options) int {
	ws, err := loadWorkspace(opts)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "Error: %v\n", err)
		return ExitFatal
	}
	orch := orchestrator.New(orchestrator.Options{
		Config:   ws.cfg,
		Root:     ws.root,
		Reporter: report.New(opts.Stdout, ws.cfg.Theme),
	})
	orch.Status()
	return ExitOK
}

func runList(opts Options) int {
	ws, err := loadWorkspace(opts)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "Error: %v\n", err)
		return ExitFatal
	}
	rep := report.New(opts.Stdout, ws.cfg.Theme)
	rep.Overview(ws.cfg.Projects)
	fmt.Fprintf(opts.Stdout, "\npolicy: %s\n", ws.cfg.Policy)
	return ExitOK
}

func runUnlock(opts Options) int {
	ws, err := loadWorkspace(opts)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "Error: %v\n", err)
		return ExitFatal
	}
	removed, err := instance.Unlock(ws.dataDir)
	if err != nil {
		if errors.Is(err, instance.ErrLocked) {
			fmt.Fprintf(opts.Stderr, "Error: a reposync run appears to be active. Stop it first.\n")
		} else {
			fmt.Fprintf(opts.Stderr, "Error: %v\n", err)
		}
		return ExitFatal
	}
	if removed {
		fmt.Fprintln(opts.Stdout, "Removed stale lock files.")
	} else {
		fmt.Fprintln(opts.Stdout, "No lock files found.")
	}
	return ExitOK
}
