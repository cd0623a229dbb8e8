// pattern: Imperative Shell

// Package orchestrator runs every configured project through toolchain
// provisioning, reconciliation and dependency installation.
package orchestrator

import (
	"context"
	"fmt"
	"runtime"

	"reposync/internal/config"
	"reposync/internal/deps"
	"reposync/internal/logging"
	"reposync/internal/nvm"
	"reposync/internal/pkgmgr"
	"reposync/internal/probe"
	"reposync/internal/reconcile"
	"reposync/internal/report"
	"reposync/internal/runner"
	"reposync/internal/toolchain"
)

// Status is the overall result of one project.
type Status int

const (
	Skipped Status = iota
	Succeeded
	Degraded
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Degraded:
		return "degraded"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

// ProjectResult records what happened to one project. Step outcomes are
// nil for steps that did not run.
type ProjectResult struct {
	Spec           config.ProjectSpec
	Status         Status
	Toolchain      *toolchain.Outcome
	Reconcile      *reconcile.Outcome
	PackageManager *pkgmgr.Outcome
	DepsErr        error
	Err            error // the error that ended the project early
	State          reconcile.LocalState
}

// Result is the outcome of a run.
type Result struct {
	VCS            probe.Tool
	VersionManager probe.Tool
	Projects       []ProjectResult
}

// Failed returns the number of projects that ended early.
func (r Result) Failed() int {
	n := 0
	for _, p := range r.Projects {
		if p.Status == Failed {
			n++
		}
	}
	return n
}

// Options configures an Orchestrator.
type Options struct {
	Config   config.Config
	Root     string // workspace directory holding the project directories
	Runner   runner.Runner
	Logs     logging.LoggerProvider
	Reporter *report.Reporter
	GOOS     string             // defaults to runtime.GOOS
	LookPath probe.LookPathFunc // defaults to exec.LookPath
}

// Orchestrator processes projects one at a time.
type Orchestrator struct {
	cfg      config.Config
	root     string
	runner   runner.Runner
	logs     logging.LoggerProvider
	reporter *report.Reporter
	vm       *nvm.Manager // configured manager, nil when disabled
	prober   *probe.Prober
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.Reporter == nil {
		opts.Reporter = report.Discard()
	}
	if opts.Logs == nil {
		opts.Logs = nopProvider{}
	}

	var vm *nvm.Manager
	if !opts.Config.VersionManager.Disabled {
		vm = nvm.New(opts.Config.VersionManager, opts.GOOS)
	}
	prober := probe.New(opts.Runner, vm)
	if opts.LookPath != nil {
		prober.WithLookPath(opts.LookPath)
	}

	return &Orchestrator{
		cfg:      opts.Config,
		root:     opts.Root,
		runner:   opts.Runner,
		logs:     opts.Logs,
		reporter: opts.Reporter,
		vm:       vm,
		prober:   prober,
	}
}

// Run checks the environment and processes every project. The returned
// error is non-nil only for a SeverityFatal failure; project failures are in Result.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	logger := o.logs.For("app")
	rep := o.reporter
	var result Result

	rep.Title("reposync")
	rep.Overview(o.cfg.Projects)

	rep.Section("🔍", "Environment")
	result.VCS = o.prober.VCS(ctx)
	if !result.VCS.Available {
		rep.Error("git is not installed, install git first")
		logger.Error("git not found")
		return result, probe.ErrVCSMissing
	}
	rep.Success("git is installed (%s)", result.VCS.Version)

	result.VersionManager = o.prober.VersionManager(ctx)
	vm := o.vm
	if result.VersionManager.Available {
		rep.Success("nvm is available, Node versions will be managed")
	} else {
		vm = nil
		rep.Warning("nvm is not available, the current Node version will be used")
		logger.Warn("version manager not available")
	}

	rep.Section("🚀", "Processing projects")
	for _, spec := range o.cfg.Projects {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled", "error", err)
			break
		}
		result.Projects = append(result.Projects, o.processProject(ctx, spec, vm))
	}

	rep.Section("🎉", "All projects processed")
	rep.NextSteps(o.cfg.NextSteps)
	rep.Summary(o.summaryRows(result.Projects, true))

	logger.Info("run finished", "projects", len(result.Projects), "failed", result.Failed())
	return result, nil
}

// Inspect returns the local state of every project without changing anything.
func (o *Orchestrator) Inspect() []ProjectResult {
	results := make([]ProjectResult, 0, len(o.cfg.Projects))
	for _, spec := range o.cfg.Projects {
		results = append(results, ProjectResult{Spec: spec, State: reconcile.Inspect(o.root, spec.Name)})
	}
	return results
}

// Status prints the readiness table.
func (o *Orchestrator) Status() []ProjectResult {
	results := o.Inspect()
	o.reporter.Summary(o.summaryRows(results, false))
	return results
}

// processProject runs one project's pipeline. A panic ends only this project.
func (o *Orchestrator) processProject(ctx context.Context, spec config.ProjectSpec, vm *nvm.Manager) (res ProjectResult) {
	logger := o.logs.For(logging.ProjectScope(spec.Name))
	rep := o.reporter
	res.Spec = spec

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%w: %v", ErrPanic, r)
			res.Status = Failed
			logger.Error("project aborted", "panic", fmt.Sprint(r))
			rep.Error("error while processing %s: %v", spec.Label(), r)
		}
	}()

	rep.ProjectHeader(spec)

	if spec.RepoURL == "" {
		logger.Info("no repository configured, skipping")
		rep.Warning("no repository configured, skipping")
		res.Status = Skipped
		return res
	}

	retry := runner.Retries(o.cfg.Retry.Attempts, o.cfg.Retry.Delay)
	res.Status = Succeeded

	if spec.NodeVersion != "" {
		rep.Info("checking Node %s", spec.NodeVersion)
		tp := &toolchain.Provisioner{
			Runner:  o.runner,
			NVM:     vm,
			Probe:   o.prober,
			Mirrors: nvm.Settings(o.cfg.Mirrors),
			Retry:   retry,
			Logger:  logger,
		}
		tc := tp.Ensure(ctx, spec.NodeVersion)
		res.Toolchain = &tc
		switch {
		case tc.Err != nil:
			rep.Error("Node %s is not usable: %v", spec.NodeVersion, tc.Err)
			return o.fail(res, tc.Err)
		case tc.Assumed:
			rep.Warning("cannot switch to Node %s without nvm, using the current version", spec.NodeVersion)
		case tc.Installed:
			rep.Success("Node %s installed and active", spec.NodeVersion)
		default:
			rep.Success("Node %s is ready", spec.NodeVersion)
		}
	}

	rec := &reconcile.Reconciler{
		Runner:        o.runner,
		Root:          o.root,
		Policy:        o.cfg.Policy,
		DefaultBranch: o.cfg.DefaultBranch,
		Retry:         retry,
		Logger:        logger,
	}
	rc := rec.Reconcile(ctx, spec)
	res.Reconcile = &rc
	if rc.Err != nil {
		if rc.Action == reconcile.Blocked {
			rep.Warning("directory %s exists but is not a git repository", spec.Name)
		} else {
			rep.Error("%v", rc.Err)
		}
		return o.fail(res, rc.Err)
	}
	switch rc.Action {
	case reconcile.Cloned, reconcile.Recloned:
		rep.Success("repository cloned")
	case reconcile.Updated:
		rep.Success("repository updated")
	}

	if !rc.After.HasManifest {
		logger.Info("no manifest, skipping dependency install")
		rep.Info("no %s found, skipping dependency install", reconcile.ManifestFile)
	} else {
		o.installDependencies(ctx, &res, rc.After.Path, vm, retry, logger)
		if res.Status == Failed {
			return res
		}
	}

	rep.Success("%s done", spec.Label())
	return res
}

func (o *Orchestrator) installDependencies(ctx context.Context, res *ProjectResult, dir string, vm *nvm.Manager, retry runner.RetryPolicy, logger *logging.ScopedLogger) {
	rep := o.reporter
	spec := res.Spec

	registry := ""
	if o.cfg.Mirrors.Enabled {
		registry = o.cfg.Mirrors.Registry
	}
	pp := &pkgmgr.Provisioner{
		Runner:   o.runner,
		Probe:    o.prober,
		NVM:      vm,
		Registry: registry,
		Retry:    retry,
		Logger:   logger,
	}
	pm := pp.Ensure(ctx, spec.PackageManager, spec.NodeVersion)
	res.PackageManager = &pm
	if pm.Err != nil {
		rep.Error("%v", pm.Err)
		*res = o.fail(*res, pm.Err)
		return
	}
	if pm.FellBack {
		rep.Warning("%s could not be installed, falling back to %s", pm.Requested, pm.Effective)
		res.Status = Degraded
	}

	rep.Info("installing dependencies with %s", pm.Effective)
	inst := &deps.Installer{Runner: o.runner, NVM: vm, Retry: retry, Logger: logger}
	if err := inst.Install(ctx, dir, pm.Effective, spec.NodeVersion); err != nil {
		res.DepsErr = err
		rep.Warning("dependency install failed, install them manually")
		*res = o.fail(*res, err)
		return
	}
	rep.Success("dependencies installed")
}

// fail ends the project according to the severity of err.
func (o *Orchestrator) fail(res ProjectResult, err error) ProjectResult {
	switch Classify(err) {
	case SeverityInfo:
	case SeverityDegraded:
		res.Status = max(res.Status, Degraded)
	default:
		res.Status = Failed
		res.Err = err
	}
	return res
}

// summaryRows re-inspects every project so the table reflects the disk.
func (o *Orchestrator) summaryRows(results []ProjectResult, withStatus bool) []report.Row {
	rows := make([]report.Row, 0, len(o.cfg.Projects))
	status := make(map[string]string, len(results))
	if withStatus {
		for _, r := range results {
			status[r.Spec.Name] = r.Status.String()
		}
	}
	for _, spec := range o.cfg.Projects {
		state := reconcile.Inspect(o.root, spec.Name)
		rows = append(rows, report.Row{
			Label:        spec.Label(),
			Directory:    state.Exists(),
			Repository:   state.IsRepository(),
			Manifest:     state.HasManifest,
			Dependencies: state.HasDependencies,
			Status:       status[spec.Name],
		})
	}
	return rows
}

type nopProvider struct{}

func (nopProvider) For(string) *logging.ScopedLogger {
	return logging.NopLogger()
}
