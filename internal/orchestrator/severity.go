// pattern: Functional Core

package orchestrator

import (
	"errors"

	"reposync/internal/config"
	"reposync/internal/deps"
	"reposync/internal/pkgmgr"
	"reposync/internal/probe"
	"reposync/internal/reconcile"
	"reposync/internal/toolchain"
)

// ErrPanic wraps a panic recovered while processing a project.
var ErrPanic = errors.New("unexpected failure")

// Severity decides how far a failure propagates.
type Severity int

const (
	SeverityInfo         Severity = iota // reported, nothing skipped
	SeverityDegraded                     // reported, the pipeline continues
	SeverityProjectFatal                 // the project's remaining steps are skipped
	SeverityFatal                        // the run stops
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityDegraded:
		return "degraded"
	case SeverityProjectFatal:
		return "project-fatal"
	default:
		return "fatal"
	}
}

// severities maps every sentinel error to its severity. Errors not listed
// are SeverityProjectFatal.
var severities = []struct {
	err      error
	severity Severity
}{
	{probe.ErrVCSMissing, SeverityFatal},
	{config.ErrInvalidConfig, SeverityFatal},
	{toolchain.ErrInstallFailed, SeverityProjectFatal},
	{toolchain.ErrActivateFailed, SeverityProjectFatal},
	{reconcile.ErrCloneFailed, SeverityProjectFatal},
	{reconcile.ErrPullFailed, SeverityProjectFatal},
	{reconcile.ErrNotRepository, SeverityProjectFatal},
	{reconcile.ErrRemoveFailed, SeverityProjectFatal},
	{pkgmgr.ErrUnknownPackageManager, SeverityProjectFatal},
	{ErrPanic, SeverityProjectFatal},
	{deps.ErrInstallFailed, SeverityDegraded},
	{deps.ErrNoManifest, SeverityInfo},
}

// Classify returns the severity of err. A nil error is SeverityInfo.
func Classify(err error) Severity {
	if err == nil {
		return SeverityInfo
	}
	for _, s := range severities {
		if errors.Is(err, s.err) {
			return s.severity
		}
	}
	return SeverityProjectFatal
}
