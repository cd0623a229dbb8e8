// pattern: Functional Core

// Package pkgmgr provisions the package manager a project installs its
// dependencies with.
package pkgmgr

import (
	"errors"
	"fmt"
	"strings"

	"reposync/internal/runner"
)

// ErrUnknownPackageManager is returned for names outside npm, yarn and pnpm.
var ErrUnknownPackageManager = errors.New("unknown package manager")

// Manager names a supported package manager.
type Manager string

const (
	NPM  Manager = "npm"
	Yarn Manager = "yarn"
	PNPM Manager = "pnpm"
)

// Default ships with every runtime and is used to bootstrap the others.
const Default = NPM

// globalInstall maps each alternate manager to the Default arguments that install it.
var globalInstall = map[Manager][]string{
	Yarn: {"install", "-g", "yarn"},
	PNPM: {"install", "-g", "pnpm"},
}

// Parse resolves a configured package manager name.
func Parse(name string) (Manager, error) {
	m := Manager(strings.ToLower(strings.TrimSpace(name)))
	switch m {
	case NPM, Yarn, PNPM:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (want npm, yarn or pnpm)", ErrUnknownPackageManager, name)
}

func (m Manager) String() string {
	return string(m)
}

// IsDefault reports whether m is the bundled manager.
func (m Manager) IsDefault() bool {
	return m == Default
}

// VersionCommand probes whether m is on PATH.
func (m Manager) VersionCommand() runner.Command {
	return runner.Command{Name: string(m), Args: []string{"--version"}, Silent: true}
}

// InstallCommand installs the dependencies of the project in dir.
func (m Manager) InstallCommand(dir string) runner.Command {
	return runner.Command{Name: string(m), Args: []string{"install"}, Dir: dir}
}

// RegistryCommand points m at a package registry.
func (m Manager) RegistryCommand(url string) runner.Command {
	return runner.Command{Name: string(m), Args: []string{"config", "set", "registry", url}, Silent: true}
}

// GlobalInstallCommand returns the Default invocation installing m, or
// false for the Default itself.
func (m Manager) GlobalInstallCommand() (runner.Command, bool) {
	args, ok := globalInstall[m]
	if !ok {
		return runner.Command{}, false
	}
	return runner.Command{Name: string(Default), Args: args}, true
}
