// pattern: Imperative Shell

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the workspace configuration file looked up in the working directory.
const FileName = "reposync.yaml"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Policy selects how the reconciler treats a directory that exists but is
// not a repository, and how it brings an existing repository onto its branch.
type Policy string

const (
	// PolicyConservative leaves a non-repository directory untouched and
	// checks out the requested branch before pulling.
	PolicyConservative Policy = "conservative"
	// PolicyAggressive deletes a non-repository directory, clones afresh,
	// and pulls origin/<branch> without a prior checkout.
	PolicyAggressive Policy = "aggressive"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == PolicyConservative || p == PolicyAggressive
}

// Version manager flavors.
const (
	FlavorAuto    = "auto"
	FlavorWindows = "windows" // nvm-windows binary on PATH
	FlavorPOSIX   = "posix"   // nvm.sh sourced into bash
)

type Config struct {
	Projects       []ProjectSpec        `yaml:"projects"`
	Policy         Policy               `yaml:"policy"`
	DefaultBranch  string               `yaml:"default_branch"`
	Mirrors        Mirrors              `yaml:"mirrors"`
	VersionManager VersionManagerConfig `yaml:"version_manager"`
	Retry          RetryConfig          `yaml:"retry"`
	LogLevel       string               `yaml:"log_level"`
	Theme          string               `yaml:"theme"`
	DataDir        string               `yaml:"data_dir"`
	NextSteps      []string             `yaml:"next_steps"`
}

// ProjectSpec declares one project of the workspace. Name doubles as the
// project's directory relative to the workspace root.
type ProjectSpec struct {
	Name           string `yaml:"name"`
	DisplayName    string `yaml:"display_name"`
	RepoURL        string `yaml:"repo_url"`
	Branch         string `yaml:"branch"`
	NodeVersion    string `yaml:"node_version"`
	PackageManager string `yaml:"package_manager"`
}

// Label returns the display name followed by the directory name.
func (p ProjectSpec) Label() string {
	if p.DisplayName == "" || p.DisplayName == p.Name {
		return p.Name
	}
	return fmt.Sprintf("%s (%s)", p.DisplayName, p.Name)
}

// Mirrors holds the alternate download endpoints used while provisioning.
type Mirrors struct {
	Enabled  bool   `yaml:"enabled"`
	Node     string `yaml:"node"`     // runtime downloads
	NPM      string `yaml:"npm"`      // npm bundled with a runtime download
	Registry string `yaml:"registry"` // package registry for npm, yarn and pnpm
}

type VersionManagerConfig struct {
	Disabled bool   `yaml:"disabled"`
	Flavor   string `yaml:"flavor"`
	Dir      string `yaml:"dir"` // NVM_DIR for the posix flavor
}

// ResolvedFlavor returns the configured flavor, resolving "auto" for goos.
func (v VersionManagerConfig) ResolvedFlavor(goos string) string {
	switch v.Flavor {
	case FlavorWindows, FlavorPOSIX:
		return v.Flavor
	}
	if goos == "windows" {
		return FlavorWindows
	}
	return FlavorPOSIX
}

// RetryConfig controls extra attempts for network-bound commands.
type RetryConfig struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

// DefaultProjects is the project list used when no configuration file exists.
func DefaultProjects() []ProjectSpec {
	return []ProjectSpec{
		{
			Name:           "main-app",
			DisplayName:    "Main App",
			RepoURL:        "https://github.com/yunfengnobug/main-app.git",
			Branch:         "main",
			NodeVersion:    "22.14.0",
			PackageManager: "npm",
		},
		{
			Name:           "child-one",
			DisplayName:    "Child App 1",
			RepoURL:        "https://github.com/yunfengnobug/child-one.git",
			Branch:         "main",
			NodeVersion:    "22.14.0",
			PackageManager: "npm",
		},
		{
			Name:           "child-two",
			DisplayName:    "Child App 2",
			RepoURL:        "https://github.com/yunfengnobug/child-two.git",
			Branch:         "main",
			NodeVersion:    "22.14.0",
			PackageManager: "npm",
		},
	}
}

func DefaultConfig() Config {
	return Config{
		Projects:      DefaultProjects(),
		Policy:        PolicyConservative,
		DefaultBranch: "main",
		Mirrors: Mirrors{
			Enabled:  true,
			Node:     "https://npmmirror.com/mirrors/node/",
			NPM:      "https://npmmirror.com/mirrors/npm/",
			Registry: "https://registry.npmmirror.com/",
		},
		VersionManager: VersionManagerConfig{Flavor: FlavorAuto},
		Retry:          RetryConfig{Delay: 2 * time.Second},
		LogLevel:       "info",
		Theme:          "mocha",
		DataDir:        ".reposync",
		NextSteps: []string{
			"npm run dev - start the dev server of every app",
			"review each app's configuration files",
		},
	}
}

// LoadFrom reads the configuration at configPath. A missing file yields
// DefaultConfig. Keys absent from the file keep their default values.
func LoadFrom(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing %s: %w", configPath, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Policy == "" {
		c.Policy = defaults.Policy
	}
	if c.DefaultBranch == "" {
		c.DefaultBranch = defaults.DefaultBranch
	}
	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.DataDir == "" {
		c.DataDir = defaults.DataDir
	}
	if c.Retry.Attempts < 0 {
		c.Retry.Attempts = 0
	}
	for i := range c.Projects {
		p := &c.Projects[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.DisplayName == "" {
			p.DisplayName = p.Name
		}
		if p.Branch == "" {
			p.Branch = c.DefaultBranch
		}
		if p.PackageManager == "" {
			p.PackageManager = "npm"
		}
	}
}

// validNameRe matches project names: alphanumeric start, then a-z A-Z 0-9 . _ / -
var validNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._/-]*$`)

// ValidateName checks that a project name is usable as a workspace-relative directory.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if !validNameRe.MatchString(name) {
		return fmt.Errorf("invalid project name %q: must start with alphanumeric, may contain a-z A-Z 0-9 . _ / -", name)
	}
	if strings.Contains(name, "..") || !filepath.IsLocal(name) {
		return fmt.Errorf("project name %q must stay inside the workspace", name)
	}
	return nil
}

// Validate checks names, name uniqueness and the policy. Package manager
// names are left to the provisioner so an unknown one fails only its project.
func (c *Config) Validate() error {
	var errs []error
	if !c.Policy.Valid() {
		errs = append(errs, fmt.Errorf("unknown policy %q (want %q or %q)", c.Policy, PolicyConservative, PolicyAggressive))
	}

	seen := make(map[string]bool, len(c.Projects))
	for _, p := range c.Projects {
		if err := ValidateName(p.Name); err != nil {
			errs = append(errs, err)
			continue
		}
		key := filepath.Clean(p.Name)
		if seen[key] {
			errs = append(errs, fmt.Errorf("duplicate project name %q", p.Name))
		}
		seen[key] = true
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// ResolvePath returns configPath, or reposync.yaml inside workDir when empty.
func ResolvePath(workDir, configPath string) string {
	if configPath != "" {
		return configPath
	}
	return filepath.Join(workDir, FileName)
}

// ResolveDataDir returns the directory holding the run log and lock file.
func (c *Config) ResolveDataDir(workDir string) string {
	if filepath.IsAbs(c.DataDir) {
		return c.DataDir
	}
	return filepath.Join(workDir, c.DataDir)
}
